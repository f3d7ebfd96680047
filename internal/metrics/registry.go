package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var defaultRegistryManager = &RegistryManager{
	registerer: prometheus.DefaultRegisterer,
	gatherer:   prometheus.DefaultGatherer,
}

// RegistryManager はPrometheusのRegistererを保持し、テストで差し替えられるようにする
type RegistryManager struct {
	mu         sync.RWMutex
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// SetRegistry replaces the global registry used by New and Handler.
func SetRegistry(reg *prometheus.Registry) {
	if reg == nil {
		defaultRegistryManager.set(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
		return
	}
	defaultRegistryManager.set(reg, reg)
}

func GetRegisterer() prometheus.Registerer {
	r, _ := defaultRegistryManager.get()
	return r
}

func GetGatherer() prometheus.Gatherer {
	_, g := defaultRegistryManager.get()
	return g
}

func (m *RegistryManager) set(r prometheus.Registerer, g prometheus.Gatherer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerer = r
	m.gatherer = g
}

func (m *RegistryManager) get() (prometheus.Registerer, prometheus.Gatherer) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registerer, m.gatherer
}
