package metrics

import (
	"database/sql"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultNamespace = "rpgbot"

// StoreOperationBuckets はプロフィールストア操作向けの細かいバケット（秒）
var StoreOperationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// GameMetrics collects roll, reward, battle and storage metrics.
type GameMetrics struct {
	Rolls             *prometheus.CounterVec
	RewardCoins       prometheus.Counter
	RewardXP          prometheus.Counter
	BonusItems        prometheus.Counter
	RewardMultiplier  prometheus.Histogram
	Battles           *prometheus.CounterVec
	BattleTurns       prometheus.Histogram
	ActiveBattles     prometheus.Gauge
	Commands          *prometheus.CounterVec
	StoreOperations   *prometheus.CounterVec
	StoreOpDuration   *prometheus.HistogramVec
	DBConnections     *prometheus.GaugeVec
	ModifiersPruned   prometheus.Counter
	ProfilesPersisted prometheus.Counter
}

// New registers the metrics on the global registry.
func New(namespace string) *GameMetrics {
	return NewWithRegistry(namespace, GetRegisterer())
}

func NewWithRegistry(namespace string, registerer prometheus.Registerer) *GameMetrics {
	factory := promauto.With(registerer)

	return &GameMetrics{
		Rolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "luck",
				Name:      "rolls_total",
				Help:      "Total number of luck rolls by kind and result",
			},
			[]string{"kind", "result"},
		),
		RewardCoins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "coins_total",
			Help:      "Total coins granted after luck scaling",
		}),
		RewardXP: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "xp_total",
			Help:      "Total experience granted after luck scaling",
		}),
		BonusItems: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "bonus_items_total",
			Help:      "Number of rewards that included bonus items",
		}),
		RewardMultiplier: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "luck_multiplier",
			Help:      "Luck multiplier applied to rewards",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2, 1.3, 1.4, 1.5},
		}),
		Battles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "battle",
				Name:      "finished_total",
				Help:      "Finished battles by outcome",
			},
			[]string{"outcome"},
		),
		BattleTurns: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "battle",
			Name:      "turns",
			Help:      "Number of turns per finished battle",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		ActiveBattles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "battle",
			Name:      "active",
			Help:      "Battles currently in progress",
		}),
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "discord",
				Name:      "commands_total",
				Help:      "Slash commands handled by name and result",
			},
			[]string{"command", "result"},
		),
		StoreOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Profile store operations by type and result",
			},
			[]string{"operation", "result"},
		),
		StoreOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Profile store operation latency",
				Buckets:   StoreOperationBuckets,
			},
			[]string{"operation"},
		),
		DBConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connections",
				Help:      "Current number of sqlite connections by state",
			},
			[]string{"state"},
		),
		ModifiersPruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "luck",
			Name:      "modifiers_pruned_total",
			Help:      "Expired luck modifiers removed by maintenance",
		}),
		ProfilesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "luck",
			Name:      "profiles_persisted_total",
			Help:      "Luck profiles flushed to the store",
		}),
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveRoll implements roll.Observer.
func (m *GameMetrics) ObserveRoll(kind string, success bool) {
	m.Rolls.WithLabelValues(kind, result(success)).Inc()
}

// ObserveReward implements reward.Observer.
func (m *GameMetrics) ObserveReward(r *types.RewardResult) {
	if r == nil {
		return
	}
	m.RewardCoins.Add(float64(r.Coins))
	m.RewardXP.Add(float64(r.XP))
	m.RewardMultiplier.Observe(r.Multiplier)
	if r.BonusItems {
		m.BonusItems.Inc()
	}
}

// ObserveBattle implements combat.Observer.
func (m *GameMetrics) ObserveBattle(outcome types.BattleOutcome, turns int) {
	m.Battles.WithLabelValues(string(outcome)).Inc()
	m.BattleTurns.Observe(float64(turns))
}

// ObserveStoreOp implements kvstore.OpObserver.
func (m *GameMetrics) ObserveStoreOp(op string, ok bool, d time.Duration) {
	m.StoreOperations.WithLabelValues(op, result(ok)).Inc()
	m.StoreOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *GameMetrics) ObserveCommand(command string, ok bool) {
	m.Commands.WithLabelValues(command, result(ok)).Inc()
}

func (m *GameMetrics) SetActiveBattles(n int) {
	m.ActiveBattles.Set(float64(n))
}

func (m *GameMetrics) AddPrunedModifiers(n int) {
	m.ModifiersPruned.Add(float64(n))
}

func (m *GameMetrics) AddPersistedProfiles(n int) {
	m.ProfilesPersisted.Add(float64(n))
}

// RecordDBPoolStats copies sql.DBStats into the connection gauges.
func (m *GameMetrics) RecordDBPoolStats(stats sql.DBStats) {
	m.DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
}
