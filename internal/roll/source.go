package roll

import (
	"math/rand/v2"
	"sync"
)

// Source は抽選に使う乱数源
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n). n must be > 0.
	IntN(n int) int
}

// globalSource uses the goroutine-safe top-level math/rand/v2 functions.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// DefaultSource is shared by engines that are not given one.
var DefaultSource Source = globalSource{}

// seededSource is a reproducible source guarded by a mutex.
type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a deterministic Source, safe for concurrent use.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *seededSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// UniformInt draws an integer in [min, max] inclusive. Caller guarantees min <= max.
func UniformInt(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + src.IntN(max-min+1)
}

// UniformFloat draws a float in [min, max).
func UniformFloat(src Source, min, max float64) float64 {
	return min + src.Float64()*(max-min)
}
