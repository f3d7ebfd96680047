// Package rolltest provides deterministic random sources for tests of packages
// built on the roll engine.
package rolltest

import (
	"sync"
	"testing"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
)

// Scripted returns queued values in order and fails the test when a queue runs dry.
type Scripted struct {
	mu     sync.Mutex
	t      testing.TB
	floats []float64
	ints   []int
}

func NewScripted(t testing.TB) *Scripted {
	return &Scripted{t: t}
}

// Floats appends values returned by Float64.
func (s *Scripted) Floats(v ...float64) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats = append(s.floats, v...)
	return s
}

// Ints appends raw IntN results (0-based).
func (s *Scripted) Ints(v ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, v...)
	return s
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		s.t.Fatalf("rolltest: no more floats")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *Scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		s.t.Fatalf("rolltest: no more ints")
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v < 0 || v >= n {
		s.t.Fatalf("rolltest: %d outside [0,%d)", v, n)
	}
	return v
}

// Remaining reports how many queued values were not consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.floats) + len(s.ints)
}

// Epoch is the fixed clock used by NewEngine.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NewEngine builds a ledger with a frozen clock and an engine drawing from src.
func NewEngine(src roll.Source, opts ...roll.EngineOption) (*roll.Engine, *luck.Ledger) {
	ledger := luck.NewLedger(luck.DefaultConfig(), luck.WithClock(func() time.Time { return Epoch }))
	opts = append([]roll.EngineOption{roll.WithSource(src)}, opts...)
	return roll.NewEngine(luck.NewEvaluator(ledger), opts...), ledger
}
