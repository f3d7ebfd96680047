package roll

import (
	"fmt"
	"testing"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
)

// scriptedSource は事前に決めた値を順番に返す乱数源
type scriptedSource struct {
	t      testing.TB
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	s.t.Helper()
	if len(s.floats) == 0 {
		s.t.Fatalf("scriptedSource: no more floats")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedSource) IntN(n int) int {
	s.t.Helper()
	if len(s.ints) == 0 {
		s.t.Fatalf("scriptedSource: no more ints")
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v < 0 || v >= n {
		s.t.Fatalf("scriptedSource: %d outside [0,%d)", v, n)
	}
	return v
}

func (s *scriptedSource) drained() bool {
	return len(s.floats) == 0 && len(s.ints) == 0
}

func newTestEngine(t testing.TB, src Source, opts ...EngineOption) (*Engine, *luck.Ledger) {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := luck.NewLedger(luck.DefaultConfig(), luck.WithClock(func() time.Time { return start }))
	opts = append([]EngineOption{WithSource(src)}, opts...)
	return NewEngine(luck.NewEvaluator(ledger), opts...), ledger
}

// GenerateCandidates はN件のテスト候補を決定論的に生成する。
func GenerateCandidates(n int) []Candidate {
	rarities := []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}
	candidates := make([]Candidate, n)
	for i := 0; i < n; i++ {
		candidates[i] = Candidate{
			Item:   fmt.Sprintf("item_%03d", i+1),
			Weight: float64((i % 10) + 1),
			Rarity: rarities[i%len(rarities)],
		}
	}
	return candidates
}
