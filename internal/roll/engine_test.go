package roll

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

type recordingObserver struct {
	kinds []string
}

func (o *recordingObserver) ObserveRoll(kind string, _ bool) {
	o.kinds = append(o.kinds, kind)
}

func TestRollSuccess_Combinations(t *testing.T) {
	tests := []struct {
		name   string
		float  float64
		d100   int // IntN result, d100 = value + 1
		expect bool
	}{
		{name: "chance hit, difficulty miss", float: 0.0, d100: 99, expect: true},
		{name: "chance miss, difficulty hit", float: 0.999, d100: 0, expect: true},
		{name: "both miss", float: 0.999, d100: 99, expect: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			src := &scriptedSource{t: t, floats: []float64{tc.float}, ints: []int{tc.d100}}
			engine, ledger := newTestEngine(t, src)

			got, err := engine.RollSuccess("alice", 0.5)
			if err != nil {
				t.Fatalf("RollSuccess failed: %v", err)
			}
			if got != tc.expect {
				t.Fatalf("RollSuccess() = %v, want %v", got, tc.expect)
			}
			if !src.drained() {
				t.Fatalf("both checks should draw exactly once")
			}

			p := ledger.GetOrCreate("alice")
			if p.TotalRolls != 1 {
				t.Fatalf("TotalRolls = %d, want 1", p.TotalRolls)
			}
			if tc.expect && p.LuckyStreak != 1 {
				t.Fatalf("LuckyStreak = %d, want 1", p.LuckyStreak)
			}
			if !tc.expect && p.UnluckyStreak != 1 {
				t.Fatalf("UnluckyStreak = %d, want 1", p.UnluckyStreak)
			}
		})
	}
}

func TestRollSuccess_AdjustedChanceClamped(t *testing.T) {
	// luck 100 => modifier 0.5 => 0.9*1.5 = 1.35 => clamped to 0.99
	src := &scriptedSource{t: t, floats: []float64{0.991}, ints: []int{99}}
	engine, ledger := newTestEngine(t, src)
	ledger.SetBaseLuck("alice", 100)

	got, err := engine.RollSuccess("alice", 0.9)
	if err != nil {
		t.Fatalf("RollSuccess failed: %v", err)
	}
	if got {
		t.Fatalf("0.991 should miss the clamped 0.99 chance")
	}
}

func TestRollSuccess_InvalidProbability(t *testing.T) {
	engine, ledger := newTestEngine(t, &scriptedSource{t: t})

	for _, p := range []float64{-0.1, 1.5, math.NaN()} {
		if _, err := engine.RollSuccess("alice", p); !errors.Is(err, types.ErrInvalidArgument) {
			t.Fatalf("RollSuccess(%v) error = %v, want ErrInvalidArgument", p, err)
		}
	}
	if ledger.Has("alice") && ledger.GetOrCreate("alice").TotalRolls != 0 {
		t.Fatalf("invalid rolls must not be recorded")
	}
}

func TestRollSuccess_InflatedRate(t *testing.T) {
	engine, _ := newTestEngine(t, NewSeededSource(42))

	const n = 5000
	hits := 0
	for i := 0; i < n; i++ {
		ok, err := engine.RollSuccess("alice", 0.1)
		if err != nil {
			t.Fatalf("RollSuccess failed: %v", err)
		}
		if ok {
			hits++
		}
	}

	// 難易度ロールとのORにより名目10%を大きく上回る（約95%）
	rate := float64(hits) / n
	if rate < 0.9 {
		t.Fatalf("success rate = %.3f, want >= 0.9 for OR-combined roll", rate)
	}
}

func TestRollAgainstDifficulty(t *testing.T) {
	tests := []struct {
		name       string
		baseLuck   int
		difficulty int
		draw       int
		expect     bool
	}{
		{name: "on the line", baseLuck: 50, difficulty: 80, draw: 69, expect: true},
		{name: "just above", baseLuck: 50, difficulty: 80, draw: 70, expect: false},
		{name: "floor 5", baseLuck: 0, difficulty: 100, draw: 4, expect: true},
		{name: "floor 5 miss", baseLuck: 0, difficulty: 100, draw: 5, expect: false},
		{name: "cap 95 miss", baseLuck: 100, difficulty: 0, draw: 95, expect: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			src := &scriptedSource{t: t, ints: []int{tc.draw}}
			engine, ledger := newTestEngine(t, src)
			ledger.SetBaseLuck("alice", tc.baseLuck)

			got, d100, err := engine.RollAgainstDifficulty("alice", tc.difficulty)
			if err != nil {
				t.Fatalf("RollAgainstDifficulty failed: %v", err)
			}
			if got != tc.expect {
				t.Fatalf("RollAgainstDifficulty() = %v, want %v", got, tc.expect)
			}
			if d100 != tc.draw+1 {
				t.Fatalf("d100 = %d, want %d", d100, tc.draw+1)
			}
			if ledger.GetOrCreate("alice").TotalRolls != 1 {
				t.Fatalf("difficulty roll should be recorded")
			}
		})
	}
}

func TestRollAgainstDifficulty_Invalid(t *testing.T) {
	engine, _ := newTestEngine(t, &scriptedSource{t: t})

	for _, d := range []int{-1, 101} {
		if _, _, err := engine.RollAgainstDifficulty("alice", d); !errors.Is(err, types.ErrInvalidArgument) {
			t.Fatalf("RollAgainstDifficulty(%d) error = %v", d, err)
		}
	}
}

func TestCheckRareEvent(t *testing.T) {
	obs := &recordingObserver{}
	src := &scriptedSource{t: t, floats: []float64{0.149, 0.151}}
	engine, ledger := newTestEngine(t, src, WithObserver(obs))
	ledger.AddModifier("alice", "Blessed", 25, time.Hour)

	// luck 75 => 0.1 * (1 + 2*0.25) = 0.15
	hit, err := engine.CheckRareEvent("alice", 0.1)
	if err != nil || !hit {
		t.Fatalf("CheckRareEvent() = %v, %v, want hit", hit, err)
	}
	hit, err = engine.CheckRareEvent("alice", 0.1)
	if err != nil || hit {
		t.Fatalf("CheckRareEvent() = %v, %v, want miss", hit, err)
	}
	if ledger.GetOrCreate("alice").TotalRolls != 0 {
		t.Fatalf("rare-event checks must not touch streaks")
	}
	if len(obs.kinds) != 2 || obs.kinds[0] != "rare_event" {
		t.Fatalf("unexpected observed kinds: %v", obs.kinds)
	}
}

func TestChance_IgnoresLuck(t *testing.T) {
	src := &scriptedSource{t: t, floats: []float64{0.69, 0.70}}
	engine, ledger := newTestEngine(t, src)
	ledger.SetBaseLuck("alice", 0)

	if ok, _ := engine.Chance(0.7); !ok {
		t.Fatalf("0.69 should hit 0.7")
	}
	if ok, _ := engine.Chance(0.7); ok {
		t.Fatalf("0.70 should miss 0.7")
	}
	if _, err := engine.Chance(2); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("unexpected error: %v", err)
	}
}
