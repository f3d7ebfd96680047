package roll

import (
	"errors"
	"math"
	"testing"

	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

func TestWeightedChoice_NoCandidates(t *testing.T) {
	engine, _ := newTestEngine(t, &scriptedSource{t: t})

	_, err := engine.WeightedChoice("alice", nil)
	if !errors.Is(err, ErrNoCandidates) || !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWeightedChoice_SingleCandidate(t *testing.T) {
	// 乱数を消費しないことも確認する
	engine, ledger := newTestEngine(t, &scriptedSource{t: t})
	ledger.SetBaseLuck("alice", 0)

	for _, w := range []float64{0, 1, 1000} {
		choice, err := engine.WeightedChoice("alice", []Candidate{{Item: "only", Weight: w, Rarity: RarityLegendary}})
		if err != nil {
			t.Fatalf("WeightedChoice failed: %v", err)
		}
		if choice.Candidate.Item != "only" || choice.Index != 0 {
			t.Fatalf("unexpected choice: %+v", choice)
		}
	}
}

func TestWeightedChoice_NeutralLuck(t *testing.T) {
	candidates := []Candidate{
		{Item: "monster", Weight: 40},
		{Item: "treasure", Weight: 25},
		{Item: "trap", Weight: 20},
		{Item: "empty", Weight: 15},
	}

	tests := []struct {
		name   string
		draw   float64
		expect string
	}{
		{name: "first bucket", draw: 0.0, expect: "monster"},
		{name: "just under first boundary", draw: 0.39, expect: "monster"},
		{name: "second bucket", draw: 0.5, expect: "treasure"},
		{name: "last bucket", draw: 0.99, expect: "empty"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			src := &scriptedSource{t: t, floats: []float64{tc.draw}}
			engine, _ := newTestEngine(t, src)

			choice, err := engine.WeightedChoice("alice", candidates)
			if err != nil {
				t.Fatalf("WeightedChoice failed: %v", err)
			}
			if choice.Candidate.Item != tc.expect {
				t.Fatalf("WeightedChoice() = %q, want %q", choice.Candidate.Item, tc.expect)
			}
			if choice.TotalWeight != 100 {
				t.Fatalf("TotalWeight = %v, want 100", choice.TotalWeight)
			}
		})
	}
}

func TestWeightedChoice_LuckShiftsRarity(t *testing.T) {
	candidates := []Candidate{
		{Item: "stick", Weight: 10, Rarity: RarityCommon},
		{Item: "crown", Weight: 10, Rarity: RarityLegendary},
	}

	tests := []struct {
		name         string
		baseLuck     int
		wantCommon   float64
		wantLegend   float64
		wantTotalish float64
	}{
		{name: "max luck boosts legendary", baseLuck: 100, wantCommon: 10, wantLegend: 14, wantTotalish: 24},
		{name: "min luck penalises common most", baseLuck: 0, wantCommon: 5, wantLegend: 9, wantTotalish: 14},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			src := &scriptedSource{t: t, floats: []float64{0.99}}
			engine, ledger := newTestEngine(t, src)
			ledger.SetBaseLuck("alice", tc.baseLuck)

			choice, err := engine.WeightedChoice("alice", candidates)
			if err != nil {
				t.Fatalf("WeightedChoice failed: %v", err)
			}
			if math.Abs(choice.Details[0].AdjustedWeight-tc.wantCommon) > 1e-9 {
				t.Fatalf("common weight = %v, want %v", choice.Details[0].AdjustedWeight, tc.wantCommon)
			}
			if math.Abs(choice.Details[1].AdjustedWeight-tc.wantLegend) > 1e-9 {
				t.Fatalf("legendary weight = %v, want %v", choice.Details[1].AdjustedWeight, tc.wantLegend)
			}
			if math.Abs(choice.TotalWeight-tc.wantTotalish) > 1e-9 {
				t.Fatalf("TotalWeight = %v, want %v", choice.TotalWeight, tc.wantTotalish)
			}
			if choice.Candidate.Item != "crown" {
				t.Fatalf("draw at 0.99 should land on the last candidate, got %q", choice.Candidate.Item)
			}
		})
	}
}

func TestWeightedChoice_InvalidWeight(t *testing.T) {
	engine, _ := newTestEngine(t, &scriptedSource{t: t})

	_, err := engine.WeightedChoice("alice", []Candidate{
		{Item: "a", Weight: 1},
		{Item: "b", Weight: -1},
	})
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdjustWeight(t *testing.T) {
	tests := []struct {
		name     string
		weight   float64
		rarity   Rarity
		modifier float64
		expect   float64
	}{
		{name: "neutral", weight: 5, rarity: RarityRare, modifier: 0, expect: 5},
		{name: "lucky rare", weight: 10, rarity: RarityRare, modifier: 0.5, expect: 12},
		{name: "lucky common unchanged", weight: 10, rarity: RarityCommon, modifier: 0.5, expect: 10},
		{name: "unlucky epic", weight: 10, rarity: RarityEpic, modifier: -0.5, expect: 8},
		{name: "zero weight floored", weight: 0, rarity: RarityCommon, modifier: 0, expect: 0.1},
		{name: "unknown rarity is common", weight: 10, rarity: Rarity("mythic"), modifier: -0.5, expect: 5},
		{name: "case insensitive", weight: 10, rarity: Rarity("Legendary"), modifier: 0.5, expect: 14},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := AdjustWeight(tc.weight, tc.rarity, tc.modifier)
			if math.Abs(got-tc.expect) > 1e-9 {
				t.Fatalf("AdjustWeight() = %v, want %v", got, tc.expect)
			}
		})
	}
}
