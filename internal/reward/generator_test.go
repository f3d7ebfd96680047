package reward

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll/rolltest"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

type countingObserver struct {
	count int
}

func (o *countingObserver) ObserveReward(*types.RewardResult) { o.count++ }

func TestGenerate_NeutralFixedSpecIsIdentity(t *testing.T) {
	src := rolltest.NewScripted(t).Floats(0.5) // bonus miss
	engine, _ := rolltest.NewEngine(src)
	obs := &countingObserver{}
	gen := NewGenerator(engine, DefaultConfig(), WithObserver(obs))

	got, err := gen.Generate("alice", types.RewardSpec{Coins: types.Fixed(100), XP: types.Fixed(40)})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got.Coins != 100 || got.XP != 40 {
		t.Fatalf("Generate() = %d coins %d xp, want 100/40", got.Coins, got.XP)
	}
	if got.Multiplier != 1.0 || !got.LuckApplied {
		t.Fatalf("unexpected multiplier flags: %+v", got)
	}
	if got.BonusItems || len(got.Items) != 0 {
		t.Fatalf("no bonus expected: %+v", got)
	}
	if obs.count != 1 {
		t.Fatalf("observer called %d times, want 1", obs.count)
	}
}

func TestGenerate_LuckScalesAndTruncates(t *testing.T) {
	tests := []struct {
		name      string
		baseLuck  int
		coins     int
		wantCoins int
	}{
		{name: "max luck", baseLuck: 100, coins: 101, wantCoins: 151}, // 151.5
		{name: "min luck", baseLuck: 0, coins: 101, wantCoins: 50},    // 50.5
		{name: "lucky", baseLuck: 75, coins: 10, wantCoins: 12},       // 12.5
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			src := rolltest.NewScripted(t).Floats(0.999)
			engine, ledger := rolltest.NewEngine(src)
			if err := ledger.SetBaseLuck("alice", tc.baseLuck); err != nil {
				t.Fatalf("SetBaseLuck failed: %v", err)
			}
			gen := NewGenerator(engine, DefaultConfig())

			got, err := gen.Generate("alice", types.RewardSpec{Coins: types.Fixed(tc.coins), XP: types.Fixed(0)})
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if got.Coins != tc.wantCoins {
				t.Fatalf("Coins = %d, want %d", got.Coins, tc.wantCoins)
			}
		})
	}
}

func TestGenerate_RangeDraw(t *testing.T) {
	// coins 50 + 7, xp 20 + 0, bonus miss
	src := rolltest.NewScripted(t).Ints(7, 0).Floats(0.9)
	engine, _ := rolltest.NewEngine(src)
	gen := NewGenerator(engine, DefaultConfig())

	got, err := gen.Generate("alice", types.RewardSpec{
		Coins: types.Range(50, 200),
		XP:    types.Range(20, 50),
		Items: []string{"Herb"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got.Coins != 57 || got.XP != 20 {
		t.Fatalf("Generate() = %d/%d, want 57/20", got.Coins, got.XP)
	}
	if !reflect.DeepEqual(got.Items, []string{"Herb"}) {
		t.Fatalf("Items = %v", got.Items)
	}
	if src.Remaining() != 0 {
		t.Fatalf("unconsumed draws: %d", src.Remaining())
	}
}

func TestGenerate_InvertedRange(t *testing.T) {
	engine, _ := rolltest.NewEngine(rolltest.NewScripted(t))
	gen := NewGenerator(engine, DefaultConfig())

	_, err := gen.Generate("alice", types.RewardSpec{Coins: types.Range(10, 5)})
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerate_BonusItems(t *testing.T) {
	// luck 75 => 0.1 * 1.5 = 0.15
	src := rolltest.NewScripted(t).Floats(0.12)
	engine, ledger := rolltest.NewEngine(src)
	if _, err := ledger.AddModifier("alice", "Blessed", 25, time.Hour); err != nil {
		t.Fatalf("AddModifier failed: %v", err)
	}
	gen := NewGenerator(engine, DefaultConfig())

	got, err := gen.Generate("alice", types.RewardSpec{Coins: types.Fixed(0), XP: types.Fixed(0), Items: []string{"Stone"}})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	want := []string{"Stone", "Lucky Charm", "Rare Gem", "Ancient Coin"}
	if !got.BonusItems || !reflect.DeepEqual(got.Items, want) {
		t.Fatalf("Items = %v, want %v", got.Items, want)
	}
	if ledger.GetOrCreate("alice").TotalRolls != 0 {
		t.Fatalf("reward generation must not record rolls")
	}
}

func TestGenerate_SeededNeverNegative(t *testing.T) {
	engine, ledger := rolltest.NewEngine(roll.NewSeededSource(1))
	gen := NewGenerator(engine, DefaultConfig())

	for i := 0; i < 500; i++ {
		if err := ledger.SetBaseLuck("alice", i%101); err != nil {
			t.Fatalf("SetBaseLuck failed: %v", err)
		}
		got, err := gen.Generate("alice", types.RewardSpec{Coins: types.Range(0, 300), XP: types.Range(5, 15)})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if got.Coins < 0 || got.Coins > 450 || got.XP < 2 || got.XP > 22 {
			t.Fatalf("reward out of bounds: %+v", got)
		}
	}
}
