package combat

import (
	"testing"

	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll/rolltest"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

type fixture struct {
	resolver *Resolver
	rewards  *reward.Generator
	ledger   *luck.Ledger
}

func newFixture(src roll.Source) fixture {
	engine, ledger := rolltest.NewEngine(src)
	return fixture{
		resolver: NewResolver(engine, DefaultConfig()),
		rewards:  reward.NewGenerator(engine, reward.DefaultConfig()),
		ledger:   ledger,
	}
}

func TestComputeDamage_Bounds(t *testing.T) {
	f := newFixture(roll.NewSeededSource(99))
	attacker := &types.CombatEntity{Name: "a", HP: 10, MaxHP: 10, Attack: 10}
	defender := &types.CombatEntity{Name: "d", HP: 10, MaxHP: 10, Defense: 5}

	for i := 0; i < 1000; i++ {
		got := f.resolver.ComputeDamage(attacker, defender)
		if got < 3 || got > 7 {
			t.Fatalf("ComputeDamage() = %d, want within [3,7]", got)
		}
	}
}

func TestComputeDamage_Minimum(t *testing.T) {
	f := newFixture(roll.NewSeededSource(1))
	attacker := &types.CombatEntity{Attack: 1}
	defender := &types.CombatEntity{Defense: 100}

	for i := 0; i < 100; i++ {
		if got := f.resolver.ComputeDamage(attacker, defender); got != 1 {
			t.Fatalf("ComputeDamage() = %d, want 1", got)
		}
	}
}

func TestComputeDamage_Midpoint(t *testing.T) {
	f := newFixture(rolltest.NewScripted(t).Floats(0.5))
	got := f.resolver.ComputeDamage(&types.CombatEntity{Attack: 10}, &types.CombatEntity{Defense: 5})
	if got != 5 {
		t.Fatalf("ComputeDamage() = %d, want 5", got)
	}
}

func TestMaybeCritical(t *testing.T) {
	tests := []struct {
		name       string
		float      float64
		wantDamage int
		wantCrit   bool
	}{
		{name: "critical", float: 0.05, wantDamage: 15, wantCrit: true},
		{name: "normal", float: 0.5, wantDamage: 10, wantCrit: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			// 2回目の難易度ロールは100で外れ
			src := rolltest.NewScripted(t).Floats(tc.float).Ints(99)
			f := newFixture(src)

			damage, crit, err := f.resolver.MaybeCritical("alice", 10, DefaultCritBaseChance)
			if err != nil {
				t.Fatalf("MaybeCritical failed: %v", err)
			}
			if damage != tc.wantDamage || crit != tc.wantCrit {
				t.Fatalf("MaybeCritical() = %d, %v, want %d, %v", damage, crit, tc.wantDamage, tc.wantCrit)
			}

			// クリティカル判定も連続記録に反映される
			p := f.ledger.GetOrCreate("alice")
			if p.TotalRolls != 1 {
				t.Fatalf("TotalRolls = %d, want 1", p.TotalRolls)
			}
			if tc.wantCrit && p.LuckyStreak != 1 {
				t.Fatalf("LuckyStreak = %d, want 1", p.LuckyStreak)
			}
			if !tc.wantCrit && p.UnluckyStreak != 1 {
				t.Fatalf("UnluckyStreak = %d, want 1", p.UnluckyStreak)
			}
		})
	}
}
