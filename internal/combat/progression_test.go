package combat

import (
	"errors"
	"testing"

	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll/rolltest"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

func TestXPForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{level: 1, want: 100},
		{level: 2, want: 282},
		{level: 4, want: 800},
		{level: 9, want: 2700},
	}

	for _, tc := range tests {
		if got := XPForLevel(tc.level); got != tc.want {
			t.Fatalf("XPForLevel(%d) = %d, want %d", tc.level, got, tc.want)
		}
	}
}

func TestApplyLevelUps(t *testing.T) {
	src := rolltest.NewScripted(t).Ints(0, 6, 4)
	p := types.NewPlayer("alice", "Alice")
	p.HP = 40
	p.XP = 250

	ups := ApplyLevelUps(&p, src)
	if len(ups) != 1 {
		t.Fatalf("len(ups) = %d, want 1", len(ups))
	}
	want := LevelUp{Level: 2, HP: 5, Attack: 8, Defense: 5}
	if ups[0] != want {
		t.Fatalf("LevelUp = %+v, want %+v", ups[0], want)
	}
	if p.Level != 2 || p.XP != 150 || p.MaxXP != 282 {
		t.Fatalf("player progress = L%d %d/%d", p.Level, p.XP, p.MaxXP)
	}
	if p.MaxHP != 105 || p.HP != 105 || p.Attack != 18 || p.Defense != 10 {
		t.Fatalf("unexpected stats: %+v", p)
	}
}

func TestApplyLevelUps_NoLevel(t *testing.T) {
	p := types.NewPlayer("alice", "Alice")
	p.XP = 99
	if ups := ApplyLevelUps(&p, rolltest.NewScripted(t)); len(ups) != 0 {
		t.Fatalf("unexpected level ups: %+v", ups)
	}
}

func TestSettleBattle_ConsumesItems(t *testing.T) {
	f := newFixture(rolltest.NewScripted(t).Floats(0.5, 0.69))
	p := types.NewPlayer("alice", "Alice")
	p.HP = 50
	p.Inventory = []string{"Herb", "Health Potion", "Health Potion"}

	b := NewBattle("b1", "alice", p.CombatEntity(), testEnemy(50), HealingItems(p), f.resolver, f.rewards)
	if _, err := b.UseItem(); err != nil {
		t.Fatalf("UseItem failed: %v", err)
	}
	if _, err := b.Flee(); err != nil {
		t.Fatalf("Flee failed: %v", err)
	}

	SettleBattle(&p, b, f.resolver.Engine().Source())
	if len(p.Inventory) != 2 || p.Inventory[0] != "Herb" {
		t.Fatalf("Inventory = %v", p.Inventory)
	}
	if p.HP != 75 {
		t.Fatalf("HP = %d, want 75", p.HP)
	}
}

func TestMonsterScaling(t *testing.T) {
	goblin, err := FindMonster("goblin")
	if err != nil {
		t.Fatalf("FindMonster failed: %v", err)
	}
	e := goblin.ScaledTo(5)
	if e.HP != 60 || e.MaxHP != 60 || e.Attack != 16 || e.Defense != 4 {
		t.Fatalf("ScaledTo(5) = %+v", e)
	}
	if e.XP != 15 || e.Coins != 20 {
		t.Fatalf("yield should not scale: %+v", e)
	}

	if _, err := FindMonster("slime"); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateStats_Bounds(t *testing.T) {
	src := roll.NewSeededSource(5)
	for i := 0; i < 500; i++ {
		s := GenerateStats(src, 3)
		if s.MaxHP < 70 || s.MaxHP > 90 || s.HP > s.MaxHP || s.HP < 70 {
			t.Fatalf("hp out of range: %+v", s)
		}
		if s.Attack < 12 || s.Attack > 17 {
			t.Fatalf("attack out of range: %+v", s)
		}
		if s.Defense < 5 || s.Defense > 8 {
			t.Fatalf("defense out of range: %+v", s)
		}
	}
}

func TestRandomMonsterFor(t *testing.T) {
	// level 1: Goblin, Orc, Skeleton (sorted: Goblin, Orc, Skeleton)
	src := rolltest.NewScripted(t).Ints(2)
	if got := RandomMonsterFor(src, 1); got.Name != "Skeleton" {
		t.Fatalf("RandomMonsterFor(1) = %s, want Skeleton", got.Name)
	}

	seeded := roll.NewSeededSource(9)
	for i := 0; i < 200; i++ {
		if m := RandomMonsterFor(seeded, 3); m.Level > 4 {
			t.Fatalf("monster %s (L%d) too strong for level 3", m.Name, m.Level)
		}
	}
}
