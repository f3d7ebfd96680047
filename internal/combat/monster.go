package combat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

// MonsterTemplate is the base stat line of a monster.
type MonsterTemplate struct {
	Name    string
	HP      int
	Attack  int
	Defense int
	Level   int
	XP      int
	Coins   int
}

// Monsters はバトル用モンスター一覧
var Monsters = map[string]MonsterTemplate{
	"Goblin":   {Name: "Goblin", HP: 30, Attack: 8, Defense: 2, Level: 1, XP: 15, Coins: 20},
	"Orc":      {Name: "Orc", HP: 50, Attack: 12, Defense: 4, Level: 2, XP: 25, Coins: 35},
	"Skeleton": {Name: "Skeleton", HP: 40, Attack: 10, Defense: 3, Level: 2, XP: 20, Coins: 30},
	"Troll":    {Name: "Troll", HP: 80, Attack: 18, Defense: 8, Level: 4, XP: 50, Coins: 75},
	"Dragon":   {Name: "Dragon", HP: 200, Attack: 35, Defense: 15, Level: 8, XP: 150, Coins: 250},
	"Demon":    {Name: "Demon", HP: 150, Attack: 28, Defense: 12, Level: 6, XP: 100, Coins: 180},
	"Lich":     {Name: "Lich", HP: 120, Attack: 25, Defense: 10, Level: 5, XP: 80, Coins: 150},
	"Phoenix":  {Name: "Phoenix", HP: 250, Attack: 40, Defense: 20, Level: 10, XP: 200, Coins: 350},
}

// MonsterNames returns the template names in a stable order.
func MonsterNames() []string {
	names := make([]string, 0, len(Monsters))
	for name := range Monsters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindMonster looks a template up case-insensitively.
func FindMonster(name string) (MonsterTemplate, error) {
	for key, m := range Monsters {
		if strings.EqualFold(key, strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return MonsterTemplate{}, fmt.Errorf("unknown monster %q: %w", name, types.ErrInvalidArgument)
}

// Entity returns the unscaled combat entity.
func (m MonsterTemplate) Entity() types.CombatEntity {
	return types.CombatEntity{
		Name:    m.Name,
		HP:      m.HP,
		MaxHP:   m.HP,
		Attack:  m.Attack,
		Defense: m.Defense,
		Level:   m.Level,
		XP:      m.XP,
		Coins:   m.Coins,
	}
}

// ScaledTo scales hp, attack and defense by (1 + playerLevel/5).
func (m MonsterTemplate) ScaledTo(playerLevel int) types.CombatEntity {
	factor := 1 + float64(playerLevel)/5
	e := m.Entity()
	e.HP = int(float64(m.HP) * factor)
	e.MaxHP = e.HP
	e.Attack = int(float64(m.Attack) * factor)
	e.Defense = int(float64(m.Defense) * factor)
	return e
}

// RandomMonster picks a template uniformly.
func RandomMonster(src roll.Source) MonsterTemplate {
	names := MonsterNames()
	return Monsters[names[src.IntN(len(names))]]
}

// RandomMonsterFor picks uniformly among templates at most one level above the player.
func RandomMonsterFor(src roll.Source, playerLevel int) MonsterTemplate {
	var pool []MonsterTemplate
	for _, name := range MonsterNames() {
		if m := Monsters[name]; m.Level <= playerLevel+1 {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		return Monsters["Goblin"]
	}
	return pool[src.IntN(len(pool))]
}

// MonsterStats are level-derived stats for generated enemies.
type MonsterStats struct {
	HP      int
	MaxHP   int
	Attack  int
	Defense int
}

// GenerateStats derives stats from a level: hp 50+10L±10, attack 8+2L+U(-2,3),
// defense 3+L+U(-1,2). HP never exceeds MaxHP.
func GenerateStats(src roll.Source, level int) MonsterStats {
	baseHP := 50 + level*10
	baseAttack := 8 + level*2
	baseDefense := 3 + level

	s := MonsterStats{
		HP:      baseHP + roll.UniformInt(src, -10, 10),
		MaxHP:   baseHP + roll.UniformInt(src, -10, 10),
		Attack:  baseAttack + roll.UniformInt(src, -2, 3),
		Defense: baseDefense + roll.UniformInt(src, -1, 2),
	}
	if s.HP > s.MaxHP {
		s.HP = s.MaxHP
	}
	return s
}

// GenerateMonster builds a named enemy with generated stats, keeping the
// template's xp and coin yield.
func GenerateMonster(src roll.Source, tmpl MonsterTemplate, level int) types.CombatEntity {
	stats := GenerateStats(src, level)
	e := types.CombatEntity{
		Name:    tmpl.Name,
		HP:      stats.HP,
		MaxHP:   stats.MaxHP,
		Attack:  stats.Attack,
		Defense: stats.Defense,
		Level:   level,
		XP:      tmpl.XP,
		Coins:   tmpl.Coins,
	}
	e.Normalize()
	return e
}
