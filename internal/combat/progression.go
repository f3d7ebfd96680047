package combat

import (
	"math"

	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// XPForLevel returns the xp needed to clear the given level.
func XPForLevel(level int) int {
	return int(100 * math.Pow(float64(level), 1.5))
}

// LevelUp describes one level gained.
type LevelUp struct {
	Level   int `json:"level"`
	HP      int `json:"hp_bonus"`
	Attack  int `json:"attack_bonus"`
	Defense int `json:"defense_bonus"`
}

// ApplyLevelUps consumes xp while it reaches MaxXP. Every level grants
// HP+U(5,15), ATK+U(2,8), DEF+U(1,5) and a full heal.
func ApplyLevelUps(p *types.Player, src roll.Source) []LevelUp {
	if p.MaxXP <= 0 {
		p.MaxXP = XPForLevel(max(p.Level, 1))
	}

	var ups []LevelUp
	for p.XP >= p.MaxXP {
		p.XP -= p.MaxXP
		p.Level++
		p.MaxXP = XPForLevel(p.Level)

		up := LevelUp{
			Level:   p.Level,
			HP:      roll.UniformInt(src, 5, 15),
			Attack:  roll.UniformInt(src, 2, 8),
			Defense: roll.UniformInt(src, 1, 5),
		}
		p.MaxHP += up.HP
		p.HP = p.MaxHP
		p.Attack += up.Attack
		p.Defense += up.Defense
		ups = append(ups, up)

		logger.Info("Player leveled up",
			zap.String("user_id", p.UserID),
			zap.Int("level", p.Level))
	}
	return ups
}

// GrantReward adds a resolved reward to the player and applies level ups.
// Items beyond the inventory limit are dropped.
func GrantReward(p *types.Player, r *types.RewardResult, src roll.Source) []LevelUp {
	if r == nil {
		return nil
	}
	p.Coins += r.Coins
	p.XP += r.XP
	for _, item := range r.Items {
		p.AddItem(item)
	}
	return ApplyLevelUps(p, src)
}

// SettleBattle copies the battle's end state back onto the player record.
func SettleBattle(p *types.Player, b *Battle, src roll.Source) []LevelUp {
	rec, done := b.Record()
	if !done {
		return nil
	}

	// 使ったアイテムをインベントリから消す
	left := b.ItemsLeft()
	used := countHealing(p.Inventory) - len(left)
	for i := 0; i < used; i++ {
		p.TakeItem(IsHealingItem)
	}

	p.HP = b.Player().HP
	switch rec.Outcome {
	case types.OutcomeVictory:
		p.BattlesWon++
		return GrantReward(p, b.Reward(), src)
	case types.OutcomeDefeat:
		p.BattlesLost++
	}
	return nil
}

// HealingItems returns the usable battle items in inventory order.
func HealingItems(p types.Player) []string {
	var items []string
	for _, item := range p.Inventory {
		if IsHealingItem(item) {
			items = append(items, item)
		}
	}
	return items
}

func countHealing(inv []string) int {
	n := 0
	for _, item := range inv {
		if IsHealingItem(item) {
			n++
		}
	}
	return n
}
