package combat

import (
	"math"

	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

const (
	DefaultCritBaseChance  = 0.1
	DefaultCritMultiplier  = 1.5
	DefaultFleeChance      = 0.7
	DefaultDefendReduction = 0.5
	DefaultPotionHeal      = 30

	damageVarianceMin = 0.8
	damageVarianceMax = 1.2
)

// Config holds battle tunables.
type Config struct {
	CritBaseChance  float64
	CritMultiplier  float64
	FleeChance      float64
	DefendReduction float64
	PotionHeal      int
}

func DefaultConfig() Config {
	return Config{
		CritBaseChance:  DefaultCritBaseChance,
		CritMultiplier:  DefaultCritMultiplier,
		FleeChance:      DefaultFleeChance,
		DefendReduction: DefaultDefendReduction,
		PotionHeal:      DefaultPotionHeal,
	}
}

// Resolver はダメージ計算とクリティカル判定を行う
type Resolver struct {
	engine *roll.Engine
	cfg    Config
}

func NewResolver(engine *roll.Engine, cfg Config) *Resolver {
	return &Resolver{engine: engine, cfg: cfg}
}

func (r *Resolver) Config() Config {
	return r.cfg
}

func (r *Resolver) Engine() *roll.Engine {
	return r.engine
}

// ComputeDamage returns max(1, round(attack*U(0.8,1.2) - defense)).
func (r *Resolver) ComputeDamage(attacker, defender *types.CombatEntity) int {
	variance := roll.UniformFloat(r.engine.Source(), damageVarianceMin, damageVarianceMax)
	damage := int(math.Round(float64(attacker.Attack)*variance - float64(defender.Defense)))
	if damage < 1 {
		return 1
	}
	return damage
}

// MaybeCritical rolls a luck-adjusted critical hit. The roll is a regular
// RollSuccess, so it feeds the user's streaks.
func (r *Resolver) MaybeCritical(userID string, damage int, baseCritChance float64) (int, bool, error) {
	chance := r.engine.Evaluator().CriticalChance(userID, baseCritChance)
	crit, err := r.engine.RollSuccess(userID, chance)
	if err != nil {
		return damage, false, err
	}
	if !crit {
		return damage, false, nil
	}
	return int(math.Round(float64(damage) * r.cfg.CritMultiplier)), true, nil
}

// defendedDamage applies the defend reduction, never below 1.
func (r *Resolver) defendedDamage(damage int) int {
	reduced := int(float64(damage) * (1 - r.cfg.DefendReduction))
	if reduced < 1 {
		return 1
	}
	return reduced
}
