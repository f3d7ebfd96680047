package luck

import (
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

// Project computes effective luck without touching the ledger.
func Project(p types.LuckProfile, now time.Time, cfg Config) int {
	total := p.BaseLuck
	for _, m := range p.Modifiers {
		if m.Active(now) {
			total += m.Delta
		}
	}
	total += StreakBonus(p, cfg)
	return clampInt(total, MinLuck, MaxLuck)
}

// StreakBonus は連続成功で加算、連続失敗で減算される補正値（上限付き）
func StreakBonus(p types.LuckProfile, cfg Config) int {
	switch {
	case p.LuckyStreak > cfg.StreakThreshold && p.LuckyStreak > 0:
		return clampInt(p.LuckyStreak*cfg.StreakBonusPerRoll, 0, cfg.StreakBonusCap)
	case p.UnluckyStreak > cfg.StreakThreshold && p.UnluckyStreak > 0:
		return -clampInt(p.UnluckyStreak*cfg.StreakBonusPerRoll, 0, cfg.StreakBonusCap)
	default:
		return 0
	}
}

// TierOf maps a luck value to its display tier.
func TierOf(value int) types.LuckTier {
	switch {
	case value < 10:
		return types.TierCursed
	case value < 30:
		return types.TierUnlucky
	case value < 70:
		return types.TierNormal
	case value < 85:
		return types.TierLucky
	case value < 95:
		return types.TierBlessed
	default:
		return types.TierDivine
	}
}

// Modifier converts luck to the signed factor in [-0.5, 0.5] used by rolls.
func Modifier(value int) float64 {
	return float64(value-NeutralLuck) / 100
}

// MultiplierFor returns 1 + Modifier(value), in [0.5, 1.5].
func MultiplierFor(value int) float64 {
	return 1 + Modifier(value)
}

// CriticalChanceFor returns the crit chance for a luck value.
func CriticalChanceFor(value int, base float64) float64 {
	return clampFloat(base+float64(value-NeutralLuck)/200, 0.01, 0.5)
}

// Evaluator derives luck quantities from a Ledger.
type Evaluator struct {
	ledger *Ledger
}

func NewEvaluator(ledger *Ledger) *Evaluator {
	return &Evaluator{ledger: ledger}
}

// Ledger returns the backing ledger.
func (e *Evaluator) Ledger() *Ledger {
	return e.ledger
}

// EffectiveLuck は期限切れ補正を台帳から取り除いた上で現在の運を返す。
func (e *Evaluator) EffectiveLuck(userID string) int {
	var value int
	e.ledger.with(userID, func(p *types.LuckProfile, now time.Time) bool {
		removed := pruneModifiers(p, now)
		value = Project(*p, now, e.ledger.cfg)
		return removed > 0
	})
	return value
}

// Tier returns the user's current tier.
func (e *Evaluator) Tier(userID string) types.LuckTier {
	return TierOf(e.EffectiveLuck(userID))
}

// Multiplier scales reward magnitudes.
func (e *Evaluator) Multiplier(userID string) float64 {
	return MultiplierFor(e.EffectiveLuck(userID))
}

// CriticalChance returns base shifted by luck, clamped to [0.01, 0.5].
func (e *Evaluator) CriticalChance(userID string, base float64) float64 {
	return CriticalChanceFor(e.EffectiveLuck(userID), base)
}

// Status はプロフィール表示用の集計を返す。
func (e *Evaluator) Status(userID string) types.LuckStatus {
	current := e.EffectiveLuck(userID)
	p := e.ledger.GetOrCreate(userID)
	now := e.ledger.Now()

	rate := 0.0
	if p.TotalRolls > 0 {
		rate = float64(p.SuccessfulRolls) / float64(p.TotalRolls) * 100
	}

	active := make([]types.ActiveModifier, 0, len(p.Modifiers))
	for _, m := range p.Modifiers {
		if !m.Active(now) {
			continue
		}
		active = append(active, types.ActiveModifier{
			Label:     m.Label,
			Delta:     m.Delta,
			Remaining: m.ExpiresAt.Sub(now).Truncate(time.Second),
		})
	}

	return types.LuckStatus{
		UserID:           userID,
		CurrentLuck:      current,
		Tier:             TierOf(current),
		Multiplier:       MultiplierFor(current),
		LuckyStreak:      p.LuckyStreak,
		UnluckyStreak:    p.UnluckyStreak,
		SuccessRate:      rate,
		TotalRolls:       p.TotalRolls,
		ActiveConditions: active,
	}
}
