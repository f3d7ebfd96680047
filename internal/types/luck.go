package types

import "time"

// LuckModifier は期限付きの運補正
type LuckModifier struct {
	Label     string    `json:"label" db:"label"`
	Delta     int       `json:"delta" db:"delta"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Active reports whether the modifier still applies at now.
func (m LuckModifier) Active(now time.Time) bool {
	return m.ExpiresAt.After(now)
}

// LuckProfile はユーザーごとの運の状態
type LuckProfile struct {
	UserID          string         `json:"user_id" db:"user_id"`
	BaseLuck        int            `json:"base_luck" db:"base_luck"`
	Modifiers       []LuckModifier `json:"temporary_modifiers"`
	LuckyStreak     int            `json:"lucky_streak" db:"lucky_streak"`
	UnluckyStreak   int            `json:"unlucky_streak" db:"unlucky_streak"`
	TotalRolls      int            `json:"total_rolls" db:"total_rolls"`
	SuccessfulRolls int            `json:"successful_rolls" db:"successful_rolls"`
	LastRollAt      *time.Time     `json:"last_roll_at,omitempty" db:"last_roll_at"`
}

// Clone returns a deep copy so callers never share the modifier slice.
func (p LuckProfile) Clone() LuckProfile {
	out := p
	if p.Modifiers != nil {
		out.Modifiers = make([]LuckModifier, len(p.Modifiers))
		copy(out.Modifiers, p.Modifiers)
	}
	if p.LastRollAt != nil {
		t := *p.LastRollAt
		out.LastRollAt = &t
	}
	return out
}

// LuckTier is the display bucket of an effective luck value.
type LuckTier string

const (
	TierCursed  LuckTier = "cursed"
	TierUnlucky LuckTier = "unlucky"
	TierNormal  LuckTier = "normal"
	TierLucky   LuckTier = "lucky"
	TierBlessed LuckTier = "blessed"
	TierDivine  LuckTier = "divine"
)

// LuckStatus はプロフィール表示用の集計結果
type LuckStatus struct {
	UserID           string          `json:"user_id"`
	CurrentLuck      int             `json:"current_luck"`
	Tier             LuckTier        `json:"luck_tier"`
	Multiplier       float64         `json:"luck_multiplier"`
	LuckyStreak      int             `json:"lucky_streak"`
	UnluckyStreak    int             `json:"unlucky_streak"`
	SuccessRate      float64         `json:"success_rate"`
	TotalRolls       int             `json:"total_rolls"`
	ActiveConditions []ActiveModifier `json:"active_conditions"`
}

// ActiveModifier is a modifier with its remaining lifetime.
type ActiveModifier struct {
	Label     string        `json:"label"`
	Delta     int           `json:"delta"`
	Remaining time.Duration `json:"remaining"`
}
