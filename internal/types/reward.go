package types

// Amount is either a fixed value or an inclusive [Min, Max] range.
type Amount struct {
	Min     int  `json:"min"`
	Max     int  `json:"max"`
	IsRange bool `json:"is_range"`
}

// Fixed は固定値の報酬量
func Fixed(n int) Amount {
	return Amount{Min: n, Max: n}
}

// Range は[min, max]の範囲で抽選される報酬量
func Range(min, max int) Amount {
	return Amount{Min: min, Max: max, IsRange: true}
}

// RewardSpec describes the base reward before luck is applied.
type RewardSpec struct {
	Coins Amount   `json:"coins"`
	XP    Amount   `json:"xp"`
	Items []string `json:"items,omitempty"`
}

// RewardResult is the resolved reward after luck scaling.
type RewardResult struct {
	Coins       int      `json:"coins"`
	XP          int      `json:"xp"`
	Items       []string `json:"items"`
	BonusItems  bool     `json:"bonus_items"`
	LuckApplied bool     `json:"luck_applied"`
	Multiplier  float64  `json:"luck_multiplier"`
}
