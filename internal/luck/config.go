package luck

const (
	MinLuck     = 0
	MaxLuck     = 100
	NeutralLuck = 50
)

// Config holds the tunables of the luck model.
type Config struct {
	BaseLuck           int
	StreakBonusPerRoll int
	StreakBonusCap     int
	// StreakThreshold は連続回数がこれを超えた場合のみボーナスを付与する（0で常に付与）
	StreakThreshold int
}

// DefaultConfig returns the stock balance values.
func DefaultConfig() Config {
	return Config{
		BaseLuck:           NeutralLuck,
		StreakBonusPerRoll: 2,
		StreakBonusCap:     20,
		StreakThreshold:    0,
	}
}

func (c Config) normalized() Config {
	if c.BaseLuck < MinLuck || c.BaseLuck > MaxLuck {
		c.BaseLuck = NeutralLuck
	}
	if c.StreakBonusPerRoll < 0 {
		c.StreakBonusPerRoll = 0
	}
	if c.StreakBonusCap < 0 {
		c.StreakBonusCap = 0
	}
	if c.StreakThreshold < 0 {
		c.StreakThreshold = 0
	}
	return c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
