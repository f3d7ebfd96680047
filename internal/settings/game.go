package settings

import (
	"fmt"
	"strconv"

	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"go.uber.org/zap"
)

// GameConfig bundles every balance tunable read from the settings table.
type GameConfig struct {
	Luck              luck.Config
	DefaultDifficulty int
	Combat            combat.Config
	Reward            reward.Config
}

func (sm *SettingsManager) intSetting(key string) (int, error) {
	raw, err := sm.GetSetting(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not an integer: %w", key, err)
	}
	return v, nil
}

func (sm *SettingsManager) floatSetting(key string) (float64, error) {
	raw, err := sm.GetSetting(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not a number: %w", key, err)
	}
	return v, nil
}

func (sm *SettingsManager) LoadLuckConfig() (luck.Config, error) {
	cfg := luck.DefaultConfig()
	var err error
	if cfg.BaseLuck, err = sm.intSetting("BASE_LUCK"); err != nil {
		return cfg, err
	}
	if cfg.StreakBonusPerRoll, err = sm.intSetting("STREAK_BONUS_PER_ROLL"); err != nil {
		return cfg, err
	}
	if cfg.StreakBonusCap, err = sm.intSetting("STREAK_BONUS_CAP"); err != nil {
		return cfg, err
	}
	if cfg.StreakThreshold, err = sm.intSetting("STREAK_THRESHOLD"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (sm *SettingsManager) LoadCombatConfig() (combat.Config, error) {
	cfg := combat.DefaultConfig()
	var err error
	if cfg.CritBaseChance, err = sm.floatSetting("CRIT_BASE_CHANCE"); err != nil {
		return cfg, err
	}
	if cfg.CritMultiplier, err = sm.floatSetting("CRIT_MULTIPLIER"); err != nil {
		return cfg, err
	}
	if cfg.FleeChance, err = sm.floatSetting("FLEE_CHANCE"); err != nil {
		return cfg, err
	}
	if cfg.DefendReduction, err = sm.floatSetting("DEFEND_REDUCTION"); err != nil {
		return cfg, err
	}
	if cfg.PotionHeal, err = sm.intSetting("POTION_HEAL"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (sm *SettingsManager) LoadRewardConfig() (reward.Config, error) {
	cfg := reward.DefaultConfig()
	var err error
	if cfg.BonusItemChance, err = sm.floatSetting("BONUS_ITEM_CHANCE"); err != nil {
		return cfg, err
	}
	raw, err := sm.GetSetting("BONUS_ITEMS")
	if err != nil {
		return cfg, err
	}
	if items := splitList(raw); len(items) > 0 {
		cfg.BonusItems = items
	}
	return cfg, nil
}

// LoadGameConfig reads all tunables. Invalid stored values fall back to defaults with a warning.
func (sm *SettingsManager) LoadGameConfig() GameConfig {
	gc := GameConfig{
		Luck:              luck.DefaultConfig(),
		DefaultDifficulty: roll.DefaultDifficulty,
		Combat:            combat.DefaultConfig(),
		Reward:            reward.DefaultConfig(),
	}

	if cfg, err := sm.LoadLuckConfig(); err != nil {
		logger.Warn("Invalid luck settings, using defaults", zap.Error(err))
	} else {
		gc.Luck = cfg
	}

	if d, err := sm.intSetting("DEFAULT_DIFFICULTY"); err != nil || d < 1 || d > 100 {
		logger.Warn("Invalid DEFAULT_DIFFICULTY, using default", zap.Int("value", d), zap.Error(err))
	} else {
		gc.DefaultDifficulty = d
	}

	if cfg, err := sm.LoadCombatConfig(); err != nil {
		logger.Warn("Invalid combat settings, using defaults", zap.Error(err))
	} else {
		gc.Combat = cfg
	}

	if cfg, err := sm.LoadRewardConfig(); err != nil {
		logger.Warn("Invalid reward settings, using defaults", zap.Error(err))
	} else {
		gc.Reward = cfg
	}

	logger.Info("Game settings loaded",
		zap.Int("base_luck", gc.Luck.BaseLuck),
		zap.Int("default_difficulty", gc.DefaultDifficulty),
		zap.Float64("crit_base_chance", gc.Combat.CritBaseChance),
		zap.Float64("bonus_item_chance", gc.Reward.BonusItemChance))
	return gc
}
