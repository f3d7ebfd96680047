package settings

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"go.uber.org/zap"
)

type SettingType string

const (
	SettingTypeNormal SettingType = "normal"
	SettingTypeSecret SettingType = "secret"
)

type Setting struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Required    bool        `json:"required"`
	Description string      `json:"description"`
	UpdatedAt   time.Time   `json:"updated_at"`
	HasValue    bool        `json:"has_value"`
}

type SettingsManager struct {
	db *sql.DB
}

func NewSettingsManager(db *sql.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

// 設定の定義
var DefaultSettings = map[string]Setting{
	// 運の設定
	"BASE_LUCK": {
		Key: "BASE_LUCK", Value: strconv.Itoa(luck.NeutralLuck), Type: SettingTypeNormal,
		Description: "Base luck of new profiles (0-100)",
	},
	"STREAK_BONUS_PER_ROLL": {
		Key: "STREAK_BONUS_PER_ROLL", Value: "2", Type: SettingTypeNormal,
		Description: "Luck added per consecutive roll in a streak",
	},
	"STREAK_BONUS_CAP": {
		Key: "STREAK_BONUS_CAP", Value: "20", Type: SettingTypeNormal,
		Description: "Maximum absolute streak bonus",
	},
	"STREAK_THRESHOLD": {
		Key: "STREAK_THRESHOLD", Value: "0", Type: SettingTypeNormal,
		Description: "Streak length that must be exceeded before the bonus applies",
	},

	// 判定の設定
	"DEFAULT_DIFFICULTY": {
		Key: "DEFAULT_DIFFICULTY", Value: strconv.Itoa(roll.DefaultDifficulty), Type: SettingTypeNormal,
		Description: "Difficulty used by success rolls (1-100)",
	},

	// 戦闘の設定
	"CRIT_BASE_CHANCE": {
		Key: "CRIT_BASE_CHANCE", Value: "0.1", Type: SettingTypeNormal,
		Description: "Base critical hit probability (0-1)",
	},
	"CRIT_MULTIPLIER": {
		Key: "CRIT_MULTIPLIER", Value: "1.5", Type: SettingTypeNormal,
		Description: "Damage multiplier of a critical hit",
	},
	"FLEE_CHANCE": {
		Key: "FLEE_CHANCE", Value: "0.7", Type: SettingTypeNormal,
		Description: "Probability that fleeing succeeds (0-1)",
	},
	"DEFEND_REDUCTION": {
		Key: "DEFEND_REDUCTION", Value: "0.5", Type: SettingTypeNormal,
		Description: "Fraction of incoming damage blocked when defending (0-1)",
	},
	"POTION_HEAL": {
		Key: "POTION_HEAL", Value: "30", Type: SettingTypeNormal,
		Description: "HP restored by a healing potion",
	},

	// 報酬の設定
	"BONUS_ITEM_CHANCE": {
		Key: "BONUS_ITEM_CHANCE", Value: "0.1", Type: SettingTypeNormal,
		Description: "Base probability of a bonus item drop (0-1)",
	},
	"BONUS_ITEMS": {
		Key: "BONUS_ITEMS", Value: strings.Join(reward.DefaultBonusItems, ","), Type: SettingTypeNormal,
		Description: "Comma separated bonus item names",
	},

	// Discord
	"DISCORD_TOKEN": {
		Key: "DISCORD_TOKEN", Value: "", Type: SettingTypeSecret, Required: true,
		Description: "Discord bot token",
	},
}

// CRUD操作
func (sm *SettingsManager) GetSetting(key string) (string, error) {
	var value string
	err := sm.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		// デフォルト値を返す
		if defaultSetting, exists := DefaultSettings[key]; exists {
			return defaultSetting.Value, nil
		}
		return "", fmt.Errorf("setting not found: %s", key)
	}
	return value, err
}

func (sm *SettingsManager) SetSetting(key, value string) error {
	defaultSetting, exists := DefaultSettings[key]
	if !exists {
		return fmt.Errorf("unknown setting key: %s", key)
	}
	if err := ValidateSetting(key, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	_, err := sm.db.Exec(`
		INSERT INTO settings (key, value, setting_type, is_required, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
		string(defaultSetting.Type),
		defaultSetting.Required,
		defaultSetting.Description,
	)
	return err
}

func (sm *SettingsManager) GetAllSettings() (map[string]Setting, error) {
	rows, err := sm.db.Query(`
		SELECT key, value, setting_type, is_required, description, updated_at
		FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]Setting)
	for rows.Next() {
		var s Setting
		var settingType string
		var description sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &settingType, &s.Required, &description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Type = SettingType(settingType)
		s.Description = description.String
		s.HasValue = s.Value != ""
		if s.Type == SettingTypeSecret && s.HasValue {
			s.Value = "********"
		}
		settings[s.Key] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DBにない設定はデフォルト値で補完
	for key, defaultSetting := range DefaultSettings {
		if _, exists := settings[key]; !exists {
			settings[key] = defaultSetting
		}
	}

	return settings, nil
}

// 環境変数からの移行
func (sm *SettingsManager) MigrateFromEnv() error {
	migrated := 0

	for key := range DefaultSettings {
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}

		if envValue := os.Getenv(key); envValue != "" {
			if err := sm.SetSetting(key, envValue); err != nil {
				logger.Error("Failed to migrate setting", zap.String("key", key), zap.Error(err))
				return fmt.Errorf("failed to migrate %s: %w", key, err)
			}
			logger.Info("Migrated setting from environment", zap.String("key", key))
			migrated++
		}
	}

	if migrated > 0 {
		logger.Info("Migration completed", zap.Int("migrated_count", migrated))
		if os.Getenv("DISCORD_TOKEN") != "" {
			logger.Warn("SECURITY WARNING: DISCORD_TOKEN found in environment variables.")
		}
	}
	return nil
}

// バリデーション
func ValidateSetting(key, value string) error {
	switch key {
	case "BASE_LUCK":
		if val, err := strconv.Atoi(value); err != nil || val < luck.MinLuck || val > luck.MaxLuck {
			return fmt.Errorf("must be integer between 0 and 100")
		}
	case "STREAK_BONUS_PER_ROLL", "STREAK_BONUS_CAP", "STREAK_THRESHOLD":
		if val, err := strconv.Atoi(value); err != nil || val < 0 || val > 100 {
			return fmt.Errorf("must be integer between 0 and 100")
		}
	case "DEFAULT_DIFFICULTY":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 100 {
			return fmt.Errorf("must be integer between 1 and 100")
		}
	case "CRIT_BASE_CHANCE", "FLEE_CHANCE", "DEFEND_REDUCTION", "BONUS_ITEM_CHANCE":
		if val, err := strconv.ParseFloat(value, 64); err != nil || val < 0 || val > 1 {
			return fmt.Errorf("must be number between 0 and 1")
		}
	case "CRIT_MULTIPLIER":
		if val, err := strconv.ParseFloat(value, 64); err != nil || val < 1 || val > 10 {
			return fmt.Errorf("must be number between 1 and 10")
		}
	case "POTION_HEAL":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 1000 {
			return fmt.Errorf("must be integer between 1 and 1000")
		}
	case "BONUS_ITEMS":
		if len(splitList(value)) == 0 {
			return fmt.Errorf("must contain at least one item")
		}
	}
	return nil
}

// 初期設定のセットアップ
func (sm *SettingsManager) InitializeDefaultSettings() error {
	for key, setting := range DefaultSettings {
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}
		if setting.Type == SettingTypeSecret {
			continue
		}
		if err := sm.SetSetting(key, setting.Value); err != nil {
			return fmt.Errorf("failed to initialize setting %s: %w", key, err)
		}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
