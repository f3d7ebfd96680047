package main

import (
	"fmt"

	"github.com/ichi0g0y/discord-rpg-bot/internal/env"
	"github.com/ichi0g0y/discord-rpg-bot/internal/kvstore"
	"github.com/ichi0g0y/discord-rpg-bot/internal/localdb"
	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/metrics"
	"github.com/ichi0g0y/discord-rpg-bot/internal/settings"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/tasks"
	"go.uber.org/zap"
)

func loadGameConfig() settings.GameConfig {
	manager := settings.NewSettingsManager(localdb.GetDB())
	if err := manager.InitializeDefaultSettings(); err != nil {
		logger.Warn("Failed to initialize default settings", zap.Error(err))
	}
	if err := manager.MigrateFromEnv(); err != nil {
		logger.Warn("Failed to migrate settings from environment", zap.Error(err))
	}
	return manager.LoadGameConfig()
}

// discordToken は環境変数を優先し、なければ設定DBの値を使う
func discordToken() string {
	if env.Value.DiscordToken != "" {
		return env.Value.DiscordToken
	}
	token, err := settings.NewSettingsManager(localdb.GetDB()).GetSetting("DISCORD_TOKEN")
	if err != nil {
		return ""
	}
	return token
}

type luckStore struct {
	store   luck.Store
	cleaner tasks.StoreCleaner
	close   func() error
}

// openLuckStore selects where luck profiles are persisted.
func openLuckStore(m *metrics.GameMetrics) (luckStore, error) {
	switch env.Value.StoreBackend {
	case env.StoreRedis:
		rs, err := kvstore.NewStore(kvstore.Config{
			Addr:     env.Value.RedisAddr,
			Password: env.Value.RedisPassword,
			DB:       env.Value.RedisDB,
		}, kvstore.WithOpObserver(m))
		if err != nil {
			return luckStore{}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Luck profiles stored in redis", zap.String("addr", env.Value.RedisAddr))
		return luckStore{store: rs, close: rs.Close}, nil

	case env.StoreMemory:
		logger.Warn("Luck profiles are kept in memory only")
		return luckStore{store: luck.NewMemoryStore(), close: func() error { return nil }}, nil

	default:
		ps := localdb.NewProfileStore(localdb.GetDB())
		logger.Info("Luck profiles stored in sqlite", zap.String("path", env.Value.DBPath))
		return luckStore{store: ps, cleaner: ps, close: func() error { return nil }}, nil
	}
}
