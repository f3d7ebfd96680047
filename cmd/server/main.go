package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/discordbot"
	"github.com/ichi0g0y/discord-rpg-bot/internal/env"
	"github.com/ichi0g0y/discord-rpg-bot/internal/localdb"
	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/metrics"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/settings"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/tasks"
	"github.com/ichi0g0y/discord-rpg-bot/internal/version"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting discord-rpg-bot", zap.String("version", version.String()))

	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	if err := os.MkdirAll(filepath.Dir(env.Value.DBPath), 0o755); err != nil {
		logger.Fatal("Failed to ensure data directory", zap.Error(err))
	}
	if _, err := localdb.SetupDB(env.Value.DBPath); err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}

	cfg := loadGameConfig()
	gameMetrics := metrics.New(metrics.DefaultNamespace)

	ls, err := openLuckStore(gameMetrics)
	if err != nil {
		logger.Fatal("Failed to open luck store", zap.Error(err))
	}

	ledger := luck.NewLedger(cfg.Luck)
	persister := luck.NewPersister(ledger, ls.store)
	engine := roll.NewEngine(luck.NewEvaluator(ledger),
		roll.WithDefaultDifficulty(cfg.DefaultDifficulty),
		roll.WithObserver(gameMetrics))
	rewards := reward.NewGenerator(engine, cfg.Reward, reward.WithObserver(gameMetrics))
	resolver := combat.NewResolver(engine, cfg.Combat)
	battles := combat.NewManager(resolver, rewards, combat.WithBattleObserver(gameMetrics))

	metricsServer := metrics.NewServer(env.Value.MetricsPort)
	metricsServer.Start()

	opts := []tasks.Option{
		tasks.WithRecorder(gameMetrics),
		tasks.WithDB(localdb.GetDB()),
		tasks.WithPruneSchedule(env.Value.PruneSchedule),
	}
	if ls.cleaner != nil {
		opts = append(opts, tasks.WithStoreCleaner(ls.cleaner))
	}
	maintenance := tasks.NewMaintenance(ledger, persister, battles, opts...)
	if err := maintenance.Start(); err != nil {
		logger.Fatal("Failed to start maintenance jobs", zap.Error(err))
	}

	game := discordbot.NewGame(persister, resolver, rewards, battles, localdb.Repository{})
	bot, err := discordbot.NewBot(discordbot.Config{
		Token:   discordToken(),
		AppID:   env.Value.DiscordAppID,
		GuildID: env.Value.DiscordGuildID,
	}, game,
		discordbot.WithCommandObserver(gameMetrics),
		discordbot.WithSettings(settings.NewSettingsManager(localdb.GetDB())))
	if err != nil {
		logger.Fatal("Failed to create discord bot", zap.Error(err))
	}
	if err := bot.Start(); err != nil {
		logger.Fatal("Failed to start discord bot", zap.Error(err))
	}

	logger.Info("Bot started", zap.Int("metrics_port", env.Value.MetricsPort), zap.String("store", string(env.Value.StoreBackend)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := bot.Stop(); err != nil {
		logger.Warn("Failed to close discord session", zap.Error(err))
	}
	// 最後の保存まで待つ
	maintenance.Stop(ctx)
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Warn("Failed to stop metrics server", zap.Error(err))
	}
	if err := ls.close(); err != nil {
		logger.Warn("Failed to close luck store", zap.Error(err))
	}
	if err := localdb.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
