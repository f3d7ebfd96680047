package env

import (
	"fmt"
	"os"

	cenv "github.com/caarlos0/env/v11"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// StoreBackend はLuckProfileの保存先
type StoreBackend string

const (
	StoreSQLite StoreBackend = "sqlite"
	StoreRedis  StoreBackend = "redis"
	StoreMemory StoreBackend = "memory"
)

// EnvValue holds process configuration read from the environment.
type EnvValue struct {
	DiscordToken   string       `env:"DISCORD_TOKEN"`
	DiscordAppID   string       `env:"DISCORD_APP_ID"`
	DiscordGuildID string       `env:"DISCORD_GUILD_ID"`
	DBPath         string       `env:"DB_PATH" envDefault:"data/bot.db"`
	StoreBackend   StoreBackend `env:"STORE_BACKEND" envDefault:"sqlite"`
	RedisAddr      string       `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string       `env:"REDIS_PASSWORD"`
	RedisDB        int          `env:"REDIS_DB" envDefault:"0"`
	MetricsPort    int          `env:"METRICS_PORT" envDefault:"9090"`
	PruneSchedule  string       `env:"PRUNE_SCHEDULE" envDefault:"0 */5 * * * *"`
	DebugMode      bool         `env:"DEBUG_MODE" envDefault:"false"`
}

var Value EnvValue

// LoadEnv は.envファイル（存在すれば）と環境変数からValueを構築する。
func LoadEnv() {
	loadOrDefault(".env")
}

func loadOrDefault(dotenvPath string) {
	if err := load(dotenvPath); err != nil {
		logger.Warn("Failed to load environment, falling back to defaults", zap.Error(err))
		Value = defaults()
	}
}

// defaults はenvDefaultタグの値だけで組み立てたEnvValue
func defaults() EnvValue {
	var v EnvValue
	// 空の環境を渡してプロセスの環境変数を無視する
	_ = cenv.ParseWithOptions(&v, cenv.Options{Environment: map[string]string{}})
	return v
}

func load(dotenvPath string) error {
	if _, err := os.Stat(dotenvPath); err == nil {
		// 既に設定されている環境変数は上書きしない
		if err := godotenv.Load(dotenvPath); err != nil {
			return fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	var v EnvValue
	if err := cenv.Parse(&v); err != nil {
		return fmt.Errorf("failed to parse env: %w", err)
	}

	switch v.StoreBackend {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND: %q", v.StoreBackend)
	}

	Value = v
	return nil
}
