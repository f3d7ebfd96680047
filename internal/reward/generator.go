package reward

import (
	"fmt"

	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

const DefaultBonusItemChance = 0.1

// DefaultBonusItems はボーナス抽選成功時に追加されるアイテム
var DefaultBonusItems = []string{"Lucky Charm", "Rare Gem", "Ancient Coin"}

// Config holds the bonus-item tunables.
type Config struct {
	BonusItemChance float64
	BonusItems      []string
}

func DefaultConfig() Config {
	return Config{
		BonusItemChance: DefaultBonusItemChance,
		BonusItems:      append([]string(nil), DefaultBonusItems...),
	}
}

// Observer receives generated rewards (metrics).
type Observer interface {
	ObserveReward(result *types.RewardResult)
}

// Generator resolves a RewardSpec into concrete coins, xp and items.
type Generator struct {
	engine   *roll.Engine
	cfg      Config
	observer Observer
}

type Option func(*Generator)

func WithObserver(o Observer) Option {
	return func(g *Generator) {
		g.observer = o
	}
}

func NewGenerator(engine *roll.Engine, cfg Config, opts ...Option) *Generator {
	g := &Generator{engine: engine, cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate draws ranges, scales coins and xp by the user's luck multiplier and
// runs one rare-event check for the bonus item set.
func (g *Generator) Generate(userID string, spec types.RewardSpec) (*types.RewardResult, error) {
	coins, err := g.resolve("coins", spec.Coins)
	if err != nil {
		return nil, err
	}
	xp, err := g.resolve("xp", spec.XP)
	if err != nil {
		return nil, err
	}

	multiplier := g.engine.Evaluator().Multiplier(userID)

	items := append([]string(nil), spec.Items...)
	bonus, err := g.engine.CheckRareEvent(userID, g.cfg.BonusItemChance)
	if err != nil {
		return nil, fmt.Errorf("bonus item check: %w", err)
	}
	if bonus {
		items = append(items, g.cfg.BonusItems...)
	}
	if items == nil {
		items = []string{}
	}

	result := &types.RewardResult{
		// int変換で0方向に切り捨て
		Coins:       int(float64(coins) * multiplier),
		XP:          int(float64(xp) * multiplier),
		Items:       items,
		BonusItems:  bonus,
		LuckApplied: true,
		Multiplier:  multiplier,
	}

	logger.Debug("Reward generated",
		zap.String("user_id", userID),
		zap.Int("coins", result.Coins),
		zap.Int("xp", result.XP),
		zap.Float64("multiplier", multiplier),
		zap.Bool("bonus", bonus))

	if g.observer != nil {
		g.observer.ObserveReward(result)
	}
	return result, nil
}

func (g *Generator) resolve(kind string, a types.Amount) (int, error) {
	if !a.IsRange {
		return a.Min, nil
	}
	if a.Min > a.Max {
		return 0, fmt.Errorf("%s range [%d,%d]: %w", kind, a.Min, a.Max, types.ErrInvalidArgument)
	}
	return roll.UniformInt(g.engine.Source(), a.Min, a.Max), nil
}
