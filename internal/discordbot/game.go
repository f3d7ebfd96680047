package discordbot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/localdb"
	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// ショップ価格
const (
	LuckPotionPrice   = 200
	HealthPotionPrice = 50
	HealthPotionName  = "Health Potion"
)

var (
	ErrNotEnoughCoins = errors.New("not enough coins")
	ErrNoBattle       = errors.New("no active battle")
	ErrNoDungeon      = errors.New("no active dungeon run")
	ErrInDungeon      = errors.New("finish or exit your dungeon run first")
	ErrFullHealth     = errors.New("already at full health")
	ErrInventoryFull  = errors.New("inventory is full")
	ErrNoHealthPotion = errors.New("no Health Potion in inventory")
	ErrDungeonRunning = errors.New("dungeon run already in progress")
)

// PlayerRepository stores characters and finished battles.
type PlayerRepository interface {
	GetOrCreatePlayer(userID, name string) (*types.Player, bool, error)
	SavePlayer(p types.Player) error
	SaveBattleRecord(rec types.BattleRecord) error
	GetBattleStats(userID string) (localdb.BattleStats, error)
}

// Game はDiscordに依存しないコマンドの実処理
type Game struct {
	ledger    *luck.Ledger
	persister *luck.Persister
	engine    *roll.Engine
	rewards   *reward.Generator
	resolver  *combat.Resolver
	battles   *combat.Manager
	players   PlayerRepository

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	dungeons map[string]*combat.DungeonRun
}

func NewGame(persister *luck.Persister, resolver *combat.Resolver, rewards *reward.Generator, battles *combat.Manager, players PlayerRepository) *Game {
	engine := resolver.Engine()
	return &Game{
		ledger:    engine.Evaluator().Ledger(),
		persister: persister,
		engine:    engine,
		rewards:   rewards,
		resolver:  resolver,
		battles:   battles,
		players:   players,
		locks:     make(map[string]*sync.Mutex),
		dungeons:  make(map[string]*combat.DungeonRun),
	}
}

// lockUser serializes commands of the same user.
func (g *Game) lockUser(userID string) func() {
	g.mu.Lock()
	l, ok := g.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[userID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (g *Game) ensureLuck(ctx context.Context, userID string) {
	if g.persister == nil {
		return
	}
	if err := g.persister.Ensure(ctx, userID); err != nil {
		// 読み込みに失敗してもデフォルトのプロフィールで続行
		logger.Warn("Failed to hydrate luck profile", zap.String("user_id", userID), zap.Error(err))
	}
}

func (g *Game) load(ctx context.Context, userID, name string) (*types.Player, error) {
	g.ensureLuck(ctx, userID)
	p, created, err := g.players.GetOrCreatePlayer(userID, name)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("New adventurer", zap.String("user_id", userID), zap.String("name", name))
	}
	return p, nil
}

func (g *Game) activeDungeon(userID string) *combat.DungeonRun {
	g.mu.Lock()
	defer g.mu.Unlock()
	run, ok := g.dungeons[userID]
	if !ok {
		return nil
	}
	switch run.Status {
	case combat.DungeonExploring:
		return run
	case combat.DungeonInBattle:
		if _, ok := g.battles.Active(userID); ok {
			return run
		}
		// 部屋の戦闘が放置で掃除された。探索はそこで打ち切り
		run.Exit()
		logger.Info("Dungeon run abandoned after idle battle",
			zap.String("user_id", userID),
			zap.String("dungeon", run.Dungeon.Name),
			zap.Int("rooms", run.Rooms))
		if err := g.players.SavePlayer(*run.Player); err != nil {
			logger.Error("Failed to save player after abandoned dungeon", zap.String("user_id", userID), zap.Error(err))
		}
	}
	delete(g.dungeons, userID)
	return nil
}

// inBattle reports whether a standalone battle is still running for the user.
func (g *Game) inBattle(userID string) bool {
	b, ok := g.battles.Active(userID)
	return ok && !b.IsOver()
}

// LuckStatus returns the user's luck summary.
func (g *Game) LuckStatus(ctx context.Context, userID string) types.LuckStatus {
	defer g.lockUser(userID)()
	g.ensureLuck(ctx, userID)
	return g.engine.Evaluator().Status(userID)
}

// LuckDebug returns the raw profile next to its evaluation and the recent log lines.
func (g *Game) LuckDebug(ctx context.Context, userID string, logLines int) (types.LuckProfile, types.LuckStatus, string) {
	defer g.lockUser(userID)()
	g.ensureLuck(ctx, userID)
	return g.ledger.GetOrCreate(userID), g.engine.Evaluator().Status(userID), logger.GetLogBuffer().ToText(logLines)
}

// BuyLuckPotion spends coins on a Luck Potion and applies its modifier.
func (g *Game) BuyLuckPotion(ctx context.Context, userID, name string) (types.LuckModifier, *types.Player, error) {
	defer g.lockUser(userID)()
	if g.activeDungeon(userID) != nil {
		return types.LuckModifier{}, nil, ErrInDungeon
	}

	p, err := g.load(ctx, userID, name)
	if err != nil {
		return types.LuckModifier{}, nil, err
	}
	if p.Coins < LuckPotionPrice {
		return types.LuckModifier{}, p, fmt.Errorf("luck potion costs %d coins: %w", LuckPotionPrice, ErrNotEnoughCoins)
	}

	mod, err := g.ledger.ApplyPreset(userID, luck.PresetLuckPotion, 0)
	if err != nil {
		return types.LuckModifier{}, p, err
	}
	p.Coins -= LuckPotionPrice
	if err := g.players.SavePlayer(*p); err != nil {
		return mod, p, err
	}
	return mod, p, nil
}

// BuyHealthPotion puts a Health Potion into the inventory.
func (g *Game) BuyHealthPotion(ctx context.Context, userID, name string) (*types.Player, error) {
	defer g.lockUser(userID)()
	if g.activeDungeon(userID) != nil {
		return nil, ErrInDungeon
	}
	if g.inBattle(userID) {
		return nil, combat.ErrBattleInProgress
	}

	p, err := g.load(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if p.Coins < HealthPotionPrice {
		return p, fmt.Errorf("health potion costs %d coins: %w", HealthPotionPrice, ErrNotEnoughCoins)
	}
	if !p.AddItem(HealthPotionName) {
		return p, ErrInventoryFull
	}
	p.Coins -= HealthPotionPrice
	return p, g.players.SavePlayer(*p)
}

// DrinkHealthPotion heals outside of battle.
func (g *Game) DrinkHealthPotion(ctx context.Context, userID, name string) (int, *types.Player, error) {
	defer g.lockUser(userID)()
	if g.activeDungeon(userID) != nil {
		return 0, nil, ErrInDungeon
	}
	if g.inBattle(userID) {
		return 0, nil, combat.ErrBattleInProgress
	}

	p, err := g.load(ctx, userID, name)
	if err != nil {
		return 0, nil, err
	}
	if p.HP >= p.MaxHP {
		return 0, p, ErrFullHealth
	}
	if _, ok := p.TakeItem(func(item string) bool { return item == HealthPotionName }); !ok {
		return 0, p, ErrNoHealthPotion
	}

	before := p.HP
	p.HP = min(p.MaxHP, p.HP+g.resolver.Config().PotionHeal)
	return p.HP - before, p, g.players.SavePlayer(*p)
}

// Profile returns the character and its battle totals.
func (g *Game) Profile(ctx context.Context, userID, name string) (*types.Player, localdb.BattleStats, error) {
	defer g.lockUser(userID)()
	p, err := g.load(ctx, userID, name)
	if err != nil {
		return nil, localdb.BattleStats{}, err
	}
	stats, err := g.players.GetBattleStats(userID)
	return p, stats, err
}

// Adventure runs one adventure at the named location.
func (g *Game) Adventure(ctx context.Context, userID, name, location string) (*combat.AdventureResult, error) {
	defer g.lockUser(userID)()
	if g.activeDungeon(userID) != nil {
		return nil, ErrInDungeon
	}
	// 戦闘終了時にHPとアイテムが戦闘側の値で上書きされるため
	if g.inBattle(userID) {
		return nil, combat.ErrBattleInProgress
	}

	loc, err := combat.FindLocation(location)
	if err != nil {
		return nil, err
	}
	p, err := g.load(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	res, err := combat.Adventure(p, loc, g.resolver, g.rewards)
	if err != nil {
		return nil, err
	}
	now := g.ledger.Now()
	p.LastAdventure = &now
	if err := g.players.SavePlayer(*p); err != nil {
		return nil, err
	}
	return res, nil
}

// BattleView is what the bot shows after a battle command.
type BattleView struct {
	Battle   *combat.Battle
	Turn     *combat.TurnResult
	Record   *types.BattleRecord
	LevelUps []combat.LevelUp
	Room     *combat.RoomResult
	Run      *combat.DungeonRun
}

// StartBattle starts a fight against a random monster scaled to the player.
func (g *Game) StartBattle(ctx context.Context, userID, name string) (*BattleView, error) {
	defer g.lockUser(userID)()
	if g.activeDungeon(userID) != nil {
		return nil, ErrInDungeon
	}
	if b, ok := g.battles.Active(userID); ok && !b.IsOver() {
		return &BattleView{Battle: b}, combat.ErrBattleInProgress
	}

	p, err := g.load(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	tmpl := combat.RandomMonsterFor(g.engine.Source(), p.Level)
	b, err := g.battles.Start(userID, p.CombatEntity(), tmpl.ScaledTo(p.Level), combat.HealingItems(*p))
	if err != nil {
		return nil, err
	}
	return &BattleView{Battle: b}, nil
}

// BattleAction performs one move in the user's active battle and settles it when it ends.
func (g *Game) BattleAction(ctx context.Context, userID, name string, action combat.Action) (*BattleView, error) {
	defer g.lockUser(userID)()

	b, ok := g.battles.Active(userID)
	if !ok {
		return nil, ErrNoBattle
	}
	turn, err := b.Do(action)
	if err != nil {
		return nil, err
	}
	view := &BattleView{Battle: b, Turn: turn}
	if !b.IsOver() {
		return view, nil
	}

	rec, _ := b.Record()
	view.Record = &rec
	if err := g.players.SaveBattleRecord(rec); err != nil {
		logger.Error("Failed to save battle record", zap.String("battle_id", rec.ID), zap.Error(err))
	}

	if run := g.activeDungeon(userID); run != nil && run.Status == combat.DungeonInBattle {
		room, err := run.ResumeAfterBattle(b)
		if err != nil {
			return nil, err
		}
		view.Room = room
		view.Run = run
		view.LevelUps = room.LevelUps
		return view, g.players.SavePlayer(*run.Player)
	}

	p, err := g.load(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	view.LevelUps = combat.SettleBattle(p, b, g.engine.Source())
	g.battles.Finish(userID)
	return view, g.players.SavePlayer(*p)
}

// EnterDungeon starts a dungeon run.
func (g *Game) EnterDungeon(ctx context.Context, userID, name, dungeon string) (*combat.DungeonRun, error) {
	defer g.lockUser(userID)()
	if g.activeDungeon(userID) != nil {
		return nil, ErrDungeonRunning
	}
	if g.inBattle(userID) {
		return nil, combat.ErrBattleInProgress
	}

	d, err := combat.FindDungeon(dungeon)
	if err != nil {
		return nil, err
	}
	p, err := g.load(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	run, err := combat.NewDungeonRun(d, p, g.resolver, g.rewards, g.battles)
	if err != nil {
		return nil, err
	}

	now := g.ledger.Now()
	p.LastDungeon = &now
	if err := g.players.SavePlayer(*p); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.dungeons[userID] = run
	g.mu.Unlock()
	return run, nil
}

// ExploreRoom explores the next room of the active run.
func (g *Game) ExploreRoom(ctx context.Context, userID string) (*combat.RoomResult, *combat.DungeonRun, error) {
	defer g.lockUser(userID)()
	run := g.activeDungeon(userID)
	if run == nil {
		return nil, nil, ErrNoDungeon
	}

	room, err := run.NextRoom()
	if err != nil {
		return nil, run, err
	}
	if err := g.players.SavePlayer(*run.Player); err != nil {
		return room, run, err
	}
	return room, run, nil
}

// ExitDungeon leaves the active run. A room battle in progress is abandoned.
func (g *Game) ExitDungeon(ctx context.Context, userID string) (*combat.DungeonRun, error) {
	defer g.lockUser(userID)()
	run := g.activeDungeon(userID)
	if run == nil {
		return nil, ErrNoDungeon
	}
	run.Exit()

	g.mu.Lock()
	delete(g.dungeons, userID)
	g.mu.Unlock()
	return run, g.players.SavePlayer(*run.Player)
}
