package discordbot

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/localdb"
	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll/rolltest"
	"github.com/ichi0g0y/discord-rpg-bot/internal/settings"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	players map[string]types.Player
	records []types.BattleRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{players: make(map[string]types.Player)}
}

func (r *fakeRepo) GetOrCreatePlayer(userID, name string) (*types.Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[userID]
	if !ok {
		p = types.NewPlayer(userID, name)
		r.players[userID] = p
	}
	p.Inventory = append([]string{}, p.Inventory...)
	return &p, !ok, nil
}

func (r *fakeRepo) SavePlayer(p types.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.UserID] = p
	return nil
}

func (r *fakeRepo) SaveBattleRecord(rec types.BattleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRepo) GetBattleStats(userID string) (localdb.BattleStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s localdb.BattleStats
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		switch rec.Outcome {
		case types.OutcomeVictory:
			s.Victories++
		case types.OutcomeDefeat:
			s.Defeats++
		case types.OutcomeFled:
			s.Fled++
		}
		s.Coins += rec.Coins
		s.XP += rec.XP
	}
	return s, nil
}

func (r *fakeRepo) player(t *testing.T, userID string) types.Player {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[userID]
	require.True(t, ok, "player %s not saved", userID)
	return p
}

func (r *fakeRepo) update(userID string, fn func(p *types.Player)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[userID]
	if !ok {
		p = types.NewPlayer(userID, userID)
	}
	fn(&p)
	r.players[userID] = p
}

type fixture struct {
	game    *Game
	repo    *fakeRepo
	store   *luck.MemoryStore
	battles *combat.Manager
}

func newGame(t *testing.T, src roll.Source) *fixture {
	t.Helper()
	engine, ledger := rolltest.NewEngine(src)
	resolver := combat.NewResolver(engine, combat.DefaultConfig())
	rewards := reward.NewGenerator(engine, reward.DefaultConfig())
	battles := combat.NewManager(resolver, rewards)
	store := luck.NewMemoryStore()
	repo := newFakeRepo()
	return &fixture{
		game:    NewGame(luck.NewPersister(ledger, store), resolver, rewards, battles, repo),
		repo:    repo,
		store:   store,
		battles: battles,
	}
}

func TestGame_LuckPotion(t *testing.T) {
	f := newGame(t, rolltest.NewScripted(t))
	ctx := context.Background()

	_, _, err := f.game.BuyLuckPotion(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, ErrNotEnoughCoins)

	f.repo.update("alice", func(p *types.Player) { p.Coins = 250 })
	mod, p, err := f.game.BuyLuckPotion(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Luck Potion", mod.Label)
	assert.Equal(t, 50, p.Coins)
	assert.Equal(t, 50, f.repo.player(t, "alice").Coins)

	st := f.game.LuckStatus(ctx, "alice")
	assert.Equal(t, 65, st.CurrentLuck)
	require.Len(t, st.ActiveConditions, 1)
	assert.Equal(t, "Luck Potion", st.ActiveConditions[0].Label)
}

func TestGame_LuckHydratesFromStore(t *testing.T) {
	f := newGame(t, rolltest.NewScripted(t))
	ctx := context.Background()

	require.NoError(t, f.store.SaveLuckProfile(ctx, types.LuckProfile{UserID: "bob", BaseLuck: 80, Modifiers: []types.LuckModifier{}}))

	st := f.game.LuckStatus(ctx, "bob")
	assert.Equal(t, 80, st.CurrentLuck)
	assert.Equal(t, types.TierLucky, st.Tier)

	profile, _, logs := f.game.LuckDebug(ctx, "bob", 5)
	assert.Equal(t, 80, profile.BaseLuck)
	assert.NotNil(t, logs)
}

func TestGame_HealthPotion(t *testing.T) {
	f := newGame(t, rolltest.NewScripted(t))
	ctx := context.Background()

	_, err := f.game.BuyHealthPotion(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, ErrNotEnoughCoins)

	_, _, err = f.game.DrinkHealthPotion(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, ErrFullHealth)

	f.repo.update("alice", func(p *types.Player) {
		p.Coins = 60
		p.HP = 50
	})
	_, _, err = f.game.DrinkHealthPotion(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, ErrNoHealthPotion)

	p, err := f.game.BuyHealthPotion(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Coins)
	assert.Equal(t, []string{HealthPotionName}, p.Inventory)

	healed, p, err := f.game.DrinkHealthPotion(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 30, healed)
	assert.Equal(t, 80, p.HP)
	assert.Empty(t, f.repo.player(t, "alice").Inventory)
}

func TestGame_AdventureUnknownLocation(t *testing.T) {
	f := newGame(t, rolltest.NewScripted(t))

	_, err := f.game.Adventure(context.Background(), "alice", "Alice", "Moon")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = f.game.Adventure(context.Background(), "alice", "Alice", "Dragon")
	assert.ErrorIs(t, err, combat.ErrLevelTooLow)
}

func TestGame_AdventureSavesPlayer(t *testing.T) {
	f := newGame(t, roll.NewSeededSource(42))

	res, err := f.game.Adventure(context.Background(), "alice", "Alice", "woods")
	require.NoError(t, err)
	assert.Equal(t, "Whispering Woods", res.Location.Name)

	p := f.repo.player(t, "alice")
	assert.Equal(t, 1, p.AdventureCount)
	assert.Equal(t, res.Reward.Coins, p.Coins)
	require.NotNil(t, p.LastAdventure)
	assert.True(t, p.LastAdventure.Equal(rolltest.Epoch))
	assert.NotEmpty(t, RenderAdventure(res))
}

func TestGame_BattleToTheEnd(t *testing.T) {
	f := newGame(t, roll.NewSeededSource(7))
	ctx := context.Background()

	_, err := f.game.BattleAction(ctx, "alice", "Alice", combat.ActionAttack)
	assert.ErrorIs(t, err, ErrNoBattle)

	view, err := f.game.StartBattle(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, f.battles.Count())
	assert.Contains(t, RenderBattle(view), "appears")

	again, err := f.game.StartBattle(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, combat.ErrBattleInProgress)
	assert.Same(t, view.Battle, again.Battle)

	for i := 0; i < 200 && view.Record == nil; i++ {
		view, err = f.game.BattleAction(ctx, "alice", "Alice", combat.ActionAttack)
		require.NoError(t, err)
	}
	require.NotNil(t, view.Record, "battle never ended")
	assert.Equal(t, 0, f.battles.Count())
	require.Len(t, f.repo.records, 1)

	p := f.repo.player(t, "alice")
	switch view.Record.Outcome {
	case types.OutcomeVictory:
		assert.Equal(t, 1, p.BattlesWon)
	case types.OutcomeDefeat:
		assert.Equal(t, 1, p.BattlesLost)
	}
	if len(view.LevelUps) == 0 {
		assert.Equal(t, view.Battle.Player().HP, p.HP)
	}

	_, stats, err := f.game.Profile(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Victories+stats.Defeats+stats.Fled)
}

func TestGame_DungeonBlocksOtherCommands(t *testing.T) {
	f := newGame(t, rolltest.NewScripted(t))
	ctx := context.Background()

	_, err := f.game.EnterDungeon(ctx, "alice", "Alice", "Orc Stronghold")
	assert.ErrorIs(t, err, combat.ErrLevelTooLow)

	_, _, err = f.game.ExploreRoom(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoDungeon)

	run, err := f.game.EnterDungeon(ctx, "alice", "Alice", "goblin")
	require.NoError(t, err)
	assert.Equal(t, "Goblin Cave", run.Dungeon.Name)
	require.NotNil(t, f.repo.player(t, "alice").LastDungeon)

	_, err = f.game.EnterDungeon(ctx, "alice", "Alice", "goblin")
	assert.ErrorIs(t, err, ErrDungeonRunning)
	_, err = f.game.Adventure(ctx, "alice", "Alice", "woods")
	assert.ErrorIs(t, err, ErrInDungeon)
	_, err = f.game.StartBattle(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, ErrInDungeon)

	run, err = f.game.ExitDungeon(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, combat.DungeonExited, run.Status)

	_, err = f.game.ExitDungeon(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoDungeon)
}

func TestGame_DungeonRunWithBattles(t *testing.T) {
	f := newGame(t, roll.NewSeededSource(3))
	ctx := context.Background()

	_, err := f.game.EnterDungeon(ctx, "alice", "Alice", "goblin")
	require.NoError(t, err)

	var run *combat.DungeonRun
	for i := 0; i < 500; i++ {
		room, r, err := f.game.ExploreRoom(ctx, "alice")
		if err != nil {
			require.ErrorIs(t, err, ErrNoDungeon)
			break
		}
		run = r
		assert.NotEmpty(t, RenderRoom(room, r))

		for room.Battle != nil {
			view, err := f.game.BattleAction(ctx, "alice", "Alice", combat.ActionAttack)
			require.NoError(t, err)
			if view.Record != nil {
				require.NotNil(t, view.Room)
				assert.True(t, strings.Contains(RenderBattle(view), "HP"))
				break
			}
		}
	}

	require.NotNil(t, run)
	assert.Contains(t, []combat.DungeonStatus{combat.DungeonCompleted, combat.DungeonFailed}, run.Status)
	assert.Equal(t, 0, f.battles.Count())

	p := f.repo.player(t, "alice")
	if run.Status == combat.DungeonCompleted {
		assert.Equal(t, 1, p.DungeonCount)
	}
	assert.Equal(t, run.Player.HP, p.HP)
}

func TestGame_IdleSweepReleasesDungeonRun(t *testing.T) {
	// monster (0.1), Demon, stats
	f := newGame(t, rolltest.NewScripted(t).Floats(0.1).Ints(0, 10, 10, 2, 1))
	ctx := context.Background()

	_, err := f.game.EnterDungeon(ctx, "alice", "Alice", "goblin")
	require.NoError(t, err)
	room, run, err := f.game.ExploreRoom(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, room.Battle)
	require.Equal(t, combat.DungeonInBattle, run.Status)

	removed := f.battles.SweepIdle(rolltest.Epoch.Add(10*time.Minute), combat.DefaultIdleTimeout)
	require.Equal(t, 1, removed)

	_, err = f.game.BattleAction(ctx, "alice", "Alice", combat.ActionAttack)
	assert.ErrorIs(t, err, ErrNoBattle)
	_, _, err = f.game.ExploreRoom(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoDungeon)
	assert.Equal(t, combat.DungeonExited, run.Status)

	// 探索から解放されて他のコマンドが使える
	_, err = f.game.BuyHealthPotion(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, ErrNotEnoughCoins)
	_, err = f.game.ExitDungeon(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoDungeon)
	assert.Equal(t, run.Player.HP, f.repo.player(t, "alice").HP)
}

func TestGame_ShopAndAdventureWaitForBattle(t *testing.T) {
	// Goblin, then flee (0.1)
	f := newGame(t, rolltest.NewScripted(t).Ints(0).Floats(0.1))
	ctx := context.Background()

	_, _, err := f.game.Profile(ctx, "alice", "Alice")
	require.NoError(t, err)
	f.repo.update("alice", func(p *types.Player) {
		p.Coins = 100
		p.Inventory = []string{HealthPotionName}
	})

	view, err := f.game.StartBattle(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Goblin", view.Battle.Enemy().Name)

	_, err = f.game.BuyHealthPotion(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, combat.ErrBattleInProgress)
	_, err = f.game.Adventure(ctx, "alice", "Alice", "woods")
	assert.ErrorIs(t, err, combat.ErrBattleInProgress)
	_, _, err = f.game.DrinkHealthPotion(ctx, "alice", "Alice")
	assert.ErrorIs(t, err, combat.ErrBattleInProgress)

	view, err = f.game.BattleAction(ctx, "alice", "Alice", combat.ActionFlee)
	require.NoError(t, err)
	require.NotNil(t, view.Record)
	assert.Equal(t, types.OutcomeFled, view.Record.Outcome)

	p := f.repo.player(t, "alice")
	assert.Equal(t, []string{HealthPotionName}, p.Inventory)
	assert.Equal(t, 100, p.Coins)
	assert.Nil(t, p.LastAdventure)
}

func TestRenderLuck(t *testing.T) {
	st := types.LuckStatus{
		CurrentLuck: 72, Tier: types.TierLucky, Multiplier: 1.22, TotalRolls: 4, SuccessRate: 75,
		ActiveConditions: []types.ActiveModifier{{Label: "Luck Potion", Delta: 15}},
	}
	out := RenderLuck("Alice", st)
	assert.Contains(t, out, "Alice's Luck Status")
	assert.Contains(t, out, "Lucky")
	assert.Contains(t, out, "1.22x")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "Luck Potion (+15")
}

func TestRenderSettings_MasksSecrets(t *testing.T) {
	if localdb.DBClient != nil {
		_ = localdb.Close()
	}
	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = localdb.Close() })

	sm := settings.NewSettingsManager(db)
	require.NoError(t, sm.SetSetting("DISCORD_TOKEN", "super-secret"))
	require.NoError(t, sm.SetSetting("FLEE_CHANCE", "0.5"))

	var lister SettingsLister = sm
	all, err := lister.GetAllSettings()
	require.NoError(t, err)

	out := RenderSettings(all)
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "DISCORD_TOKEN=********")
	assert.Contains(t, out, "FLEE_CHANCE=0.5")

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, len(all))
	assert.True(t, sort.StringsAreSorted(lines))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("あ", maxMessageLength+10)
	out := truncate(long)
	assert.Equal(t, maxMessageLength, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "short", truncate("short"))
}
