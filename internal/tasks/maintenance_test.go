package tasks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll/rolltest"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	pruned    int
	persisted int
	active    int
}

func (r *fakeRecorder) AddPrunedModifiers(n int)      { r.pruned += n }
func (r *fakeRecorder) AddPersistedProfiles(n int)    { r.persisted += n }
func (r *fakeRecorder) SetActiveBattles(n int)        { r.active = n }
func (r *fakeRecorder) RecordDBPoolStats(sql.DBStats) {}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func TestMaintenance_PruneAndFlush(t *testing.T) {
	c := &clock{now: rolltest.Epoch}
	ledger := luck.NewLedger(luck.DefaultConfig(), luck.WithClock(c.Now))
	store := luck.NewMemoryStore()
	rec := &fakeRecorder{}
	m := NewMaintenance(ledger, luck.NewPersister(ledger, store), nil, WithRecorder(rec))

	_, err := ledger.AddModifier("alice", "Luck Potion", 15, time.Minute)
	require.NoError(t, err)
	_, err = ledger.AddModifier("alice", "Blessed", 25, time.Hour)
	require.NoError(t, err)

	c.now = c.now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.PruneModifiers())
	assert.Equal(t, 1, rec.pruned)

	assert.Equal(t, 1, m.FlushProfiles(context.Background()))
	assert.Equal(t, 1, rec.persisted)

	stored, err := store.LoadLuckProfile(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Modifiers, 1)
	assert.Equal(t, "Blessed", stored.Modifiers[0].Label)

	// 変更がなければ保存しない
	assert.Equal(t, 0, m.FlushProfiles(context.Background()))
}

func TestMaintenance_SweepBattles(t *testing.T) {
	engine, ledger := rolltest.NewEngine(rolltest.NewScripted(t))
	resolver := combat.NewResolver(engine, combat.DefaultConfig())
	rewards := reward.NewGenerator(engine, reward.DefaultConfig())
	battles := combat.NewManager(resolver, rewards)
	rec := &fakeRecorder{}
	m := NewMaintenance(ledger, nil, battles, WithRecorder(rec))

	player := types.NewPlayer("alice", "Alice")
	enemy := types.CombatEntity{Name: "Goblin", HP: 30, MaxHP: 30, Attack: 8, Defense: 2, Level: 1}
	_, err := battles.Start("alice", player.CombatEntity(), enemy, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, m.SweepBattles(rolltest.Epoch.Add(time.Minute)))
	assert.Equal(t, 1, rec.active)

	assert.Equal(t, 1, m.SweepBattles(rolltest.Epoch.Add(time.Hour)))
	assert.Equal(t, 0, rec.active)
	assert.Equal(t, 0, m.FlushProfiles(context.Background()))
}

func TestMaintenance_InvalidSchedule(t *testing.T) {
	ledger := luck.NewLedger(luck.DefaultConfig())
	m := NewMaintenance(ledger, nil, nil, WithPruneSchedule("not a cron spec"))
	assert.Error(t, m.Start())
}

type fakeCleaner struct {
	calls int
	at    time.Time
}

func (c *fakeCleaner) DeleteExpiredModifiers(_ context.Context, now time.Time) (int64, error) {
	c.calls++
	c.at = now
	return 2, nil
}

func TestMaintenance_PruneCallsStoreCleaner(t *testing.T) {
	c := &clock{now: rolltest.Epoch}
	ledger := luck.NewLedger(luck.DefaultConfig(), luck.WithClock(c.Now))
	cleaner := &fakeCleaner{}
	m := NewMaintenance(ledger, nil, nil, WithStoreCleaner(cleaner))

	assert.Equal(t, 0, m.PruneModifiers())
	assert.Equal(t, 1, cleaner.calls)
	assert.True(t, cleaner.at.Equal(rolltest.Epoch))
}
