package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// 秒 分 時 日 月 週
	DefaultPruneSchedule = "0 */5 * * * *"
	FlushSchedule        = "*/30 * * * * *"
	SweepSchedule        = "0 * * * * *"

	flushTimeout = 10 * time.Second
)

// Recorder receives maintenance counters (metrics).
type Recorder interface {
	AddPrunedModifiers(n int)
	AddPersistedProfiles(n int)
	SetActiveBattles(n int)
	RecordDBPoolStats(stats sql.DBStats)
}

// StoreCleaner deletes expired modifiers of profiles that are not loaded in memory.
type StoreCleaner interface {
	DeleteExpiredModifiers(ctx context.Context, now time.Time) (int64, error)
}

// Maintenance は定期的な運プロフィールの整理・保存と放置戦闘の掃除を行う
type Maintenance struct {
	ledger    *luck.Ledger
	persister *luck.Persister
	battles   *combat.Manager
	db        *sql.DB
	recorder  Recorder
	cleaner   StoreCleaner
	schedule  string
	cron      *cron.Cron
}

type Option func(*Maintenance)

func WithRecorder(r Recorder) Option {
	return func(m *Maintenance) {
		m.recorder = r
	}
}

func WithStoreCleaner(c StoreCleaner) Option {
	return func(m *Maintenance) {
		m.cleaner = c
	}
}

// WithDB enables connection pool stats collection.
func WithDB(db *sql.DB) Option {
	return func(m *Maintenance) {
		m.db = db
	}
}

// WithPruneSchedule overrides the cron expression of the prune job.
func WithPruneSchedule(spec string) Option {
	return func(m *Maintenance) {
		if spec != "" {
			m.schedule = spec
		}
	}
}

func NewMaintenance(ledger *luck.Ledger, persister *luck.Persister, battles *combat.Manager, opts ...Option) *Maintenance {
	m := &Maintenance{
		ledger:    ledger,
		persister: persister,
		battles:   battles,
		schedule:  DefaultPruneSchedule,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start schedules every job. An invalid schedule is returned as an error.
func (m *Maintenance) Start() error {
	m.cron = cron.New(cron.WithSeconds())

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{name: "prune_modifiers", spec: m.schedule, fn: func() { m.PruneModifiers() }},
		{name: "flush_profiles", spec: FlushSchedule, fn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			m.FlushProfiles(ctx)
		}},
		{name: "sweep_battles", spec: SweepSchedule, fn: func() { m.SweepBattles(m.ledger.Now()) }},
	}

	for _, job := range jobs {
		if _, err := m.cron.AddFunc(job.spec, job.fn); err != nil {
			logger.Error("Failed to schedule maintenance job", zap.String("job", job.name), zap.String("spec", job.spec), zap.Error(err))
			return err
		}
	}

	m.cron.Start()
	logger.Info("Maintenance jobs started", zap.String("prune_schedule", m.schedule))
	return nil
}

// Stop waits for running jobs and flushes once more.
func (m *Maintenance) Stop(ctx context.Context) {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.FlushProfiles(ctx)
	logger.Info("Maintenance jobs stopped")
}

func (m *Maintenance) PruneModifiers() int {
	n := m.ledger.PruneAll()
	if m.cleaner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if deleted, err := m.cleaner.DeleteExpiredModifiers(ctx, m.ledger.Now()); err != nil {
			logger.Warn("Failed to delete stored expired modifiers", zap.Error(err))
		} else if deleted > 0 {
			logger.Debug("Deleted stored expired modifiers", zap.Int64("count", deleted))
		}
	}
	if n > 0 {
		logger.Debug("Pruned expired luck modifiers", zap.Int("count", n))
	}
	if m.recorder != nil {
		m.recorder.AddPrunedModifiers(n)
	}
	return n
}

func (m *Maintenance) FlushProfiles(ctx context.Context) int {
	if m.persister == nil {
		return 0
	}
	saved, err := m.persister.Flush(ctx)
	if err != nil {
		logger.Warn("Some luck profiles could not be saved", zap.Int("saved", saved), zap.Error(err))
	}
	if m.recorder != nil {
		m.recorder.AddPersistedProfiles(saved)
	}
	return saved
}

func (m *Maintenance) SweepBattles(now time.Time) int {
	if m.battles == nil {
		return 0
	}
	removed := m.battles.SweepIdle(now, combat.DefaultIdleTimeout)
	if removed > 0 {
		logger.Info("Removed idle battles", zap.Int("count", removed))
	}
	if m.recorder != nil {
		m.recorder.SetActiveBattles(m.battles.Count())
		if m.db != nil {
			m.recorder.RecordDBPoolStats(m.db.Stats())
		}
	}
	return removed
}
