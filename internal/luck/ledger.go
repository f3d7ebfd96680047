package luck

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// Clock returns the current time. Tests swap it for a fixed clock.
type Clock func() time.Time

type entry struct {
	mu      sync.Mutex
	profile types.LuckProfile
	dirty   bool
}

// Ledger はユーザーごとの運の状態を保持する。
// 同一ユーザーへの更新はユーザー単位のロックで直列化され、ユーザー間は独立している。
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*entry
	cfg     Config
	now     Clock
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.now = c
		}
	}
}

// NewLedger creates an empty in-memory ledger.
func NewLedger(cfg Config, opts ...Option) *Ledger {
	l := &Ledger{
		entries: make(map[string]*entry),
		cfg:     cfg.normalized(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the ledger's luck configuration.
func (l *Ledger) Config() Config {
	return l.cfg
}

// Now returns the ledger clock's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

func (l *Ledger) newProfile(userID string) types.LuckProfile {
	return types.LuckProfile{
		UserID:    userID,
		BaseLuck:  l.cfg.BaseLuck,
		Modifiers: []types.LuckModifier{},
	}
}

func (l *Ledger) entry(userID string) *entry {
	l.mu.RLock()
	e, ok := l.entries[userID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[userID]; ok {
		return e
	}
	e = &entry{profile: l.newProfile(userID)}
	l.entries[userID] = e
	logger.Debug("Created luck profile", zap.String("user_id", userID))
	return e
}

// with runs fn under the user's lock. fn returns whether it mutated the profile.
func (l *Ledger) with(userID string, fn func(p *types.LuckProfile, now time.Time) bool) {
	e := l.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn(&e.profile, l.now()) {
		e.dirty = true
	}
}

// GetOrCreate returns a copy of the user's profile, creating defaults on first access.
func (l *Ledger) GetOrCreate(userID string) types.LuckProfile {
	var out types.LuckProfile
	l.with(userID, func(p *types.LuckProfile, _ time.Time) bool {
		out = p.Clone()
		return false
	})
	return out
}

// Has reports whether the user already has an in-memory profile.
func (l *Ledger) Has(userID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[userID]
	return ok
}

// AddModifier は期限付き補正を追加する。同じラベルでも置き換えずに積み上がる。
func (l *Ledger) AddModifier(userID, label string, delta int, duration time.Duration) (types.LuckModifier, error) {
	if duration < 0 {
		return types.LuckModifier{}, fmt.Errorf("negative modifier duration %s: %w", duration, types.ErrInvalidArgument)
	}

	var mod types.LuckModifier
	l.with(userID, func(p *types.LuckProfile, now time.Time) bool {
		mod = types.LuckModifier{
			Label:     label,
			Delta:     delta,
			ExpiresAt: now.Add(duration),
		}
		p.Modifiers = append(p.Modifiers, mod)
		return true
	})

	logger.Info("Luck modifier added",
		zap.String("user_id", userID),
		zap.String("label", label),
		zap.Int("delta", delta),
		zap.Duration("duration", duration))
	return mod, nil
}

// RecordRollOutcome updates counters and the mutually exclusive streak pair.
func (l *Ledger) RecordRollOutcome(userID string, succeeded bool) {
	l.with(userID, func(p *types.LuckProfile, now time.Time) bool {
		p.TotalRolls++
		if succeeded {
			p.SuccessfulRolls++
			p.LuckyStreak++
			p.UnluckyStreak = 0
		} else {
			p.UnluckyStreak++
			p.LuckyStreak = 0
		}
		p.LastRollAt = &now
		return true
	})
}

// SetBaseLuck overwrites the base score. Values outside [0,100] are rejected.
func (l *Ledger) SetBaseLuck(userID string, base int) error {
	if base < MinLuck || base > MaxLuck {
		return fmt.Errorf("base luck %d out of range: %w", base, types.ErrInvalidArgument)
	}
	l.with(userID, func(p *types.LuckProfile, _ time.Time) bool {
		p.BaseLuck = base
		return true
	})
	return nil
}

// PruneExpired drops expired modifiers for one user and returns how many were removed.
func (l *Ledger) PruneExpired(userID string) int {
	removed := 0
	l.with(userID, func(p *types.LuckProfile, now time.Time) bool {
		removed = pruneModifiers(p, now)
		return removed > 0
	})
	return removed
}

// PruneAll runs PruneExpired for every known user.
func (l *Ledger) PruneAll() int {
	total := 0
	for _, userID := range l.Users() {
		total += l.PruneExpired(userID)
	}
	return total
}

func pruneModifiers(p *types.LuckProfile, now time.Time) int {
	kept := p.Modifiers[:0]
	removed := 0
	for _, m := range p.Modifiers {
		if m.Active(now) {
			kept = append(kept, m)
			continue
		}
		removed++
	}
	p.Modifiers = kept
	return removed
}

// Users returns the known user IDs in sorted order.
func (l *Ledger) Users() []string {
	l.mu.RLock()
	users := make([]string, 0, len(l.entries))
	for id := range l.entries {
		users = append(users, id)
	}
	l.mu.RUnlock()
	sort.Strings(users)
	return users
}

// Put は永続化層から読み込んだプロフィールを登録する（既存は上書き）。
func (l *Ledger) Put(profile types.LuckProfile) {
	if profile.Modifiers == nil {
		profile.Modifiers = []types.LuckModifier{}
	}
	profile.BaseLuck = clampInt(profile.BaseLuck, MinLuck, MaxLuck)
	e := l.entry(profile.UserID)
	e.mu.Lock()
	e.profile = profile.Clone()
	e.dirty = false
	e.mu.Unlock()
}

// DrainDirty returns copies of profiles changed since the last drain and clears their flag.
func (l *Ledger) DrainDirty() []types.LuckProfile {
	var out []types.LuckProfile
	for _, userID := range l.Users() {
		e := l.entry(userID)
		e.mu.Lock()
		if e.dirty {
			out = append(out, e.profile.Clone())
			e.dirty = false
		}
		e.mu.Unlock()
	}
	return out
}

// MarkDirty flags a profile for the next DrainDirty, e.g. after a failed save.
func (l *Ledger) MarkDirty(userID string) {
	e := l.entry(userID)
	e.mu.Lock()
	e.dirty = true
	e.mu.Unlock()
}
