package combat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// DefaultIdleTimeout は操作のない戦闘を破棄するまでの時間
const DefaultIdleTimeout = 5 * time.Minute

var ErrBattleInProgress = errors.New("battle already in progress")

// Observer receives finished battles (metrics).
type Observer interface {
	ObserveBattle(outcome types.BattleOutcome, turns int)
}

// Manager keeps at most one active battle per user.
type Manager struct {
	mu       sync.RWMutex
	battles  map[string]*Battle
	resolver *Resolver
	rewards  *reward.Generator
	observer Observer
}

type ManagerOption func(*Manager)

func WithBattleObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		m.observer = o
	}
}

func NewManager(resolver *Resolver, rewards *reward.Generator, opts ...ManagerOption) *Manager {
	m := &Manager{
		battles:  make(map[string]*Battle),
		resolver: resolver,
		rewards:  rewards,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateID creates a new battle ID
func GenerateID() (string, error) {
	return gonanoid.New()
}

// Start registers a new battle for the user. A finished battle left in the
// registry is replaced.
func (m *Manager) Start(userID string, player, enemy types.CombatEntity, items []string) (*Battle, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate battle ID: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.battles[userID]; ok && !existing.IsOver() {
		return nil, ErrBattleInProgress
	}

	b := NewBattle(id, userID, player, enemy, items, m.resolver, m.rewards)
	m.battles[userID] = b

	logger.Info("Battle started",
		zap.String("battle_id", id),
		zap.String("user_id", userID),
		zap.String("enemy", enemy.Name))

	return b, nil
}

// Active returns the user's current battle.
func (m *Manager) Active(userID string) (*Battle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.battles[userID]
	return b, ok
}

// Finish removes a finished battle and reports it to the observer.
func (m *Manager) Finish(userID string) (types.BattleRecord, bool) {
	m.mu.Lock()
	b, ok := m.battles[userID]
	if ok && b.IsOver() {
		delete(m.battles, userID)
	}
	m.mu.Unlock()

	if !ok {
		return types.BattleRecord{}, false
	}
	rec, done := b.Record()
	if !done {
		return types.BattleRecord{}, false
	}
	if m.observer != nil {
		m.observer.ObserveBattle(rec.Outcome, rec.Turns)
	}
	return rec, true
}

// Abandon drops the user's battle regardless of state.
func (m *Manager) Abandon(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.battles, userID)
}

// SweepIdle drops battles with no action for longer than maxIdle.
func (m *Manager) SweepIdle(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, b := range m.battles {
		if now.Sub(b.LastMove()) > maxIdle {
			delete(m.battles, userID)
			removed++
			logger.Debug("Idle battle removed",
				zap.String("battle_id", b.ID()),
				zap.String("user_id", userID))
		}
	}
	return removed
}

// Count returns the number of registered battles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.battles)
}
