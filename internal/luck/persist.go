package luck

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// Store は運プロフィールの永続化先。存在しない場合は (nil, nil) を返す。
type Store interface {
	LoadLuckProfile(ctx context.Context, userID string) (*types.LuckProfile, error)
	SaveLuckProfile(ctx context.Context, profile types.LuckProfile) error
}

// Persister moves profiles between a Ledger and a Store. The ledger itself never does I/O.
type Persister struct {
	ledger *Ledger
	store  Store
}

func NewPersister(ledger *Ledger, store Store) *Persister {
	return &Persister{ledger: ledger, store: store}
}

// Ensure hydrates the user's profile from the store on first use.
// A missing profile is not an error: the ledger creates defaults lazily.
func (p *Persister) Ensure(ctx context.Context, userID string) error {
	if p.store == nil || p.ledger.Has(userID) {
		return nil
	}

	profile, err := p.store.LoadLuckProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load luck profile: %w", err)
	}
	if profile == nil {
		return nil
	}
	if p.ledger.Has(userID) {
		// 読み込み中に別コマンドが作成済み
		return nil
	}
	profile.UserID = userID
	p.ledger.Put(*profile)
	return nil
}

// Flush saves every dirty profile. Failed saves are re-marked dirty and joined into the error.
func (p *Persister) Flush(ctx context.Context) (int, error) {
	if p.store == nil {
		return 0, nil
	}

	saved := 0
	var errs []error
	for _, profile := range p.ledger.DrainDirty() {
		if err := p.store.SaveLuckProfile(ctx, profile); err != nil {
			logger.Error("Failed to save luck profile", zap.Error(err), zap.String("user_id", profile.UserID))
			p.ledger.MarkDirty(profile.UserID)
			errs = append(errs, err)
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]types.LuckProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]types.LuckProfile)}
}

func (s *MemoryStore) LoadLuckProfile(_ context.Context, userID string) (*types.LuckProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := p.Clone()
	return &out, nil
}

func (s *MemoryStore) SaveLuckProfile(_ context.Context, profile types.LuckProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile.Clone()
	return nil
}
