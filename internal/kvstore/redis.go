package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "luck:profile:"

	// DefaultTTL は最後の保存からプロフィールを保持する期間
	DefaultTTL = 30 * 24 * time.Hour
)

// Config Redis 接続設定
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// OpObserver receives per-command latency (metrics).
type OpObserver interface {
	ObserveStoreOp(op string, ok bool, d time.Duration)
}

// Store is a luck profile store backed by Redis. Profiles are JSON under luck:profile:<user>.
type Store struct {
	rdb      *redis.Client
	ttl      time.Duration
	observer OpObserver
}

type Option func(*Store)

func WithOpObserver(o OpObserver) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// NewStore connects and pings the server.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect redis %s: %w", cfg.Addr, err)
	}

	s := NewStoreWithClient(rdb, cfg.TTL, opts...)
	logger.Info("Connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return s, nil
}

// NewStoreWithClient wraps an existing client. A zero ttl uses DefaultTTL, a negative ttl disables expiry.
func NewStoreWithClient(rdb *redis.Client, ttl time.Duration, opts ...Option) *Store {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	s := &Store{rdb: rdb, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func ProfileKey(userID string) string {
	return keyPrefix + userID
}

func (s *Store) observe(op string, err error, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveStoreOp(op, err == nil || errors.Is(err, redis.Nil), time.Since(start))
	}
}

// LoadLuckProfile returns nil, nil when the key does not exist.
func (s *Store) LoadLuckProfile(ctx context.Context, userID string) (*types.LuckProfile, error) {
	start := time.Now()
	raw, err := s.rdb.Get(ctx, ProfileKey(userID)).Bytes()
	s.observe("GET", err, start)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to load luck profile from redis", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to load luck profile: %w", err)
	}

	p, err := DecodeProfile(raw)
	if err != nil {
		logger.Error("Broken luck profile in redis", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}
	p.UserID = userID
	return p, nil
}

func (s *Store) SaveLuckProfile(ctx context.Context, profile types.LuckProfile) error {
	raw, err := EncodeProfile(profile)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.rdb.Set(ctx, ProfileKey(profile.UserID), raw, s.ttl).Err()
	s.observe("SET", err, start)
	if err != nil {
		logger.Error("Failed to save luck profile to redis", zap.Error(err), zap.String("user_id", profile.UserID))
		return fmt.Errorf("failed to save luck profile: %w", err)
	}
	return nil
}

// DeleteLuckProfile removes the stored profile.
func (s *Store) DeleteLuckProfile(ctx context.Context, userID string) error {
	start := time.Now()
	err := s.rdb.Del(ctx, ProfileKey(userID)).Err()
	s.observe("DEL", err, start)
	if err != nil {
		return fmt.Errorf("failed to delete luck profile: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// EncodeProfile serializes a profile. Modifiers are always encoded as a list.
func EncodeProfile(p types.LuckProfile) ([]byte, error) {
	if p.Modifiers == nil {
		p.Modifiers = []types.LuckModifier{}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode luck profile: %w", err)
	}
	return raw, nil
}

func DecodeProfile(raw []byte) (*types.LuckProfile, error) {
	var p types.LuckProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode luck profile: %w", err)
	}
	if p.Modifiers == nil {
		p.Modifiers = []types.LuckModifier{}
	}
	return &p, nil
}
