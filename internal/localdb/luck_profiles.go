package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// SetupLuckTables creates luck_profiles and luck_modifiers.
func SetupLuckTables(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS luck_profiles (
		user_id TEXT PRIMARY KEY,
		base_luck INTEGER NOT NULL DEFAULT 50,
		lucky_streak INTEGER NOT NULL DEFAULT 0,
		unlucky_streak INTEGER NOT NULL DEFAULT 0,
		total_rolls INTEGER NOT NULL DEFAULT 0,
		successful_rolls INTEGER NOT NULL DEFAULT 0,
		last_roll_at TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create luck_profiles table", zap.Error(err))
		return fmt.Errorf("failed to create luck_profiles table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS luck_modifiers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		label TEXT NOT NULL,
		delta INTEGER NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		FOREIGN KEY (user_id) REFERENCES luck_profiles(user_id) ON DELETE CASCADE
	)`)
	if err != nil {
		logger.Error("Failed to create luck_modifiers table", zap.Error(err))
		return fmt.Errorf("failed to create luck_modifiers table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_luck_modifiers_user ON luck_modifiers(user_id)`)
	if err != nil {
		logger.Error("Failed to create luck_modifiers index", zap.Error(err))
		return fmt.Errorf("failed to create luck_modifiers index: %w", err)
	}
	return nil
}

// ProfileStore persists luck profiles in sqlite.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// LoadLuckProfile returns nil, nil when the user has no stored profile.
func (s *ProfileStore) LoadLuckProfile(ctx context.Context, userID string) (*types.LuckProfile, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}

	p := types.LuckProfile{UserID: userID}
	var lastRoll sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT base_luck, lucky_streak, unlucky_streak, total_rolls, successful_rolls, last_roll_at
		FROM luck_profiles WHERE user_id = ?`, userID,
	).Scan(&p.BaseLuck, &p.LuckyStreak, &p.UnluckyStreak, &p.TotalRolls, &p.SuccessfulRolls, &lastRoll)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to load luck profile", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to load luck profile: %w", err)
	}
	if lastRoll.Valid {
		t := lastRoll.Time
		p.LastRollAt = &t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT label, delta, expires_at FROM luck_modifiers WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		logger.Error("Failed to load luck modifiers", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to load luck modifiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m types.LuckModifier
		if err := rows.Scan(&m.Label, &m.Delta, &m.ExpiresAt); err != nil {
			logger.Error("Failed to scan luck modifier", zap.Error(err))
			return nil, fmt.Errorf("failed to scan luck modifier: %w", err)
		}
		p.Modifiers = append(p.Modifiers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate luck modifiers: %w", err)
	}

	return &p, nil
}

// SaveLuckProfile replaces the stored profile and its modifiers in one transaction.
func (s *ProfileStore) SaveLuckProfile(ctx context.Context, profile types.LuckProfile) error {
	if s.db == nil {
		return errNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastRoll sql.NullTime
	if profile.LastRollAt != nil {
		lastRoll = sql.NullTime{Time: profile.LastRollAt.UTC(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO luck_profiles (
			user_id, base_luck, lucky_streak, unlucky_streak, total_rolls, successful_rolls, last_roll_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			base_luck = excluded.base_luck,
			lucky_streak = excluded.lucky_streak,
			unlucky_streak = excluded.unlucky_streak,
			total_rolls = excluded.total_rolls,
			successful_rolls = excluded.successful_rolls,
			last_roll_at = excluded.last_roll_at,
			updated_at = excluded.updated_at`,
		profile.UserID, profile.BaseLuck, profile.LuckyStreak, profile.UnluckyStreak,
		profile.TotalRolls, profile.SuccessfulRolls, lastRoll, time.Now().UTC(),
	)
	if err != nil {
		logger.Error("Failed to save luck profile", zap.Error(err), zap.String("user_id", profile.UserID))
		return fmt.Errorf("failed to save luck profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM luck_modifiers WHERE user_id = ?`, profile.UserID); err != nil {
		logger.Error("Failed to clear luck modifiers", zap.Error(err), zap.String("user_id", profile.UserID))
		return fmt.Errorf("failed to clear luck modifiers: %w", err)
	}

	for _, m := range profile.Modifiers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO luck_modifiers (user_id, label, delta, expires_at) VALUES (?, ?, ?, ?)`,
			profile.UserID, m.Label, m.Delta, m.ExpiresAt.UTC())
		if err != nil {
			logger.Error("Failed to save luck modifier", zap.Error(err), zap.String("user_id", profile.UserID))
			return fmt.Errorf("failed to save luck modifier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit luck profile: %w", err)
	}
	return nil
}

// DeleteExpiredModifiers removes modifiers that expired before now.
func (s *ProfileStore) DeleteExpiredModifiers(ctx context.Context, now time.Time) (int64, error) {
	if s.db == nil {
		return 0, errNotInitialized
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM luck_modifiers WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		logger.Error("Failed to delete expired luck modifiers", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired luck modifiers: %w", err)
	}
	return res.RowsAffected()
}
