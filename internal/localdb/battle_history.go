package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// BattleStats is the per-user aggregate of battle_history.
type BattleStats struct {
	Victories int
	Defeats   int
	Fled      int
	Coins     int
	XP        int
}

// SetupBattleHistoryTable creates the battle_history table.
func SetupBattleHistoryTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS battle_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		enemy TEXT NOT NULL,
		outcome TEXT NOT NULL,
		turns INTEGER NOT NULL DEFAULT 0,
		coins INTEGER NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		logger.Error("Failed to create battle_history table", zap.Error(err))
		return fmt.Errorf("failed to create battle_history table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_battle_history_user ON battle_history(user_id, ended_at)`)
	if err != nil {
		logger.Error("Failed to create battle_history index", zap.Error(err))
		return fmt.Errorf("failed to create battle_history index: %w", err)
	}
	return nil
}

// SaveBattleRecord inserts a finished battle. Re-saving the same ID is a no-op.
func SaveBattleRecord(rec types.BattleRecord) error {
	db := GetDB()
	if db == nil {
		return errNotInitialized
	}

	_, err := db.Exec(`
		INSERT INTO battle_history (id, user_id, enemy, outcome, turns, coins, xp, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.UserID, rec.Enemy, string(rec.Outcome), rec.Turns, rec.Coins, rec.XP,
		rec.StartedAt.UTC(), rec.EndedAt.UTC(),
	)
	if err != nil {
		logger.Error("Failed to save battle record", zap.Error(err), zap.String("battle_id", rec.ID))
		return fmt.Errorf("failed to save battle record: %w", err)
	}
	return nil
}

// GetRecentBattles returns the newest battles of a user first.
func GetRecentBattles(userID string, limit int) ([]types.BattleRecord, error) {
	db := GetDB()
	if db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT id, user_id, enemy, outcome, turns, coins, xp, started_at, ended_at
		FROM battle_history
		WHERE user_id = ?
		ORDER BY ended_at DESC, id ASC
		LIMIT ?`, userID, limit)
	if err != nil {
		logger.Error("Failed to query battle history", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to query battle history: %w", err)
	}
	defer rows.Close()

	var records []types.BattleRecord
	for rows.Next() {
		var (
			rec     types.BattleRecord
			outcome string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Enemy, &outcome, &rec.Turns, &rec.Coins, &rec.XP,
			&rec.StartedAt, &rec.EndedAt); err != nil {
			return nil, fmt.Errorf("failed to scan battle record: %w", err)
		}
		rec.Outcome = types.BattleOutcome(outcome)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetBattleStats aggregates a user's battle history.
func GetBattleStats(userID string) (BattleStats, error) {
	var stats BattleStats
	db := GetDB()
	if db == nil {
		return stats, errNotInitialized
	}

	rows, err := db.Query(`
		SELECT outcome, COUNT(*), COALESCE(SUM(coins), 0), COALESCE(SUM(xp), 0)
		FROM battle_history
		WHERE user_id = ?
		GROUP BY outcome`, userID)
	if err != nil {
		logger.Error("Failed to query battle stats", zap.Error(err), zap.String("user_id", userID))
		return stats, fmt.Errorf("failed to query battle stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outcome          string
			count, coins, xp int
		)
		if err := rows.Scan(&outcome, &count, &coins, &xp); err != nil {
			return stats, fmt.Errorf("failed to scan battle stats: %w", err)
		}
		switch types.BattleOutcome(outcome) {
		case types.OutcomeVictory:
			stats.Victories = count
		case types.OutcomeDefeat:
			stats.Defeats = count
		case types.OutcomeFled:
			stats.Fled = count
		}
		stats.Coins += coins
		stats.XP += xp
	}
	return stats, rows.Err()
}
