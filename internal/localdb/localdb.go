package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var DBClient *sql.DB

var errNotInitialized = fmt.Errorf("database not initialized")

func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WALモードとBusy Timeoutを設定（Race Condition対策）
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// SQLiteは単一ライターなので接続プールを1に制限
	db.SetMaxOpenConns(1)

	DBClient = db

	// settingsテーブル（ゲームバランス設定）
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		setting_type TEXT NOT NULL DEFAULT 'normal',
		is_required BOOLEAN NOT NULL DEFAULT false,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create settings table", zap.Error(err))
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	if err := SetupLuckTables(db); err != nil {
		return nil, err
	}

	if err := SetupPlayersTable(db); err != nil {
		return nil, err
	}

	if err := SetupBattleHistoryTable(db); err != nil {
		return nil, err
	}

	return db, nil
}

// GetDB は現在のデータベース接続を返します
func GetDB() *sql.DB {
	return DBClient
}

// Close closes the shared connection.
func Close() error {
	if DBClient == nil {
		return nil
	}
	err := DBClient.Close()
	DBClient = nil
	return err
}
