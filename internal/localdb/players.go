package localdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// SetupPlayersTable creates the players table.
func SetupPlayersTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS players (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1,
		xp INTEGER NOT NULL DEFAULT 0,
		max_xp INTEGER NOT NULL DEFAULT 100,
		hp INTEGER NOT NULL DEFAULT 100,
		max_hp INTEGER NOT NULL DEFAULT 100,
		attack INTEGER NOT NULL DEFAULT 10,
		defense INTEGER NOT NULL DEFAULT 5,
		coins INTEGER NOT NULL DEFAULT 0,
		inventory TEXT NOT NULL DEFAULT '[]',
		battles_won INTEGER NOT NULL DEFAULT 0,
		battles_lost INTEGER NOT NULL DEFAULT 0,
		adventure_count INTEGER NOT NULL DEFAULT 0,
		dungeon_count INTEGER NOT NULL DEFAULT 0,
		last_adventure TIMESTAMP,
		last_dungeon TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create players table", zap.Error(err))
		return fmt.Errorf("failed to create players table: %w", err)
	}
	return nil
}

// GetPlayer returns the stored player, or nil when the user has no character.
func GetPlayer(userID string) (*types.Player, error) {
	db := GetDB()
	if db == nil {
		return nil, errNotInitialized
	}

	var (
		p             types.Player
		inventoryJSON string
		lastAdventure sql.NullTime
		lastDungeon   sql.NullTime
	)
	err := db.QueryRow(`
		SELECT user_id, name, level, xp, max_xp, hp, max_hp, attack, defense, coins, inventory,
			battles_won, battles_lost, adventure_count, dungeon_count, last_adventure, last_dungeon
		FROM players WHERE user_id = ?`, userID,
	).Scan(
		&p.UserID, &p.Name, &p.Level, &p.XP, &p.MaxXP, &p.HP, &p.MaxHP, &p.Attack, &p.Defense, &p.Coins,
		&inventoryJSON, &p.BattlesWon, &p.BattlesLost, &p.AdventureCount, &p.DungeonCount,
		&lastAdventure, &lastDungeon,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to get player", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	if err := json.Unmarshal([]byte(inventoryJSON), &p.Inventory); err != nil {
		logger.Warn("Broken inventory column, resetting", zap.String("user_id", userID), zap.Error(err))
		p.Inventory = []string{}
	}
	if p.Inventory == nil {
		p.Inventory = []string{}
	}
	if lastAdventure.Valid {
		t := lastAdventure.Time
		p.LastAdventure = &t
	}
	if lastDungeon.Valid {
		t := lastDungeon.Time
		p.LastDungeon = &t
	}

	return &p, nil
}

// GetOrCreatePlayer loads the player or creates a fresh level 1 character.
func GetOrCreatePlayer(userID, name string) (*types.Player, bool, error) {
	p, err := GetPlayer(userID)
	if err != nil {
		return nil, false, err
	}
	if p != nil {
		return p, false, nil
	}

	fresh := types.NewPlayer(userID, name)
	if err := SavePlayer(fresh); err != nil {
		return nil, false, err
	}
	logger.Info("Created new player", zap.String("user_id", userID), zap.String("name", name))
	return &fresh, true, nil
}

// SavePlayer upserts the whole player row.
func SavePlayer(p types.Player) error {
	db := GetDB()
	if db == nil {
		return errNotInitialized
	}

	inventory := p.Inventory
	if inventory == nil {
		inventory = []string{}
	}
	inventoryJSON, err := json.Marshal(inventory)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO players (
			user_id, name, level, xp, max_xp, hp, max_hp, attack, defense, coins, inventory,
			battles_won, battles_lost, adventure_count, dungeon_count, last_adventure, last_dungeon, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			level = excluded.level,
			xp = excluded.xp,
			max_xp = excluded.max_xp,
			hp = excluded.hp,
			max_hp = excluded.max_hp,
			attack = excluded.attack,
			defense = excluded.defense,
			coins = excluded.coins,
			inventory = excluded.inventory,
			battles_won = excluded.battles_won,
			battles_lost = excluded.battles_lost,
			adventure_count = excluded.adventure_count,
			dungeon_count = excluded.dungeon_count,
			last_adventure = excluded.last_adventure,
			last_dungeon = excluded.last_dungeon,
			updated_at = excluded.updated_at`,
		p.UserID, p.Name, p.Level, p.XP, p.MaxXP, p.HP, p.MaxHP, p.Attack, p.Defense, p.Coins, string(inventoryJSON),
		p.BattlesWon, p.BattlesLost, p.AdventureCount, p.DungeonCount,
		nullTime(p.LastAdventure), nullTime(p.LastDungeon), time.Now().UTC(),
	)
	if err != nil {
		logger.Error("Failed to save player", zap.Error(err), zap.String("user_id", p.UserID))
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

// GetLeaderboard returns the top players ordered by level then xp.
func GetLeaderboard(limit int) ([]types.Player, error) {
	db := GetDB()
	if db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT user_id, name, level, xp, coins, battles_won
		FROM players
		ORDER BY level DESC, xp DESC, user_id ASC
		LIMIT ?`, limit)
	if err != nil {
		logger.Error("Failed to query leaderboard", zap.Error(err))
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var players []types.Player
	for rows.Next() {
		var p types.Player
		if err := rows.Scan(&p.UserID, &p.Name, &p.Level, &p.XP, &p.Coins, &p.BattlesWon); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
