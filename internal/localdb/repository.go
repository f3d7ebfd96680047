package localdb

import "github.com/ichi0g0y/discord-rpg-bot/internal/types"

// Repository exposes the player and battle tables as a value for callers that
// take an interface.
type Repository struct{}

func (Repository) GetOrCreatePlayer(userID, name string) (*types.Player, bool, error) {
	return GetOrCreatePlayer(userID, name)
}

func (Repository) SavePlayer(p types.Player) error {
	return SavePlayer(p)
}

func (Repository) SaveBattleRecord(rec types.BattleRecord) error {
	return SaveBattleRecord(rec)
}

func (Repository) GetBattleStats(userID string) (BattleStats, error) {
	return GetBattleStats(userID)
}
