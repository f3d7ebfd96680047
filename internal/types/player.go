package types

import "time"

// プレイヤー初期値
const (
	BasePlayerHP      = 100
	BasePlayerAttack  = 10
	BasePlayerDefense = 5
	MaxInventorySize  = 50
)

// Player is the persistent RPG record a CombatEntity is built from.
type Player struct {
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	Level          int        `json:"level"`
	XP             int        `json:"xp"`
	MaxXP          int        `json:"max_xp"`
	HP             int        `json:"hp"`
	MaxHP          int        `json:"max_hp"`
	Attack         int        `json:"attack"`
	Defense        int        `json:"defense"`
	Coins          int        `json:"coins"`
	Inventory      []string   `json:"inventory"`
	BattlesWon     int        `json:"battles_won"`
	BattlesLost    int        `json:"battles_lost"`
	AdventureCount int        `json:"adventure_count"`
	DungeonCount   int        `json:"dungeon_count"`
	LastAdventure  *time.Time `json:"last_adventure,omitempty"`
	LastDungeon    *time.Time `json:"last_dungeon,omitempty"`
}

// NewPlayer returns a level 1 character.
func NewPlayer(userID, name string) Player {
	return Player{
		UserID:    userID,
		Name:      name,
		Level:     1,
		MaxXP:     100,
		HP:        BasePlayerHP,
		MaxHP:     BasePlayerHP,
		Attack:    BasePlayerAttack,
		Defense:   BasePlayerDefense,
		Inventory: []string{},
	}
}

// CombatEntity builds the ephemeral battle view of the player.
func (p Player) CombatEntity() CombatEntity {
	e := CombatEntity{
		Name:    p.Name,
		HP:      p.HP,
		MaxHP:   p.MaxHP,
		Attack:  p.Attack,
		Defense: p.Defense,
		Level:   p.Level,
	}
	e.Normalize()
	return e
}

// AddItem appends an item unless the inventory is full.
func (p *Player) AddItem(item string) bool {
	if len(p.Inventory) >= MaxInventorySize {
		return false
	}
	p.Inventory = append(p.Inventory, item)
	return true
}

// TakeItem removes the first item matching pred and returns it.
func (p *Player) TakeItem(pred func(string) bool) (string, bool) {
	for i, item := range p.Inventory {
		if pred(item) {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return item, true
		}
	}
	return "", false
}

// BattleOutcome は戦闘の終了状態
type BattleOutcome string

const (
	OutcomeVictory BattleOutcome = "victory"
	OutcomeDefeat  BattleOutcome = "defeat"
	OutcomeFled    BattleOutcome = "fled"
)

// BattleRecord is a finished battle written to history.
type BattleRecord struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Enemy     string        `json:"enemy"`
	Outcome   BattleOutcome `json:"outcome"`
	Turns     int           `json:"turns"`
	Coins     int           `json:"coins"`
	XP        int           `json:"xp"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
}
