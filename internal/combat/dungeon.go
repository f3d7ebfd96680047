package combat

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/roll"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

const RoomsPerFloor = 3

// DungeonType はダンジョン定義
type DungeonType struct {
	Name          string
	Description   string
	Floors        int
	Difficulty    int
	Boss          string
	Coins         [2]int
	XP            [2]int
	RequiredLevel int
}

var DungeonTypes = map[string]DungeonType{
	"Goblin Cave": {
		Name: "Goblin Cave", Description: "A network of caves inhabited by goblins.",
		Floors: 3, Difficulty: 1, Boss: "Goblin King",
		Coins: [2]int{100, 200}, XP: [2]int{80, 150}, RequiredLevel: 1,
	},
	"Orc Stronghold": {
		Name: "Orc Stronghold", Description: "A fortified stronghold controlled by orcs.",
		Floors: 5, Difficulty: 2, Boss: "Orc Chieftain",
		Coins: [2]int{200, 400}, XP: [2]int{150, 300}, RequiredLevel: 3,
	},
	"Undead Crypt": {
		Name: "Undead Crypt", Description: "An ancient crypt filled with undead horrors.",
		Floors: 7, Difficulty: 3, Boss: "Skeleton Lord",
		Coins: [2]int{300, 600}, XP: [2]int{250, 500}, RequiredLevel: 5,
	},
	"Demon Citadel": {
		Name: "Demon Citadel", Description: "A towering citadel ruled by demons.",
		Floors: 10, Difficulty: 4, Boss: "Demon Lord",
		Coins: [2]int{500, 1000}, XP: [2]int{400, 800}, RequiredLevel: 7,
	},
	"Dragon's Tower": {
		Name: "Dragon's Tower", Description: "The ultimate challenge - a tower guarded by dragons.",
		Floors: 15, Difficulty: 5, Boss: "Ancient Dragon",
		Coins: [2]int{1000, 2000}, XP: [2]int{800, 1500}, RequiredLevel: 10,
	},
}

var (
	ErrLevelTooLow     = errors.New("level too low")
	ErrLowHealth       = errors.New("need at least half HP")
	ErrDungeonFinished = errors.New("dungeon run is over")
	ErrDungeonInBattle = errors.New("finish the current battle first")
)

// FindDungeon matches a dungeon by case-insensitive substring.
func FindDungeon(query string) (DungeonType, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, name := range DungeonNames() {
		if q != "" && strings.Contains(strings.ToLower(name), q) {
			return DungeonTypes[name], nil
		}
	}
	return DungeonType{}, fmt.Errorf("unknown dungeon %q: %w", query, types.ErrInvalidArgument)
}

// DungeonNames returns dungeon names ordered by difficulty.
func DungeonNames() []string {
	names := make([]string, 0, len(DungeonTypes))
	for name := range DungeonTypes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return DungeonTypes[names[i]].Difficulty < DungeonTypes[names[j]].Difficulty
	})
	return names
}

// Encounter is the kind of room found.
type Encounter string

const (
	EncounterMonster  Encounter = "monster"
	EncounterTreasure Encounter = "treasure"
	EncounterTrap     Encounter = "trap"
	EncounterEmpty    Encounter = "empty"
)

var encounterTable = []roll.Candidate{
	{Item: string(EncounterMonster), Weight: 40},
	{Item: string(EncounterTreasure), Weight: 25},
	{Item: string(EncounterTrap), Weight: 20},
	{Item: string(EncounterEmpty), Weight: 15},
}

const trapAvoidChance = 0.6

// DungeonStatus はダンジョン探索の進行状態
type DungeonStatus string

const (
	DungeonExploring DungeonStatus = "exploring"
	DungeonInBattle  DungeonStatus = "in_battle"
	DungeonCompleted DungeonStatus = "completed"
	DungeonFailed    DungeonStatus = "failed"
	DungeonExited    DungeonStatus = "exited"
)

// RoomResult describes one explored room.
type RoomResult struct {
	Room       int                 `json:"room"`
	Floor      int                 `json:"floor"`
	Encounter  Encounter           `json:"encounter"`
	Reward     *types.RewardResult `json:"reward,omitempty"`
	Damage     int                 `json:"damage"`
	Healed     int                 `json:"healed"`
	TrapDodged bool                `json:"trap_dodged"`
	Battle     *Battle             `json:"-"`
	Completion *types.RewardResult `json:"completion,omitempty"`
	LevelUps   []LevelUp           `json:"level_ups,omitempty"`
	Status     DungeonStatus       `json:"status"`
}

// DungeonRun is one player's pass through a dungeon. Not safe for concurrent use.
type DungeonRun struct {
	Dungeon DungeonType
	Player  *types.Player
	Floor   int
	Rooms   int
	Status  DungeonStatus

	resolver *Resolver
	rewards  *reward.Generator
	battles  *Manager
}

// NewDungeonRun checks the entry requirements and starts on floor 1.
func NewDungeonRun(d DungeonType, p *types.Player, resolver *Resolver, rewards *reward.Generator, battles *Manager) (*DungeonRun, error) {
	if p.Level < d.RequiredLevel {
		return nil, fmt.Errorf("%s requires level %d: %w", d.Name, d.RequiredLevel, ErrLevelTooLow)
	}
	if float64(p.HP) < float64(p.MaxHP)*0.5 {
		return nil, ErrLowHealth
	}
	return &DungeonRun{
		Dungeon:  d,
		Player:   p,
		Floor:    1,
		Status:   DungeonExploring,
		resolver: resolver,
		rewards:  rewards,
		battles:  battles,
	}, nil
}

// NextRoom explores one room.
func (r *DungeonRun) NextRoom() (*RoomResult, error) {
	switch r.Status {
	case DungeonInBattle:
		return nil, ErrDungeonInBattle
	case DungeonExploring:
	default:
		return nil, ErrDungeonFinished
	}

	engine := r.resolver.Engine()
	userID := r.Player.UserID
	src := engine.Source()

	r.Rooms++
	res := &RoomResult{Room: r.Rooms, Floor: r.Floor}

	choice, err := engine.WeightedChoice(userID, encounterTable)
	if err != nil {
		return nil, fmt.Errorf("encounter draw: %w", err)
	}
	res.Encounter = Encounter(choice.Candidate.Item)

	switch res.Encounter {
	case EncounterMonster:
		tmpl := RandomMonster(src)
		enemy := GenerateMonster(src, tmpl, r.Dungeon.Difficulty+r.Floor-1)
		b, err := r.battles.Start(userID, r.Player.CombatEntity(), enemy, HealingItems(*r.Player))
		if err != nil {
			return nil, err
		}
		res.Battle = b
		r.Status = DungeonInBattle
		res.Status = r.Status
		return res, nil

	case EncounterTreasure:
		loot, err := r.rewards.Generate(userID, types.RewardSpec{
			Coins: types.Range(50, 200),
			XP:    types.Range(20, 50),
		})
		if err != nil {
			return nil, err
		}
		res.Reward = loot
		res.LevelUps = GrantReward(r.Player, loot, src)

	case EncounterTrap:
		dodged, err := engine.RollSuccess(userID, trapAvoidChance)
		if err != nil {
			return nil, err
		}
		res.TrapDodged = dodged
		if !dodged {
			res.Damage = roll.UniformInt(src, 10, 30)
			r.Player.HP -= res.Damage
		}

	default:
		heal := roll.UniformInt(src, 5, 15)
		before := r.Player.HP
		r.Player.HP = min(r.Player.MaxHP, r.Player.HP+heal)
		res.Healed = r.Player.HP - before
	}

	if r.Player.HP <= 0 {
		r.Player.HP = 1
		r.Status = DungeonFailed
		res.Status = r.Status
		return res, nil
	}

	if err := r.advance(res); err != nil {
		return nil, err
	}
	return res, nil
}

// ResumeAfterBattle settles a room battle. Victory or escape continues the run,
// defeat ends it.
func (r *DungeonRun) ResumeAfterBattle(b *Battle) (*RoomResult, error) {
	if r.Status != DungeonInBattle {
		return nil, ErrDungeonFinished
	}
	rec, done := b.Record()
	if !done {
		return nil, ErrDungeonInBattle
	}

	res := &RoomResult{Room: r.Rooms, Floor: r.Floor, Encounter: EncounterMonster, Reward: b.Reward()}
	res.LevelUps = SettleBattle(r.Player, b, r.resolver.Engine().Source())
	r.battles.Finish(r.Player.UserID)

	if rec.Outcome == types.OutcomeDefeat {
		r.Status = DungeonFailed
		res.Status = r.Status
		return res, nil
	}

	r.Status = DungeonExploring
	if err := r.advance(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Exit leaves the dungeon early.
func (r *DungeonRun) Exit() {
	if r.Status == DungeonExploring || r.Status == DungeonInBattle {
		if r.Status == DungeonInBattle {
			r.battles.Abandon(r.Player.UserID)
		}
		r.Status = DungeonExited
	}
}

func (r *DungeonRun) advance(res *RoomResult) error {
	if r.Rooms >= r.Dungeon.Floors*RoomsPerFloor {
		loot, err := r.rewards.Generate(r.Player.UserID, types.RewardSpec{
			Coins: types.Range(r.Dungeon.Coins[0], r.Dungeon.Coins[1]),
			XP:    types.Range(r.Dungeon.XP[0], r.Dungeon.XP[1]),
		})
		if err != nil {
			return err
		}
		res.Completion = loot
		res.LevelUps = append(res.LevelUps, GrantReward(r.Player, loot, r.resolver.Engine().Source())...)
		r.Player.DungeonCount++
		r.Status = DungeonCompleted
		res.Status = r.Status
		return nil
	}

	if r.Rooms%RoomsPerFloor == 0 {
		r.Floor++
	}
	res.Status = r.Status
	return nil
}
