package combat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

// Location is an adventure destination.
type Location struct {
	Name        string
	Description string
	Difficulty  int
	Coins       [2]int
	XP          [2]int
	Monsters    []string
	Items       []string
}

var Locations = map[string]Location{
	"Whispering Woods": {
		Name: "Whispering Woods", Description: "A mysterious forest filled with ancient secrets.",
		Difficulty: 1, Coins: [2]int{20, 60}, XP: [2]int{15, 40},
		Monsters: []string{"Goblin", "Skeleton"}, Items: []string{"Wooden Stick", "Herb", "Stone"},
	},
	"Forgotten Caves": {
		Name: "Forgotten Caves", Description: "Dark caves that echo with unknown dangers.",
		Difficulty: 2, Coins: [2]int{40, 100}, XP: [2]int{25, 60},
		Monsters: []string{"Orc", "Troll"}, Items: []string{"Iron Ore", "Crystal", "Gem"},
	},
	"Cursed Swamp": {
		Name: "Cursed Swamp", Description: "A treacherous swamp where evil lurks.",
		Difficulty: 3, Coins: [2]int{60, 150}, XP: [2]int{40, 80},
		Monsters: []string{"Demon", "Lich"}, Items: []string{"Cursed Relic", "Poison Vial", "Dark Crystal"},
	},
	"Dragon's Lair": {
		Name: "Dragon's Lair", Description: "The legendary lair of an ancient dragon.",
		Difficulty: 5, Coins: [2]int{150, 300}, XP: [2]int{100, 200},
		Monsters: []string{"Dragon", "Phoenix"}, Items: []string{"Dragon Scale", "Phoenix Feather", "Ancient Treasure"},
	},
}

// LocationNames returns location names ordered by difficulty.
func LocationNames() []string {
	names := make([]string, 0, len(Locations))
	for name := range Locations {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return Locations[names[i]].Difficulty < Locations[names[j]].Difficulty
	})
	return names
}

// FindLocation matches a location by case-insensitive substring.
func FindLocation(query string) (Location, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, name := range LocationNames() {
		if q != "" && strings.Contains(strings.ToLower(name), q) {
			return Locations[name], nil
		}
	}
	return Location{}, fmt.Errorf("unknown location %q: %w", query, types.ErrInvalidArgument)
}

// Outcome is the flavour of an adventure.
type Outcome struct {
	Type        string
	Title       string
	Description string
}

// Outcomes は冒険結果の一覧
var Outcomes = []Outcome{
	{Type: "treasure", Title: "🏆 Treasure Found!", Description: "You discovered a hidden treasure chest!"},
	{Type: "monster", Title: "⚔️ Monster Encounter!", Description: "You faced a dangerous monster in battle!"},
	{Type: "merchant", Title: "🏪 Traveling Merchant", Description: "You met a traveling merchant and made a deal!"},
	{Type: "puzzle", Title: "🧩 Ancient Puzzle", Description: "You solved an ancient puzzle mechanism!"},
	{Type: "nothing", Title: "🌿 Peaceful Journey", Description: "You had a peaceful but uneventful journey."},
}

const adventureItemChance = 0.3

// AdventureResult is the outcome of one adventure.
type AdventureResult struct {
	Location Location
	Outcome  Outcome
	Reward   *types.RewardResult
	Items    []string
	LevelUps []LevelUp
}

// Adventure sends the player to a location: coins and xp come from the
// location's ranges through the reward generator, and a luck roll may find one
// location item.
func Adventure(p *types.Player, loc Location, resolver *Resolver, rewards *reward.Generator) (*AdventureResult, error) {
	if p.Level < loc.Difficulty {
		return nil, fmt.Errorf("%s requires level %d: %w", loc.Name, loc.Difficulty, ErrLevelTooLow)
	}

	engine := resolver.Engine()
	src := engine.Source()
	outcome := Outcomes[src.IntN(len(Outcomes))]

	loot, err := rewards.Generate(p.UserID, types.RewardSpec{
		Coins: types.Range(loc.Coins[0], loc.Coins[1]),
		XP:    types.Range(loc.XP[0], loc.XP[1]),
	})
	if err != nil {
		return nil, err
	}

	res := &AdventureResult{Location: loc, Outcome: outcome, Reward: loot}

	if len(loc.Items) > 0 {
		found, err := engine.RollSuccess(p.UserID, adventureItemChance)
		if err != nil {
			return nil, err
		}
		if found {
			item := loc.Items[src.IntN(len(loc.Items))]
			if p.AddItem(item) {
				res.Items = append(res.Items, item)
			}
		}
	}

	p.AdventureCount++
	res.LevelUps = GrantReward(p, loot, src)
	return res, nil
}
