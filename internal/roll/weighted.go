package roll

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

// Rarity はアイテムのレア度
type Rarity string

const (
	RarityNone      Rarity = ""
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"

	minAdjustedWeight = 0.1
)

var (
	ErrNoCandidates = fmt.Errorf("no candidates: %w", types.ErrInvalidArgument)
	errBadWeight    = errors.New("candidate weight must be a non-negative number")
)

// RarityFactor returns the base rarity factor; unknown or missing rarity counts as common.
func RarityFactor(r Rarity) float64 {
	switch Rarity(strings.ToLower(string(r))) {
	case RarityUncommon:
		return 0.8
	case RarityRare:
		return 0.6
	case RarityEpic:
		return 0.4
	case RarityLegendary:
		return 0.2
	default:
		return 1.0
	}
}

// Candidate は重み付き抽選の候補
type Candidate struct {
	Item   string
	Weight float64
	Rarity Rarity
}

// CandidateDetail は候補ごとの補正後重み
type CandidateDetail struct {
	Item           string  `json:"item"`
	Rarity         Rarity  `json:"rarity,omitempty"`
	BaseWeight     float64 `json:"base_weight"`
	AdjustedWeight float64 `json:"adjusted_weight"`
	CumulativeSum  float64 `json:"cumulative_sum"`
}

// Choice is the result of a weighted draw.
type Choice struct {
	Index       int               `json:"index"`
	Candidate   Candidate         `json:"candidate"`
	TotalWeight float64           `json:"total_weight"`
	Details     []CandidateDetail `json:"details"`
}

// AdjustWeight applies the luck modifier to a single weight.
// Good luck boosts rarer items, bad luck penalises common ones more.
func AdjustWeight(weight float64, rarity Rarity, luckModifier float64) float64 {
	factor := RarityFactor(rarity)
	var adjusted float64
	if luckModifier > 0 {
		adjusted = weight * (1 + luckModifier*(1-factor))
	} else {
		adjusted = weight * (1 + luckModifier*factor)
	}
	return math.Max(minAdjustedWeight, adjusted)
}

// WeightedChoice draws one candidate with luck-adjusted weights.
func (e *Engine) WeightedChoice(userID string, candidates []Candidate) (*Choice, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if len(candidates) == 1 {
		return &Choice{
			Index:       0,
			Candidate:   candidates[0],
			TotalWeight: candidates[0].Weight,
			Details: []CandidateDetail{{
				Item:           candidates[0].Item,
				Rarity:         candidates[0].Rarity,
				BaseWeight:     candidates[0].Weight,
				AdjustedWeight: candidates[0].Weight,
				CumulativeSum:  candidates[0].Weight,
			}},
		}, nil
	}

	modifier := luck.Modifier(e.eval.EffectiveLuck(userID))
	details, total, err := buildWeightedCandidates(candidates, modifier)
	if err != nil {
		return nil, err
	}

	target := e.src.Float64() * total
	idx := sort.Search(len(details), func(i int) bool {
		return details[i].CumulativeSum >= target
	})
	if idx >= len(details) {
		// 浮動小数の誤差で末尾を超えた場合
		idx = len(details) - 1
	}

	return &Choice{
		Index:       idx,
		Candidate:   candidates[idx],
		TotalWeight: total,
		Details:     details,
	}, nil
}

func buildWeightedCandidates(candidates []Candidate, modifier float64) ([]CandidateDetail, float64, error) {
	details := make([]CandidateDetail, 0, len(candidates))
	total := 0.0

	for i, c := range candidates {
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) || c.Weight < 0 {
			return nil, 0, fmt.Errorf("candidate %d (%q): %w: %w", i, c.Item, errBadWeight, types.ErrInvalidArgument)
		}

		adjusted := AdjustWeight(c.Weight, c.Rarity, modifier)
		total += adjusted
		details = append(details, CandidateDetail{
			Item:           c.Item,
			Rarity:         c.Rarity,
			BaseWeight:     c.Weight,
			AdjustedWeight: adjusted,
			CumulativeSum:  total,
		})
	}

	return details, total, nil
}
