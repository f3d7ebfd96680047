package roll

import (
	"fmt"
	"math"

	"github.com/ichi0g0y/discord-rpg-bot/internal/luck"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

const (
	DefaultDifficulty = 50

	minAdjustedChance = 0.01
	maxAdjustedChance = 0.99
	minDifficultyPct  = 5
	maxDifficultyPct  = 95
)

// Observer receives roll outcomes (metrics, logging).
type Observer interface {
	ObserveRoll(kind string, success bool)
}

// Engine は運を反映した成功判定と重み付き抽選を行う。
type Engine struct {
	eval       *luck.Evaluator
	ledger     *luck.Ledger
	src        Source
	difficulty int
	observer   Observer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithSource(src Source) EngineOption {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

// WithDefaultDifficulty sets the difficulty of the secondary roll in RollSuccess.
func WithDefaultDifficulty(d int) EngineOption {
	return func(e *Engine) {
		if d >= 0 && d <= 100 {
			e.difficulty = d
		}
	}
}

func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

func NewEngine(eval *luck.Evaluator, opts ...EngineOption) *Engine {
	e := &Engine{
		eval:       eval,
		ledger:     eval.Ledger(),
		src:        DefaultSource,
		difficulty: DefaultDifficulty,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluator returns the luck evaluator the engine reads from.
func (e *Engine) Evaluator() *luck.Evaluator {
	return e.eval
}

// Source returns the engine's random source.
func (e *Engine) Source() Source {
	return e.src
}

func (e *Engine) observe(kind string, success bool) {
	if e.observer != nil {
		e.observer.ObserveRoll(kind, success)
	}
}

func validProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("probability %v outside [0,1]: %w", p, types.ErrInvalidArgument)
	}
	return nil
}

// RollSuccess は基本確率を運で補正した判定と、難易度ロールの2つを行い、どちらかが成功すれば成功とする。
// 結果は1回分のロールとして台帳に記録される。
func (e *Engine) RollSuccess(userID string, baseProbability float64) (bool, error) {
	if err := validProbability(baseProbability); err != nil {
		return false, err
	}

	current := e.eval.EffectiveLuck(userID)
	adjusted := clamp(baseProbability*(1+luck.Modifier(current)), minAdjustedChance, maxAdjustedChance)
	chanceHit := e.src.Float64() < adjusted

	difficultyHit, _ := e.difficultyRoll(current, e.difficulty)

	success := chanceHit || difficultyHit
	e.ledger.RecordRollOutcome(userID, success)
	e.observe("success", success)
	return success, nil
}

// RollAgainstDifficulty rolls a d100 against clamp(luck + 100 - difficulty, 5, 95)
// and records the outcome.
func (e *Engine) RollAgainstDifficulty(userID string, difficulty int) (bool, int, error) {
	if difficulty < 0 || difficulty > 100 {
		return false, 0, fmt.Errorf("difficulty %d outside [0,100]: %w", difficulty, types.ErrInvalidArgument)
	}

	success, d100 := e.difficultyRoll(e.eval.EffectiveLuck(userID), difficulty)
	e.ledger.RecordRollOutcome(userID, success)
	e.observe("difficulty", success)
	return success, d100, nil
}

func (e *Engine) difficultyRoll(current, difficulty int) (bool, int) {
	chance := current + (100 - difficulty)
	if chance < minDifficultyPct {
		chance = minDifficultyPct
	}
	if chance > maxDifficultyPct {
		chance = maxDifficultyPct
	}
	d100 := UniformInt(e.src, 1, 100)
	return d100 <= chance, d100
}

// CheckRareEvent scales the probability twice as hard as RollSuccess: p * (1 + 2*modifier).
// Rare-event checks do not touch streaks.
func (e *Engine) CheckRareEvent(userID string, baseProbability float64) (bool, error) {
	if err := validProbability(baseProbability); err != nil {
		return false, err
	}
	adjusted := baseProbability * (1 + 2*luck.Modifier(e.eval.EffectiveLuck(userID)))
	hit := e.src.Float64() < adjusted
	e.observe("rare_event", hit)
	return hit, nil
}

// Chance draws against a fixed probability with no luck adjustment and no ledger update.
func (e *Engine) Chance(probability float64) (bool, error) {
	if err := validProbability(probability); err != nil {
		return false, err
	}
	return e.src.Float64() < probability, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
