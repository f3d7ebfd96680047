package combat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/enetx/fsm"
	"github.com/ichi0g0y/discord-rpg-bot/internal/reward"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

// 戦闘状態
const (
	StateOngoing fsm.State = "ongoing"
	StateVictory fsm.State = "victory"
	StateDefeat  fsm.State = "defeat"
	StateFled    fsm.State = "fled"
)

const (
	EventWin    fsm.Event = "win"
	EventLose   fsm.Event = "lose"
	EventEscape fsm.Event = "escape"
)

// Action is a player move.
type Action string

const (
	ActionAttack  Action = "attack"
	ActionDefend  Action = "defend"
	ActionUseItem Action = "use_item"
	ActionFlee    Action = "flee"
)

var (
	ErrBattleOver   = errors.New("battle is already over")
	ErrNoUsableItem = errors.New("no usable item")
	ErrUnknownMove  = errors.New("unknown battle action")
)

// IsHealingItem reports whether an inventory item can be used in battle.
// Luck potions are drunk through the luck commands, not in battle.
func IsHealingItem(item string) bool {
	return strings.Contains(item, "Potion") && !strings.Contains(item, "Luck")
}

// TurnResult describes what happened during one player action.
type TurnResult struct {
	Action       Action    `json:"action"`
	PlayerDamage int       `json:"player_damage"`
	Critical     bool      `json:"critical"`
	EnemyDamage  int       `json:"enemy_damage"`
	Healed       int       `json:"healed"`
	Item         string    `json:"item,omitempty"`
	FleeFailed   bool      `json:"flee_failed"`
	State        fsm.State `json:"state"`
	Log          []string  `json:"log"`
}

// Battle はプレイヤー1人とモンスター1体の戦闘
type Battle struct {
	mu sync.Mutex

	id        string
	userID    string
	player    types.CombatEntity
	enemy     types.CombatEntity
	items     []string
	turns     int
	startedAt time.Time
	endedAt   time.Time
	lastMove  time.Time
	log       []string
	reward    *types.RewardResult

	resolver *Resolver
	rewards  *reward.Generator
	machine  *fsm.FSM
	now      func() time.Time
}

// NewBattle wires the ongoing → victory | defeat | fled state machine.
// items are the healing items the player carries into the fight.
func NewBattle(id, userID string, player, enemy types.CombatEntity, items []string, resolver *Resolver, rewards *reward.Generator) *Battle {
	player.Normalize()
	enemy.Normalize()

	b := &Battle{
		id:       id,
		userID:   userID,
		player:   player,
		enemy:    enemy,
		items:    append([]string(nil), items...),
		resolver: resolver,
		rewards:  rewards,
		now:      resolver.Engine().Evaluator().Ledger().Now,
	}
	b.startedAt = b.now()
	b.lastMove = b.startedAt

	b.machine = fsm.New(StateOngoing).
		Transition(StateOngoing, EventWin, StateVictory).
		Transition(StateOngoing, EventLose, StateDefeat).
		Transition(StateOngoing, EventEscape, StateFled).
		OnEnter(StateVictory, func(*fsm.Context) error {
			return b.grantVictoryReward()
		}).
		OnEnter(StateDefeat, func(*fsm.Context) error {
			// HPは1未満にしない
			b.player.HP = 1
			b.logf("💀 %s was defeated by the %s!", b.player.Name, b.enemy.Name)
			return nil
		}).
		OnEnter(StateFled, func(*fsm.Context) error {
			b.logf("🏃 %s escaped from battle!", b.player.Name)
			return nil
		})

	return b
}

func (b *Battle) ID() string     { return b.id }
func (b *Battle) UserID() string { return b.userID }

// State returns the current battle state.
func (b *Battle) State() fsm.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.machine.Current()
}

// IsOver reports whether the battle reached a terminal state.
func (b *Battle) IsOver() bool {
	return b.State() != StateOngoing
}

func (b *Battle) Player() types.CombatEntity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.player
}

func (b *Battle) Enemy() types.CombatEntity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enemy
}

// ItemsLeft returns the healing items not yet used.
func (b *Battle) ItemsLeft() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.items...)
}

// Reward is set once the battle is won.
func (b *Battle) Reward() *types.RewardResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reward
}

// Log returns the last n log lines (all when n <= 0).
func (b *Battle) Log(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n >= len(b.log) {
		return append([]string(nil), b.log...)
	}
	return append([]string(nil), b.log[len(b.log)-n:]...)
}

// LastMove is the time of the latest action (or the start).
func (b *Battle) LastMove() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMove
}

// Do dispatches an action by name.
func (b *Battle) Do(action Action) (*TurnResult, error) {
	switch action {
	case ActionAttack:
		return b.Attack()
	case ActionDefend:
		return b.Defend()
	case ActionUseItem:
		return b.UseItem()
	case ActionFlee:
		return b.Flee()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMove, action)
	}
}

// Attack hits the enemy (crit-capable); a surviving enemy counter-attacks.
func (b *Battle) Attack() (*TurnResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.begin(ActionAttack)
	if err != nil {
		return nil, err
	}

	damage := b.resolver.ComputeDamage(&b.player, &b.enemy)
	damage, crit, err := b.resolver.MaybeCritical(b.userID, damage, b.resolver.cfg.CritBaseChance)
	if err != nil {
		return nil, fmt.Errorf("critical roll: %w", err)
	}
	b.enemy.TakeDamage(damage)
	res.PlayerDamage = damage
	res.Critical = crit
	if crit {
		b.logf("💥 Critical hit! You deal %d damage!", damage)
	} else {
		b.logf("⚔️ You attack for %d damage!", damage)
	}

	if b.enemy.IsDefeated() {
		return b.finish(res, EventWin)
	}

	b.enemyAttack(res)
	if b.player.IsDefeated() {
		return b.finish(res, EventLose)
	}
	return b.settle(res), nil
}

// Defend takes the enemy's attack with reduced damage.
func (b *Battle) Defend() (*TurnResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.begin(ActionDefend)
	if err != nil {
		return nil, err
	}

	raw := b.resolver.ComputeDamage(&b.enemy, &b.player)
	reduced := b.resolver.defendedDamage(raw)
	b.player.TakeDamage(reduced)
	res.EnemyDamage = reduced
	b.logf("🛡️ You defend! Damage reduced from %d to %d!", raw, reduced)

	if b.player.IsDefeated() {
		return b.finish(res, EventLose)
	}
	return b.settle(res), nil
}

// UseItem drinks the first healing item; the enemy then attacks.
func (b *Battle) UseItem() (*TurnResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.machine.Current() != StateOngoing {
		return nil, ErrBattleOver
	}
	if len(b.items) == 0 {
		return nil, ErrNoUsableItem
	}

	res, err := b.begin(ActionUseItem)
	if err != nil {
		return nil, err
	}

	item := b.items[0]
	b.items = b.items[1:]
	healed := b.player.Heal(b.resolver.cfg.PotionHeal)
	res.Item = item
	res.Healed = healed
	b.logf("🧪 You used %s and healed %d HP!", item, healed)

	b.enemyAttack(res)
	if b.player.IsDefeated() {
		return b.finish(res, EventLose)
	}
	return b.settle(res), nil
}

// Flee escapes with a fixed chance independent of luck. A failed attempt
// gives the enemy a free attack.
func (b *Battle) Flee() (*TurnResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.begin(ActionFlee)
	if err != nil {
		return nil, err
	}

	escaped, err := b.resolver.Engine().Chance(b.resolver.cfg.FleeChance)
	if err != nil {
		return nil, fmt.Errorf("flee roll: %w", err)
	}
	if escaped {
		return b.finish(res, EventEscape)
	}

	res.FleeFailed = true
	damage := b.resolver.ComputeDamage(&b.enemy, &b.player)
	b.player.TakeDamage(damage)
	res.EnemyDamage = damage
	b.logf("❌ Failed to flee! %s attacks for %d damage!", b.enemy.Name, damage)

	if b.player.IsDefeated() {
		return b.finish(res, EventLose)
	}
	return b.settle(res), nil
}

// Record returns the history row of a finished battle.
func (b *Battle) Record() (types.BattleRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var outcome types.BattleOutcome
	switch b.machine.Current() {
	case StateVictory:
		outcome = types.OutcomeVictory
	case StateDefeat:
		outcome = types.OutcomeDefeat
	case StateFled:
		outcome = types.OutcomeFled
	default:
		return types.BattleRecord{}, false
	}

	rec := types.BattleRecord{
		ID:        b.id,
		UserID:    b.userID,
		Enemy:     b.enemy.Name,
		Outcome:   outcome,
		Turns:     b.turns,
		StartedAt: b.startedAt,
		EndedAt:   b.endedAt,
	}
	if b.reward != nil {
		rec.Coins = b.reward.Coins
		rec.XP = b.reward.XP
	}
	return rec, true
}

func (b *Battle) begin(action Action) (*TurnResult, error) {
	if b.machine.Current() != StateOngoing {
		return nil, ErrBattleOver
	}
	b.turns++
	b.lastMove = b.now()
	return &TurnResult{Action: action, Log: nil}, nil
}

func (b *Battle) enemyAttack(res *TurnResult) {
	damage := b.resolver.ComputeDamage(&b.enemy, &b.player)
	b.player.TakeDamage(damage)
	res.EnemyDamage = damage
	b.logf("🔴 %s attacks for %d damage!", b.enemy.Name, damage)
}

func (b *Battle) finish(res *TurnResult, ev fsm.Event) (*TurnResult, error) {
	if err := b.machine.Trigger(ev); err != nil {
		logger.Error("Failed to finish battle",
			zap.String("battle_id", b.id),
			zap.String("event", string(ev)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to finish battle %s: %w", b.id, err)
	}
	b.endedAt = b.now()

	logger.Info("Battle finished",
		zap.String("battle_id", b.id),
		zap.String("user_id", b.userID),
		zap.String("enemy", b.enemy.Name),
		zap.String("state", string(b.machine.Current())),
		zap.Int("turns", b.turns))

	return b.settle(res), nil
}

func (b *Battle) settle(res *TurnResult) *TurnResult {
	res.State = b.machine.Current()
	n := 3
	if len(b.log) < n {
		n = len(b.log)
	}
	res.Log = append([]string(nil), b.log[len(b.log)-n:]...)
	return res
}

func (b *Battle) grantVictoryReward() error {
	spec := types.RewardSpec{
		Coins: types.Fixed(b.enemy.Coins),
		XP:    types.Fixed(b.enemy.XP),
	}
	result, err := b.rewards.Generate(b.userID, spec)
	if err != nil {
		return fmt.Errorf("victory reward: %w", err)
	}
	b.reward = result
	b.logf("🎉 You defeated the %s! +%d XP, +%d coins", b.enemy.Name, result.XP, result.Coins)
	return nil
}

func (b *Battle) logf(format string, args ...any) {
	b.log = append(b.log, fmt.Sprintf(format, args...))
}
