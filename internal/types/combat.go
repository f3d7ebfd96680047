package types

// CombatEntity は戦闘中のみ存在するステータス
type CombatEntity struct {
	Name    string `json:"name"`
	HP      int    `json:"hp"`
	MaxHP   int    `json:"max_hp"`
	Attack  int    `json:"attack"`
	Defense int    `json:"defense"`
	Level   int    `json:"level"`
	XP      int    `json:"xp"`    // 撃破時の基本経験値
	Coins   int    `json:"coins"` // 撃破時の基本コイン
}

// TakeDamage subtracts damage and clamps HP at zero.
func (e *CombatEntity) TakeDamage(damage int) {
	if damage < 0 {
		damage = 0
	}
	e.HP -= damage
	e.clamp()
}

// Heal restores HP up to MaxHP and returns the amount actually healed.
func (e *CombatEntity) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	before := e.HP
	e.HP += amount
	e.clamp()
	return e.HP - before
}

// IsDefeated reports whether HP reached zero.
func (e *CombatEntity) IsDefeated() bool {
	return e.HP <= 0
}

func (e *CombatEntity) clamp() {
	if e.MaxHP < 0 {
		e.MaxHP = 0
	}
	if e.HP > e.MaxHP {
		e.HP = e.MaxHP
	}
	if e.HP < 0 {
		e.HP = 0
	}
}

// Normalize enforces the entity invariants after construction.
func (e *CombatEntity) Normalize() {
	if e.Attack < 0 {
		e.Attack = 0
	}
	if e.Defense < 0 {
		e.Defense = 0
	}
	e.clamp()
}
