package battle

// Modifiers are multiplicative and probability adjustments applied during resolution.
type Modifiers struct {
	AttackModifier  float64 `json:"attackModifier"`
	DefenseModifier float64 `json:"defenseModifier"`
	DodgeChance     float64 `json:"dodgeChance"`
	HitChance       float64 `json:"hitChance"`
	CritChance      float64 `json:"critChance"`
	BlockChance     float64 `json:"blockChance"`
}

// DefaultModifiers are the modifiers every unit starts a battle with.
func DefaultModifiers() Modifiers {
	return Modifiers{
		AttackModifier:  1.0,
		DefenseModifier: 1.0,
		DodgeChance:     0.0,
		HitChance:       1.0,
		CritChance:      0.05,
		BlockChance:     0.0,
	}
}

// Unit is one creature's live combat state.
type Unit struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	CurrentHP     int            `json:"currentHp"`
	MaxHP         int            `json:"maxHp"`
	Attack        int            `json:"attack"`
	Defense       int            `json:"defense"`
	Speed         int            `json:"speed"`
	IsFainted     bool           `json:"isFainted"`
	CanAct        bool           `json:"canAct"`
	Modifiers     Modifiers      `json:"modifiers"`
	StatusEffects []StatusEffect `json:"statusEffects"`
	Moves         []Move         `json:"moves"`
}

// SetHP clamps hp into [0, MaxHP] and re-derives the faint and action flags.
func (u *Unit) SetHP(hp int) {
	u.CurrentHP = max(0, min(hp, u.MaxHP))
	u.Refresh()
}

// Damage subtracts n hit points and returns the amount actually removed.
func (u *Unit) Damage(n int) int {
	before := u.CurrentHP
	u.SetHP(u.CurrentHP - max(0, n))
	return before - u.CurrentHP
}

// Heal adds n hit points and returns the amount actually restored.
func (u *Unit) Heal(n int) int {
	before := u.CurrentHP
	u.SetHP(u.CurrentHP + max(0, n))
	return u.CurrentHP - before
}

// Refresh re-derives IsFainted and CanAct from hit points and status effects.
func (u *Unit) Refresh() {
	u.IsFainted = u.CurrentHP <= 0
	u.CanAct = !u.IsFainted && !u.HasCategory(CategoryBlocking)
}

// HasCategory reports whether any active status effect falls in cat.
func (u *Unit) HasCategory(cat EffectCategory) bool {
	for _, e := range u.StatusEffects {
		if e.Type.Category() == cat {
			return true
		}
	}
	return false
}

// BlockingEffect returns the first blocking effect type, or "".
func (u *Unit) BlockingEffect() EffectType {
	for _, e := range u.StatusEffects {
		if e.Type.Category() == CategoryBlocking {
			return e.Type
		}
	}
	return ""
}

// Move returns the known move with the given id, or nil.
func (u *Unit) Move(moveID string) *Move {
	for i := range u.Moves {
		if u.Moves[i].ID == moveID {
			return &u.Moves[i]
		}
	}
	return nil
}

func (u *Unit) Clone() *Unit {
	if u == nil {
		return nil
	}
	c := *u
	c.StatusEffects = append([]StatusEffect(nil), u.StatusEffects...)
	c.Moves = make([]Move, len(u.Moves))
	for i, m := range u.Moves {
		c.Moves[i] = m
		c.Moves[i].Effects = append([]MoveEffect(nil), m.Effects...)
	}
	return &c
}

type MoveCategory string

const (
	MoveAttack  MoveCategory = "attack"
	MoveSpecial MoveCategory = "special"
	MoveSupport MoveCategory = "support"
)

type EffectTarget string

const (
	TargetSelf  EffectTarget = "self"
	TargetEnemy EffectTarget = "enemy"
)

// Move is a unit's attack as copied from the catalog at battle start.
type Move struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Power    int          `json:"power"`
	Category MoveCategory `json:"category"`
	Effects  []MoveEffect `json:"effects,omitempty"`
	// Narration is an optional event key emitted when the move lands.
	Narration string `json:"narration,omitempty"`
}

// MoveEffect is a chance-based effect attached to a move.
type MoveEffect struct {
	Type     EffectType   `json:"type"`
	Chance   float64      `json:"chance"`
	Duration int          `json:"duration,omitempty"`
	Value    float64      `json:"value,omitempty"`
	Target   EffectTarget `json:"target,omitempty"`
}
