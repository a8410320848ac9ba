package battle

import "fmt"

type EffectType string

const (
	EffectBurn      EffectType = "burn"
	EffectPoison    EffectType = "poison"
	EffectRegen     EffectType = "regen"
	EffectSleep     EffectType = "sleep"
	EffectFreeze    EffectType = "freeze"
	EffectParalysis EffectType = "paralysis"
	EffectFlinch    EffectType = "flinch"
	EffectAttackUp  EffectType = "attackUp"
	EffectDefenseUp EffectType = "defenseUp"

	// EffectLifesteal heals the attacker on hit and never persists on a unit.
	EffectLifesteal EffectType = "lifesteal"
)

type EffectCategory int

const (
	CategoryNone EffectCategory = iota
	CategoryDamageOverTime
	CategoryHealOverTime
	CategoryBlocking
	CategoryModifier
	CategoryInstant
)

func (t EffectType) Category() EffectCategory {
	switch t {
	case EffectBurn, EffectPoison:
		return CategoryDamageOverTime
	case EffectRegen:
		return CategoryHealOverTime
	case EffectSleep, EffectFreeze, EffectParalysis, EffectFlinch:
		return CategoryBlocking
	case EffectAttackUp, EffectDefenseUp:
		return CategoryModifier
	case EffectLifesteal:
		return CategoryInstant
	default:
		return CategoryNone
	}
}

// DefaultValue is used when a catalog effect leaves value unset.
func (t EffectType) DefaultValue() float64 {
	switch t {
	case EffectBurn:
		return 8
	case EffectPoison:
		return 10
	case EffectRegen:
		return 5
	case EffectAttackUp, EffectDefenseUp:
		return 1.5
	case EffectLifesteal:
		return 0.5
	default:
		return 0
	}
}

func (t EffectType) Validate() error {
	if t.Category() == CategoryNone {
		return fmt.Errorf("unknown effect type %q", t)
	}
	return nil
}

// StatusEffect is a timed effect currently applied to a unit.
type StatusEffect struct {
	Type      EffectType `json:"type"`
	Remaining int        `json:"remaining"`
	Value     float64    `json:"value"`
}
