package engine

import (
	"math"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/narration"
)

// applyEffects rolls each of a move's effects. dealt is the damage the move
// caused and feeds lifesteal.
func (t *turn) applyEffects(attacker, target *battle.Unit, move *battle.Move, dealt int) {
	for _, e := range move.Effects {
		if !succeeds(t.rng, e.Chance) {
			continue
		}

		value := e.Value
		if value == 0 {
			value = e.Type.DefaultValue()
		}

		if e.Type == battle.EffectLifesteal {
			if dealt <= 0 || attacker.IsFainted {
				continue
			}
			healed := attacker.Heal(int(math.Floor(float64(dealt) * value)))
			t.note(narration.KindLifesteal, map[string]any{"unitName": attacker.Name, "amount": healed})
			continue
		}

		recipient := target
		if e.Target == battle.TargetSelf {
			recipient = attacker
		}
		if recipient.IsFainted {
			continue
		}

		applyStatus(recipient, e.Type, e.Duration, value)
		t.note(narration.KindStatusApplied, map[string]any{
			"targetName": recipient.Name,
			"effectType": string(e.Type),
		})
	}
}

// applyStatus adds an effect or refreshes the duration of an existing one.
func applyStatus(u *battle.Unit, typ battle.EffectType, duration int, value float64) {
	if duration <= 0 {
		duration = 1
	}

	for i := range u.StatusEffects {
		if u.StatusEffects[i].Type == typ {
			u.StatusEffects[i].Remaining = duration
			return
		}
	}

	u.StatusEffects = append(u.StatusEffects, battle.StatusEffect{Type: typ, Remaining: duration, Value: value})
	switch typ {
	case battle.EffectAttackUp:
		u.Modifiers.AttackModifier *= value
	case battle.EffectDefenseUp:
		u.Modifiers.DefenseModifier *= value
	}
	u.Refresh()
}

// revertModifier undoes the modifier change made when e was applied.
func revertModifier(u *battle.Unit, e battle.StatusEffect) {
	if e.Value == 0 {
		return
	}
	switch e.Type {
	case battle.EffectAttackUp:
		u.Modifiers.AttackModifier /= e.Value
	case battle.EffectDefenseUp:
		u.Modifiers.DefenseModifier /= e.Value
	}
}

// clearEffects removes every effect from u and returns their types.
func clearEffects(u *battle.Unit) []battle.EffectType {
	removed := make([]battle.EffectType, 0, len(u.StatusEffects))
	for _, e := range u.StatusEffects {
		revertModifier(u, e)
		removed = append(removed, e.Type)
	}
	u.StatusEffects = []battle.StatusEffect{}
	u.Refresh()
	return removed
}

// tickEffects runs end-of-turn effect processing for every living unit.
func (t *turn) tickEffects() {
	for _, side := range []*battle.Side{t.st.Player1, t.st.Player2} {
		for _, u := range side.Units {
			if u.IsFainted {
				continue
			}
			t.tickUnit(side, u)
		}
	}
}

func (t *turn) tickUnit(side *battle.Side, u *battle.Unit) {
	kept := u.StatusEffects[:0]
	for _, e := range u.StatusEffects {
		switch e.Type.Category() {
		case battle.CategoryDamageOverTime:
			if !u.IsFainted {
				dealt := u.Damage(int(e.Value))
				t.note(narration.KindStatusDamage, map[string]any{
					"unitName":   u.Name,
					"damage":     dealt,
					"effectType": string(e.Type),
				})
				if u.IsFainted {
					t.note(narration.KindUnitFainted, map[string]any{"playerId": side.PlayerID, "unitName": u.Name})
				}
			}
		case battle.CategoryHealOverTime:
			if !u.IsFainted {
				healed := u.Heal(int(e.Value))
				t.note(narration.KindStatusHeal, map[string]any{"unitName": u.Name, "amount": healed})
			}
		}

		e.Remaining--
		if e.Remaining <= 0 {
			revertModifier(u, e)
			t.note(narration.KindStatusRemoved, map[string]any{"unitName": u.Name, "effectType": string(e.Type)})
			continue
		}
		kept = append(kept, e)
	}
	u.StatusEffects = kept
	u.Refresh()
}
