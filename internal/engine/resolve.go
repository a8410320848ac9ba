package engine

import (
	"maps"
	"math"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/narration"
)

const (
	damageScale     = 0.4
	critMultiplier  = 1.5
	blockMultiplier = 0.5
)

// turn accumulates notifications while one resolution mutates st.
type turn struct {
	st    *battle.State
	rng   Roller
	notes []narration.Notification
}

func (t *turn) note(kind narration.Kind, payload map[string]any) {
	t.notes = append(t.notes, narration.Notify(kind, payload))
}

func (t *turn) notePlayer(kind narration.Kind, playerID string, payload map[string]any) {
	t.notes = append(t.notes, narration.NotifyPlayer(kind, playerID, payload))
}

// act resolves one side's pending action against the opponent.
func (t *turn) act(me, them *battle.Side, a battle.Action) {
	active := me.Active()

	// Earlier actions this turn may have changed what this side can do.
	if a.Kind == battle.ActionMove {
		if active.IsFainted {
			t.note(narration.KindKnockoutBlock, map[string]any{"playerId": me.PlayerID, "unitName": active.Name})
			return
		}
		if !active.CanAct {
			t.note(narration.KindStatusBlock, map[string]any{
				"playerId":   me.PlayerID,
				"unitName":   active.Name,
				"effectType": string(active.BlockingEffect()),
			})
			return
		}
	}

	switch a.Kind {
	case battle.ActionMove:
		t.attack(me, them, active.Move(a.MoveID))
	case battle.ActionSwitch:
		t.switchUnit(me, a.UnitIndex)
	case battle.ActionUseItem:
		t.useItem(me, a.ItemID, a.UnitIndex)
	case battle.ActionFlee:
		t.note(narration.KindFled, map[string]any{"playerId": me.PlayerID})
		t.st.Finish(them.PlayerID)
	case battle.ActionPass:
		t.note(narration.KindPassed, map[string]any{"playerId": me.PlayerID})
	default:
		t.notePlayer(narration.KindActionError, me.PlayerID, map[string]any{
			"playerId": me.PlayerID,
			"error":    "unknown action",
		})
	}
}

func (t *turn) attack(me, them *battle.Side, move *battle.Move) {
	attacker := me.Active()
	target := them.Active()
	if move == nil {
		t.notePlayer(narration.KindActionError, me.PlayerID, map[string]any{
			"playerId": me.PlayerID,
			"error":    "move is no longer known",
		})
		return
	}

	base := map[string]any{
		"playerId":     me.PlayerID,
		"attackerName": attacker.Name,
		"moveName":     move.Name,
		"targetName":   target.Name,
	}

	if move.Category == battle.MoveSupport {
		t.applyEffects(attacker, target, move, 0)
		if move.Narration != "" {
			t.notes = append(t.notes, narration.NotifyKey(move.Narration, base))
		}
		return
	}

	if target.IsFainted {
		t.note(narration.KindAttackMiss, base)
		return
	}

	accuracy := t.rng.Float64()
	if accuracy < target.Modifiers.DodgeChance || accuracy >= attacker.Modifiers.HitChance {
		t.note(narration.KindAttackMiss, base)
		return
	}

	damage := rawDamage(move.Power, attacker, target)
	if succeeds(t.rng, attacker.Modifiers.CritChance) {
		damage *= critMultiplier
		t.note(narration.KindAttackCrit, base)
	}
	if succeeds(t.rng, target.Modifiers.BlockChance) {
		damage *= blockMultiplier
		t.note(narration.KindAttackBlocked, base)
	}

	dealt := target.Damage(max(1, int(math.Floor(damage))))
	hit := maps.Clone(base)
	hit["damage"] = dealt
	t.note(narration.KindAttackHit, hit)

	if target.IsFainted {
		t.note(narration.KindUnitFainted, map[string]any{"playerId": them.PlayerID, "unitName": target.Name})
	}

	if move.Narration != "" {
		t.notes = append(t.notes, narration.NotifyKey(move.Narration, hit))
	}

	t.applyEffects(attacker, target, move, dealt)
}

// rawDamage is power * effective attack / effective defense, scaled.
func rawDamage(power int, attacker, target *battle.Unit) float64 {
	atk := float64(attacker.Attack) * attacker.Modifiers.AttackModifier
	def := float64(target.Defense) * target.Modifiers.DefenseModifier
	if def <= 0 {
		def = 1
	}
	return float64(power) * atk / def * damageScale
}

func (t *turn) switchUnit(me *battle.Side, index int) {
	switch {
	case index < 0 || index >= len(me.Units):
		t.notePlayer(narration.KindSwitchFailedInvalidIndex, me.PlayerID, map[string]any{"playerId": me.PlayerID})
	case index == me.ActiveUnitIndex:
		t.notePlayer(narration.KindSwitchFailedSame, me.PlayerID, map[string]any{"playerId": me.PlayerID})
	case me.Units[index].IsFainted:
		t.notePlayer(narration.KindSwitchFailedFainted, me.PlayerID, map[string]any{"playerId": me.PlayerID})
	default:
		me.ActiveUnitIndex = index
		t.note(narration.KindSwitchSuccess, map[string]any{
			"playerId": me.PlayerID,
			"unitName": me.Units[index].Name,
		})
	}
}

func (t *turn) useItem(me *battle.Side, itemID string, index int) {
	item := me.Item(itemID)
	if item == nil || item.Quantity <= 0 || index < 0 || index >= len(me.Units) {
		t.notePlayer(narration.KindActionError, me.PlayerID, map[string]any{
			"playerId": me.PlayerID,
			"error":    "item could not be used",
		})
		return
	}

	target := me.Units[index]
	payload := map[string]any{
		"playerId": me.PlayerID,
		"itemName": item.Name,
		"unitName": target.Name,
	}

	switch item.Kind {
	case battle.ItemHeal:
		if target.IsFainted {
			t.notePlayer(narration.KindActionError, me.PlayerID, map[string]any{"playerId": me.PlayerID, "error": target.Name + " has fainted"})
			return
		}
		payload["amount"] = target.Heal(int(item.Value))
	case battle.ItemRevive:
		if !target.IsFainted {
			t.notePlayer(narration.KindActionError, me.PlayerID, map[string]any{"playerId": me.PlayerID, "error": target.Name + " has not fainted"})
			return
		}
		clearEffects(target)
		target.SetHP(max(1, int(math.Floor(float64(target.MaxHP)*item.Value))))
		payload["amount"] = target.CurrentHP
	case battle.ItemCure:
		payload["amount"] = 0
		for _, e := range clearEffects(target) {
			t.note(narration.KindStatusRemoved, map[string]any{"unitName": target.Name, "effectType": string(e)})
		}
	}

	item.Quantity--
	t.note(narration.KindItemUsed, payload)
}

// selectUnit sets a side's starting unit during the selection phase.
func (t *turn) selectUnit(me *battle.Side, index int) {
	me.ActiveUnitIndex = index
	me.HasSelected = true
	t.note(narration.KindSelectSuccess, map[string]any{
		"playerId": me.PlayerID,
		"unitName": me.Units[index].Name,
	})
}

// checkWinner finishes the battle if either roster is fully fainted.
// Player one losing is checked first.
func (t *turn) checkWinner() {
	if t.st.IsFinished() {
		return
	}
	switch {
	case t.st.Player1.AllFainted():
		t.st.Finish(t.st.Player2.PlayerID)
	case t.st.Player2.AllFainted():
		t.st.Finish(t.st.Player1.PlayerID)
	}
}
