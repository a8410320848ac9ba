package engine

import (
	"github.com/pixil98/go-battle/internal/battle"
)

// Validate checks an action against the submitting player's current state.
// It never mutates st. Failures are *battle.ValidationError.
func Validate(st *battle.State, playerID string, a battle.Action) error {
	me, _ := st.Sides(playerID)
	if me == nil {
		return &battle.ValidationError{Reason: "cannot act in this battle", Err: battle.ErrNotAParticipant}
	}

	if err := validatePhase(st, me, a); err != nil {
		return err
	}
	if st.Phase == battle.PhaseSelection {
		return validateSelect(me, a.UnitIndex)
	}
	if err := validateActor(me, a); err != nil {
		return err
	}
	return validatePayload(me, a)
}

func validatePhase(st *battle.State, me *battle.Side, a battle.Action) error {
	switch st.Phase {
	case battle.PhaseSelection:
		if a.Kind != battle.ActionSelect {
			return battle.NewValidationError("only unit selection is allowed before the battle starts")
		}
		if me.HasSelected {
			return battle.NewValidationError("starting unit already selected")
		}
	case battle.PhaseSubmission:
		if a.Kind == battle.ActionSelect {
			return battle.NewValidationError("unit selection is closed")
		}
		if me.Pending != nil {
			return battle.NewValidationError("action already submitted for turn %d", st.TurnNumber)
		}
	case battle.PhaseFinished:
		return battle.NewValidationError("battle is already finished")
	default:
		return battle.NewValidationError("battle is in unknown phase %q", st.Phase)
	}
	return nil
}

func validateSelect(me *battle.Side, index int) error {
	if index < 0 || index >= len(me.Units) {
		return battle.NewValidationError("no unit in slot %d", index)
	}
	if me.Units[index].IsFainted {
		return battle.NewValidationError("%s has fainted", me.Units[index].Name)
	}
	return nil
}

func validateActor(me *battle.Side, a battle.Action) error {
	active := me.Active()
	if active == nil {
		return battle.NewValidationError("no active unit")
	}

	if a.Kind == battle.ActionFlee {
		return nil
	}

	if active.IsFainted && a.Kind != battle.ActionSwitch {
		return battle.NewValidationError("%s has fainted and must be switched out", active.Name)
	}

	if a.Kind == battle.ActionMove && !active.CanAct {
		effect := active.BlockingEffect()
		if effect == "" {
			return battle.NewValidationError("%s cannot act", active.Name)
		}
		return battle.NewValidationError("%s cannot act while affected by %s", active.Name, effect)
	}

	return nil
}

func validatePayload(me *battle.Side, a battle.Action) error {
	switch a.Kind {
	case battle.ActionMove:
		if me.Active().Move(a.MoveID) == nil {
			return battle.NewValidationError("%s does not know move %q", me.Active().Name, a.MoveID)
		}
	case battle.ActionSwitch:
		return validateSwitch(me, a.UnitIndex)
	case battle.ActionUseItem:
		return validateItem(me, a.ItemID, a.UnitIndex)
	case battle.ActionFlee, battle.ActionPass:
	default:
		return battle.NewValidationError("unknown action %q", a.Kind)
	}
	return nil
}

func validateSwitch(me *battle.Side, index int) error {
	if index < 0 || index >= len(me.Units) {
		return battle.NewValidationError("no unit in slot %d", index)
	}
	if index == me.ActiveUnitIndex {
		return battle.NewValidationError("%s is already in battle", me.Units[index].Name)
	}
	if me.Units[index].IsFainted {
		return battle.NewValidationError("%s has fainted", me.Units[index].Name)
	}
	return nil
}

func validateItem(me *battle.Side, itemID string, index int) error {
	item := me.Item(itemID)
	if item == nil || item.Quantity <= 0 {
		return battle.NewValidationError("item %q is not available", itemID)
	}
	if index < 0 || index >= len(me.Units) {
		return battle.NewValidationError("no unit in slot %d", index)
	}

	target := me.Units[index]
	switch item.Kind {
	case battle.ItemRevive:
		if !target.IsFainted {
			return battle.NewValidationError("%s has not fainted", target.Name)
		}
	case battle.ItemHeal, battle.ItemCure:
		if target.IsFainted {
			return battle.NewValidationError("%s has fainted", target.Name)
		}
	default:
		return battle.NewValidationError("item %q cannot be used in battle", itemID)
	}
	return nil
}
