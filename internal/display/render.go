package display

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/padding"
	"github.com/muesli/reflow/truncate"
	"github.com/pixil98/go-battle/internal/battle"
)

const nameWidth = 14

// RenderView draws a battle view for a line-mode client.
func RenderView(v *battle.View) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Battle %s  Turn %d  [%s]\n", v.BattleID, v.TurnNumber, v.Phase)
	if v.BattleStatus == battle.StatusFinished {
		fmt.Fprintf(&sb, "Winner: %s\n", v.WinnerID)
	}

	sb.WriteString(renderSide("You", v.You, true))
	sb.WriteString(renderSide("Opponent", v.Opponent, false))

	if len(v.Events) > 0 {
		sb.WriteString("\n")
		sb.WriteString(RenderEvents(v.Events))
	}

	return sb.String()
}

func renderSide(label string, s battle.SideView, own bool) string {
	var sb strings.Builder

	header := fmt.Sprintf("%s (%s)", label, s.PlayerID)
	switch {
	case s.Disconnected:
		header += "  [disconnected]"
	case s.HasSubmitted:
		header += "  [ready]"
	}
	sb.WriteString(header + "\n")

	var body strings.Builder
	for i, u := range s.Units {
		marker := " "
		if i == s.ActiveUnitIndex {
			marker = ">"
		}
		name := padding.String(truncate.StringWithTail(u.Name, nameWidth, "~"), nameWidth)
		fmt.Fprintf(&body, "%s %d) %s %3d/%-3d HP%s\n", marker, i, name, u.CurrentHP, u.MaxHP, unitStatus(u))
	}

	if own {
		if active := activeUnit(s); active != nil && len(active.Moves) > 0 {
			ids := make([]string, len(active.Moves))
			for i, m := range active.Moves {
				ids[i] = m.ID
			}
			fmt.Fprintf(&body, "Moves: %s\n", strings.Join(ids, ", "))
		}
		if len(s.Inventory) > 0 {
			items := make([]string, 0, len(s.Inventory))
			for _, it := range s.Inventory {
				items = append(items, fmt.Sprintf("%s x%d", it.ItemID, it.Quantity))
			}
			fmt.Fprintf(&body, "Items: %s\n", strings.Join(items, ", "))
		}
		if s.Pending != nil {
			fmt.Fprintf(&body, "Submitted: %s\n", s.Pending)
		}
	}

	sb.WriteString(indent.String(body.String(), 2))
	return sb.String()
}

func unitStatus(u *battle.Unit) string {
	if u.IsFainted {
		return "  fainted"
	}
	if len(u.StatusEffects) == 0 {
		return ""
	}
	effects := make([]string, len(u.StatusEffects))
	for i, e := range u.StatusEffects {
		effects[i] = fmt.Sprintf("%s(%d)", e.Type, e.Remaining)
	}
	return "  " + strings.Join(effects, " ")
}

func activeUnit(s battle.SideView) *battle.Unit {
	if s.ActiveUnitIndex < 0 || s.ActiveUnitIndex >= len(s.Units) {
		return nil
	}
	return s.Units[s.ActiveUnitIndex]
}

// RenderEvents writes one wrapped line per event message.
func RenderEvents(events []battle.Event) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(WrapHanging("* "+Capitalize(e.Message), DefaultWidth, 2))
		sb.WriteString("\n")
	}
	return sb.String()
}
