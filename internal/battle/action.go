package battle

import "fmt"

type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMove
	ActionSwitch
	ActionUseItem
	ActionFlee
	ActionSelect
	ActionPass
)

var actionNames = map[ActionKind]string{
	ActionMove:    "move",
	ActionSwitch:  "switch",
	ActionUseItem: "use_item",
	ActionFlee:    "flee",
	ActionSelect:  "select",
	ActionPass:    "pass",
}

func (k ActionKind) String() string {
	if s, ok := actionNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k ActionKind) MarshalText() ([]byte, error) {
	if _, ok := actionNames[k]; !ok {
		return nil, fmt.Errorf("unknown action kind: %d", k)
	}
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(text []byte) error {
	for kind, name := range actionNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown action type: %s", text)
}

// Priority orders actions within a turn; higher acts first.
func (k ActionKind) Priority() int {
	switch k {
	case ActionSelect:
		return 100
	case ActionFlee:
		return 20
	case ActionSwitch:
		return 10
	case ActionUseItem:
		return 9
	case ActionPass:
		return 6
	case ActionMove:
		return 5
	default:
		return 0
	}
}

// Action is one player's submitted input for a turn. Which fields are
// meaningful depends on Kind.
type Action struct {
	Kind      ActionKind `json:"type"`
	MoveID    string     `json:"moveId,omitempty"`
	ItemID    string     `json:"itemId,omitempty"`
	UnitIndex int        `json:"unitIndex"`
}

func MoveAction(moveID string) Action {
	return Action{Kind: ActionMove, MoveID: moveID}
}

func SwitchAction(index int) Action {
	return Action{Kind: ActionSwitch, UnitIndex: index}
}

func ItemAction(itemID string, target int) Action {
	return Action{Kind: ActionUseItem, ItemID: itemID, UnitIndex: target}
}

func SelectAction(index int) Action {
	return Action{Kind: ActionSelect, UnitIndex: index}
}

func FleeAction() Action {
	return Action{Kind: ActionFlee}
}

func PassAction() Action {
	return Action{Kind: ActionPass}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("move %s", a.MoveID)
	case ActionSwitch, ActionSelect:
		return fmt.Sprintf("%s %d", a.Kind, a.UnitIndex)
	case ActionUseItem:
		return fmt.Sprintf("use_item %s %d", a.ItemID, a.UnitIndex)
	default:
		return a.Kind.String()
	}
}
