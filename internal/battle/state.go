package battle

import "time"

type Phase string

const (
	PhaseSelection  Phase = "SELECTION"
	PhaseSubmission Phase = "SUBMISSION"
	PhaseFinished   Phase = "FINISHED"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// State is the live simulation of one battle. It is only mutated while the
// caller holds the battle's store lock.
type State struct {
	BattleID        string    `json:"battleId"`
	CreatedAt       time.Time `json:"createdAt"`
	Phase           Phase     `json:"phase"`
	Player1         *Side     `json:"player1"`
	Player2         *Side     `json:"player2"`
	TurnNumber      int       `json:"turnNumber"`
	CurrentPlayerID string    `json:"currentPlayerId,omitempty"`
	BattleStatus    Status    `json:"battleStatus"`
	WinnerID        string    `json:"winnerId,omitempty"`
	Events          []Event   `json:"events"`

	// TurnLogStart indexes the first event appended by the latest mutation.
	TurnLogStart int `json:"turnLogStart"`
	// Deadline is when the current phase times out, in unix milliseconds.
	Deadline int64 `json:"deadline,omitempty"`
}

// IsParticipant reports whether playerID is one of the two sides.
func (s *State) IsParticipant(playerID string) bool {
	return playerID != "" && (s.Player1.PlayerID == playerID || s.Player2.PlayerID == playerID)
}

// Sides returns the side belonging to playerID and the opposing side.
// Both are nil if playerID is not a participant.
func (s *State) Sides(playerID string) (*Side, *Side) {
	switch playerID {
	case s.Player1.PlayerID:
		return s.Player1, s.Player2
	case s.Player2.PlayerID:
		return s.Player2, s.Player1
	default:
		return nil, nil
	}
}

// SideByConnection returns the side currently bound to connID, or nil.
func (s *State) SideByConnection(connID string) *Side {
	switch connID {
	case "":
		return nil
	case s.Player1.ConnectionID:
		return s.Player1
	case s.Player2.ConnectionID:
		return s.Player2
	default:
		return nil
	}
}

// OpponentID returns the other participant's id.
func (s *State) OpponentID(playerID string) string {
	if s.Player1.PlayerID == playerID {
		return s.Player2.PlayerID
	}
	return s.Player1.PlayerID
}

// BeginLog marks the start of a new batch of events for the client view.
func (s *State) BeginLog() {
	s.TurnLogStart = len(s.Events)
}

// AppendEvents adds events to the log, stamping the current turn.
func (s *State) AppendEvents(events ...Event) {
	for _, e := range events {
		e.Turn = s.TurnNumber
		s.Events = append(s.Events, e)
	}
}

// RecentEvents returns the events appended since the last BeginLog.
func (s *State) RecentEvents() []Event {
	if s.TurnLogStart >= len(s.Events) {
		return nil
	}
	return s.Events[s.TurnLogStart:]
}

// Finish marks the battle terminal with the given winner.
func (s *State) Finish(winnerID string) {
	s.Phase = PhaseFinished
	s.BattleStatus = StatusFinished
	s.WinnerID = winnerID
	s.Deadline = 0
	s.Player1.Pending = nil
	s.Player2.Pending = nil
}

// IsFinished reports whether the battle reached its terminal state.
func (s *State) IsFinished() bool {
	return s.BattleStatus == StatusFinished
}

// DeadlinePassed reports whether the current phase deadline is before now.
func (s *State) DeadlinePassed(now time.Time) bool {
	return s.Deadline > 0 && now.UnixMilli() >= s.Deadline
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Player1 = s.Player1.Clone()
	c.Player2 = s.Player2.Clone()
	c.Events = make([]Event, len(s.Events))
	for i, e := range s.Events {
		c.Events[i] = e.Clone()
	}
	return &c
}

// Side is one player's half of a battle.
type Side struct {
	PlayerID        string          `json:"playerId"`
	ConnectionID    string          `json:"connectionId"`
	ActiveUnitIndex int             `json:"activeUnitIndex"`
	Units           []*Unit         `json:"units"`
	Inventory       []InventoryItem `json:"inventory"`
	Pending         *Action         `json:"pending,omitempty"`
	HasSelected     bool            `json:"hasSelected"`
	// DisconnectedAt is the unix millisecond the connection dropped, or 0.
	DisconnectedAt int64 `json:"disconnectedAt,omitempty"`
}

// Active returns the active unit or nil if the index is out of range.
func (s *Side) Active() *Unit {
	if s.ActiveUnitIndex < 0 || s.ActiveUnitIndex >= len(s.Units) {
		return nil
	}
	return s.Units[s.ActiveUnitIndex]
}

// AllFainted reports whether the whole roster is fainted.
func (s *Side) AllFainted() bool {
	for _, u := range s.Units {
		if !u.IsFainted {
			return false
		}
	}
	return true
}

// FirstHealthy returns the index of the first non-fainted unit, or -1.
func (s *Side) FirstHealthy() int {
	for i, u := range s.Units {
		if !u.IsFainted {
			return i
		}
	}
	return -1
}

// ForcedSwitch reports whether the active unit is fainted and must be replaced.
func (s *Side) ForcedSwitch() bool {
	u := s.Active()
	return u != nil && u.IsFainted
}

// Item returns the inventory entry for itemID, or nil.
func (s *Side) Item(itemID string) *InventoryItem {
	for i := range s.Inventory {
		if s.Inventory[i].ItemID == itemID {
			return &s.Inventory[i]
		}
	}
	return nil
}

func (s *Side) Clone() *Side {
	if s == nil {
		return nil
	}
	c := *s
	c.Units = make([]*Unit, len(s.Units))
	for i, u := range s.Units {
		c.Units[i] = u.Clone()
	}
	c.Inventory = append([]InventoryItem(nil), s.Inventory...)
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}

type ItemKind string

const (
	ItemHeal   ItemKind = "heal"
	ItemRevive ItemKind = "revive"
	ItemCure   ItemKind = "cure_status"
)

// InventoryItem is a held item stack copied from the player's party at battle start.
type InventoryItem struct {
	ItemID   string   `json:"itemId"`
	Name     string   `json:"name"`
	Kind     ItemKind `json:"kind"`
	Value    float64  `json:"value"`
	Quantity int      `json:"quantity"`
}
