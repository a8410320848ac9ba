package battle

// View is the state as shown to one participant. The opponent's pending
// action is reduced to a flag.
type View struct {
	BattleID        string   `json:"battleId"`
	Phase           Phase    `json:"phase"`
	TurnNumber      int      `json:"turnNumber"`
	CurrentPlayerID string   `json:"currentPlayerId,omitempty"`
	BattleStatus    Status   `json:"battleStatus"`
	WinnerID        string   `json:"winnerId,omitempty"`
	Deadline        int64    `json:"deadline,omitempty"`
	You             SideView `json:"you"`
	Opponent        SideView `json:"opponent"`
	Events          []Event  `json:"events"`
}

type SideView struct {
	PlayerID        string          `json:"playerId"`
	ActiveUnitIndex int             `json:"activeUnitIndex"`
	Units           []*Unit         `json:"units"`
	Inventory       []InventoryItem `json:"inventory,omitempty"`
	Pending         *Action         `json:"pending,omitempty"`
	HasSubmitted    bool            `json:"hasSubmitted"`
	HasSelected     bool            `json:"hasSelected"`
	Disconnected    bool            `json:"disconnected"`
}

// ViewFor projects the state for playerID. Events addressed to the other
// player are dropped and only events since the last BeginLog are included.
func (s *State) ViewFor(playerID string) *View {
	me, them := s.Sides(playerID)
	if me == nil {
		return nil
	}

	v := &View{
		BattleID:        s.BattleID,
		Phase:           s.Phase,
		TurnNumber:      s.TurnNumber,
		CurrentPlayerID: s.CurrentPlayerID,
		BattleStatus:    s.BattleStatus,
		WinnerID:        s.WinnerID,
		Deadline:        s.Deadline,
		You:             sideView(me, true),
		Opponent:        sideView(them, false),
		Events:          []Event{},
	}

	for _, e := range s.RecentEvents() {
		if e.TargetPlayerID != "" && e.TargetPlayerID != playerID {
			continue
		}
		v.Events = append(v.Events, e)
	}

	return v
}

func sideView(s *Side, own bool) SideView {
	c := s.Clone()
	sv := SideView{
		PlayerID:        c.PlayerID,
		ActiveUnitIndex: c.ActiveUnitIndex,
		Units:           c.Units,
		HasSubmitted:    c.Pending != nil,
		HasSelected:     c.HasSelected,
		Disconnected:    c.DisconnectedAt > 0,
	}
	if own {
		sv.Inventory = c.Inventory
		sv.Pending = c.Pending
	}
	return sv
}
