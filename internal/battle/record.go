package battle

import "time"

// Battle is the durable record of one match from pairing to termination.
type Battle struct {
	ID                  string     `json:"id"`
	Player1ID           string     `json:"player1Id"`
	Player2ID           string     `json:"player2Id"`
	Player1ConnectionID string     `json:"player1ConnectionId"`
	Player2ConnectionID string     `json:"player2ConnectionId"`
	Status              Status     `json:"status"`
	WinnerID            string     `json:"winnerId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	EndedAt             *time.Time `json:"endedAt,omitempty"`
	Snapshot            *State     `json:"snapshot,omitempty"`
}

// FromState builds the durable record for a live state.
func FromState(s *State) *Battle {
	return &Battle{
		ID:                  s.BattleID,
		Player1ID:           s.Player1.PlayerID,
		Player2ID:           s.Player2.PlayerID,
		Player1ConnectionID: s.Player1.ConnectionID,
		Player2ConnectionID: s.Player2.ConnectionID,
		Status:              s.BattleStatus,
		WinnerID:            s.WinnerID,
		CreatedAt:           s.CreatedAt,
		Snapshot:            s,
	}
}

// ConnectionFor returns the connection currently bound to playerID.
func (b *Battle) ConnectionFor(playerID string) string {
	switch playerID {
	case b.Player1ID:
		return b.Player1ConnectionID
	case b.Player2ID:
		return b.Player2ConnectionID
	default:
		return ""
	}
}
