package gateway

import "github.com/pixil98/go-battle/internal/battle"

// Error codes carried by action-rejected.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeNotFound        = "not_found"
	CodeValidation      = "validation"
	CodeInternal        = "internal"
)

type WaitingPayload struct {
	UserID string `json:"userId"`
}

type MatchFoundPayload struct {
	BattleID   string       `json:"battleId"`
	OpponentID string       `json:"opponentId"`
	State      *battle.View `json:"state"`
}

type TurnUpdatePayload struct {
	BattleID string       `json:"battleId"`
	State    *battle.View `json:"state"`
}

type BattleEndPayload struct {
	BattleID string       `json:"battleId"`
	WinnerID string       `json:"winnerId"`
	State    *battle.View `json:"state"`
}

type ActionRejectedPayload struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

type OpponentPayload struct {
	BattleID   string `json:"battleId"`
	OpponentID string `json:"opponentId"`
}
