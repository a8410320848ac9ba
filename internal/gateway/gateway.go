package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/matchmaking"
	"github.com/pixil98/go-battle/internal/messaging"
	"github.com/pixil98/go-battle/internal/session"
)

type Queue interface {
	Enqueue(ctx context.Context, userID, connID string) (matchmaking.Result, error)
	RemoveByConnection(ctx context.Context, connID string) (*battle.State, error)
}

type TurnRunner interface {
	RunTurn(ctx context.Context, battleID, playerID string, a battle.Action) (*battle.State, error)
}

type Lifecycle interface {
	RebindConnection(ctx context.Context, battleID, playerID, connID string) (*battle.State, error)
	FindActiveBattleByConnection(ctx context.Context, connID string) (*battle.Battle, error)
}

type Sender interface {
	Send(connID, event string, payload any) error
}

type Verifier interface {
	Verify(token string) (string, error)
}

// Gateway is the inbound surface shared by every transport. It resolves the
// caller and runs the request against the core. Results reach clients
// through the observer methods, which the core calls while it still holds
// the battle lock.
type Gateway struct {
	sessions  *session.Registry
	verifier  Verifier
	queue     Queue
	engine    TurnRunner
	lifecycle Lifecycle
	sender    Sender
}

func NewGateway(sessions *session.Registry, verifier Verifier, queue Queue, engine TurnRunner, lifecycle Lifecycle, sender Sender) *Gateway {
	return &Gateway{
		sessions:  sessions,
		verifier:  verifier,
		queue:     queue,
		engine:    engine,
		lifecycle: lifecycle,
		sender:    sender,
	}
}

// Authenticate verifies a session token and binds its user to connID.
func (g *Gateway) Authenticate(ctx context.Context, connID, token string) (string, error) {
	userID, err := g.verifier.Verify(token)
	if err != nil {
		slog.InfoContext(ctx, "rejected session token", "connection", connID, "error", err)
		return "", fmt.Errorf("%w: %v", session.ErrUnauthenticated, err)
	}
	g.sessions.Bind(connID, userID)
	slog.InfoContext(ctx, "connection authenticated", "connection", connID, "user", userID)
	return userID, nil
}

// Enqueue puts the caller into matchmaking.
func (g *Gateway) Enqueue(ctx context.Context, connID string) error {
	userID, err := g.resolve(connID)
	if err != nil {
		return err
	}

	res, err := g.queue.Enqueue(ctx, userID, connID)
	if err != nil {
		return g.reject(ctx, connID, err)
	}

	if res.Waiting {
		g.send(ctx, connID, messaging.EventWaiting, WaitingPayload{UserID: userID})
	}
	return nil
}

// SubmitAction runs one action for the caller.
func (g *Gateway) SubmitAction(ctx context.Context, connID, battleID string, a battle.Action) error {
	userID, err := g.resolve(connID)
	if err != nil {
		return err
	}

	_, err = g.engine.RunTurn(ctx, battleID, userID, a)
	if err != nil {
		return g.reject(ctx, connID, err)
	}
	return nil
}

// Rejoin binds the caller's new connection to a battle they are part of.
func (g *Gateway) Rejoin(ctx context.Context, connID, battleID string) error {
	userID, err := g.resolve(connID)
	if err != nil {
		return err
	}

	_, err = g.lifecycle.RebindConnection(ctx, battleID, userID, connID)
	if err != nil {
		return g.reject(ctx, connID, err)
	}
	return nil
}

// ActiveBattle returns the id of the battle connID is playing, if any.
func (g *Gateway) ActiveBattle(ctx context.Context, connID string) (string, error) {
	b, err := g.lifecycle.FindActiveBattleByConnection(ctx, connID)
	if err != nil || b == nil {
		return "", err
	}
	return b.ID, nil
}

// Disconnect removes a closed connection from matchmaking and starts the
// disconnect grace period of any battle it was in.
func (g *Gateway) Disconnect(ctx context.Context, connID string) error {
	defer g.sessions.Unbind(connID)

	_, err := g.queue.RemoveByConnection(ctx, connID)
	if err != nil {
		return fmt.Errorf("removing connection %s: %w", connID, err)
	}
	return nil
}

// BattleStarted tells both players they have been matched.
func (g *Gateway) BattleStarted(ctx context.Context, b *battle.Battle) {
	for _, playerID := range []string{b.Player1ID, b.Player2ID} {
		g.send(ctx, b.ConnectionFor(playerID), messaging.EventMatchFound, MatchFoundPayload{
			BattleID:   b.ID,
			OpponentID: b.Snapshot.OpponentID(playerID),
			State:      b.Snapshot.ViewFor(playerID),
		})
	}
}

// StateChanged sends each participant its own view of a committed state.
func (g *Gateway) StateChanged(ctx context.Context, st *battle.State) {
	g.broadcast(ctx, st)
}

// PlayerRejoined resends the battle to the rejoined player and tells the
// opponent.
func (g *Gateway) PlayerRejoined(ctx context.Context, st *battle.State, playerID string) {
	me, them := st.Sides(playerID)
	if me == nil {
		return
	}
	g.send(ctx, me.ConnectionID, messaging.EventTurnUpdate, TurnUpdatePayload{BattleID: st.BattleID, State: st.ViewFor(playerID)})
	g.send(ctx, them.ConnectionID, messaging.EventOpponentReconnected, OpponentPayload{BattleID: st.BattleID, OpponentID: playerID})
}

// PlayerDisconnected tells the opponent that playerID lost its connection.
func (g *Gateway) PlayerDisconnected(ctx context.Context, st *battle.State, playerID string) {
	_, them := st.Sides(playerID)
	if them == nil {
		return
	}
	g.send(ctx, them.ConnectionID, messaging.EventOpponentDisconnected, OpponentPayload{BattleID: st.BattleID, OpponentID: playerID})
}

func (g *Gateway) broadcast(ctx context.Context, st *battle.State) {
	for _, side := range []*battle.Side{st.Player1, st.Player2} {
		view := st.ViewFor(side.PlayerID)
		if st.IsFinished() {
			g.send(ctx, side.ConnectionID, messaging.EventBattleEnd, BattleEndPayload{
				BattleID: st.BattleID,
				WinnerID: st.WinnerID,
				State:    view,
			})
			continue
		}
		g.send(ctx, side.ConnectionID, messaging.EventTurnUpdate, TurnUpdatePayload{BattleID: st.BattleID, State: view})
	}
}

func (g *Gateway) resolve(connID string) (string, error) {
	userID, err := g.sessions.ResolveUser(connID)
	if err != nil {
		g.send(context.Background(), connID, messaging.EventActionRejected, ActionRejectedPayload{
			Error:  CodeUnauthenticated,
			Reason: "log in first",
		})
		return "", err
	}
	return userID, nil
}

// reject reports err to connID only. Expected errors are swallowed, anything
// else is returned to the transport after the client has been told.
func (g *Gateway) reject(ctx context.Context, connID string, err error) error {
	var ve *battle.ValidationError
	switch {
	case errors.As(err, &ve):
		g.send(ctx, connID, messaging.EventActionRejected, ActionRejectedPayload{Error: CodeValidation, Reason: ve.Reason})
		return nil
	case errors.Is(err, battle.ErrNotFound):
		g.send(ctx, connID, messaging.EventActionRejected, ActionRejectedPayload{Error: CodeNotFound, Reason: "battle not found"})
		return nil
	default:
		slog.ErrorContext(ctx, "handling request", "connection", connID, "error", err)
		g.send(ctx, connID, messaging.EventActionRejected, ActionRejectedPayload{Error: CodeInternal, Reason: "internal error"})
		return err
	}
}

func (g *Gateway) send(ctx context.Context, connID, event string, payload any) {
	if connID == "" {
		return
	}
	err := g.sender.Send(connID, event, payload)
	if err != nil {
		slog.WarnContext(ctx, "sending event", "connection", connID, "event", event, "error", err)
	}
}
