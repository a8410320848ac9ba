package listener

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/messaging"
)

// Gateway is the inbound surface a connection talks to.
type Gateway interface {
	Authenticate(ctx context.Context, connID, token string) (string, error)
	Enqueue(ctx context.Context, connID string) error
	SubmitAction(ctx context.Context, connID, battleID string, a battle.Action) error
	Rejoin(ctx context.Context, connID, battleID string) error
	ActiveBattle(ctx context.Context, connID string) (string, error)
	Disconnect(ctx context.Context, connID string) error
}

// ConnectionManager runs a session for every accepted connection.
type ConnectionManager struct {
	gw    Gateway
	sub   messaging.Subscriber
	newID func() string
}

func NewConnectionManager(gw Gateway, sub messaging.Subscriber) *ConnectionManager {
	return &ConnectionManager{
		gw:    gw,
		sub:   sub,
		newID: uuid.NewString,
	}
}

// AcceptConnection runs the line protocol on conn until it closes or ctx is done.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	s := newLineSession(m.newID(), conn, m.gw, m.sub)
	if err := s.run(ctx); err != nil {
		slog.WarnContext(ctx, "line session", "connection", s.connID, "error", err)
	}
}

// disconnect tells the gateway a connection is gone. It runs on a fresh
// context because the session's may already be cancelled.
func disconnect(gw Gateway, connID string) {
	ctx := context.Background()
	if err := gw.Disconnect(ctx, connID); err != nil {
		slog.WarnContext(ctx, "disconnecting", "connection", connID, "error", err)
	}
}
