package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/gateway"
	"github.com/pixil98/go-battle/internal/messaging"
)

const (
	defaultWebsocketPath = "/ws"
	shutdownTimeout      = 5 * time.Second
)

// Inbound websocket message types.
const (
	msgAuth   = "auth"
	msgQueue  = "queue"
	msgAction = "action"
	msgRejoin = "rejoin"
)

// clientMessage is one JSON frame sent by a websocket client.
type clientMessage struct {
	Type     string         `json:"type"`
	Token    string         `json:"token,omitempty"`
	BattleID string         `json:"battleId,omitempty"`
	Action   *battle.Action `json:"action,omitempty"`
}

// WebsocketListener serves JSON clients. Outbound frames are the broadcast
// envelopes published for the connection.
type WebsocketListener struct {
	port    uint16
	path    string
	origins []string
	gw      Gateway
	sub     messaging.Subscriber
	newID   func() string

	wg      sync.WaitGroup
	connCtx context.Context
}

type WebsocketListenerOpt func(*WebsocketListener)

func WithPath(path string) WebsocketListenerOpt {
	return func(l *WebsocketListener) {
		l.path = path
	}
}

// WithOriginPatterns allows cross origin clients matching the given host patterns.
func WithOriginPatterns(patterns ...string) WebsocketListenerOpt {
	return func(l *WebsocketListener) {
		l.origins = patterns
	}
}

func NewWebsocketListener(port uint16, gw Gateway, sub messaging.Subscriber, opts ...WebsocketListenerOpt) *WebsocketListener {
	l := &WebsocketListener{
		port:    port,
		path:    defaultWebsocketPath,
		gw:      gw,
		sub:     sub,
		newID:   uuid.NewString,
		connCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	l.connCtx = connCtx

	mux := http.NewServeMux()
	mux.Handle(l.path, l)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", l.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			// Hijacked websocket connections are not tracked by Shutdown.
			cancelConns()
			_ = srv.Shutdown(shutdownCtx)
			l.wg.Wait()
		case <-done:
			cancelConns()
		}
	}()

	slog.InfoContext(ctx, "listening for websocket", "port", l.port, "path", l.path)

	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
	}
	return nil
}

func (l *WebsocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: l.origins,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "accepting websocket", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()

	l.wg.Add(1)
	defer l.wg.Done()

	s := &wsSession{
		connID: l.newID(),
		gw:     l.gw,
		write: func(ctx context.Context, data []byte) error {
			return conn.Write(ctx, websocket.MessageText, data)
		},
	}

	ctx, cancel := context.WithCancel(l.connCtx)
	defer cancel()

	unsub, err := l.sub.Subscribe(messaging.Subject(s.connID), func(data []byte) {
		if err := s.write(ctx, data); err != nil {
			slog.DebugContext(ctx, "writing websocket frame", "connection", s.connID, "error", err)
			cancel()
		}
	})
	if err != nil {
		slog.ErrorContext(ctx, "subscribing connection", "connection", s.connID, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "subscription failed")
		return
	}
	defer unsub()
	defer disconnect(l.gw, s.connID)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				slog.DebugContext(ctx, "reading websocket", "connection", s.connID, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			s.rejectMalformed(ctx, "binary frames are not supported")
			continue
		}
		s.handle(ctx, data)
	}
}

// wsSession dispatches one websocket client's frames to the gateway.
type wsSession struct {
	connID string
	gw     Gateway
	write  func(ctx context.Context, data []byte) error
}

func (s *wsSession) handle(ctx context.Context, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.rejectMalformed(ctx, "message is not valid JSON")
		return
	}

	var err error
	switch msg.Type {
	case msgAuth:
		_, err = s.gw.Authenticate(ctx, s.connID, msg.Token)
		if err != nil {
			s.reply(ctx, gateway.ActionRejectedPayload{Error: gateway.CodeUnauthenticated, Reason: "invalid session token"})
			return
		}
	case msgQueue:
		err = s.gw.Enqueue(ctx, s.connID)
	case msgAction:
		if msg.Action == nil || msg.BattleID == "" {
			s.rejectMalformed(ctx, "action requires battleId and action")
			return
		}
		err = s.gw.SubmitAction(ctx, s.connID, msg.BattleID, *msg.Action)
	case msgRejoin:
		if msg.BattleID == "" {
			s.rejectMalformed(ctx, "rejoin requires battleId")
			return
		}
		err = s.gw.Rejoin(ctx, s.connID, msg.BattleID)
	default:
		s.rejectMalformed(ctx, fmt.Sprintf("unknown message type %q", msg.Type))
		return
	}

	if err != nil {
		slog.DebugContext(ctx, "websocket message failed", "connection", s.connID, "type", msg.Type, "error", err)
	}
}

func (s *wsSession) rejectMalformed(ctx context.Context, reason string) {
	s.reply(ctx, gateway.ActionRejectedPayload{Error: gateway.CodeValidation, Reason: reason})
}

func (s *wsSession) reply(ctx context.Context, p gateway.ActionRejectedPayload) {
	data, err := messaging.Encode(messaging.EventActionRejected, p)
	if err != nil {
		slog.ErrorContext(ctx, "encoding rejection", "error", err)
		return
	}
	if err := s.write(ctx, data); err != nil {
		slog.DebugContext(ctx, "writing websocket frame", "connection", s.connID, "error", err)
	}
}
