package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pixil98/go-battle/internal/battle"
)

type call struct {
	method   string
	connID   string
	battleID string
	action   battle.Action
}

type fakeGateway struct {
	mu       sync.Mutex
	calls    []call
	token    string
	activeID string
	err      error
}

func (g *fakeGateway) record(c call) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c)
}

func (g *fakeGateway) Authenticate(_ context.Context, connID, token string) (string, error) {
	g.record(call{method: "authenticate", connID: connID})
	if token != g.token {
		return "", errors.New("bad token")
	}
	return "alice", nil
}

func (g *fakeGateway) Enqueue(_ context.Context, connID string) error {
	g.record(call{method: "enqueue", connID: connID})
	return g.err
}

func (g *fakeGateway) SubmitAction(_ context.Context, connID, battleID string, a battle.Action) error {
	g.record(call{method: "submit", connID: connID, battleID: battleID, action: a})
	return g.err
}

func (g *fakeGateway) Rejoin(_ context.Context, connID, battleID string) error {
	g.record(call{method: "rejoin", connID: connID, battleID: battleID})
	return g.err
}

func (g *fakeGateway) ActiveBattle(_ context.Context, connID string) (string, error) {
	g.record(call{method: "active", connID: connID})
	return g.activeID, nil
}

func (g *fakeGateway) Disconnect(_ context.Context, connID string) error {
	g.record(call{method: "disconnect", connID: connID})
	return nil
}

func (g *fakeGateway) methods() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	for i, c := range g.calls {
		out[i] = c.method
	}
	return out
}

func (g *fakeGateway) find(method string) (call, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.calls {
		if c.method == method {
			return c, true
		}
	}
	return call{}, false
}

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]func([]byte)
	unsubbed []string
	err      error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]func([]byte){}}
}

func (s *fakeSubscriber) Subscribe(subject string, handler func([]byte)) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[subject] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, subject)
		s.unsubbed = append(s.unsubbed, subject)
	}, nil
}

func (s *fakeSubscriber) deliver(subject string, data []byte) error {
	s.mu.Lock()
	h, ok := s.handlers[subject]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no subscriber for %s", subject)
	}
	h(data)
	return nil
}

// scriptConn feeds fixed input and records everything written.
type scriptConn struct {
	io.Reader
	mu  sync.Mutex
	out strings.Builder
}

func newScriptConn(lines ...string) *scriptConn {
	return &scriptConn{Reader: strings.NewReader(strings.Join(lines, "\n") + "\n")}
}

func (c *scriptConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *scriptConn) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

// gatedConn reads from a pipe and can hold every write until released.
type gatedConn struct {
	*io.PipeReader
	mu   sync.Mutex
	out  strings.Builder
	gate chan struct{}
}

func newGatedConn() (*gatedConn, *io.PipeWriter) {
	r, w := io.Pipe()
	return &gatedConn{PipeReader: r}, w
}

func (c *gatedConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *gatedConn) hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = make(chan struct{})
}

func (c *gatedConn) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.gate)
	c.gate = nil
}

func (c *gatedConn) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}
