package listener

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/pixil98/go-battle/internal/display"
	"github.com/pixil98/go-battle/internal/gateway"
	"github.com/pixil98/go-battle/internal/messaging"
)

const (
	tokenTries    = 3
	messageBuffer = 64
)

// errSlowConsumer ends a session whose client stopped draining broadcasts.
var errSlowConsumer = errors.New("connection fell too far behind")

// lineSession is one telnet or ssh client speaking the text protocol.
type lineSession struct {
	connID string
	conn   io.ReadWriter
	br     *bufio.Reader
	gw     Gateway
	sub    messaging.Subscriber

	userID   string
	battleID string
}

func newLineSession(connID string, conn io.ReadWriter, gw Gateway, sub messaging.Subscriber) *lineSession {
	return &lineSession{
		connID: connID,
		conn:   conn,
		br:     bufio.NewReader(conn),
		gw:     gw,
		sub:    sub,
	}
}

func (s *lineSession) run(ctx context.Context) error {
	err := s.login(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan []byte, messageBuffer)
	overflow := make(chan struct{})
	var overflowOnce sync.Once
	unsub, err := s.sub.Subscribe(messaging.Subject(s.connID), func(data []byte) {
		select {
		case msgs <- data:
		default:
			overflowOnce.Do(func() {
				slog.Warn("closing slow connection", "connection", s.connID, "buffered", messageBuffer)
				close(overflow)
			})
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing connection: %w", err)
	}
	defer unsub()
	defer disconnect(s.gw, s.connID)

	err = s.writeLine(fmt.Sprintf("Welcome, %s. Type help for a list of commands.", s.userID))
	if err != nil {
		return err
	}

	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		defer close(inputChan)
		for {
			line, err := s.br.ReadString('\n')
			if line != "" {
				select {
				case inputChan <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					inputErrChan <- err
				}
				return
			}
		}
	}()

	err = s.prompt()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-overflow:
			_ = s.writeLine("\nYou have fallen too far behind and are being disconnected.")
			return errSlowConsumer

		case data := <-msgs:
			err = s.writeLine("\n" + s.render(data))
			if err != nil {
				return err
			}
			err = s.prompt()
			if err != nil {
				return err
			}

		case line, ok := <-inputChan:
			if !ok {
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			if line == "" {
				if err := s.prompt(); err != nil {
					return err
				}
				continue
			}

			quit, err := s.exec(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return s.writeLine("Goodbye!")
			}

			err = s.prompt()
			if err != nil {
				return err
			}
		}
	}
}

func (s *lineSession) login(ctx context.Context) error {
	_, err := prompt(s.conn, s.br, "Session token: ",
		withMaxTries(tokenTries),
		withValidator(func(token string) (bool, string) {
			userID, err := s.gw.Authenticate(ctx, s.connID, token)
			if err != nil {
				return false, "Invalid token.\n"
			}
			s.userID = userID
			return true, ""
		}),
	)
	if errors.Is(err, errTooManyTries) {
		_ = s.writeLine("Too many attempts.")
	}
	return err
}

// exec runs one command line. It only returns an error when the session
// should end.
func (s *lineSession) exec(ctx context.Context, line string) (bool, error) {
	cmd, err := parseCommand(line)
	if err != nil {
		return false, s.writeLine(err.Error())
	}

	switch cmd.kind {
	case cmdHelp:
		return false, s.writeLine(helpText)
	case cmdQuit:
		return true, nil
	case cmdQueue:
		err = s.gw.Enqueue(ctx, s.connID)
	case cmdRejoin:
		s.battleID = cmd.battleID
		err = s.gw.Rejoin(ctx, s.connID, cmd.battleID)
	case cmdAction:
		if s.battleID == "" {
			s.battleID, err = s.gw.ActiveBattle(ctx, s.connID)
			if err != nil {
				break
			}
		}
		if s.battleID == "" {
			return false, s.writeLine("You are not in a battle. Type queue to find one.")
		}
		err = s.gw.SubmitAction(ctx, s.connID, s.battleID, cmd.action)
	}

	// The gateway has already reported the failure to this connection.
	if err != nil {
		slog.DebugContext(ctx, "command failed", "connection", s.connID, "command", line, "error", err)
	}
	return false, nil
}

// render turns a broadcast envelope into text, tracking the current battle.
func (s *lineSession) render(data []byte) string {
	env, err := messaging.Decode(data)
	if err != nil {
		return "Received an unreadable message."
	}

	switch env.Event {
	case messaging.EventWaiting:
		return "Waiting for an opponent..."
	case messaging.EventMatchFound:
		var p gateway.MatchFoundPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.State == nil {
			return "Match found."
		}
		s.battleID = p.BattleID
		return fmt.Sprintf("Matched against %s!\n\n%s", p.OpponentID, display.RenderView(p.State))
	case messaging.EventTurnUpdate:
		var p gateway.TurnUpdatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.State == nil {
			return "The battle changed."
		}
		s.battleID = p.BattleID
		return display.RenderView(p.State)
	case messaging.EventBattleEnd:
		var p gateway.BattleEndPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.State == nil {
			return "The battle is over."
		}
		s.battleID = ""
		return display.RenderView(p.State) + "\nThe battle is over. Type queue to play again."
	case messaging.EventActionRejected:
		var p gateway.ActionRejectedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return "That did not work."
		}
		return display.Wrap("Rejected: " + p.Reason)
	case messaging.EventOpponentDisconnected:
		return "Your opponent lost their connection. They have a short time to return."
	case messaging.EventOpponentReconnected:
		return "Your opponent is back."
	default:
		return fmt.Sprintf("Unhandled event %s.", env.Event)
	}
}

func (s *lineSession) prompt() error {
	p := "> "
	if s.battleID != "" {
		p = "battle> "
	}
	_, err := io.WriteString(s.conn, p)
	return err
}

func (s *lineSession) writeLine(msg string) error {
	_, err := io.WriteString(s.conn, msg+"\n")
	return err
}
