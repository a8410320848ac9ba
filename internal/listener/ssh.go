package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

const defaultHandshakeTimeout = 10 * time.Second

// SshListener serves the line protocol over ssh sessions. Clients are not
// authenticated at the transport; they present a session token at the prompt.
type SshListener struct {
	port             uint16
	cm               *ConnectionManager
	hostKey          ssh.Signer
	handshakeTimeout time.Duration
}

type SshListenerOpt func(*SshListener)

func WithHandshakeTimeout(d time.Duration) SshListenerOpt {
	return func(l *SshListener) {
		l.handshakeTimeout = d
	}
}

func NewSshListener(port uint16, cm *ConnectionManager, hostKey ssh.Signer, opts ...SshListenerOpt) *SshListener {
	l := &SshListener{
		port:             port,
		cm:               cm,
		hostKey:          hostKey,
		handshakeTimeout: defaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SshListener) Start(ctx context.Context) error {
	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	config.AddHostKey(l.hostKey)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}

	slog.InfoContext(ctx, "listening for ssh", "port", l.port)

	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				cancelConns()
				wg.Wait()
				return nil
			default:
			}
			slog.ErrorContext(ctx, "accepting ssh connection", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handleConnection(connCtx, conn, config)
		}()
	}
}

func (l *SshListener) handleConnection(ctx context.Context, conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(l.handshakeTimeout))
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		slog.WarnContext(ctx, "ssh handshake", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	defer sshConn.Close()
	_ = conn.SetDeadline(time.Time{})

	slog.DebugContext(ctx, "ssh connection established", "remote", conn.RemoteAddr())

	go func() {
		<-ctx.Done()
		_ = sshConn.Close()
	}()

	go ssh.DiscardRequests(reqs)

	// One battle session per connection; later session channels are refused.
	served := false
	for newChan := range chans {
		if newChan.ChannelType() != "session" || served {
			_ = newChan.Reject(ssh.UnknownChannelType, "only one session channel is supported")
			continue
		}

		ch, requests, err := newChan.Accept()
		if err != nil {
			slog.ErrorContext(ctx, "accepting ssh channel", "error", err)
			continue
		}

		shellReady := make(chan struct{})
		var shellOnce sync.Once
		go func(in <-chan *ssh.Request) {
			for req := range in {
				switch req.Type {
				case "shell":
					_ = req.Reply(true, nil)
					shellOnce.Do(func() { close(shellReady) })
				default:
					// Refusing pty-req keeps the client in line mode with local echo.
					_ = req.Reply(false, nil)
				}
			}
		}(requests)

		select {
		case <-shellReady:
		case <-ctx.Done():
			_ = ch.Close()
			return
		}

		served = true
		l.cm.AcceptConnection(ctx, newCRLFReadWriter(ch))
		_ = ch.Close()
	}
}
