package spectator

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"

	"github.com/tomz197/platformer/internal/draw"
)

// NewSSHServer builds an SSH server that streams a text view of the game to
// each session. Sessions need a PTY. An empty hostKeyPath lets wish generate
// a key.
func NewSSHServer(addr, hostKeyPath string, hub *Hub, logger *log.Logger) (*ssh.Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	opts := []ssh.Option{
		wish.WithAddress(addr),
		wish.WithMiddleware(
			sessionMiddleware(hub, logger.WithPrefix("ssh")),
			activeterm.Middleware(),
			logging.Middleware(),
		),
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if hostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(hostKeyPath))
	}
	s, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("ssh spectator server: %w", err)
	}
	return s, nil
}

// sessionMiddleware subscribes each session to the hub until the client
// disconnects or presses q.
func sessionMiddleware(hub *Hub, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			sub, err := hub.Subscribe(newTermSink(sess))
			if err != nil {
				fmt.Fprintln(sess, "Spectator limit reached, try again later.")
				next(sess)
				return
			}
			logger.Info("spectator session", "user", sess.User(), "id", sub.ID)

			quit := make(chan struct{})
			go func() {
				defer close(quit)
				waitForQuit(sess)
			}()

			select {
			case <-sess.Context().Done():
			case <-quit:
			case <-sub.Done():
			}
			hub.Unsubscribe(sub.ID)
			<-sub.Done()

			draw.ShowCursor(sess)
			draw.ClearScreen(sess)
			next(sess)
		}
	}
}

// waitForQuit returns once q is pressed or the input ends.
func waitForQuit(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil || b == 'q' || b == 'Q' || b == 3 {
			return
		}
	}
}

// termSink renders snapshots as a full-screen board.
type termSink struct {
	w       io.Writer
	cw      *draw.ChunkWriter
	board   draw.Board
	started bool
}

func newTermSink(w io.Writer) *termSink {
	return &termSink{w: w, cw: draw.NewChunkWriter(w)}
}

func (s *termSink) Deliver(snap Snapshot) error {
	if !s.started {
		draw.HideCursor(s.cw)
		draw.ClearScreen(s.cw)
		s.started = true
	}
	s.board.DrawMatrix(snap.Matrix)
	s.board.DrawUpdate(&snap.Update)
	s.board.Render(s.cw, draw.Status(&snap.Update))
	return s.cw.Flush()
}
