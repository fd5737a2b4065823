// Package network owns the client side of the socket to the host: an
// explicit connection state machine, a single writer goroutine for
// upstream commands and a blocking receive loop for snapshots.
package network

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/tomz197/platformer/internal/protocol"
)

// State is the connection lifecycle: Connecting → Connected → Disconnected.
// Disconnected is terminal; there is no reconnection.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives fully decoded snapshots from the receive loop.
type Handler interface {
	HandleFrame(f protocol.Frame)
	HandleMessage(m protocol.Message)
}

// outboundBuffer is how many commands may queue before Send drops.
const outboundBuffer = 64

// Conn is one connection to the host.
type Conn struct {
	conn   net.Conn
	wire   Wire
	logger *log.Logger

	state     atomic.Int32
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// OnStateChange, if set before use, observes every transition.
	OnStateChange func(State)
}

// Dial connects to addr. A failure is returned to the caller, which is
// expected to treat it as fatal.
func Dial(ctx context.Context, addr string, wire Wire, logger *log.Logger) (*Conn, error) {
	c := newConn(wire, logger)
	c.logger.Info("connecting", "addr", addr, "wire", wire)
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.setState(StateDisconnected)
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.attach(nc)
	return c, nil
}

// New wraps an established connection and starts its writer.
func New(nc net.Conn, wire Wire, logger *log.Logger) *Conn {
	c := newConn(wire, logger)
	c.attach(nc)
	return c
}

func newConn(wire Wire, logger *log.Logger) *Conn {
	if logger == nil {
		logger = log.Default()
	}
	return &Conn{
		wire:   wire,
		logger: logger.WithPrefix("conn"),
		out:    make(chan []byte, outboundBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) attach(nc net.Conn) {
	c.conn = nc
	c.setState(StateConnected)
	go c.writeLoop()
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Connected reports whether commands are still delivered.
func (c *Conn) Connected() bool {
	return c.State() == StateConnected
}

// Wire returns the negotiated snapshot encoding.
func (c *Conn) Wire() Wire {
	return c.wire
}

func (c *Conn) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old == s {
		return
	}
	c.logger.Debug("state change", "from", old, "to", s)
	if c.OnStateChange != nil {
		c.OnStateChange(s)
	}
}

// Send queues a command without blocking. Binary frames carry client id 0;
// the host identifies peers by connection. It reports false when the
// connection is gone or the queue is full.
func (c *Conn) Send(cmd protocol.Command) bool {
	if !c.Connected() {
		return false
	}
	select {
	case c.out <- EncodeCommand(c.wire, 0, cmd):
		return true
	default:
		c.logger.Debug("outbound queue full, dropping", "cmd", cmd.String())
		return false
	}
}

// writeLoop is the only writer on the socket, so frames never interleave.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.out:
			if _, err := c.conn.Write(b); err != nil {
				c.fail(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

// Run reads snapshots until the connection fails or ctx is cancelled. It
// returns nil on cancellation and the read error otherwise; either way the
// connection ends Disconnected.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	var err error
	if c.wire == WireBinary {
		err = c.readFrames(h)
	} else {
		err = c.readMessages(h)
	}
	if ctx.Err() != nil {
		return nil
	}
	c.fail(err)
	return err
}

func (c *Conn) readFrames(h Handler) error {
	r := bufio.NewReader(c.conn)
	for {
		f, err := protocol.ReadFrame(r)
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		h.HandleFrame(f)
	}
}

func (c *Conn) readMessages(h Handler) error {
	sc := bufio.NewScanner(c.conn)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		m, err := protocol.Unmarshal(sc.Bytes())
		if err != nil {
			c.logger.Debug("dropping message", "err", err)
			continue
		}
		h.HandleMessage(m)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read message: %w", err)
	}
	return fmt.Errorf("read message: %w", errEOF)
}

var errEOF = errors.New("connection closed by host")

// fail moves to Disconnected after an I/O error.
func (c *Conn) fail(err error) {
	if c.State() == StateDisconnected {
		return
	}
	c.logger.Warn("connection lost", "err", err)
	c.Close()
}

// Close ends the connection. Further Sends are no-ops.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(StateDisconnected)
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
