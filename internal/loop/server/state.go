package server

import (
	"io"
	"sync"

	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/world"
)

// Snapshot is an immutable view of one tick for readers outside the loop.
type Snapshot struct {
	Tick     uint64
	Matrix   world.Matrix
	Update   *protocol.PlayerUpdate
	Clients  int
	GameOver bool
}

// outboundBuffer is how many encoded payloads may queue per client before
// new ones are dropped.
const outboundBuffer = 128

// ClientHandle represents a client's connection to the server.
type ClientHandle struct {
	ID     string
	Remote string
	out    chan []byte
	quit   chan struct{}
	once   sync.Once
}

func newClientHandle(id, remote string) *ClientHandle {
	return &ClientHandle{
		ID:     id,
		Remote: remote,
		out:    make(chan []byte, outboundBuffer),
		quit:   make(chan struct{}),
	}
}

// Out exposes the queued payloads, each a whole frame or JSON line.
func (h *ClientHandle) Out() <-chan []byte {
	return h.out
}

// Done is closed once the handle is closed.
func (h *ClientHandle) Done() <-chan struct{} {
	return h.quit
}

// send queues b without blocking and reports whether it was queued.
func (h *ClientHandle) send(b []byte) bool {
	select {
	case <-h.quit:
		return false
	default:
	}
	select {
	case h.out <- b:
		return true
	default:
		return false
	}
}

// Close stops the handle. Payloads already queued are still written by
// Pump.
func (h *ClientHandle) Close() {
	h.once.Do(func() { close(h.quit) })
}

// Pump writes queued payloads to w until the handle is closed, then flushes
// what is left. It is the only writer on the connection.
func (h *ClientHandle) Pump(w io.Writer) error {
	for {
		select {
		case b := <-h.out:
			if _, err := w.Write(b); err != nil {
				return err
			}
		case <-h.quit:
			for {
				select {
				case b := <-h.out:
					if _, err := w.Write(b); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}
