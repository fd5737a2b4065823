package client

import (
	"github.com/tomz197/platformer/internal/draw"
	"github.com/tomz197/platformer/internal/loop"
	"github.com/tomz197/platformer/internal/world"
)

// ClientState is everything the tick loop and the receive loop share. It is
// guarded by Client.mu.
type ClientState struct {
	World     *loop.World
	BaseMap   world.Matrix // Layout a restart returns to
	HostScore int          // Last score reported by a binary frame
	Notice    string       // One-line message shown under the board
	Running   bool

	awaitingP2 bool // Activation sent, waiting for PLAYER2_ACTIVATED
	ticks      int
	board      draw.Board
	prevOver   bool
}

// NewClientState creates a state for a fresh session on m.
func NewClientState(w *loop.World, m world.Matrix) *ClientState {
	return &ClientState{
		World:   w,
		BaseMap: m,
		Running: true,
	}
}
