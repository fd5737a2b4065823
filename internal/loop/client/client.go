// Package client mirrors the host's game: it simulates both local players,
// reconciles enemies, fruits and tiles from host snapshots, and sends
// command tokens upstream.
package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/platformer/internal/draw"
	"github.com/tomz197/platformer/internal/input"
	"github.com/tomz197/platformer/internal/loop"
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/network"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/spectator"
	"github.com/tomz197/platformer/internal/world"
)

// Uplink is the command channel to the host.
type Uplink interface {
	Send(cmd protocol.Command) bool
	Connected() bool
	Wire() network.Wire
}

// Client runs the local simulation for one session.
type Client struct {
	mu          sync.Mutex
	state       *ClientState
	up          Uplink
	hub         *spectator.Hub
	logger      *log.Logger
	writer      io.Writer
	chunkWriter *draw.ChunkWriter
	now         func() time.Time
}

// Compile-time check that Client can receive host snapshots.
var _ network.Handler = (*Client)(nil)

// ClientOptions configures the client.
type ClientOptions struct {
	Map    world.Matrix
	Seed   int64
	Uplink Uplink         // Nil plays offline
	Hub    *spectator.Hub // Nil creates a private hub
	Out    io.Writer      // Nil disables drawing
	Logger *log.Logger
}

// NewClient creates a client. Regenerating tiles wait for host
// confirmation only on a connected JSON link, the one form that carries
// TILE_REGENERATED.
func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	hub := opts.Hub
	if hub == nil {
		hub = spectator.NewHub(config.MaxSpectators, logger)
	}
	c := &Client{
		up:     opts.Uplink,
		hub:    hub,
		logger: logger.WithPrefix("client"),
		writer: opts.Out,
		now:    time.Now,
	}
	w := loop.NewWorld(loop.Options{
		Map:               opts.Map,
		Seed:              opts.Seed,
		AwaitRegenConfirm: c.confirmsRegen(),
	})
	c.state = NewClientState(w, opts.Map)
	if opts.Out != nil {
		c.chunkWriter = draw.NewChunkWriter(opts.Out)
	}
	return c
}

// Hub returns the spectator hub fed by this client.
func (c *Client) Hub() *spectator.Hub {
	return c.hub
}

// View runs fn with exclusive access to the client state.
func (c *Client) View(fn func(s *ClientState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
}

func (c *Client) connected() bool {
	return c.up != nil && c.up.Connected()
}

func (c *Client) confirmsRegen() bool {
	return c.connected() && c.up.Wire() == network.WireJSON
}

func (c *Client) send(cmd protocol.Command) {
	if c.connected() {
		c.up.Send(cmd)
	}
}

// Run drives the tick loop until ctx is cancelled or the player quits.
func (c *Client) Run(ctx context.Context, stream *input.Stream) error {
	if c.writer != nil {
		draw.HideCursor(c.writer)
		defer draw.ShowCursor(c.writer)
		draw.ClearScreen(c.writer)
	}
	defer c.hub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frameStart := c.now()
		var in input.Input
		if stream != nil {
			in = input.ReadInput(stream)
		}
		if !c.Tick(frameStart, in) {
			return nil
		}
		if in.Restart && stream != nil {
			stream.Reset()
		}
		if err := c.render(frameStart); err != nil {
			return err
		}

		if elapsed := time.Since(frameStart); elapsed < config.TickTime {
			time.Sleep(config.TickTime - elapsed)
		}
	}
}

// Tick applies one tick of input and advances the world. It reports false
// once the player asked to quit.
func (c *Client) Tick(now time.Time, in input.Input) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if in.Quit {
		s.Running = false
		return false
	}

	if s.World.Regen.AwaitsConfirm() && !c.confirmsRegen() {
		c.logger.Debug("link lost, regenerating tiles locally")
		s.World.Regen.SetAwaitConfirm(false)
	}
	if in.Restart {
		c.restart()
	}
	if in.ActivatePlayer2 {
		c.activatePlayer2()
	}
	if in.Spectate {
		c.openSpectator()
	}

	if !s.World.GameOver {
		c.sendIntents(in.Players)
	}
	for _, e := range s.World.Step(now, in.Players) {
		c.handleEvent(e)
	}
	s.ticks++
	c.publish(now)
	return true
}

func (c *Client) render(now time.Time) error {
	if c.chunkWriter == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ticks%config.RenderEvery != 0 {
		return nil
	}
	return c.drawFrame(now)
}

var intentCommands = []struct {
	kind protocol.CommandKind
	held func(object.Intent) bool
}{
	{protocol.CmdLeft, func(i object.Intent) bool { return i.Left }},
	{protocol.CmdRight, func(i object.Intent) bool { return i.Right }},
	{protocol.CmdJump, func(i object.Intent) bool { return i.Jump }},
	{protocol.CmdAttack, func(i object.Intent) bool { return i.Attack }},
}

// sendIntents forwards held movement keys as command tokens.
func (c *Client) sendIntents(intents [config.MaxPlayers]object.Intent) {
	for _, p := range c.state.World.ActivePlayers() {
		intent := intents[p.ID-1]
		for _, ic := range intentCommands {
			if ic.held(intent) {
				c.send(protocol.Command{Kind: ic.kind, Player: p.ID})
			}
		}
	}
}

func (c *Client) restart() {
	s := c.state
	s.World.Restart(s.BaseMap)
	s.HostScore = 0
	s.Notice = ""
	c.send(protocol.Command{Kind: protocol.CmdRestart})
	c.logger.Info("restart")
}

// activatePlayer2 asks the host when it can answer, otherwise activates
// locally.
func (c *Client) activatePlayer2() {
	s := c.state
	if s.World.Player2Active || s.awaitingP2 {
		return
	}
	c.send(protocol.Command{Kind: protocol.CmdActivatePlayer2, Player: 2})
	if c.confirmsRegen() {
		s.awaitingP2 = true
		return
	}
	s.World.ActivatePlayer2()
	c.logger.Info("player 2 joined")
}

func (c *Client) openSpectator() {
	_, err := c.hub.Subscribe(spectator.NewLogSink(c.logger, config.SpectatorLogInterval))
	if errors.Is(err, spectator.ErrSpectatorLimit) {
		c.state.Notice = "Spectator limit reached"
		return
	}
	c.state.Notice = "Spectator opened"
}

func (c *Client) handleEvent(e loop.Event) {
	s := c.state
	switch e.Kind {
	case loop.EventRegenRequested:
		c.send(protocol.Command{Kind: protocol.CmdRegenerateTile, Cell: e.Cell})
	case loop.EventBonusStarted:
		c.send(protocol.Command{Kind: protocol.CmdBonus, Player: e.Player})
		s.Notice = "Bonus phase!"
		c.logger.Info("bonus phase started", "player", e.Player)
	case loop.EventBonusEnded:
		c.send(protocol.Command{Kind: protocol.CmdBonusOff})
		s.Notice = ""
		c.logger.Info("bonus phase ended", "speed", s.World.Enemies.Speed)
	case loop.EventLifeLost:
		c.logger.Debug("life lost", "player", e.Player, "lives", s.World.Player(e.Player).Lives)
	case loop.EventGameOver:
		c.logger.Info("game over", "score", s.World.Score())
	}
}

func (c *Client) publish(now time.Time) {
	if c.hub.Count() == 0 {
		return
	}
	c.hub.Publish(spectator.Snapshot{
		Matrix: c.state.World.Grid.Matrix(),
		Update: *c.state.World.PlayerUpdate(now),
	})
}
