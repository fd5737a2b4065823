// Package server is the reference host: it owns the authoritative world,
// accepts up to two player connections and broadcasts a snapshot every tick.
package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tomz197/platformer/internal/loop"
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/network"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/spectator"
	"github.com/tomz197/platformer/internal/world"
)

// ErrServerFull is returned when every player seat is taken.
var ErrServerFull = errors.New("server: all player seats taken")

// GameServer is the interface connections use to talk to the host.
type GameServer interface {
	RegisterClient(remote string) (*ClientHandle, error)
	UnregisterClient(clientID string)
	SendCommand(clientID string, cmd protocol.Command)
	GetSnapshot() *Snapshot
}

// Server owns the world and serializes every change through its tick loop.
type Server struct {
	world   *loop.World
	layout  world.Matrix
	wire    network.Wire
	spawner Spawner
	hub     *spectator.Hub
	logger  *log.Logger

	snapshot     atomic.Pointer[Snapshot]
	clients      map[string]*ClientHandle
	cmdCh        chan ClientCommand
	registerCh   chan *ClientHandle
	unregisterCh chan string
	mu           sync.RWMutex

	ticks   uint64
	intents [config.MaxPlayers]object.Intent
}

// Compile-time check that Server implements GameServer.
var _ GameServer = (*Server)(nil)

// ClientCommand is a command from a specific client.
type ClientCommand struct {
	ClientID string
	Cmd      protocol.Command
}

// Options configures a Server.
type Options struct {
	Map    world.Matrix
	Seed   int64
	Wire   network.Wire
	Hub    *spectator.Hub // Optional
	Logger *log.Logger
}

// NewServer creates a host around a fresh world.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		world:        loop.NewWorld(loop.Options{Map: opts.Map, Seed: opts.Seed}),
		layout:       opts.Map,
		wire:         opts.Wire,
		hub:          opts.Hub,
		logger:       logger.WithPrefix("host"),
		clients:      make(map[string]*ClientHandle),
		cmdCh:        make(chan ClientCommand, 256),
		registerCh:   make(chan *ClientHandle, 16),
		unregisterCh: make(chan string, 16),
	}
	s.snapshot.Store(&Snapshot{Matrix: opts.Map, Update: s.world.PlayerUpdate(time.Now())})
	return s
}

// Run starts the tick loop. Blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frameStart := time.Now()
		s.step(frameStart)

		elapsed := time.Since(frameStart)
		if elapsed < config.TickTime {
			time.Sleep(config.TickTime - elapsed)
		}
	}
}

// step runs one host tick.
func (s *Server) step(now time.Time) {
	s.processRegistrations()
	s.collectCommands(now)
	s.updateWorld(now)
	s.broadcastSnapshot(now)
}

// Shutdown tells every client the session is over and waits for them to
// disconnect, up to timeout. The caller cancels the Run context afterwards.
func (s *Server) Shutdown(timeout time.Duration) {
	bye := s.encode(&protocol.GameOver{Message: "server shutting down"})
	s.mu.RLock()
	for _, h := range s.clients {
		if bye != nil {
			h.send(bye)
		}
		h.Close()
	}
	s.mu.RUnlock()

	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			s.mu.RLock()
			remaining := len(s.clients)
			s.mu.RUnlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// RegisterClient reserves a player seat for a new connection.
func (s *Server) RegisterClient(remote string) (*ClientHandle, error) {
	s.mu.Lock()
	if len(s.clients) >= config.MaxPlayers {
		s.mu.Unlock()
		return nil, ErrServerFull
	}
	h := newClientHandle(uuid.NewString(), remote)
	s.clients[h.ID] = h
	s.mu.Unlock()

	s.registerCh <- h
	return h, nil
}

// UnregisterClient releases a client's seat.
func (s *Server) UnregisterClient(clientID string) {
	s.unregisterCh <- clientID
}

// SendCommand queues a command for the next tick. Commands are dropped
// when the queue is full.
func (s *Server) SendCommand(clientID string, cmd protocol.Command) {
	select {
	case s.cmdCh <- ClientCommand{ClientID: clientID, Cmd: cmd}:
	default:
	}
}

// GetSnapshot returns the latest published snapshot.
func (s *Server) GetSnapshot() *Snapshot {
	return s.snapshot.Load()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// processRegistrations greets new clients and forgets departed ones.
func (s *Server) processRegistrations() {
	for {
		select {
		case h := <-s.registerCh:
			s.logger.Info("client joined", "id", h.ID, "remote", h.Remote)
			s.sendTo(h, protocol.NewMapMessage(s.world.BaseGrid().Matrix()))
		case id := <-s.unregisterCh:
			s.mu.Lock()
			if h, ok := s.clients[id]; ok {
				h.Close()
				delete(s.clients, id)
				s.logger.Info("client left", "id", id)
			}
			s.mu.Unlock()
		default:
			return
		}
	}
}

// collectCommands applies every queued command. Movement tokens become this
// tick's intents; the rest act on the world directly.
func (s *Server) collectCommands(now time.Time) {
	s.intents = [config.MaxPlayers]object.Intent{}
	for {
		select {
		case cc := <-s.cmdCh:
			s.apply(cc, now)
		default:
			return
		}
	}
}

func (s *Server) apply(cc ClientCommand, now time.Time) {
	cmd := cc.Cmd
	w := s.world
	switch cmd.Kind {
	case protocol.CmdLeft, protocol.CmdRight, protocol.CmdJump, protocol.CmdAttack:
		if cmd.Player < 1 || cmd.Player > config.MaxPlayers {
			return
		}
		in := &s.intents[cmd.Player-1]
		switch cmd.Kind {
		case protocol.CmdLeft:
			in.Left = true
		case protocol.CmdRight:
			in.Right = true
		case protocol.CmdJump:
			in.Jump = true
		case protocol.CmdAttack:
			in.Attack = true
		}

	case protocol.CmdActivatePlayer2:
		reply := &protocol.Player2Activated{Success: w.ActivatePlayer2()}
		if reply.Success {
			s.logger.Info("player 2 joined", "client", cc.ClientID)
		} else {
			reply.Reason = "already active"
		}
		s.reply(cc.ClientID, reply)

	case protocol.CmdSpectator:
		s.logger.Debug("spectator requested", "client", cc.ClientID)

	case protocol.CmdRestart:
		w.Restart(s.layout)
		s.spawner.Reset()
		s.logger.Info("restart", "client", cc.ClientID)
		s.broadcast(protocol.NewMapMessage(s.layout))

	case protocol.CmdRegenerateTile:
		if !world.InBounds(cmd.Cell.Row, cmd.Cell.Col) {
			return
		}
		// A restored tile is broadcast with this tick's events. One that
		// was already whole is confirmed to the requester alone.
		if !w.ConfirmRegen(cmd.Cell) {
			s.reply(cc.ClientID, protocol.NewTileRegenerated(cmd.Cell))
		}

	case protocol.CmdBonus:
		owner := cmd.Player
		if owner == 0 {
			owner = 1
		}
		if w.StartBonus(owner, now) {
			w.Player(owner).AddLife()
			return
		}
		// Already running; tell the requester who owns it.
		s.reply(cc.ClientID, &protocol.BonusPhase{Action: protocol.BonusStart, PlayerID: w.Bonus.Owner()})

	case protocol.CmdBonusOff:
		if !w.EndBonus() {
			s.reply(cc.ClientID, &protocol.BonusPhase{Action: protocol.BonusEnd})
		}
	}
}

// updateWorld advances the simulation and the spawner, then announces
// everything that happened this tick.
func (s *Server) updateWorld(now time.Time) {
	w := s.world
	events := w.Events()
	events = append(events, w.Step(now, s.intents)...)
	if landed := w.Enemies.RemoveLanded(); len(landed) > 0 {
		s.logger.Debug("falling enemies landed", "slots", landed)
	}
	enemy, fruit := s.spawner.Update(w, now)
	if enemy >= 0 || fruit >= 0 {
		s.logger.Debug("spawned", "enemySlot", enemy, "fruitSlot", fruit)
	}
	for _, e := range events {
		s.announce(e)
	}
}

func (s *Server) announce(e loop.Event) {
	switch e.Kind {
	case loop.EventTileDestroyed:
		s.broadcast(protocol.NewTileDestroyed(e.Cell))
	case loop.EventTileRegenerated:
		s.broadcast(protocol.NewTileRegenerated(e.Cell))
	case loop.EventAttack:
		s.broadcast(&protocol.AttackResult{
			Hit:      e.Tally.Total() > 0,
			PlayerID: e.Player,
			Defeated: e.Tally.Total(),
			Points:   e.Points,
		})
	case loop.EventLifeLost:
		s.logger.Debug("life lost", "player", e.Player)
	case loop.EventBonusStarted:
		s.logger.Info("bonus phase", "player", e.Player)
		s.broadcast(&protocol.BonusPhase{Action: protocol.BonusStart, PlayerID: e.Player})
	case loop.EventBonusEnded:
		s.broadcast(&protocol.BonusPhase{Action: protocol.BonusEnd})
	case loop.EventGameOver:
		s.logger.Info("game over", "score", s.world.Score())
		s.broadcast(&protocol.GameOver{Message: "All players are out of lives"})
	}
}

// broadcastSnapshot sends this tick's state to every client and spectator
// and publishes the atomic snapshot.
func (s *Server) broadcastSnapshot(now time.Time) {
	w := s.world
	u := w.PlayerUpdate(now)

	var payload []byte
	if s.wire == network.WireBinary {
		payload = protocol.EncodeFrame(w.Frame())
	} else {
		payload = s.encode(u)
	}

	s.mu.RLock()
	for _, h := range s.clients {
		if payload != nil {
			h.send(payload)
		}
	}
	clients := len(s.clients)
	s.mu.RUnlock()

	m := w.Grid.Matrix()
	if s.hub != nil && s.hub.Count() > 0 {
		s.hub.Publish(spectator.Snapshot{Matrix: m, Update: *u})
	}

	s.ticks++
	s.snapshot.Store(&Snapshot{
		Tick:     s.ticks,
		Matrix:   m,
		Update:   u,
		Clients:  clients,
		GameOver: w.GameOver,
	})
}

// broadcast sends a structured message to every client. Binary links only
// carry frames, so messages are skipped there.
func (s *Server) broadcast(m protocol.Message) {
	b := s.encode(m)
	if b == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.clients {
		h.send(b)
	}
}

func (s *Server) reply(clientID string, m protocol.Message) {
	s.mu.RLock()
	h, ok := s.clients[clientID]
	s.mu.RUnlock()
	if ok {
		s.sendTo(h, m)
	}
}

func (s *Server) sendTo(h *ClientHandle, m protocol.Message) {
	if b := s.encode(m); b != nil {
		h.send(b)
	}
}

// encode returns m as a JSON line, or nil on a binary link.
func (s *Server) encode(m protocol.Message) []byte {
	if s.wire == network.WireBinary {
		return nil
	}
	b, err := protocol.Marshal(m)
	if err != nil {
		s.logger.Error("encode", "type", m.MessageType(), "err", err)
		return nil
	}
	return b
}
