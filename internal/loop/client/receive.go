package client

import (
	"github.com/tomz197/platformer/internal/protocol"
)

// HandleFrame applies a binary snapshot. Players stay locally simulated;
// the frame's score is kept for display.
func (c *Client) HandleFrame(f protocol.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	now := c.now()

	s.World.LoadMatrix(f.Matrix)
	s.BaseMap = f.Matrix
	if !s.World.Bonus.Active() {
		s.World.Enemies.Reconcile(f.EnemyStates(), s.World.SpawnEnv(), now)
		s.World.Fruits.Reconcile(f.FruitStates(), now)
	}
	s.HostScore = int(f.Score)
}

// HandleMessage applies one structured message.
func (c *Client) HandleMessage(m protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	w := s.World
	now := c.now()

	switch m := m.(type) {
	case *protocol.MapMessage:
		matrix, err := m.Matrix()
		if err != nil {
			c.logger.Debug("dropping map", "err", err)
			return
		}
		w.LoadMatrix(matrix)
		s.BaseMap = matrix

	case *protocol.PlayerUpdate:
		if m.IsPlayer2Active && !w.Player2Active {
			w.ActivatePlayer2()
			s.awaitingP2 = false
		}
		if w.Bonus.Active() {
			// Entities were cleared for the bonus map; host slots refer
			// to the normal map.
			return
		}
		w.Enemies.Reconcile(m.EnemyStates(), w.SpawnEnv(), now)
		w.Fruits.Reconcile(m.FruitStates(), now)

	case *protocol.TileMessage:
		if m.MessageType() == protocol.TypeTileRegenerated {
			w.ConfirmRegen(m.Cell())
		} else {
			w.BreakTile(m.Cell(), now)
		}

	case *protocol.AttackResult:
		c.logger.Debug("attack result", "hit", m.Hit, "player", m.PlayerID, "points", m.Points)

	case *protocol.GameOver:
		if !w.GameOver {
			w.GameOver = true
			c.logger.Info("game over", "message", m.Message)
		}

	case *protocol.Player2Activated:
		s.awaitingP2 = false
		if !m.Success {
			s.Notice = "Player 2: " + m.Reason
			c.logger.Warn("player 2 activation refused", "reason", m.Reason)
			break
		}
		if w.ActivatePlayer2() {
			c.logger.Info("player 2 joined")
		}

	case *protocol.BonusPhase:
		switch m.Action {
		case protocol.BonusStart:
			owner := m.PlayerID
			if owner == 0 {
				owner = 1
			}
			if w.Player(owner) == nil {
				c.logger.Debug("dropping bonus start", "player", m.PlayerID)
				break
			}
			if w.StartBonus(owner, now) {
				w.Player(owner).AddLife()
			}
		case protocol.BonusEnd:
			w.EndBonus()
		}
	}
	// Host-driven changes are not echoed back upstream.
	w.Events()
}
