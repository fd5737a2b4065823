package client

import (
	"fmt"
	"time"

	"github.com/tomz197/platformer/internal/draw"
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/network"
)

// drawFrame draws the board, the status line and the notice line. It runs
// under c.mu.
func (c *Client) drawFrame(now time.Time) error {
	s := c.state
	if s.World.GameOver != s.prevOver {
		c.chunkWriter.WriteString("\033[H\033[2J")
		s.prevOver = s.World.GameOver
	}

	u := s.World.PlayerUpdate(now)
	s.board.DrawMatrix(s.World.Grid.Matrix())
	s.board.DrawUpdate(u)
	s.board.Render(c.chunkWriter, c.statusLine(draw.Status(u)))
	c.chunkWriter.WriteAt(1, config.GridRows+2, c.noticeLine())
	return c.chunkWriter.Flush()
}

func (c *Client) statusLine(base string) string {
	link := "offline"
	if c.up != nil {
		link = network.StateDisconnected.String()
		if c.up.Connected() {
			link = fmt.Sprintf("%s/%s", network.StateConnected, c.up.Wire())
		}
	}
	line := fmt.Sprintf("%s  [%s]", base, link)
	if c.state.HostScore > 0 {
		line += fmt.Sprintf("  host %d", c.state.HostScore)
	}
	return line
}

func (c *Client) noticeLine() string {
	if c.state.World.GameOver {
		return "GAME OVER - press R to restart, Q to quit"
	}
	return c.state.Notice
}
