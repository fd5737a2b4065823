package loop

import (
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/physics"
)

// PlayerAbove returns the id of the higher of the two players, or 0 when
// player 2 is inactive or both share a row.
func (w *World) PlayerAbove() int {
	if !w.Player2Active {
		return 0
	}
	r1, r2 := topRow(w.Players[0]), topRow(w.Players[1])
	switch {
	case r1 < r2:
		return 1
	case r2 < r1:
		return 2
	default:
		return 0
	}
}

// checkPlayerDistance pulls a player that fell too far behind up to the
// other player's row, at the cost of a life.
func (w *World) checkPlayerDistance() {
	if !w.Player2Active {
		return
	}
	p1, p2 := w.Players[0], w.Players[1]
	if !p1.Alive() || !p2.Alive() {
		return
	}
	upper, lower := p1, p2
	if topRow(p2) < topRow(p1) {
		upper, lower = p2, p1
	}
	if topRow(lower)-topRow(upper) <= config.PlayerRowGap {
		return
	}
	if lower.Invulnerable {
		return
	}
	lower.LoseLife()
	lower.MakeInvulnerable()
	lower.PlaceAt(lower.X, float64(topRow(upper)*config.CellSize))
	w.emit(Event{Kind: EventLifeLost, Player: lower.ID})
}

func topRow(p *object.Player) int {
	return physics.CellOf(p.Y, config.CellSize)
}
