package loop

import (
	"time"

	"github.com/tomz197/platformer/internal/protocol"
)

// Score returns the combined score of the active players.
func (w *World) Score() int {
	sum := 0
	for _, p := range w.ActivePlayers() {
		sum += p.Score
	}
	return sum
}

// PlayerUpdate captures the world as a PLAYER_UPDATE message.
func (w *World) PlayerUpdate(now time.Time) *protocol.PlayerUpdate {
	u := &protocol.PlayerUpdate{
		Player1:         protocol.NewPlayerState(w.Players[0]),
		IsPlayer2Active: w.Player2Active,
		IsBonusPhase:    w.Bonus.Active(),
	}
	if w.Player2Active {
		u.Player2 = protocol.NewPlayerState(w.Players[1])
	}
	if above := w.PlayerAbove(); above != 0 {
		u.PlayerAbove = &above
	}
	if owner := w.Bonus.Owner(); owner != 0 {
		u.BonusPlayerID = &owner
		u.BonusTimeRemaining = int(w.Bonus.Remaining(now).Milliseconds())
	}
	u.SetEnemies(w.Enemies.States())
	u.SetFruits(w.Fruits.States())
	return u
}

// Frame captures the world in the binary wire form. The frame always
// carries the normal-play layout, also during a bonus phase.
func (w *World) Frame() *protocol.Frame {
	return protocol.NewFrame(w.BaseGrid().Matrix(), w.Enemies.States(), w.Fruits.States(), w.Score())
}
