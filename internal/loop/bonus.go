package loop

import (
	"math"
	"time"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/world"
)

// BonusController tracks the bonus phase: INACTIVE → ACTIVE → INACTIVE.
type BonusController struct {
	active    bool
	owner     int
	deadline  time.Time
	saved     *world.Grid
	completed int
}

// Active reports whether a bonus phase is running.
func (b *BonusController) Active() bool {
	return b.active
}

// Owner returns the player allowed to act during the phase, or 0.
func (b *BonusController) Owner() int {
	if !b.active {
		return 0
	}
	return b.owner
}

// Remaining returns the time left in the phase.
func (b *BonusController) Remaining(now time.Time) time.Duration {
	if !b.active {
		return 0
	}
	if d := b.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Completed returns how many bonus phases have finished.
func (b *BonusController) Completed() int {
	return b.completed
}

// SpeedMultiplier returns the enemy speed ratchet after completed phases.
func (b *BonusController) SpeedMultiplier() float64 {
	return math.Pow(config.SpeedFactor, float64(b.completed))
}

// StartBonus enters the bonus phase for owner and lifts both players above
// the bonus map's floor. A second start while active, or an owner that is
// not a player, is a no-op and reports false.
func (w *World) StartBonus(owner int, now time.Time) bool {
	b := &w.Bonus
	if b.active || w.Player(owner) == nil {
		return false
	}
	b.active = true
	b.owner = owner
	b.deadline = now.Add(config.BonusDuration)
	b.saved = w.Grid
	w.Grid = world.NewGrid(world.BonusMap())
	w.Regen.Reset()
	w.Enemies.Clear()
	w.Fruits.Clear()
	for _, p := range w.Players {
		p.PlaceAt(p.SpawnX, float64(config.BonusSpawnRow*config.CellSize))
	}
	w.emit(Event{Kind: EventBonusStarted, Player: owner})
	return true
}

// EndBonus leaves the bonus phase, restoring the saved grid, moving both
// players to their safe spawns and ratcheting enemy speed. It reports false
// if no phase was active.
func (w *World) EndBonus() bool {
	b := &w.Bonus
	if !b.active {
		return false
	}
	owner := b.owner
	if b.saved != nil {
		w.Grid = b.saved
	}
	b.active = false
	b.owner = 0
	b.saved = nil
	b.completed++
	w.Enemies.Speed = b.SpeedMultiplier()
	w.Regen.Reset()
	for _, p := range w.Players {
		p.Respawn()
	}
	w.emit(Event{Kind: EventBonusEnded, Player: owner})
	return true
}

// tickBonus ends the phase once its countdown expires.
func (w *World) tickBonus(now time.Time) {
	if w.Bonus.active && !now.Before(w.Bonus.deadline) {
		w.EndBonus()
	}
}
