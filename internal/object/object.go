// Package object holds the moving entities of the game: players, enemies
// and fruits, plus the fixed-size slot pools the enemies and fruits live in.
package object

import (
	"math/rand"

	"github.com/tomz197/platformer/internal/physics"
	"github.com/tomz197/platformer/internal/world"
)

// Intent is one player's control input for a tick.
type Intent struct {
	Left   bool
	Right  bool
	Jump   bool
	Attack bool
}

// Collider reports whether a box touches any active hazard.
type Collider interface {
	CheckPlayerCollision(r physics.Rect) bool
}

// UpdateContext provides all the information an entity needs during update.
// The grid is passed explicitly; entities never reach for shared state.
type UpdateContext struct {
	Grid    *world.Grid
	Intent  Intent
	Enemies Collider
}

// Outcome reports what happened to a player during one update so the
// owner of the world can resolve effects that span several entities.
type Outcome struct {
	Attacked         bool    // Attack started this tick
	AttackX, AttackY float64 // Player center when the attack started
	Hit              bool    // Touched an enemy and lost a life
	Fell             bool    // Fell out of the map
	TouchedBonus     bool
	BonusCell        world.Cell
}

// SpawnEnv carries what spawn routines need to place a (re)spawned entity.
type SpawnEnv struct {
	Players []*Player
	Rand    *rand.Rand
}

func randSign(r *rand.Rand) float64 {
	if r != nil && r.Intn(2) == 0 {
		return -1
	}
	return 1
}
