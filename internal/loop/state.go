// Package loop runs the game simulation: players, enemies, fruits, tile
// regeneration and the bonus phase, advanced one fixed tick at a time.
package loop

import (
	"math/rand"
	"time"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/world"
)

// EventKind identifies something that happened during a tick and needs to
// leave the simulation (a wire message, an upstream command, a log line).
type EventKind int

const (
	EventTileDestroyed EventKind = iota
	EventTileRegenerated
	EventRegenRequested // Tile is due and waits for upstream confirmation
	EventAttack
	EventLifeLost
	EventBonusStarted
	EventBonusEnded
	EventGameOver
)

// Event is emitted by World.Step and the world mutators.
type Event struct {
	Kind   EventKind
	Player int
	Cell   world.Cell
	Tally  object.AttackTally
	Points int
}

// World holds the complete simulation state shared by host and client.
// It is not safe for concurrent use; the owner serializes access.
type World struct {
	Grid          *world.Grid
	Players       [config.MaxPlayers]*object.Player
	Player2Active bool
	Enemies       *object.EnemyPool
	Fruits        *object.FruitPool
	Bonus         BonusController
	Regen         RegenScheduler
	GameOver      bool

	rng    *rand.Rand
	events []Event
}

// Options configures a new World.
type Options struct {
	Map  world.Matrix
	Seed int64
	// AwaitRegenConfirm makes due tiles wait for Regen.Confirm instead of
	// regenerating on their own.
	AwaitRegenConfirm bool
}

// NewWorld creates a world with player 1 spawned and every slot empty.
func NewWorld(opts Options) *World {
	rng := rand.New(rand.NewSource(opts.Seed))
	w := &World{
		Grid:    world.NewGrid(opts.Map),
		Enemies: object.NewEnemyPool(rng),
		Fruits:  object.NewFruitPool(),
		Regen:   newRegenScheduler(opts.AwaitRegenConfirm),
		rng:     rng,
	}
	for i := range w.Players {
		w.Players[i] = object.NewPlayer(i + 1)
	}
	return w
}

// Player returns player id (1 or 2), or nil for an unknown id.
func (w *World) Player(id int) *object.Player {
	if id < 1 || id > len(w.Players) {
		return nil
	}
	return w.Players[id-1]
}

// ActivePlayers returns the players currently in the game.
func (w *World) ActivePlayers() []*object.Player {
	if w.Player2Active {
		return w.Players[:]
	}
	return w.Players[:1]
}

// SpawnEnv returns what entity spawn routines need.
func (w *World) SpawnEnv() object.SpawnEnv {
	return object.SpawnEnv{Players: w.ActivePlayers(), Rand: w.rng}
}

// Rand exposes the world's random source for spawners.
func (w *World) Rand() *rand.Rand {
	return w.rng
}

// ActivatePlayer2 brings the second player into the game. It reports false
// if the player is already active.
func (w *World) ActivatePlayer2() bool {
	if w.Player2Active {
		return false
	}
	w.Player2Active = true
	w.Players[1].Reset()
	return true
}

// BaseGrid returns the normal-play grid, which is the saved one while a
// bonus phase has the bonus map swapped in.
func (w *World) BaseGrid() *world.Grid {
	if saved := w.Bonus.saved; w.Bonus.Active() && saved != nil {
		return saved
	}
	return w.Grid
}

// LoadMatrix applies an incoming normal-play layout. During a bonus phase it
// updates the saved grid so the layout is current when play resumes.
func (w *World) LoadMatrix(m world.Matrix) {
	w.BaseGrid().Load(m)
}

// Restart resets players, pools, grid, bonus state and difficulty.
func (w *World) Restart(m world.Matrix) {
	w.Grid = world.NewGrid(m)
	w.Bonus = BonusController{}
	w.Regen.Reset()
	w.Enemies.Clear()
	w.Enemies.Speed = 1
	w.Fruits.Clear()
	w.GameOver = false
	for _, p := range w.Players {
		p.Reset()
	}
}

func (w *World) emit(e Event) {
	w.events = append(w.events, e)
}

// drainEvents returns the events collected since the last call.
func (w *World) drainEvents() []Event {
	if len(w.events) == 0 {
		return nil
	}
	out := w.events
	w.events = nil
	return out
}

// Now is a seam for tests that need a fixed clock.
var Now = time.Now
