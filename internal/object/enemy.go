package object

import (
	"math/rand"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/physics"
	"github.com/tomz197/platformer/internal/world"
)

// EnemyKind identifies an enemy variant. Values match the wire encoding.
type EnemyKind int32

const (
	EnemyNone EnemyKind = iota
	EnemyGround
	EnemyFlying
	EnemyFalling
)

// EnemyKindFromWire clamps an encoded kind, mapping unknown values to None.
func EnemyKindFromWire(v int32) EnemyKind {
	k := EnemyKind(v)
	if _, ok := behaviors[k]; !ok {
		return EnemyNone
	}
	return k
}

func (k EnemyKind) String() string {
	switch k {
	case EnemyGround:
		return "ground"
	case EnemyFlying:
		return "flying"
	case EnemyFalling:
		return "falling"
	default:
		return "none"
	}
}

// Points returns the score awarded for defeating an enemy of this kind.
func (k EnemyKind) Points() int {
	return behaviors[k].points
}

// Enemy is one slot of the enemy pool.
type Enemy struct {
	Slot         int
	Kind         EnemyKind
	X, Y         float64 // Top-left corner in pixels
	GridX, GridY int     // Last reported cell
	Dir          float64 // Horizontal direction, ±1
	DirY         float64 // Vertical direction, ±1 (flying only)
	Active       bool
	Initialized  bool

	BehaviorTimer int
	TurnAfter     int
	FallSpeed     float64
	HasLanded     bool // Falling enemy has left the bottom of the map
}

// Rect returns the enemy's bounding box.
func (e *Enemy) Rect() physics.Rect {
	return physics.Square(e.X, e.Y, config.EnemySize)
}

// Center returns the center of the bounding box.
func (e *Enemy) Center() (float64, float64) {
	return e.Rect().Center()
}

// stepEnv is what an enemy update sees of the world.
type stepEnv struct {
	grid  *world.Grid
	speed float64 // Base speed with the difficulty multiplier applied
	rand  *rand.Rand
}

// behavior is the per-kind table entry used for spawn, update and scoring.
type behavior struct {
	spawn  func(e *Enemy, env SpawnEnv)
	update func(e *Enemy, env stepEnv)
	points int
}

var behaviors = map[EnemyKind]behavior{
	EnemyGround: {
		spawn:  spawnGround,
		update: updateGround,
		points: config.ScoreGroundEnemy,
	},
	EnemyFlying: {
		spawn:  spawnFlying,
		update: updateFlying,
		points: config.ScoreFlyingEnemy,
	},
	EnemyFalling: {
		spawn:  spawnFalling,
		update: updateFalling,
		points: config.ScoreFallingEnemy,
	},
}

// Spawn places a freshly activated enemy using its kind's spawn routine.
// The grid coordinates must already be set.
func (e *Enemy) Spawn(env SpawnEnv) {
	b, ok := behaviors[e.Kind]
	if !ok {
		e.Active = false
		return
	}
	e.X = float64(e.GridX * config.CellSize)
	e.Y = float64(e.GridY * config.CellSize)
	e.Dir = 1
	if e.X >= config.WorldWidth/2 {
		e.Dir = -1
	}
	e.DirY = 1
	e.BehaviorTimer = 0
	e.TurnAfter = 0
	e.FallSpeed = 0
	e.HasLanded = false
	b.spawn(e, env)
	e.Active = true
	e.Initialized = true
}

// update advances an active enemy one tick.
func (e *Enemy) update(env stepEnv) {
	if !e.Active {
		return
	}
	if b, ok := behaviors[e.Kind]; ok {
		b.update(e, env)
	}
}

// spawnGround aligns the enemy with the row of the nearest living player so
// patrols meet the players instead of an arbitrary server-chosen row.
func spawnGround(e *Enemy, env SpawnEnv) {
	row := e.GridY
	if p := nearestLiving(env.Players, e.X, e.Y); p != nil {
		row = physics.ClampCell(p.Row(), config.GridRows)
	}
	e.Y = float64(row*config.CellSize + config.CellSize - config.EnemySize)
}

func spawnFlying(e *Enemy, env SpawnEnv) {
	e.DirY = randSign(env.Rand)
	e.TurnAfter = nextTurn(env.Rand)
}

func spawnFalling(e *Enemy, _ SpawnEnv) {
	e.Y = 0
	e.FallSpeed = config.FallStartSpeed
}

// updateGround patrols, turning at walls, ledges and the screen edge.
func updateGround(e *Enemy, env stepEnv) {
	newX := e.X + e.Dir*env.speed
	if newX < 0 || newX > config.WorldWidth-config.EnemySize {
		e.Dir = -e.Dir
		return
	}
	if env.grid.CollidesBox(physics.Square(newX, e.Y, config.EnemySize)) {
		e.Dir = -e.Dir
		return
	}
	below := e.Y + config.CellSize
	ahead := physics.Square(newX+e.Dir*config.CellSize, below, config.EnemySize)
	if below < config.WorldHeight && !env.grid.CollidesBox(ahead) {
		e.Dir = -e.Dir
		return
	}
	e.X = newX
}

// updateFlying wanders through walls, occasionally changing course.
func updateFlying(e *Enemy, env stepEnv) {
	e.BehaviorTimer++
	if e.TurnAfter == 0 {
		e.TurnAfter = nextTurn(env.rand)
	}
	if e.BehaviorTimer > e.TurnAfter {
		if chance(env.rand, config.FlyingTurnChance) {
			e.Dir = -e.Dir
		}
		if chance(env.rand, config.FlyingTurnChance) {
			e.DirY = -e.DirY
		}
		e.BehaviorTimer = 0
		e.TurnAfter = nextTurn(env.rand)
	}

	speed := env.speed * config.FlyingSpeedFactor
	newX := e.X + e.Dir*speed
	if newX < 0 || newX > config.WorldWidth-config.EnemySize {
		e.Dir = -e.Dir
	} else {
		e.X = newX
	}
	newY := e.Y + e.DirY*speed*config.FlyingVerticalFactor
	if newY < 0 || newY > config.WorldHeight-config.EnemySize {
		e.DirY = -e.DirY
	} else {
		e.Y = newY
	}
}

// updateFalling drops straight down, ignoring tiles. Leaving the map is
// flagged but the slot stays active until the authority clears it.
func updateFalling(e *Enemy, _ stepEnv) {
	e.FallSpeed += config.FallAccel
	if e.FallSpeed > config.FallMaxSpeed {
		e.FallSpeed = config.FallMaxSpeed
	}
	e.Y += e.FallSpeed
	if e.Y > config.WorldHeight {
		e.HasLanded = true
	}
}

func nextTurn(r *rand.Rand) int {
	if r == nil {
		return config.FlyingTurnBase
	}
	return config.FlyingTurnBase + r.Intn(config.FlyingTurnJitter)
}

func chance(r *rand.Rand, p float64) bool {
	return r != nil && r.Float64() < p
}

func nearestLiving(players []*Player, x, y float64) *Player {
	var best *Player
	bestDist := 0.0
	for _, p := range players {
		if p == nil || !p.Alive() {
			continue
		}
		d := physics.DistanceSquared(p.X, p.Y, x, y)
		if best == nil || d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best
}
