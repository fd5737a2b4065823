// Package config centralizes all tunable game parameters.
package config

import "time"

// Grid dimensions in cells and pixels.
const (
	GridCols = 26
	GridRows = 24
	CellSize = 30

	WorldWidth  = GridCols * CellSize
	WorldHeight = GridRows * CellSize
)

// Cell codes as they appear in map matrices and on the wire.
const (
	CellEmpty        = 0
	CellPlatform     = 1  // Breakable platform
	CellBonusTrigger = 22 // Starts the bonus phase on contact
)

// Player physics
const (
	Gravity      = 0.5
	JumpStrength = -12.0
	MaxFallSpeed = 15.0
	MoveSpeed    = 3.0
	AirControl   = 0.6 // Horizontal speed multiplier while airborne
	PlayerSize   = CellSize - 4
)

// Player lives
const (
	InitialLives         = 3
	MaxLives             = 10
	InvulnerabilityTicks = 120 // 2 seconds at 60 Hz
)

// Attack
const (
	AttackDuration = 15 // Ticks
	AttackRange    = 40 // Pixels from player center
	TileBreakScore = 10
)

// Enemies
const (
	MaxEnemies = 10
	EnemySize  = CellSize - 8
	EnemySpeed = 1.5

	FlyingSpeedFactor    = 1.5
	FlyingVerticalFactor = 0.7
	FlyingTurnBase       = 60 // Ticks before a flying enemy may turn
	FlyingTurnJitter     = 60
	FlyingTurnChance     = 0.3

	FallStartSpeed = 2.0
	FallAccel      = 0.8
	FallMaxSpeed   = 8.0
)

// Scoring per defeated enemy. Values follow the shipped game, where the
// harmless falling ice is worth the least.
const (
	ScoreGroundEnemy  = 400
	ScoreFlyingEnemy  = 800
	ScoreFallingEnemy = 10
)

// Fruits
const (
	MaxFruits      = 4
	FruitSize      = CellSize - 10
	ScoreOrange    = 100
	ScoreBanana    = 200
	ScoreEggplant  = 300
	ScoreLettuce   = 400
	FruitSpawnRate = 4 * time.Second
)

// Bonus phase
const (
	BonusDuration = 30 * time.Second
	SpeedFactor   = 1.2 // Enemy speed multiplier per completed bonus phase
)

// Tile regeneration
const (
	RegenDelay    = 3000 * time.Millisecond
	RegenInterval = 100 * time.Millisecond
)

// Two-player rules
const (
	MaxPlayers   = 2
	PlayerRowGap = 10 // Rows between players before the lower one is pulled up
)

// Synchronization
const (
	// A slot cleared locally ignores snapshots that still report it active
	// for this long.
	LocalRemovalGrace = 500 * time.Millisecond
)

// Spectators
const (
	MaxSpectators = 2
)

// Safe spawn cells for each player.
const (
	Player1SpawnCol = 2
	Player2SpawnCol = 17
	SpawnRow        = GridRows - 2
	BonusSpawnRow   = 14 // Last open row above the bonus map's floor
)

// Tick rate shared by host and client.
const (
	TickRate = 60
	TickTime = 16 * time.Millisecond
)

// Host spawning
const (
	EnemySpawnRate = 2 * time.Second
)

// Shutdown
const (
	ShutdownTimeout = 5 * time.Second
)

// Client presentation
const (
	RenderEvery          = 3 // Ticks per drawn frame
	SpectatorLogInterval = time.Second
)
