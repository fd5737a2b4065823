package object

import (
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/physics"
)

// Player is a character driven by one control set.
type Player struct {
	ID       int     // 1 or 2
	X, Y     float64 // Top-left corner
	VelX     float64
	VelY     float64
	Size     float64
	OnGround bool

	Lives int
	Score int

	Invulnerable bool
	InvulnTimer  int

	Attacking      bool
	AttackCooldown int

	SpawnX, SpawnY float64
}

// SpawnPoint returns the safe respawn coordinate for a player id.
func SpawnPoint(id int) (float64, float64) {
	col := config.Player1SpawnCol
	if id == 2 {
		col = config.Player2SpawnCol
	}
	return float64(col * config.CellSize), float64(config.SpawnRow * config.CellSize)
}

// NewPlayer creates a player at its safe spawn with full starting lives.
func NewPlayer(id int) *Player {
	x, y := SpawnPoint(id)
	return &Player{
		ID:     id,
		X:      x,
		Y:      y,
		Size:   config.PlayerSize,
		Lives:  config.InitialLives,
		SpawnX: x,
		SpawnY: y,
	}
}

// Alive reports whether the player has lives left.
func (p *Player) Alive() bool {
	return p.Lives > 0
}

// Rect returns the player's bounding box.
func (p *Player) Rect() physics.Rect {
	return physics.Square(p.X, p.Y, p.Size)
}

// Center returns the center of the bounding box.
func (p *Player) Center() (float64, float64) {
	return p.Rect().Center()
}

// Row returns the grid row of the player's center.
func (p *Player) Row() int {
	_, cy := p.Center()
	return physics.CellOf(cy, config.CellSize)
}

// LoseLife removes one life, never going below zero.
func (p *Player) LoseLife() {
	if p.Lives > 0 {
		p.Lives--
	}
}

// AddLife grants one life up to MaxLives.
func (p *Player) AddLife() {
	if p.Lives < config.MaxLives {
		p.Lives++
	}
}

// AddScore adds points to the player's score.
func (p *Player) AddScore(points int) {
	p.Score += points
}

// MakeInvulnerable starts the post-hit grace window.
func (p *Player) MakeInvulnerable() {
	p.Invulnerable = true
	p.InvulnTimer = config.InvulnerabilityTicks
}

// PlaceAt moves the player and zeroes its velocity.
func (p *Player) PlaceAt(x, y float64) {
	p.X = x
	p.Y = y
	p.VelX = 0
	p.VelY = 0
	p.OnGround = false
}

// Respawn moves the player back to its safe spawn.
func (p *Player) Respawn() {
	p.PlaceAt(p.SpawnX, p.SpawnY)
}

// Reset restores starting lives and score and respawns.
func (p *Player) Reset() {
	p.Lives = config.InitialLives
	p.Score = 0
	p.Invulnerable = false
	p.InvulnTimer = 0
	p.Attacking = false
	p.AttackCooldown = 0
	p.Respawn()
}

// Update advances the player one tick. A player without lives is frozen.
func (p *Player) Update(ctx UpdateContext) Outcome {
	var out Outcome
	if !p.Alive() {
		return out
	}

	p.tickTimers()

	if ctx.Intent.Attack && !p.Attacking && p.AttackCooldown <= 0 {
		p.Attacking = true
		p.AttackCooldown = config.AttackDuration
		out.Attacked = true
		out.AttackX, out.AttackY = p.Center()
	}

	speed := config.MoveSpeed
	if !p.OnGround {
		speed *= config.AirControl
	}
	p.VelX = 0
	switch {
	case ctx.Intent.Left && !ctx.Intent.Right:
		p.VelX = -speed
	case ctx.Intent.Right && !ctx.Intent.Left:
		p.VelX = speed
	}

	if ctx.Intent.Jump && p.OnGround {
		p.VelY = config.JumpStrength
		p.OnGround = false
	}
	p.VelY += config.Gravity
	if p.VelY > config.MaxFallSpeed {
		p.VelY = config.MaxFallSpeed
	}

	p.moveX(ctx)
	p.moveY(ctx)

	if p.OnGround && !ctx.Grid.CollidesBox(physics.Square(p.X, p.Y+1, p.Size)) {
		p.OnGround = false
	}

	if !p.Invulnerable && ctx.Enemies != nil && ctx.Enemies.CheckPlayerCollision(p.Rect()) {
		p.LoseLife()
		p.MakeInvulnerable()
		p.Respawn()
		out.Hit = true
	}

	if p.Y > config.WorldHeight {
		if !p.Invulnerable {
			p.LoseLife()
			p.MakeInvulnerable()
		}
		p.Respawn()
		out.Fell = true
	}

	if cell, ok := ctx.Grid.TouchingBonus(p.Rect()); ok {
		out.TouchedBonus = true
		out.BonusCell = cell
	}
	return out
}

func (p *Player) tickTimers() {
	if p.Invulnerable {
		p.InvulnTimer--
		if p.InvulnTimer <= 0 {
			p.Invulnerable = false
			p.InvulnTimer = 0
		}
	}
	if p.Attacking {
		p.AttackCooldown--
		if p.AttackCooldown <= 0 {
			p.Attacking = false
		}
	} else if p.AttackCooldown > 0 {
		p.AttackCooldown--
	}
}

// moveX applies horizontal velocity, keeping the old X on any collision.
func (p *Player) moveX(ctx UpdateContext) {
	if p.VelX == 0 {
		return
	}
	newX := p.X + p.VelX
	if newX < 0 || newX > config.WorldWidth-p.Size {
		return
	}
	if !ctx.Grid.CollidesBox(physics.Square(newX, p.Y, p.Size)) {
		p.X = newX
	}
}

// moveY applies vertical velocity and snaps to tile edges on collision.
// There is no floor: a player can fall out of the bottom of the map.
func (p *Player) moveY(ctx UpdateContext) {
	if p.VelY == 0 {
		return
	}
	newY := p.Y + p.VelY
	if newY < 0 {
		newY = 0
		p.VelY = 0
	}
	if !ctx.Grid.CollidesBox(physics.Square(p.X, newY, p.Size)) {
		p.Y = newY
		if p.VelY > 0 {
			p.OnGround = false
		}
		return
	}
	if p.VelY > 0 {
		_, row := physics.CellSpan(newY, p.Size, config.CellSize)
		p.Y = float64(row*config.CellSize) - p.Size
		p.OnGround = true
	} else {
		row := physics.CellOf(newY, config.CellSize) + 1
		p.Y = float64(row * config.CellSize)
	}
	p.VelY = 0
}
