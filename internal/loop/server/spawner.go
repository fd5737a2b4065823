package server

import (
	"time"

	"github.com/tomz197/platformer/internal/loop"
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/world"
)

// spawnAttempts bounds the search for a free standing cell.
const spawnAttempts = 10

// Spawner fills free enemy and fruit slots on fixed timers. Nothing spawns
// during a bonus phase or after game over.
type Spawner struct {
	nextEnemy time.Time
	nextFruit time.Time
}

// Reset restarts both timers on the next update.
func (s *Spawner) Reset() {
	s.nextEnemy = time.Time{}
	s.nextFruit = time.Time{}
}

// Update spawns at most one enemy and one fruit and reports which slots it
// filled, or -1.
func (s *Spawner) Update(w *loop.World, now time.Time) (enemySlot, fruitSlot int) {
	enemySlot, fruitSlot = -1, -1
	if s.nextEnemy.IsZero() {
		s.nextEnemy = now.Add(config.EnemySpawnRate)
		s.nextFruit = now.Add(config.FruitSpawnRate)
		return
	}
	if w.Bonus.Active() || w.GameOver {
		return
	}
	if !now.Before(s.nextEnemy) {
		s.nextEnemy = now.Add(config.EnemySpawnRate)
		enemySlot = spawnEnemy(w)
	}
	if !now.Before(s.nextFruit) {
		s.nextFruit = now.Add(config.FruitSpawnRate)
		fruitSlot = spawnFruit(w)
	}
	return
}

func spawnEnemy(w *loop.World) int {
	slot, ok := w.Enemies.FreeSlot()
	if !ok {
		return -1
	}
	r := w.Rand()
	kind := object.EnemyKind(1 + r.Intn(int(object.EnemyFalling)))
	col := 1 + r.Intn(config.GridCols-2)
	row := 0
	switch kind {
	case object.EnemyGround:
		row = config.SpawnRow
	case object.EnemyFlying:
		row = 1 + r.Intn(config.GridRows/2)
	}
	if !w.Enemies.Activate(slot, kind, col, row, w.SpawnEnv()) {
		return -1
	}
	e := &w.Enemies.Slots()[slot]
	if kind != object.EnemyFalling && w.Grid.CollidesBox(e.Rect()) {
		// Landed inside a platform; try again next time.
		e.Active = false
		e.Initialized = false
		return -1
	}
	return slot
}

func spawnFruit(w *loop.World) int {
	slot, ok := w.Fruits.FreeSlot()
	if !ok {
		return -1
	}
	r := w.Rand()
	for range spawnAttempts {
		col := 1 + r.Intn(config.GridCols-2)
		rows := standingRows(w.Grid, col)
		if len(rows) == 0 {
			continue
		}
		kind := object.FruitKind(1 + r.Intn(int(object.FruitLettuce)))
		if w.Fruits.Activate(slot, kind, col, rows[r.Intn(len(rows))]) {
			return slot
		}
	}
	return -1
}

// standingRows lists the open cells of col that rest on a platform.
func standingRows(g *world.Grid, col int) []int {
	var rows []int
	for row := 1; row < config.GridRows-1; row++ {
		if !g.Collidable(row, col) && g.Collidable(row+1, col) {
			rows = append(rows, row)
		}
	}
	return rows
}
