// Package world models the tile grid the game is played on.
package world

import (
	"time"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/physics"
)

// Matrix is the raw cell-code layout of a map, indexed [row][col].
type Matrix [config.GridRows][config.GridCols]int32

// Tile is one grid cell.
type Tile struct {
	Row, Col     int
	Code         int32
	Solid        bool
	Breakable    bool
	BonusTrigger bool
	Broken       bool
	BrokenAt     time.Time
}

// Collidable reports whether the tile currently blocks movement.
func (t *Tile) Collidable() bool {
	return t.Solid && !t.Broken
}

// Rect returns the tile's pixel bounds.
func (t *Tile) Rect() physics.Rect {
	return physics.Square(float64(t.Col*config.CellSize), float64(t.Row*config.CellSize), config.CellSize)
}

// Cell addresses a tile by row and column.
type Cell struct {
	Row, Col int
}

// Grid is the playing field. It is not safe for concurrent use; callers
// guard it with the lock that owns the surrounding world.
type Grid struct {
	tiles [config.GridRows][config.GridCols]Tile
}

// NewGrid builds a grid from a cell-code matrix.
func NewGrid(m Matrix) *Grid {
	g := &Grid{}
	for row := range config.GridRows {
		for col := range config.GridCols {
			g.tiles[row][col] = newTile(row, col, m[row][col])
		}
	}
	return g
}

func newTile(row, col int, code int32) Tile {
	t := Tile{Row: row, Col: col}
	switch code {
	case config.CellPlatform:
		t.Code = code
		t.Solid = true
		t.Breakable = true
	case config.CellBonusTrigger:
		t.Code = code
		t.Solid = true
		t.BonusTrigger = true
	default:
		t.Code = config.CellEmpty
	}
	return t
}

// Load replaces the layout with m. A tile that is broken locally stays
// broken, with its original timestamp, as long as it is still breakable in
// the new layout.
func (g *Grid) Load(m Matrix) {
	for row := range config.GridRows {
		for col := range config.GridCols {
			old := g.tiles[row][col]
			t := newTile(row, col, m[row][col])
			if old.Broken && t.Breakable {
				t.Broken = true
				t.BrokenAt = old.BrokenAt
			}
			g.tiles[row][col] = t
		}
	}
}

// Matrix returns the cell codes of the layout. Broken tiles keep their code.
func (g *Grid) Matrix() Matrix {
	var m Matrix
	for row := range config.GridRows {
		for col := range config.GridCols {
			m[row][col] = g.tiles[row][col].Code
		}
	}
	return m
}

// InBounds reports whether (row, col) lies inside the grid.
func InBounds(row, col int) bool {
	return row >= 0 && row < config.GridRows && col >= 0 && col < config.GridCols
}

// At returns the tile at (row, col).
func (g *Grid) At(row, col int) (*Tile, bool) {
	if !InBounds(row, col) {
		return nil, false
	}
	return &g.tiles[row][col], true
}

// Collidable reports whether the cell at (row, col) blocks movement.
// Cells outside the grid never block.
func (g *Grid) Collidable(row, col int) bool {
	t, ok := g.At(row, col)
	return ok && t.Collidable()
}

// CollidesBox reports whether any collidable tile lies under the box.
func (g *Grid) CollidesBox(r physics.Rect) bool {
	left, right := physics.CellSpan(r.X, r.W, config.CellSize)
	top, bottom := physics.CellSpan(r.Y, r.H, config.CellSize)
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			if g.Collidable(row, col) {
				return true
			}
		}
	}
	return false
}

// TouchingBonus returns the first bonus-trigger tile the box touches,
// counting tiles the box rests on or leans against.
func (g *Grid) TouchingBonus(r physics.Rect) (Cell, bool) {
	probe := r.Inflate(1)
	left, right := physics.CellSpan(probe.X, probe.W, config.CellSize)
	top, bottom := physics.CellSpan(probe.Y, probe.H, config.CellSize)
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			t, ok := g.At(row, col)
			if !ok || !t.BonusTrigger || !t.Collidable() {
				continue
			}
			if probe.Overlaps(t.Rect()) {
				return Cell{Row: row, Col: col}, true
			}
		}
	}
	return Cell{}, false
}

// Break marks a breakable tile broken at now. It reports whether the tile
// changed; breaking an already broken tile keeps the first timestamp.
func (g *Grid) Break(row, col int, now time.Time) bool {
	t, ok := g.At(row, col)
	if !ok || !t.Breakable || t.Broken {
		return false
	}
	t.Broken = true
	t.BrokenAt = now
	return true
}

// Regenerate restores a broken tile. It reports whether the tile changed.
func (g *Grid) Regenerate(row, col int) bool {
	t, ok := g.At(row, col)
	if !ok || !t.Broken {
		return false
	}
	t.Broken = false
	t.BrokenAt = time.Time{}
	return true
}

// DueForRegen lists broken tiles whose regeneration delay has elapsed.
func (g *Grid) DueForRegen(now time.Time, delay time.Duration) []Cell {
	var due []Cell
	for row := range config.GridRows {
		for col := range config.GridCols {
			t := &g.tiles[row][col]
			if t.Broken && now.Sub(t.BrokenAt) >= delay {
				due = append(due, Cell{Row: row, Col: col})
			}
		}
	}
	return due
}

// Each calls fn for every tile in row-major order.
func (g *Grid) Each(fn func(t *Tile)) {
	for row := range config.GridRows {
		for col := range config.GridCols {
			fn(&g.tiles[row][col])
		}
	}
}

// IsBorder reports whether (row, col) lies on the outer ring of the grid.
func IsBorder(row, col int) bool {
	return row == 0 || col == 0 || row == config.GridRows-1 || col == config.GridCols-1
}
