// Package draw renders the playing field as text, one tile per two
// terminal columns, for terminal clients and spectators.
package draw

import (
	"fmt"
	"strings"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/world"
)

// Block characters for drawing.
const (
	BlockFull   = '█'
	BlockMedium = '▒'
	BlockEmpty  = ' '
)

var enemyGlyphs = map[object.EnemyKind]rune{
	object.EnemyGround:  'M',
	object.EnemyFlying:  'W',
	object.EnemyFalling: 'V',
}

var fruitGlyphs = map[object.FruitKind]rune{
	object.FruitOrange:   'o',
	object.FruitBanana:   'b',
	object.FruitEggplant: 'e',
	object.FruitLettuce:  'l',
}

// Board is a character raster of the field, indexed [row][col].
type Board struct {
	cells [config.GridRows][config.GridCols]rune
}

// Put sets one cell, ignoring out-of-range coordinates.
func (b *Board) Put(col, row int, r rune) {
	if world.InBounds(row, col) {
		b.cells[row][col] = r
	}
}

// At returns the rune at a cell, or BlockEmpty out of range.
func (b *Board) At(col, row int) rune {
	if !world.InBounds(row, col) {
		return BlockEmpty
	}
	return b.cells[row][col]
}

// DrawMatrix draws the tiles of m.
func (b *Board) DrawMatrix(m world.Matrix) {
	for row := range m {
		for col, code := range m[row] {
			switch code {
			case config.CellPlatform:
				b.cells[row][col] = BlockFull
			case config.CellBonusTrigger:
				b.cells[row][col] = BlockMedium
			default:
				b.cells[row][col] = BlockEmpty
			}
		}
	}
}

// DrawUpdate draws the entities of a PLAYER_UPDATE over the tiles.
func (b *Board) DrawUpdate(u *protocol.PlayerUpdate) {
	for _, f := range u.FruitStates() {
		if g, ok := fruitGlyphs[f.Kind]; ok && f.Active {
			b.Put(f.GridX, f.GridY, g)
		}
	}
	for _, e := range u.EnemyStates() {
		if g, ok := enemyGlyphs[e.Kind]; ok && e.Active {
			b.Put(e.GridX, e.GridY, g)
		}
	}
	b.drawPlayer(u.Player1, '1')
	if u.IsPlayer2Active {
		b.drawPlayer(u.Player2, '2')
	}
}

func (b *Board) drawPlayer(p *protocol.PlayerState, glyph rune) {
	if p == nil || !p.IsAlive {
		return
	}
	half := float64(config.PlayerSize) / 2
	b.Put(int(p.X+half)/config.CellSize, int(p.Y+half)/config.CellSize, glyph)
}

// String returns the board as newline-separated rows.
func (b *Board) String() string {
	var sb strings.Builder
	for row := range b.cells {
		b.writeRow(&sb, row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (b *Board) writeRow(sb *strings.Builder, row int) {
	for _, r := range b.cells[row] {
		sb.WriteRune(r)
		if r == BlockFull || r == BlockMedium {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(BlockEmpty)
		}
	}
}

// Render writes the board at the top-left of the terminal followed by a
// status line.
func (b *Board) Render(cw *ChunkWriter, status string) {
	var sb strings.Builder
	for row := range b.cells {
		sb.Reset()
		b.writeRow(&sb, row)
		cw.WriteAt(1, row+1, sb.String())
	}
	cw.WriteAt(1, config.GridRows+1, status)
}

// Status summarizes lives, score and bonus state in one line.
func Status(u *protocol.PlayerUpdate) string {
	var sb strings.Builder
	writePlayer := func(id int, p *protocol.PlayerState) {
		if p == nil {
			return
		}
		fmt.Fprintf(&sb, "P%d lives %d score %d  ", id, p.Lives, p.Score)
	}
	writePlayer(1, u.Player1)
	if u.IsPlayer2Active {
		writePlayer(2, u.Player2)
	}
	if u.IsBonusPhase {
		owner := 0
		if u.BonusPlayerID != nil {
			owner = *u.BonusPlayerID
		}
		fmt.Fprintf(&sb, "BONUS P%d %ds", owner, (u.BonusTimeRemaining+999)/1000)
	}
	return strings.TrimRight(sb.String(), " ")
}
