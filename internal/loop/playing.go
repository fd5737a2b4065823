package loop

import (
	"time"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/physics"
	"github.com/tomz197/platformer/internal/world"
)

// Step advances the world one tick with the given per-player intents and
// returns what happened. The grid is always read from w; nothing else in
// the simulation reaches for shared state.
func (w *World) Step(now time.Time, intents [config.MaxPlayers]object.Intent) []Event {
	w.tickBonus(now)
	w.tickRegen(now)

	if w.GameOver {
		intents = [config.MaxPlayers]object.Intent{}
	}
	if owner := w.Bonus.Owner(); owner != 0 {
		for i := range intents {
			if i+1 != owner {
				intents[i] = object.Intent{}
			}
		}
	}

	for i, p := range w.ActivePlayers() {
		out := p.Update(object.UpdateContext{
			Grid:    w.Grid,
			Intent:  intents[i],
			Enemies: w.Enemies,
		})
		if out.Hit || out.Fell {
			w.emit(Event{Kind: EventLifeLost, Player: p.ID})
		}
		if out.Attacked {
			w.resolveAttack(p, out.AttackX, out.AttackY, now)
		}
		if points := w.Fruits.Collect(p.Rect(), now); points > 0 {
			p.AddScore(points)
		}
		if out.TouchedBonus && !w.Bonus.Active() {
			if w.StartBonus(p.ID, now) {
				p.AddLife()
			}
		}
	}

	w.Enemies.Update(w.Grid)
	w.checkPlayerDistance()
	w.checkGameOver()
	return w.drainEvents()
}

// resolveAttack defeats enemies around the attacker and breaks the tiles
// above it.
func (w *World) resolveAttack(p *object.Player, cx, cy float64, now time.Time) {
	tally := w.Enemies.Attack(cx, cy, config.AttackRange, now)
	if points := tally.Points(); points > 0 {
		p.AddScore(points)
	}
	w.emit(Event{Kind: EventAttack, Player: p.ID, Tally: tally, Points: tally.Points()})

	for _, cell := range tilesInReach(w.Grid, cx, cy) {
		if w.Grid.Break(cell.Row, cell.Col, now) {
			p.AddScore(config.TileBreakScore)
			w.emit(Event{Kind: EventTileDestroyed, Player: p.ID, Cell: cell})
		}
	}
}

// tilesInReach returns unbroken breakable tiles off the border whose centers
// lie within attack range and strictly above (cx, cy).
func tilesInReach(g *world.Grid, cx, cy float64) []world.Cell {
	var cells []world.Cell
	g.Each(func(t *world.Tile) {
		if !t.Breakable || t.Broken || world.IsBorder(t.Row, t.Col) {
			return
		}
		tx, ty := t.Rect().Center()
		if ty >= cy {
			return
		}
		if physics.PointInCircle(tx, ty, cx, cy, config.AttackRange) {
			cells = append(cells, world.Cell{Row: t.Row, Col: t.Col})
		}
	})
	return cells
}

// tickRegen runs the regeneration scan and reports its results as events.
func (w *World) tickRegen(now time.Time) {
	requested, restored := w.Regen.Tick(w.Grid, now)
	for _, cell := range requested {
		w.emit(Event{Kind: EventRegenRequested, Cell: cell})
	}
	for _, cell := range restored {
		w.emit(Event{Kind: EventTileRegenerated, Cell: cell})
	}
}

// ConfirmRegen applies an upstream regeneration confirmation.
func (w *World) ConfirmRegen(cell world.Cell) bool {
	if !w.Regen.Confirm(w.Grid, cell) {
		return false
	}
	w.emit(Event{Kind: EventTileRegenerated, Cell: cell})
	return true
}

// BreakTile applies a tile break reported by upstream.
func (w *World) BreakTile(cell world.Cell, now time.Time) bool {
	if !w.Grid.Break(cell.Row, cell.Col, now) {
		return false
	}
	w.emit(Event{Kind: EventTileDestroyed, Cell: cell})
	return true
}

// Events returns events produced outside Step, such as by message handlers.
func (w *World) Events() []Event {
	return w.drainEvents()
}

func (w *World) checkGameOver() {
	if w.GameOver {
		return
	}
	for _, p := range w.ActivePlayers() {
		if p.Alive() {
			return
		}
	}
	w.GameOver = true
	w.emit(Event{Kind: EventGameOver})
}
