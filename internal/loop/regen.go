package loop

import (
	"time"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/world"
)

// RegenScheduler periodically scans for broken tiles whose delay elapsed.
// In confirm mode a due tile is requested once and stays broken until
// Confirm; otherwise it regenerates on the spot.
type RegenScheduler struct {
	awaitConfirm bool
	pending      map[world.Cell]struct{}
	lastScan     time.Time
}

func newRegenScheduler(awaitConfirm bool) RegenScheduler {
	return RegenScheduler{
		awaitConfirm: awaitConfirm,
		pending:      make(map[world.Cell]struct{}),
	}
}

// SetAwaitConfirm switches between confirm mode and local regeneration.
// Pending requests are dropped so they are re-sent or regenerated.
func (r *RegenScheduler) SetAwaitConfirm(v bool) {
	r.awaitConfirm = v
	r.Reset()
}

// AwaitsConfirm reports whether due tiles wait for confirmation.
func (r *RegenScheduler) AwaitsConfirm() bool {
	return r.awaitConfirm
}

// Pending reports whether a regeneration request is outstanding for cell.
func (r *RegenScheduler) Pending(cell world.Cell) bool {
	_, ok := r.pending[cell]
	return ok
}

// Reset forgets outstanding requests.
func (r *RegenScheduler) Reset() {
	clear(r.pending)
	r.lastScan = time.Time{}
}

// Tick scans g at most once per RegenInterval. It returns cells newly
// requested upstream and cells regenerated locally.
func (r *RegenScheduler) Tick(g *world.Grid, now time.Time) (requested, restored []world.Cell) {
	if !r.lastScan.IsZero() && now.Sub(r.lastScan) < config.RegenInterval {
		return nil, nil
	}
	r.lastScan = now
	if r.pending == nil {
		r.pending = make(map[world.Cell]struct{})
	}
	for _, cell := range g.DueForRegen(now, config.RegenDelay) {
		if !r.awaitConfirm {
			if g.Regenerate(cell.Row, cell.Col) {
				restored = append(restored, cell)
			}
			continue
		}
		if _, ok := r.pending[cell]; ok {
			continue
		}
		r.pending[cell] = struct{}{}
		requested = append(requested, cell)
	}
	return requested, restored
}

// Confirm restores cell after upstream agreed. It reports whether the tile
// changed; confirming a solid tile is a no-op.
func (r *RegenScheduler) Confirm(g *world.Grid, cell world.Cell) bool {
	delete(r.pending, cell)
	return g.Regenerate(cell.Row, cell.Col)
}
