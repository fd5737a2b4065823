package object

import (
	"math/rand"
	"time"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/physics"
	"github.com/tomz197/platformer/internal/world"
)

// EnemyState is the transport view of one enemy slot.
type EnemyState struct {
	Slot         int
	Kind         EnemyKind
	GridX, GridY int
	Active       bool
}

// FruitState is the transport view of one fruit slot.
type FruitState struct {
	Slot         int
	Kind         FruitKind
	GridX, GridY int
	Active       bool
}

// AttackTally counts enemies defeated by one attack, per kind.
type AttackTally struct {
	counts [EnemyFalling + 1]int
}

func (t *AttackTally) add(k EnemyKind) {
	if k > EnemyNone && int(k) < len(t.counts) {
		t.counts[k]++
	}
}

// Count returns how many enemies of kind k were defeated.
func (t AttackTally) Count(k EnemyKind) int {
	if k <= EnemyNone || int(k) >= len(t.counts) {
		return 0
	}
	return t.counts[k]
}

// Total returns the number of defeated enemies.
func (t AttackTally) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Points returns the score for the tally.
func (t AttackTally) Points() int {
	sum := 0
	for k, c := range t.counts {
		sum += c * EnemyKind(k).Points()
	}
	return sum
}

// EnemyPool is a fixed array of enemy slots.
type EnemyPool struct {
	slots [config.MaxEnemies]Enemy
	// Slots removed locally ignore re-activation until this time, so a
	// snapshot that predates the removal does not bring them back.
	held  [config.MaxEnemies]time.Time
	Speed float64 // Difficulty multiplier on base enemy speed
	rng   *rand.Rand
}

// Compile-time check that EnemyPool can be used as a hazard collider.
var _ Collider = (*EnemyPool)(nil)

// NewEnemyPool creates a pool with every slot inactive.
func NewEnemyPool(rng *rand.Rand) *EnemyPool {
	p := &EnemyPool{Speed: 1, rng: rng}
	for i := range p.slots {
		p.slots[i].Slot = i
	}
	return p
}

// Slots returns the backing slots. Callers must hold the owning lock.
func (p *EnemyPool) Slots() []Enemy {
	return p.slots[:]
}

// Update advances every active enemy.
func (p *EnemyPool) Update(g *world.Grid) {
	env := stepEnv{grid: g, speed: config.EnemySpeed * p.Speed, rand: p.rng}
	for i := range p.slots {
		p.slots[i].update(env)
	}
}

// Reconcile merges an incoming snapshot into the pool slot by slot.
// Inactive incoming slots deactivate immediately. A slot that turns active
// or changes kind is respawned. Anything else only takes the new grid
// coordinates, leaving behavior state running.
func (p *EnemyPool) Reconcile(in []EnemyState, env SpawnEnv, now time.Time) {
	if env.Rand == nil {
		env.Rand = p.rng
	}
	for _, s := range in {
		if s.Slot < 0 || s.Slot >= len(p.slots) {
			continue
		}
		local := &p.slots[s.Slot]
		kind := EnemyKindFromWire(int32(s.Kind))
		if !s.Active || kind == EnemyNone {
			local.Active = false
			local.Initialized = false
			p.held[s.Slot] = time.Time{}
			continue
		}
		if now.Before(p.held[s.Slot]) {
			continue
		}
		if !local.Active || local.Kind != kind || !local.Initialized {
			local.Kind = kind
			local.GridX = s.GridX
			local.GridY = s.GridY
			local.Initialized = false
			local.Spawn(env)
			continue
		}
		local.GridX = s.GridX
		local.GridY = s.GridY
	}
}

// Activate spawns kind into slot at the given cell.
func (p *EnemyPool) Activate(slot int, kind EnemyKind, gridX, gridY int, env SpawnEnv) bool {
	if slot < 0 || slot >= len(p.slots) || kind == EnemyNone {
		return false
	}
	if env.Rand == nil {
		env.Rand = p.rng
	}
	e := &p.slots[slot]
	e.Kind = kind
	e.GridX = gridX
	e.GridY = gridY
	e.Spawn(env)
	return true
}

// FreeSlot returns the first inactive slot.
func (p *EnemyPool) FreeSlot() (int, bool) {
	for i := range p.slots {
		if !p.slots[i].Active {
			return i, true
		}
	}
	return 0, false
}

// ActiveCount returns the number of active slots.
func (p *EnemyPool) ActiveCount() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].Active {
			n++
		}
	}
	return n
}

// CheckPlayerCollision reports whether the box overlaps any active enemy.
func (p *EnemyPool) CheckPlayerCollision(r physics.Rect) bool {
	for i := range p.slots {
		if p.slots[i].Active && p.slots[i].Rect().Overlaps(r) {
			return true
		}
	}
	return false
}

// Attack defeats every active enemy whose center lies within radius of
// (cx, cy) and returns what was defeated.
func (p *EnemyPool) Attack(cx, cy, radius float64, now time.Time) AttackTally {
	var tally AttackTally
	for i := range p.slots {
		e := &p.slots[i]
		if !e.Active {
			continue
		}
		ex, ey := e.Center()
		if physics.PointInCircle(ex, ey, cx, cy, radius) {
			e.Active = false
			e.Initialized = false
			p.held[i] = now.Add(config.LocalRemovalGrace)
			tally.add(e.Kind)
		}
	}
	return tally
}

// RemoveLanded deactivates falling enemies that left the map and returns
// their slots.
func (p *EnemyPool) RemoveLanded() []int {
	var removed []int
	for i := range p.slots {
		e := &p.slots[i]
		if e.Active && e.Kind == EnemyFalling && e.HasLanded {
			e.Active = false
			e.Initialized = false
			removed = append(removed, i)
		}
	}
	return removed
}

// Clear deactivates every slot.
func (p *EnemyPool) Clear() {
	for i := range p.slots {
		p.slots[i].Active = false
		p.slots[i].Initialized = false
		p.held[i] = time.Time{}
	}
}

// States returns the transport view of every slot, with grid coordinates
// taken from current pixel positions.
func (p *EnemyPool) States() []EnemyState {
	out := make([]EnemyState, len(p.slots))
	for i := range p.slots {
		e := &p.slots[i]
		out[i] = EnemyState{Slot: i, Kind: e.Kind, Active: e.Active}
		if e.Active {
			out[i].GridX = physics.CellOf(e.X, config.CellSize)
			out[i].GridY = physics.CellOf(e.Y, config.CellSize)
		} else {
			out[i].Kind = EnemyNone
		}
	}
	return out
}

// FruitPool is a fixed array of fruit slots.
type FruitPool struct {
	slots [config.MaxFruits]Fruit
	held  [config.MaxFruits]time.Time
}

// NewFruitPool creates a pool with every slot inactive.
func NewFruitPool() *FruitPool {
	p := &FruitPool{}
	for i := range p.slots {
		p.slots[i].Slot = i
	}
	return p
}

// Slots returns the backing slots. Callers must hold the owning lock.
func (p *FruitPool) Slots() []Fruit {
	return p.slots[:]
}

// Reconcile merges an incoming snapshot into the pool using the same slot
// rules as enemies.
func (p *FruitPool) Reconcile(in []FruitState, now time.Time) {
	for _, s := range in {
		if s.Slot < 0 || s.Slot >= len(p.slots) {
			continue
		}
		local := &p.slots[s.Slot]
		kind := FruitKindFromWire(int32(s.Kind))
		if !s.Active || kind == FruitNone {
			local.Active = false
			p.held[s.Slot] = time.Time{}
			continue
		}
		if now.Before(p.held[s.Slot]) {
			continue
		}
		if !local.Active || local.Kind != kind {
			local.Kind = kind
			local.GridX = s.GridX
			local.GridY = s.GridY
			local.Spawn()
			continue
		}
		local.GridX = s.GridX
		local.GridY = s.GridY
	}
}

// Activate places kind into slot at the given cell.
func (p *FruitPool) Activate(slot int, kind FruitKind, gridX, gridY int) bool {
	if slot < 0 || slot >= len(p.slots) || kind == FruitNone {
		return false
	}
	f := &p.slots[slot]
	f.Kind = kind
	f.GridX = gridX
	f.GridY = gridY
	f.Spawn()
	return true
}

// FreeSlot returns the first inactive slot.
func (p *FruitPool) FreeSlot() (int, bool) {
	for i := range p.slots {
		if !p.slots[i].Active {
			return i, true
		}
	}
	return 0, false
}

// ActiveCount returns the number of active slots.
func (p *FruitPool) ActiveCount() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].Active {
			n++
		}
	}
	return n
}

// Collect deactivates every active fruit overlapping the box and returns the
// points earned.
func (p *FruitPool) Collect(r physics.Rect, now time.Time) int {
	points := 0
	for i := range p.slots {
		f := &p.slots[i]
		if f.Active && f.Rect().Overlaps(r) {
			f.Active = false
			p.held[i] = now.Add(config.LocalRemovalGrace)
			points += f.Kind.Points()
		}
	}
	return points
}

// Clear deactivates every slot.
func (p *FruitPool) Clear() {
	for i := range p.slots {
		p.slots[i].Active = false
		p.held[i] = time.Time{}
	}
}

// States returns the transport view of every slot.
func (p *FruitPool) States() []FruitState {
	out := make([]FruitState, len(p.slots))
	for i := range p.slots {
		f := &p.slots[i]
		out[i] = FruitState{Slot: i, Kind: f.Kind, GridX: f.GridX, GridY: f.GridY, Active: f.Active}
		if !f.Active {
			out[i].Kind = FruitNone
		}
	}
	return out
}
