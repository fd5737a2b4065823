package object

import (
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/physics"
)

// FruitKind identifies a fruit variant. Values match the wire encoding.
type FruitKind int32

const (
	FruitNone FruitKind = iota
	FruitOrange
	FruitBanana
	FruitEggplant
	FruitLettuce
)

var fruitPoints = map[FruitKind]int{
	FruitOrange:   config.ScoreOrange,
	FruitBanana:   config.ScoreBanana,
	FruitEggplant: config.ScoreEggplant,
	FruitLettuce:  config.ScoreLettuce,
}

// FruitKindFromWire clamps an encoded kind, mapping unknown values to None.
func FruitKindFromWire(v int32) FruitKind {
	k := FruitKind(v)
	if _, ok := fruitPoints[k]; !ok {
		return FruitNone
	}
	return k
}

// Points returns the score for collecting the fruit.
func (k FruitKind) Points() int {
	return fruitPoints[k]
}

func (k FruitKind) String() string {
	switch k {
	case FruitOrange:
		return "orange"
	case FruitBanana:
		return "banana"
	case FruitEggplant:
		return "eggplant"
	case FruitLettuce:
		return "lettuce"
	default:
		return "none"
	}
}

// Fruit is one slot of the fruit pool.
type Fruit struct {
	Slot         int
	Kind         FruitKind
	X, Y         float64
	GridX, GridY int
	Active       bool
}

// Spawn places the fruit resting on the bottom of its cell.
func (f *Fruit) Spawn() {
	if f.Kind == FruitNone {
		f.Active = false
		return
	}
	f.X = float64(f.GridX*config.CellSize + (config.CellSize-config.FruitSize)/2)
	f.Y = float64(f.GridY*config.CellSize + config.CellSize - config.FruitSize)
	f.Active = true
}

// Rect returns the fruit's bounding box.
func (f *Fruit) Rect() physics.Rect {
	return physics.Square(f.X, f.Y, config.FruitSize)
}
