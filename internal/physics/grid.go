package physics

import "math"

// CellOf converts a world coordinate to a cell index. Negative positions
// map to negative cells rather than truncating toward zero.
func CellOf(pos, cellSize float64) int {
	return int(math.Floor(pos / cellSize))
}

// CellSpan returns the first and last cell indices covered by a segment
// [pos, pos+size). A segment that ends exactly on a cell boundary does not
// reach into the next cell; one that ends a fraction past it does.
func CellSpan(pos, size, cellSize float64) (first, last int) {
	first = CellOf(pos, cellSize)
	last = CellOf(math.Ceil(pos+size)-1, cellSize)
	if last < first {
		last = first
	}
	return first, last
}

// ClampCell clamps a cell index into [0, n-1].
func ClampCell(c, n int) int {
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}
