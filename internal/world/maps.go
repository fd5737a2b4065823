package world

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tomz197/platformer/internal/loop/config"
)

// Map legend: '#' breakable platform, '*' bonus trigger, anything else empty.
var defaultLayout = []string{
	"#..........**............#",
	"#........................#",
	"#........................#",
	"##########################",
	"#........................#",
	"#........................#",
	"#........................#",
	"##########################",
	"#........................#",
	"#........................#",
	"#........................#",
	"##########################",
	"#........................#",
	"#........................#",
	"#........................#",
	"##########################",
	"#........................#",
	"#........................#",
	"#........................#",
	"##########################",
	"#........................#",
	"#........................#",
	"#........................#",
	"##########################",
}

var bonusLayout = []string{
	"..........................",
	"..........................",
	"..###................###..",
	"..........................",
	".......###....###.........",
	".................###......",
	"...###....................",
	"...........###............",
	"###....................###",
	"....####.........####.....",
	"..........................",
	".........######...........",
	"..........................",
	"..........................",
	"..........................",
	"##########################",
	"##########################",
	"##########################",
	"##########################",
	"##########################",
	"##########################",
	"##########################",
	"##########################",
	"##########################",
}

var (
	defaultMatrix = mustParse(defaultLayout)
	bonusMatrix   = mustParse(bonusLayout)
)

// DefaultMap returns the layout used for normal play.
func DefaultMap() Matrix {
	return defaultMatrix
}

// BonusMap returns the layout swapped in during a bonus phase.
func BonusMap() Matrix {
	return bonusMatrix
}

// ParseLayout converts a legend-encoded layout into a matrix.
func ParseLayout(rows []string) (Matrix, error) {
	var m Matrix
	if len(rows) != config.GridRows {
		return m, fmt.Errorf("layout has %d rows, want %d", len(rows), config.GridRows)
	}
	for r, line := range rows {
		if len(line) != config.GridCols {
			return m, fmt.Errorf("layout row %d has %d cols, want %d", r, len(line), config.GridCols)
		}
		for c := range len(line) {
			switch line[c] {
			case '#':
				m[r][c] = config.CellPlatform
			case '*':
				m[r][c] = config.CellBonusTrigger
			default:
				m[r][c] = config.CellEmpty
			}
		}
	}
	return m, nil
}

func mustParse(rows []string) Matrix {
	m, err := ParseLayout(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// ReadLayout parses a layout file, one row per line. Trailing blank lines
// are ignored.
func ReadLayout(r io.Reader) (Matrix, error) {
	var rows []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		rows = append(rows, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return Matrix{}, fmt.Errorf("read layout: %w", err)
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	return ParseLayout(rows)
}
