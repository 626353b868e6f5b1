package game

import (
	"fmt"
	"sync"
)

// Supported board sides.
const (
	MinSide = 3
	MaxSide = 5
)

// Layout is the geometry of an R×R board and the table of index tuples that
// win. A Layout is never mutated after construction.
type Layout struct {
	side  int
	lines [][]int
}

var (
	layoutsMu sync.Mutex
	layouts   = map[int]*Layout{}
)

// Standard is the classic 3×3 layout with its 8 winning lines.
var Standard = mustLayout(MinSide)

// NewLayout returns the process-wide layout for a side×side board.
func NewLayout(side int) (*Layout, error) {
	if side < MinSide || side > MaxSide {
		return nil, fmt.Errorf("%w: unsupported side %d", ErrInvalidBoard, side)
	}

	layoutsMu.Lock()
	defer layoutsMu.Unlock()

	if l, ok := layouts[side]; ok {
		return l, nil
	}
	l := &Layout{side: side, lines: buildLines(side)}
	layouts[side] = l
	return l, nil
}

func mustLayout(side int) *Layout {
	l, err := NewLayout(side)
	if err != nil {
		panic(err)
	}
	return l
}

// buildLines enumerates rows, then columns, then the two diagonals.
func buildLines(side int) [][]int {
	lines := make([][]int, 0, 2*side+2)
	for r := range side {
		row := make([]int, side)
		for c := range side {
			row[c] = r*side + c
		}
		lines = append(lines, row)
	}
	for c := range side {
		col := make([]int, side)
		for r := range side {
			col[r] = r*side + c
		}
		lines = append(lines, col)
	}
	diag := make([]int, side)
	anti := make([]int, side)
	for i := range side {
		diag[i] = i*side + i
		anti[i] = i*side + (side - 1 - i)
	}
	return append(lines, diag, anti)
}

// Side returns the number of cells along one edge.
func (l *Layout) Side() int { return l.side }

// Size returns the number of cells.
func (l *Layout) Size() int { return l.side * l.side }

// Lines returns the winning lines. Callers must not modify the result.
func (l *Layout) Lines() [][]int { return l.lines }

func layoutForSize(n int) (*Layout, error) {
	for side := MinSide; side <= MaxSide; side++ {
		if side*side == n {
			return NewLayout(side)
		}
	}
	return nil, fmt.Errorf("%w: %d cells is not a supported square board", ErrInvalidBoard, n)
}
