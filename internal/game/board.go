package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

// Outcome classifies a board.
type Outcome string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Roles. The engine plays X against a human playing O.
	Machine = PlayerX
	Human   = PlayerO

	// Outcomes
	InProgress Outcome = "in_progress"
	XWins      Outcome = "x_wins"
	OWins      Outcome = "o_wins"
	Draw       Outcome = "draw"
)

var (
	ErrInvalidBoard  = errors.New("invalid board")
	ErrInvalidPlayer = errors.New("invalid player")
	ErrOutOfRange    = errors.New("cell index out of range")
	ErrCellOccupied  = errors.New("cell already occupied")
	ErrGameOver      = errors.New("game already finished")
)

// Valid reports whether m is one of the two player symbols.
func (m PlayerMark) Valid() bool {
	return m == PlayerX || m == PlayerO
}

// Opponent returns the other player. None has no opponent.
func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	}
	return None
}

// ParsePlayer accepts "X" or "O" in either case.
func ParsePlayer(s string) (PlayerMark, error) {
	m := PlayerMark(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return None, fmt.Errorf("%w: %q", ErrInvalidPlayer, s)
	}
	return m, nil
}

// Board is a row-major sequence of cells bound to a Layout. The zero value is
// not usable; build boards with NewBoard, ParseBoard or BoardFromMarks.
type Board struct {
	layout *Layout
	cells  []PlayerMark
}

// NewBoard returns an empty board for the layout.
func NewBoard(l *Layout) Board {
	return Board{layout: l, cells: make([]PlayerMark, l.Size())}
}

// BoardFromMarks copies marks into a new board. The number of marks selects the layout.
func BoardFromMarks(marks []PlayerMark) (Board, error) {
	l, err := layoutForSize(len(marks))
	if err != nil {
		return Board{}, err
	}
	b := NewBoard(l)
	for i, m := range marks {
		if m != None && !m.Valid() {
			return Board{}, fmt.Errorf("%w: cell %d holds %q", ErrInvalidBoard, i, m)
		}
		b.cells[i] = m
	}
	return b, nil
}

// ParseBoard reads the compact form produced by Board.String, e.g. "XX_OO____".
// '_', '.', '-' and ' ' mark empty cells.
func ParseBoard(s string) (Board, error) {
	marks := make([]PlayerMark, 0, len(s))
	for _, r := range s {
		switch r {
		case '_', '.', '-', ' ':
			marks = append(marks, None)
		case 'X', 'x':
			marks = append(marks, PlayerX)
		case 'O', 'o':
			marks = append(marks, PlayerO)
		default:
			return Board{}, fmt.Errorf("%w: unexpected %q at cell %d", ErrInvalidBoard, r, len(marks))
		}
	}
	return BoardFromMarks(marks)
}

// Layout returns the board geometry.
func (b Board) Layout() *Layout { return b.layout }

// Size returns the number of cells.
func (b Board) Size() int { return len(b.cells) }

// At returns the mark at index i.
func (b Board) At(i int) PlayerMark { return b.cells[i] }

// Cells returns a copy of the cells.
func (b Board) Cells() []PlayerMark {
	return append([]PlayerMark(nil), b.cells...)
}

// Clone returns an independent copy of the board.
func (b Board) Clone() Board {
	return Board{layout: b.layout, cells: b.Cells()}
}

// Equal reports whether both boards have the same layout and cells.
func (b Board) Equal(o Board) bool {
	if b.layout != o.layout || len(b.cells) != len(o.cells) {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Place returns a copy of the board with mark at index i.
func (b Board) Place(i int, mark PlayerMark) (Board, error) {
	if !mark.Valid() {
		return Board{}, fmt.Errorf("%w: %q", ErrInvalidPlayer, mark)
	}
	if i < 0 || i >= len(b.cells) {
		return Board{}, ErrOutOfRange
	}
	if b.cells[i] != None {
		return Board{}, ErrCellOccupied
	}
	next := b.Clone()
	next.cells[i] = mark
	return next, nil
}

// Set writes a mark in place. It is meant for search working copies that
// revert their own writes.
func (b Board) Set(i int, mark PlayerMark) {
	b.cells[i] = mark
}

// Key is the compact string form used for cache keys and the book.
func (b Board) Key() string {
	var sb strings.Builder
	sb.Grow(len(b.cells))
	for _, m := range b.cells {
		if m == None {
			sb.WriteByte('_')
		} else {
			sb.WriteString(string(m))
		}
	}
	return sb.String()
}

func (b Board) String() string { return b.Key() }

// Rows splits the board into rows.
func (b Board) Rows() [][]PlayerMark {
	return lo.Chunk(b.Cells(), b.layout.side)
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.cells)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var marks []PlayerMark
	if err := json.Unmarshal(data, &marks); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	nb, err := BoardFromMarks(marks)
	if err != nil {
		return err
	}
	*b = nb
	return nil
}

// EmptyCells returns every empty index in ascending order.
func EmptyCells(b Board) []int {
	empty := make([]int, 0, len(b.cells))
	for i, m := range b.cells {
		if m == None {
			empty = append(empty, i)
		}
	}
	return empty
}

// HasWin reports whether some winning line is entirely held by player.
func HasWin(b Board, player PlayerMark) bool {
	if player == None {
		return false
	}
	for _, line := range b.layout.lines {
		if lo.EveryBy(line, func(i int) bool { return b.cells[i] == player }) {
			return true
		}
	}
	return false
}

// IsFull reports whether no empty cell remains.
func IsFull(b Board) bool {
	return !lo.Contains(b.cells, None)
}

// Classify returns the outcome of the board. A full board without a winning
// line is always a draw.
func Classify(b Board) Outcome {
	switch {
	case HasWin(b, PlayerX):
		return XWins
	case HasWin(b, PlayerO):
		return OWins
	case IsFull(b):
		return Draw
	}
	return InProgress
}

// Winner returns the mark that owns a winning line, or None.
func (o Outcome) Winner() PlayerMark {
	switch o {
	case XWins:
		return PlayerX
	case OWins:
		return PlayerO
	}
	return None
}

// Finished reports whether the outcome is terminal.
func (o Outcome) Finished() bool { return o != InProgress }
