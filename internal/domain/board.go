package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// String returns the mark symbol, or a blank for Empty.
func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return " "
	}
}

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// IsMark reports whether c is X or O.
func (c Cell) IsMark() bool { return c == X || c == O }

// ParseCell reads "X" or "O" (any case).
func ParseCell(s string) (Cell, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, nil
	case "O":
		return O, nil
	}
	return Empty, fmt.Errorf("%w: %q", ErrInvalidMark, s)
}

// Board is a fixed 3x3 board stored row-major: index = row*3 + col.
type Board [9]Cell

// Lines holds the three rows, three columns and two diagonals.
var Lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Errors returned by board operations.
var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrOutOfBounds  = fmt.Errorf("%w: out of bounds", ErrIllegalMove)
	ErrOccupied     = fmt.Errorf("%w: cell occupied", ErrIllegalMove)
	ErrInvalidMark  = fmt.Errorf("%w: invalid mark", ErrIllegalMove)
	ErrInvalidBoard = errors.New("invalid board")
)

// Apply places mark at idx. It fails if idx is outside 0..8, the cell is taken,
// or mark is not X or O.
func (b *Board) Apply(idx int, mark Cell) error {
	if idx < 0 || idx >= len(b) {
		return fmt.Errorf("%w: index %d", ErrOutOfBounds, idx)
	}
	if !mark.IsMark() {
		return ErrInvalidMark
	}
	if b[idx] != Empty {
		return fmt.Errorf("%w: index %d holds %s", ErrOccupied, idx, b[idx])
	}
	b[idx] = mark
	return nil
}

// Undo clears the cell at idx. Out of range indexes are ignored.
func (b *Board) Undo(idx int) {
	if idx < 0 || idx >= len(b) {
		return
	}
	b[idx] = Empty
}

// AvailableMoves returns the empty indexes in ascending order.
func (b Board) AvailableMoves() []int {
	moves := make([]int, 0, len(b))
	for i, c := range b {
		if c == Empty {
			moves = append(moves, i)
		}
	}
	return moves
}

// IsFull reports whether no cell is empty.
func (b Board) IsFull() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Count returns how many cells hold mark.
func (b Board) Count(mark Cell) int {
	n := 0
	for _, c := range b {
		if c == mark {
			n++
		}
	}
	return n
}

// IsLegal reports whether the mark counts differ by at most one.
func (b Board) IsLegal() bool {
	d := b.Count(X) - b.Count(O)
	return d >= -1 && d <= 1
}

// NextMark guesses the side to move from the counts, assuming X opened.
func (b Board) NextMark() Cell {
	if b.Count(X) > b.Count(O) {
		return O
	}
	return X
}

// HasWon reports whether mark occupies any full line.
func (b Board) HasWon(mark Cell) bool {
	_, ok := b.WinningLine(mark)
	return ok
}

// WinningLine returns the first line fully held by mark.
func (b Board) WinningLine(mark Cell) ([3]int, bool) {
	if !mark.IsMark() {
		return [3]int{}, false
	}
	for _, ln := range Lines {
		if b[ln[0]] == mark && b[ln[1]] == mark && b[ln[2]] == mark {
			return ln, true
		}
	}
	return [3]int{}, false
}

// Winner returns the mark holding a full line, or Empty.
func (b Board) Winner() Cell {
	switch {
	case b.HasWon(X):
		return X
	case b.HasWon(O):
		return O
	}
	return Empty
}

// IsTerminal reports a win for either side or a full board.
func (b Board) IsTerminal() bool {
	return b.Winner() != Empty || b.IsFull()
}

// String encodes the board as nine characters, '.' for empty cells.
func (b Board) String() string {
	var s strings.Builder
	s.Grow(len(b))
	for _, c := range b {
		if c == Empty {
			s.WriteByte('.')
			continue
		}
		s.WriteString(c.String())
	}
	return s.String()
}

// ParseBoard reads the nine character encoding produced by String. Empty cells
// may also be written as '-', '_' or a space.
func ParseBoard(s string) (Board, error) {
	var b Board
	if len(s) != len(b) {
		return b, fmt.Errorf("%w: want %d cells, got %d", ErrInvalidBoard, len(b), len(s))
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'X', 'x':
			b[i] = X
		case 'O', 'o':
			b[i] = O
		case '.', '-', '_', ' ':
			b[i] = Empty
		default:
			return Board{}, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidBoard, s[i], i)
		}
	}
	return b, nil
}
