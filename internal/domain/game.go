package domain

import "errors"

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
	Board  Board
	Turn   Cell
	Winner Cell
	Over   bool
	Moves  int
}

// ErrGameOver is returned for moves after a win or draw.
var ErrGameOver = errors.New("game over")

// New returns a new game with X to move.
func New() Game {
	return Game{Turn: X}
}

// NewWithTurn returns a new game where first moves first.
func NewWithTurn(first Cell) Game {
	if !first.IsMark() {
		first = X
	}
	return Game{Turn: first}
}

// Play attempts to play the current turn at row r, column c (0..2).
func (g *Game) Play(r, c int) error {
	if r < 0 || r > 2 || c < 0 || c > 2 {
		if g.Over {
			return ErrGameOver
		}
		return ErrOutOfBounds
	}
	return g.PlayIndex(r*3 + c)
}

// PlayIndex plays the current turn at a row-major index.
func (g *Game) PlayIndex(idx int) error {
	if g.Over {
		return ErrGameOver
	}
	if err := g.Board.Apply(idx, g.Turn); err != nil {
		return err
	}
	g.Moves++

	if g.Board.HasWon(g.Turn) {
		g.Winner = g.Turn
		g.Over = true
		return nil
	}
	if g.Board.IsFull() {
		g.Winner = Empty
		g.Over = true
		return nil
	}

	g.Turn = g.Turn.Opponent()
	return nil
}
