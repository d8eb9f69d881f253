package app

import (
	"errors"
	"fmt"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/domain"
)

// Mode selects who plays the second seat.
type Mode string

const (
	ModeEngine    Mode = "engine"
	ModeTwoPlayer Mode = "two-player"
)

// ParseMode accepts the mode names used in forms and flags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEngine, "":
		return ModeEngine, nil
	case ModeTwoPlayer, "hotseat":
		return ModeTwoPlayer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Outcome is the result of a finished engine match from the human's side.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "WIN"
	OutcomeLose Outcome = "LOSE"
	OutcomeDraw Outcome = "DRAW"
)

// MovePicker chooses the engine's reply.
type MovePicker interface {
	BestMove(b domain.Board, engineMark, humanMark domain.Cell) (int, error)
}

// ErrInvalidMode is returned for unknown modes or marks.
var ErrInvalidMode = errors.New("invalid mode")

// Match drives one game: the human move, the termination check and, in engine
// mode, the engine's reply. It holds no references, so copies are snapshots.
type Match struct {
	Mode  Mode
	Human domain.Cell
	Game  domain.Game
	// LastMove is the index of the most recent move, -1 before the first.
	LastMove int
	// EngineMove is the engine's most recent reply, -1 if none.
	EngineMove int
}

// NewEngineMatch starts a human versus engine match. X always opens, so the
// engine plays first when the human takes O.
func NewEngineMatch(human domain.Cell, picker MovePicker) (Match, error) {
	if !human.IsMark() {
		return Match{}, fmt.Errorf("%w: human mark %q", ErrInvalidMode, human.String())
	}
	m := Match{Mode: ModeEngine, Human: human, Game: domain.New(), LastMove: -1, EngineMove: -1}
	if m.Game.Turn != human {
		if err := m.engineReply(picker); err != nil {
			return Match{}, err
		}
	}
	return m, nil
}

// NewTwoPlayerMatch starts a hotseat match where first moves first.
func NewTwoPlayerMatch(first domain.Cell) Match {
	return Match{Mode: ModeTwoPlayer, Game: domain.NewWithTurn(first), LastMove: -1, EngineMove: -1}
}

// EngineMark returns the engine's mark, or Empty in two-player mode.
func (m Match) EngineMark() domain.Cell {
	if m.Mode != ModeEngine {
		return domain.Empty
	}
	return m.Human.Opponent()
}

// Play applies the current mover's mark at idx. In engine mode the engine
// answers straight away unless the move ended the game.
func (m *Match) Play(idx int, picker MovePicker) error {
	if err := m.Game.PlayIndex(idx); err != nil {
		return err
	}
	m.LastMove = idx
	if m.Mode != ModeEngine || m.Game.Over {
		return nil
	}
	return m.engineReply(picker)
}

func (m *Match) engineReply(picker MovePicker) error {
	if picker == nil {
		return errors.New("engine match without a move picker")
	}
	mark := m.EngineMark()
	idx, err := picker.BestMove(m.Game.Board, mark, m.Human)
	if err != nil {
		return fmt.Errorf("engine move: %w", err)
	}
	if err := m.Game.PlayIndex(idx); err != nil {
		return fmt.Errorf("engine move %d: %w", idx, err)
	}
	m.LastMove = idx
	m.EngineMove = idx
	return nil
}

// Outcome reports WIN, LOSE or DRAW for the human once an engine match is
// over. Two-player matches only report DRAW; read Game.Winner for the rest.
func (m Match) Outcome() Outcome {
	if !m.Game.Over {
		return OutcomeNone
	}
	switch m.Game.Winner {
	case domain.Empty:
		return OutcomeDraw
	case m.Human:
		return OutcomeWin
	}
	if m.Mode == ModeEngine {
		return OutcomeLose
	}
	return OutcomeNone
}

// Reset clears the board. first picks the opening mark of a two-player match
// and is ignored in engine mode.
func (m *Match) Reset(first domain.Cell, picker MovePicker) error {
	if m.Mode == ModeEngine {
		fresh, err := NewEngineMatch(m.Human, picker)
		if err != nil {
			return err
		}
		*m = fresh
		return nil
	}
	*m = NewTwoPlayerMatch(first)
	return nil
}
