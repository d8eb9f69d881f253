// Package engine picks perfect-play tic-tac-toe moves with exhaustive minimax.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/domain"
)

// Scores are relative to the mark that started the search.
const (
	WinScore  = 10
	LossScore = -10
	DrawScore = 0
)

// ErrInvalidState is returned when a search is asked for a position that has no
// move to make, or for a pair of marks that are not X and O.
var ErrInvalidState = errors.New("invalid search state")

// SearchResult is the chosen move and its minimax score. Nodes counts the
// positions visited to reach it.
type SearchResult struct {
	Move  int
	Score int
	Nodes int
}

// Search returns the optimal move for mark on b assuming opponent replies
// optimally. Ties keep the lowest index. b is not modified.
func Search(b domain.Board, mark, opponent domain.Cell) (SearchResult, error) {
	if !mark.IsMark() || opponent != mark.Opponent() {
		return SearchResult{}, fmt.Errorf("%w: marks %s and %s", ErrInvalidState, mark, opponent)
	}
	if w := b.Winner(); w != domain.Empty {
		return SearchResult{}, fmt.Errorf("%w: %s has already won", ErrInvalidState, w)
	}
	if b.IsFull() {
		return SearchResult{}, fmt.Errorf("%w: board is full", ErrInvalidState)
	}

	s := searcher{self: mark, opponent: opponent}
	res := s.minimax(&b, mark)
	res.Nodes = s.nodes
	return res, nil
}

type searcher struct {
	self     domain.Cell
	opponent domain.Cell
	nodes    int
}

func (s *searcher) minimax(b *domain.Board, mover domain.Cell) SearchResult {
	s.nodes++

	switch {
	case b.HasWon(s.self):
		return SearchResult{Move: -1, Score: WinScore}
	case b.HasWon(s.opponent):
		return SearchResult{Move: -1, Score: LossScore}
	}
	moves := b.AvailableMoves()
	if len(moves) == 0 {
		return SearchResult{Move: -1, Score: DrawScore}
	}

	best := SearchResult{Move: -1}
	for _, m := range moves {
		if err := b.Apply(m, mover); err != nil {
			// AvailableMoves only yields empty cells.
			panic(err)
		}
		score := s.minimax(b, mover.Opponent()).Score
		b.Undo(m)

		better := score > best.Score
		if mover != s.self {
			better = score < best.Score
		}
		if best.Move < 0 || better {
			best = SearchResult{Move: m, Score: score}
		}
	}
	return best
}

// Engine is the move picker handed to game controllers.
type Engine struct {
	log *slog.Logger
}

// New returns an engine that logs its decisions to log. A nil logger uses
// slog.Default.
func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// BestMove returns the index engineMark should play against humanMark.
func (e *Engine) BestMove(b domain.Board, engineMark, humanMark domain.Cell) (int, error) {
	res, err := Search(b, engineMark, humanMark)
	if err != nil {
		e.log.Error("engine search rejected", "board", b.String(), "mark", engineMark.String(), "error", err)
		return -1, err
	}
	e.log.Debug("engine move",
		"board", b.String(),
		"mark", engineMark.String(),
		"move", res.Move,
		"score", res.Score,
		"nodes", res.Nodes,
	)
	return res.Move, nil
}
