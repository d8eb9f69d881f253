package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/domain"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/engine"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
)

// EnginePlayerID occupies the engine's seat in engine matches.
const EnginePlayerID = "engine"

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID      string
	Match   Match
	X       string
	O       string
	Created time.Time
	Updated time.Time
}

// Seat returns the mark held by playerID, or Empty for spectators.
func (gs GameState) Seat(playerID string) domain.Cell {
	switch {
	case playerID == "":
		return domain.Empty
	case gs.X == playerID:
		return domain.X
	case gs.O == playerID:
		return domain.O
	}
	return domain.Empty
}

// CreateOptions configures a new game.
type CreateOptions struct {
	Mode Mode
	// Human is the mark of the human player in engine mode; X when unset.
	Human domain.Cell
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send delivers p without blocking. It reports false when the buffer is full.
func (s *subscriber) send(p []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- p:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Service manages games and subscribers.
type Service struct {
	mu      sync.Mutex
	games   map[string]*GameState
	subs    map[string]map[*subscriber]struct{}
	render  func(GameState) []byte
	engine  MovePicker
	starter func() domain.Cell
	log     *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithEngine sets the move picker used for engine matches.
func WithEngine(p MovePicker) Option { return func(s *Service) { s.engine = p } }

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithStarter sets how two-player games choose their opening mark.
func WithStarter(f func() domain.Cell) Option { return func(s *Service) { s.starter = f } }

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService(opts ...Option) *Service { return NewServiceWithRenderer(nil, opts...) }

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(GameState) []byte, opts ...Option) *Service {
	if renderer == nil {
		renderer = func(gs GameState) []byte { return nil }
	}
	s := &Service{
		games:   make(map[string]*GameState),
		subs:    make(map[string]map[*subscriber]struct{}),
		render:  renderer,
		starter: RandomStarter,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = engine.New(s.log)
	}
	return s
}

// RandomStarter picks X or O with equal odds.
func RandomStarter() domain.Cell {
	if rand.Intn(2) == 0 {
		return domain.X
	}
	return domain.O
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(gs GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// CreateGame creates and registers a new game. In engine mode the engine
// takes its seat immediately and opens when the human plays O.
func (s *Service) CreateGame(opts CreateOptions) (*GameState, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeEngine
	}

	var gs *GameState
	now := time.Now()
	id := uuid.NewString()
	switch mode {
	case ModeEngine:
		human := opts.Human
		if human == domain.Empty {
			human = domain.X
		}
		m, err := NewEngineMatch(human, s.engine)
		if err != nil {
			return nil, err
		}
		gs = &GameState{ID: id, Match: m, Created: now, Updated: now}
		if human == domain.X {
			gs.O = EnginePlayerID
		} else {
			gs.X = EnginePlayerID
		}
	case ModeTwoPlayer:
		gs = &GameState{ID: id, Match: NewTwoPlayerMatch(s.starter()), Created: now, Updated: now}
	default:
		return nil, ErrInvalidMode
	}

	s.mu.Lock()
	s.games[id] = gs
	s.mu.Unlock()

	s.log.Info("game created", "id", id, "mode", string(mode), "first", gs.Match.Game.Turn.String())
	cp := *gs
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	side := domain.Empty
	if playerID != "" && playerID != EnginePlayerID {
		if gs.X == "" || gs.X == playerID {
			gs.X = playerID
			side = domain.X
		} else if gs.O == "" || gs.O == playerID {
			gs.O = playerID
			side = domain.O
		}
	}
	gs.Updated = time.Now()
	cp := *gs
	return side, &cp, nil
}

// Play validates seat and turn, applies a move, lets the engine reply when it
// is an engine match, updates timestamps, and broadcasts.
func (s *Service) Play(id, playerID string, r, c int) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	// Validate player is seated
	seat := gs.Seat(playerID)
	if seat == domain.Empty || playerID == EnginePlayerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	// Validate turn
	if !gs.Match.Game.Over && seat != gs.Match.Game.Turn {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	if r < 0 || r > 2 || c < 0 || c > 2 {
		s.mu.Unlock()
		if gs.Match.Game.Over {
			return nil, domain.ErrGameOver
		}
		return nil, domain.ErrOutOfBounds
	}
	// Apply move, and the engine's reply if any
	prev := gs.Match
	if err := gs.Match.Play(r*3+c, s.engine); err != nil {
		gs.Match = prev
		s.mu.Unlock()
		if errors.Is(err, engine.ErrInvalidState) {
			s.log.Error("engine failed", "id", id, "board", gs.Match.Game.Board.String(), "error", err)
		}
		return nil, err
	}
	gs.Updated = time.Now()
	if gs.Match.Game.Over {
		s.log.Info("game over", "id", id, "winner", gs.Match.Game.Winner.String(), "outcome", string(gs.Match.Outcome()))
	}
	return s.publishLocked(id, gs), nil
}

// Reset puts a seated player's game back to an empty board. Two-player games
// draw a new opening mark.
func (s *Service) Reset(id, playerID string) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if gs.Seat(playerID) == domain.Empty || playerID == EnginePlayerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if err := gs.Match.Reset(s.starter(), s.engine); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.Updated = time.Now()
	s.log.Info("game reset", "id", id, "first", gs.Match.Game.Turn.String())
	return s.publishLocked(id, gs), nil
}

// publishLocked snapshots gs, releases the lock and fans the rendered state
// out to subscribers. It must be called with s.mu held.
func (s *Service) publishLocked(id string, gs *GameState) *GameState {
	var toDrop []*subscriber

	// Snapshot state and subscribers
	cp := *gs
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
		s.log.Debug("dropped slow subscribers", "id", id, "count", len(toDrop))
	}
	return &cp
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
// Unknown ids get a closed channel.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber{ch: make(chan []byte, 1)}
	if _, ok := s.games[id]; !ok {
		sub.close()
		return sub.ch, func() {}
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
