package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ctchen222/tictactoe-solver/internal/bot"
	"ctchen222/tictactoe-solver/internal/events"
	"ctchen222/tictactoe-solver/internal/game"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// MoveCalculator picks the machine's reply.
type MoveCalculator interface {
	CalculateNextMove(ctx context.Context, board game.Board, mark game.PlayerMark, difficulty string) (int, error)
}

// View is a snapshot of a session safe to hand out.
type View struct {
	ID          string          `json:"id"`
	Difficulty  string          `json:"difficulty"`
	Board       game.Board      `json:"board"`
	CurrentTurn game.PlayerMark `json:"current_turn"`
	Outcome     game.Outcome    `json:"outcome"`
	Winner      game.PlayerMark `json:"winner,omitempty"`
	Moves       []int           `json:"moves"`
	MachineMove int             `json:"machine_move"`
	Message     string          `json:"message,omitempty"`
}

type session struct {
	mu          sync.Mutex
	id          string
	owner       string
	difficulty  string
	game        *game.Game
	machineMove int
	createdAt   time.Time
}

func (s *session) view() View {
	return View{
		ID:          s.id,
		Difficulty:  s.difficulty,
		Board:       s.game.Board.Clone(),
		CurrentTurn: s.game.CurrentTurn,
		Outcome:     s.game.Outcome,
		Winner:      s.game.Winner(),
		Moves:       append([]int(nil), s.game.Moves...),
		MachineMove: s.machineMove,
		Message:     Announce(s.game.Outcome),
	}
}

// Manager keeps human-versus-machine games in memory. The human always plays
// game.Human and the machine game.Machine.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	calc      MoveCalculator
	publisher events.Publisher
}

// NewManager creates a manager. A nil publisher drops finished-game events.
func NewManager(calc MoveCalculator, publisher events.Publisher) *Manager {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Manager{
		sessions:  make(map[string]*session),
		calc:      calc,
		publisher: publisher,
	}
}

// Announce returns the message shown to the human for a finished game.
func Announce(o game.Outcome) string {
	switch o.Winner() {
	case game.Human:
		return "You win!"
	case game.Machine:
		return "The machine wins."
	}
	if o == game.Draw {
		return "It's a tie."
	}
	return ""
}

func validDifficulty(d string) bool {
	switch d {
	case bot.Easy, bot.Medium, bot.Hard:
		return true
	}
	return false
}

// Create starts a session for owner. When the machine moves first its reply
// is already on the returned board. An empty difficulty means hard.
func (m *Manager) Create(ctx context.Context, owner, difficulty string, humanFirst bool) (View, error) {
	if difficulty == "" {
		difficulty = bot.Hard
	}
	ctx, span := tracer.Start(ctx, "session.Create", trace.WithAttributes(
		attribute.String("player.id", owner),
		attribute.String("game.difficulty", difficulty),
		attribute.Bool("game.human_first", humanFirst),
	))
	defer span.End()

	if !validDifficulty(difficulty) {
		span.SetStatus(codes.Error, "Invalid difficulty")
		return View{}, fmt.Errorf("%w: %q", ErrInvalidDifficulty, difficulty)
	}

	first := game.Machine
	if humanFirst {
		first = game.Human
	}
	g, err := game.NewGame(game.Standard, first)
	if err != nil {
		return View{}, err
	}
	s := &session{
		id:          uuid.NewString(),
		owner:       owner,
		difficulty:  difficulty,
		game:        g,
		machineMove: bot.NoMove,
		createdAt:   time.Now(),
	}
	span.SetAttributes(attribute.String("session.id", s.id))

	s.mu.Lock()
	defer s.mu.Unlock()
	if !humanFirst {
		if err := m.machineReply(ctx, s); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Machine failed to open")
			return View{}, err
		}
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	slog.InfoContext(ctx, "session created", "session.id", s.id, "player.id", owner, "game.difficulty", difficulty)
	return s.view(), nil
}

func (m *Manager) lookup(id, owner string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.owner != owner {
		return nil, ErrNotFound
	}
	return s, nil
}

// Get returns the current state of a session owned by owner.
func (m *Manager) Get(id, owner string) (View, error) {
	s, err := m.lookup(id, owner)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Play applies the human move at index and, if the game goes on, the
// machine's reply. Occupied or out-of-range cells, finished games and a
// failed machine reply are rejected without changing the session.
func (m *Manager) Play(ctx context.Context, id, owner string, index int) (View, error) {
	ctx, span := tracer.Start(ctx, "session.Play", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("move.index", index),
	))
	defer span.End()

	s, err := m.lookup(id, owner)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot()
	if err := s.game.Move(index); err != nil {
		slog.WarnContext(ctx, "invalid move from player", "session.id", id, "move.index", index, "error", err)
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid move")
		return View{}, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))
	s.machineMove = bot.NoMove

	if s.game.Outcome.Finished() {
		m.finish(ctx, s)
		return s.view(), nil
	}
	if err := m.machineReply(ctx, s); err != nil {
		s.restore(prev)
		slog.WarnContext(ctx, "machine failed to reply, move undone", "session.id", id, "move.index", index, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Machine failed to reply")
		return View{}, err
	}
	return s.view(), nil
}

type snapshot struct {
	game        game.Game
	machineMove int
}

func (s *session) snapshot() snapshot {
	g := *s.game
	g.Board = s.game.Board.Clone()
	g.Moves = append([]int(nil), s.game.Moves...)
	return snapshot{game: g, machineMove: s.machineMove}
}

func (s *session) restore(snap snapshot) {
	*s.game = snap.game
	s.machineMove = snap.machineMove
}

// machineReply plays the machine's move. s.mu must be held.
func (m *Manager) machineReply(ctx context.Context, s *session) error {
	move, err := m.calc.CalculateNextMove(ctx, s.game.Board, game.Machine, s.difficulty)
	if err != nil {
		return fmt.Errorf("failed to calculate machine move: %w", err)
	}
	if err := s.game.Move(move); err != nil {
		return fmt.Errorf("machine move %d rejected: %w", move, err)
	}
	s.machineMove = move
	if s.game.Outcome.Finished() {
		m.finish(ctx, s)
	}
	return nil
}

func (m *Manager) finish(ctx context.Context, s *session) {
	slog.InfoContext(ctx, "game finished", "session.id", s.id, "game.outcome", s.game.Outcome)

	ev, err := events.NewEvent(events.GameFinished, events.GameFinishedPayload{
		SessionID: s.id,
		Outcome:   s.game.Outcome,
		Winner:    s.game.Winner(),
		Moves:     append([]int(nil), s.game.Moves...),
	})
	if err == nil {
		err = m.publisher.Publish(ctx, ev)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish game_finished event", "session.id", s.id, "error", err)
	}
}

// Delete removes a session. Deleting an unknown session is not an error.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Prune removes sessions created before cutoff and returns how many went.
func (m *Manager) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.createdAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
