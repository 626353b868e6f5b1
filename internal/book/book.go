package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"ctchen222/tictactoe-solver/internal/bot"
	"ctchen222/tictactoe-solver/internal/game"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("book")

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	key   TEXT PRIMARY KEY,
	score INTEGER NOT NULL,
	move  INTEGER NOT NULL
);`

const upsert = `INSERT INTO positions (key, score, move) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET score = excluded.score, move = excluded.move`

// Solver is the part of an engine a book is built from.
type Solver interface {
	BestMove(ctx context.Context, b game.Board, toMove game.PlayerMark) (bot.Result, error)
	CacheKey(b game.Board, toMove game.PlayerMark) string
}

type entry struct {
	Key   string `db:"key"`
	Score int    `db:"score"`
	Move  int    `db:"move"`
}

// Book is a table of solved positions stored in SQLite. It satisfies
// bot.ResultCache, so it can sit in front of an engine.
type Book struct {
	db *sqlx.DB
}

// Open opens or creates the book at path and makes sure the schema exists.
// Use ":memory:" for a throwaway book.
func Open(ctx context.Context, path string) (*Book, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open book %s: %w", path, err)
	}
	// A pool would hand each connection its own in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create positions table: %w", err)
	}
	slog.InfoContext(ctx, "opened position book", "book.path", path)
	return &Book{db: db}, nil
}

func (bk *Book) Close() error {
	return bk.db.Close()
}

// Get looks up a stored result.
func (bk *Book) Get(ctx context.Context, key string) (bot.Result, bool, error) {
	var e entry
	err := bk.db.GetContext(ctx, &e, `SELECT key, score, move FROM positions WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return bot.Result{}, false, nil
	}
	if err != nil {
		return bot.Result{}, false, fmt.Errorf("failed to get position %s: %w", key, err)
	}
	return bot.Result{Score: e.Score, Move: e.Move}, true, nil
}

// Set stores r under key, replacing any earlier entry.
func (bk *Book) Set(ctx context.Context, key string, r bot.Result) error {
	if _, err := bk.db.ExecContext(ctx, upsert, key, r.Score, r.Move); err != nil {
		return fmt.Errorf("failed to store position %s: %w", key, err)
	}
	return nil
}

// Count returns the number of stored positions.
func (bk *Book) Count(ctx context.Context) (int, error) {
	var n int
	if err := bk.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM positions`); err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}
	return n, nil
}

// Build solves every undecided position reachable from root, with either
// player moving first, and stores the results in a single transaction. It
// returns the number of positions written. s must not read from bk.
func (bk *Book) Build(ctx context.Context, s Solver, root game.Board) (int, error) {
	ctx, span := tracer.Start(ctx, "book.Build", trace.WithAttributes(
		attribute.String("board", root.Key()),
	))
	defer span.End()

	n, err := bk.build(ctx, s, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to build book")
		return 0, err
	}
	span.SetAttributes(attribute.Int("positions", n))
	slog.InfoContext(ctx, "built position book", "board", root.Key(), "positions", n)
	return n, nil
}

func (bk *Book) build(ctx context.Context, s Solver, root game.Board) (int, error) {
	tx, err := bk.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	store := func(p game.Position) error {
		if game.Classify(p.Board).Finished() {
			return nil
		}
		r, err := s.BestMove(ctx, p.Board, p.ToMove)
		if err != nil {
			return fmt.Errorf("failed to solve %s for %s: %w", p.Board, p.ToMove, err)
		}
		key := s.CacheKey(p.Board, p.ToMove)
		if _, err := stmt.ExecContext(ctx, key, r.Score, r.Move); err != nil {
			return fmt.Errorf("failed to store position %s: %w", key, err)
		}
		n++
		return nil
	}

	for _, first := range []game.PlayerMark{game.PlayerX, game.PlayerO} {
		if err := game.Walk(root, first, store); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit book: %w", err)
	}
	return n, nil
}
