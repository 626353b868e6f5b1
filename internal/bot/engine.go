package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"ctchen222/tictactoe-solver/internal/game"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	tracer = otel.Tracer("bot")
	meter  = otel.Meter("bot")
)

// ErrBoardFull is returned when a search is requested on a board with no empty cell.
var ErrBoardFull = errors.New("board is full")

// ResultCache stores search results by position key.
type ResultCache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, r Result) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithAlphaBeta prunes branches that cannot change the result. The chosen
// move and score are the same as without pruning.
func WithAlphaBeta() Option {
	return func(e *Engine) { e.opts.alphaBeta = true }
}

// WithMaxDepth stops the search after depth plies and scores the frontier
// with a static line count. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) { e.opts.maxDepth = max(depth, 0) }
}

// WithDepthDiscount scores wins as WinScore-depth and losses as
// depth-WinScore so that faster wins and slower losses are preferred.
func WithDepthDiscount() Option {
	return func(e *Engine) { e.opts.depthPenalty = true }
}

// WithParallelRoot searches every root move in its own goroutine on its own
// copy of the board.
func WithParallelRoot() Option {
	return func(e *Engine) { e.opts.parallelRoot = true }
}

// WithCache consults c before searching and stores fresh results in it.
func WithCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// Engine is the configurable front door to the search.
type Engine struct {
	opts  options
	cache ResultCache

	searches  metric.Int64Counter
	cacheHits metric.Int64Counter
	nodes     metric.Int64Histogram
}

// NewEngine creates an engine. Without options it behaves exactly like Search.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.searches, err = meter.Int64Counter("bot.searches", metric.WithDescription("Searches run by the engine")); err != nil {
		slog.Warn("failed to create searches counter", "error", err)
		e.searches = noop.Int64Counter{}
	}
	if e.cacheHits, err = meter.Int64Counter("bot.cache.hits", metric.WithDescription("Searches answered from the result cache")); err != nil {
		slog.Warn("failed to create cache hits counter", "error", err)
		e.cacheHits = noop.Int64Counter{}
	}
	if e.nodes, err = meter.Int64Histogram("bot.search.nodes", metric.WithDescription("Nodes visited per search")); err != nil {
		slog.Warn("failed to create nodes histogram", "error", err)
		e.nodes = noop.Int64Histogram{}
	}
	return e
}

// CacheKey identifies a position and the options that affect its score.
func (e *Engine) CacheKey(b game.Board, toMove game.PlayerMark) string {
	key := fmt.Sprintf("%s:%s:d%d", b.Key(), toMove, e.opts.maxDepth)
	if e.opts.depthPenalty {
		key += ":discount"
	}
	return key
}

// BestMove validates the position and returns the optimal move for toMove.
func (e *Engine) BestMove(ctx context.Context, b game.Board, toMove game.PlayerMark) (Result, error) {
	if b.Layout() == nil {
		return Result{}, fmt.Errorf("%w: board has no layout", game.ErrInvalidBoard)
	}
	ctx, span := tracer.Start(ctx, "bot.BestMove", trace.WithAttributes(
		attribute.String("board", b.Key()),
		attribute.String("player", string(toMove)),
	))
	defer span.End()

	if !toMove.Valid() {
		err := fmt.Errorf("%w: %q", game.ErrInvalidPlayer, toMove)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid player")
		return Result{}, err
	}
	switch game.Classify(b) {
	case game.XWins, game.OWins:
		span.SetStatus(codes.Error, "Game already finished")
		return Result{}, game.ErrGameOver
	case game.Draw:
		span.SetStatus(codes.Error, "Board is full")
		return Result{}, ErrBoardFull
	}

	key := e.CacheKey(b, toMove)
	if e.cache != nil {
		r, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "result cache lookup failed", "key", key, "error", err)
			span.RecordError(err)
		} else if ok {
			e.cacheHits.Add(ctx, 1)
			span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("move", r.Move))
			return r, nil
		}
	}

	var (
		r   Result
		err error
	)
	if e.opts.parallelRoot {
		r, err = e.searchParallel(ctx, b, toMove)
	} else {
		r, err = e.search(ctx, b, toMove)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search aborted")
		return Result{}, err
	}

	e.searches.Add(ctx, 1)
	e.nodes.Record(ctx, int64(r.Nodes))
	span.SetAttributes(
		attribute.Bool("cache.hit", false),
		attribute.Int("move", r.Move),
		attribute.Int("score", r.Score),
		attribute.Int("nodes", r.Nodes),
	)

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, r); err != nil {
			slog.WarnContext(ctx, "result cache store failed", "key", key, "error", err)
			span.RecordError(err)
		}
	}
	return r, nil
}

func (e *Engine) search(ctx context.Context, b game.Board, toMove game.PlayerMark) (Result, error) {
	s := newSearcher(ctx, b, toMove, e.opts)
	score, move := s.minimax(toMove, 0, math.MinInt, math.MaxInt)
	if s.aborted {
		return Result{}, ctx.Err()
	}
	return Result{Score: score, Move: move, Nodes: s.nodes}, nil
}

// searchParallel scores each root move independently and merges them in
// ascending index order, keeping the first of equal scores.
func (e *Engine) searchParallel(ctx context.Context, b game.Board, toMove game.PlayerMark) (Result, error) {
	empty := game.EmptyCells(b)
	scores := make([]int, len(empty))
	nodes := make([]int, len(empty))

	g, gctx := errgroup.WithContext(ctx)
	for k, i := range empty {
		g.Go(func() error {
			s := newSearcher(gctx, b, toMove, e.opts)
			s.board.Set(i, toMove)
			scores[k], _ = s.minimax(toMove.Opponent(), 1, math.MinInt, math.MaxInt)
			nodes[k] = s.nodes
			if s.aborted {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	r := Result{Score: 0, Move: NoMove, Nodes: 1}
	for k, i := range empty {
		r.Nodes += nodes[k]
		if r.Move == NoMove || scores[k] > r.Score {
			r.Score, r.Move = scores[k], i
		}
	}
	return r, nil
}
