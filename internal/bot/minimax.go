package bot

import (
	"context"
	"math"

	"ctchen222/tictactoe-solver/internal/game"
)

// Scores at terminal positions, seen from the player the search runs for.
const (
	WinScore  = 10
	TieScore  = 0
	LossScore = -WinScore

	// NoMove marks a result without a move (terminal or full board).
	NoMove = -1
)

// largeWinScore replaces WinScore on boards bigger than 3×3 so that discounted
// wins stay above the static evaluation.
const largeWinScore = 1000

// checkEvery is how many nodes pass between context checks.
const checkEvery = 1 << 12

// Result is the score of a position and the move that reaches it.
type Result struct {
	Score int `json:"score"`
	Move  int `json:"move"`
	Nodes int `json:"nodes"`
}

// HasMove reports whether the result carries a move.
func (r Result) HasMove() bool { return r.Move != NoMove }

type options struct {
	alphaBeta    bool
	maxDepth     int
	depthPenalty bool
	parallelRoot bool
}

// Search runs a full-depth minimax for toMove and returns the best move with
// its score. Ties between equally scored moves go to the lowest index. The
// board passed in is never modified.
//
// A full or already decided board yields a moveless result scored from the
// terminal branch. An invalid player or an unconstructed board yields a
// moveless tie.
func Search(b game.Board, toMove game.PlayerMark) Result {
	if !toMove.Valid() || b.Layout() == nil {
		return Result{Score: TieScore, Move: NoMove}
	}
	s := newSearcher(context.Background(), b, toMove, options{})
	score, move := s.minimax(toMove, 0, math.MinInt, math.MaxInt)
	return Result{Score: score, Move: move, Nodes: s.nodes}
}

// searcher owns a private working copy of the board for one search.
type searcher struct {
	ctx     context.Context
	board   game.Board
	root    game.PlayerMark
	opts    options
	win     int
	nodes   int
	aborted bool
}

func newSearcher(ctx context.Context, b game.Board, root game.PlayerMark, opts options) *searcher {
	win := WinScore
	if b.Layout().Side() > game.MinSide {
		win = largeWinScore
	}
	return &searcher{
		ctx:   ctx,
		board: b.Clone(),
		root:  root,
		opts:  opts,
		win:   win,
	}
}

func (s *searcher) winAt(depth int) int {
	if s.opts.depthPenalty {
		return s.win - depth
	}
	return s.win
}

func (s *searcher) lossAt(depth int) int {
	return -s.winAt(depth)
}

// minimax scores the working board with toMove to play. The root player
// maximizes, its opponent minimizes.
func (s *searcher) minimax(toMove game.PlayerMark, depth, alpha, beta int) (int, int) {
	s.nodes++
	if s.nodes%checkEvery == 0 && s.ctx.Err() != nil {
		s.aborted = true
	}
	if s.aborted {
		return TieScore, NoMove
	}

	if game.HasWin(s.board, s.root.Opponent()) {
		return s.lossAt(depth), NoMove
	}
	if game.HasWin(s.board, s.root) {
		return s.winAt(depth), NoMove
	}
	empty := game.EmptyCells(s.board)
	if len(empty) == 0 {
		return TieScore, NoMove
	}
	if s.opts.maxDepth > 0 && depth >= s.opts.maxDepth {
		return s.evaluate(), NoMove
	}

	maximizing := toMove == s.root
	best, bestMove := 0, NoMove
	for _, i := range empty {
		score := s.try(i, toMove, depth, alpha, beta)
		if bestMove == NoMove || (maximizing && score > best) || (!maximizing && score < best) {
			best, bestMove = score, i
		}
		if !s.opts.alphaBeta {
			continue
		}
		if maximizing {
			alpha = max(alpha, best)
		} else {
			beta = min(beta, best)
		}
		if alpha >= beta {
			break
		}
	}
	return best, bestMove
}

// try places mark at i, scores the reply and takes the mark back on every
// exit path.
func (s *searcher) try(i int, mark game.PlayerMark, depth, alpha, beta int) int {
	s.board.Set(i, mark)
	defer s.board.Set(i, game.None)

	score, _ := s.minimax(mark.Opponent(), depth+1, alpha, beta)
	return score
}

// evaluate is the static score used below the depth cap: lines still open to
// the root minus lines still open to its opponent. It stays strictly inside
// the win score.
func (s *searcher) evaluate() int {
	opp := s.root.Opponent()
	score := 0
	for _, line := range s.board.Layout().Lines() {
		var mine, theirs bool
		for _, i := range line {
			switch s.board.At(i) {
			case s.root:
				mine = true
			case opp:
				theirs = true
			}
		}
		switch {
		case mine && !theirs:
			score++
		case theirs && !mine:
			score--
		}
	}
	return score
}
