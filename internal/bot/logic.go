package bot

import (
	"context"
	"math/rand/v2"

	"ctchen222/tictactoe-solver/internal/game"

	"github.com/samber/lo"
)

// Difficulty levels understood by CalculateNextMove.
const (
	Easy   = "easy"
	Medium = "medium"
	Hard   = "hard"
)

// BotMoveCalculator answers hard requests through an Engine and the easier
// levels with the heuristics below.
type BotMoveCalculator struct {
	Engine *Engine
}

// CalculateNextMove returns the cell the bot plays, or NoMove on a finished board.
func (c *BotMoveCalculator) CalculateNextMove(ctx context.Context, board game.Board, mark game.PlayerMark, difficulty string) (int, error) {
	switch difficulty {
	case Easy, Medium:
		return CalculateNextMove(board, mark, difficulty), nil
	}
	engine := c.Engine
	if engine == nil {
		engine = NewEngine()
	}
	r, err := engine.BestMove(ctx, board, mark)
	if err != nil {
		return NoMove, err
	}
	return r.Move, nil
}

// CalculateNextMove determines the bot's next move based on the specified difficulty.
func CalculateNextMove(board game.Board, botMark game.PlayerMark, difficulty string) int {
	switch difficulty {
	case Easy:
		return easyMove(board)
	case Medium:
		return mediumMove(board, botMark)
	default:
		return hardMove(board, botMark)
	}
}

// easyMove makes a completely random move.
func easyMove(board game.Board) int {
	availableMoves := game.EmptyCells(board)
	if len(availableMoves) == 0 {
		return NoMove // No moves left
	}
	return availableMoves[rand.IntN(len(availableMoves))]
}

// mediumMove will win if it can, block if it must, otherwise move randomly.
func mediumMove(board game.Board, botMark game.PlayerMark) int {
	// 1. Win: Check if the bot can win in the next move
	if idx, canWin := FindWinningMove(board, botMark); canWin {
		return idx
	}

	// 2. Block: Check if the opponent is about to win and block them
	if idx, canBlock := FindWinningMove(board, botMark.Opponent()); canBlock {
		return idx
	}

	// 3. Random: Otherwise, make a random move
	return easyMove(board)
}

// hardMove plays perfectly.
func hardMove(board game.Board, botMark game.PlayerMark) int {
	if game.Classify(board).Finished() {
		return NoMove
	}
	return Search(board, botMark).Move
}

// FindWinningMove returns the lowest empty cell that completes a line for mark.
func FindWinningMove(board game.Board, mark game.PlayerMark) (int, bool) {
	best := NoMove
	for _, line := range board.Layout().Lines() {
		empty := lo.Filter(line, func(i int, _ int) bool { return board.At(i) == game.None })
		if len(empty) != 1 {
			continue
		}
		if lo.CountBy(line, func(i int) bool { return board.At(i) == mark }) != len(line)-1 {
			continue
		}
		if best == NoMove || empty[0] < best {
			best = empty[0]
		}
	}
	return best, best != NoMove
}
