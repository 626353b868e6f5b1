package game

import (
	"math/rand/v2"
)

// Game tracks a board, whose turn it is and the outcome after every placement.
type Game struct {
	Board       Board
	CurrentTurn PlayerMark
	Outcome     Outcome
	Moves       []int
}

// NewGame starts a game on an empty board with first to move.
func NewGame(l *Layout, first PlayerMark) (*Game, error) {
	if !first.Valid() {
		return nil, ErrInvalidPlayer
	}
	return &Game{
		Board:       NewBoard(l),
		CurrentTurn: first,
		Outcome:     InProgress,
	}, nil
}

// Move places the current player's mark at index and passes the turn.
func (g *Game) Move(index int) error {
	if g.Outcome.Finished() {
		return ErrGameOver
	}
	next, err := g.Board.Place(index, g.CurrentTurn)
	if err != nil {
		return err
	}

	g.Board = next
	g.Moves = append(g.Moves, index)
	g.CurrentTurn = g.CurrentTurn.Opponent()
	g.Outcome = Classify(g.Board)
	return nil
}

// Winner returns the winning mark, or None while in progress or drawn.
func (g *Game) Winner() PlayerMark {
	return g.Outcome.Winner()
}

// IsDraw checks if the game is a draw.
func (g *Game) IsDraw() bool {
	return g.Outcome == Draw
}

// RandomlyChooseFirstPlayer picks X or O with equal probability.
func RandomlyChooseFirstPlayer() PlayerMark {
	if rand.IntN(2) == 0 {
		return PlayerX
	}
	return PlayerO
}
