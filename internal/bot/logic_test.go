package bot

import (
	"context"
	"slices"
	"testing"

	"ctchen222/tictactoe-solver/internal/game"
)

func mustBoard(t *testing.T, s string) game.Board {
	t.Helper()
	b, err := game.ParseBoard(s)
	if err != nil {
		t.Fatalf("ParseBoard(%q) error = %v", s, err)
	}
	return b
}

func TestFindWinningMove(t *testing.T) {
	tests := []struct {
		name      string
		board     string
		mark      game.PlayerMark
		want      int
		wantFound bool
	}{
		{name: "No winning move - empty board", board: "_________", mark: game.PlayerX, want: NoMove},
		{name: "X can win - first row", board: "XX_OO____", mark: game.PlayerX, want: 2, wantFound: true},
		{name: "O can win - second column", board: "XO_XO____", mark: game.PlayerO, want: 7, wantFound: true},
		{name: "X can win - main diagonal", board: "X___X____", mark: game.PlayerX, want: 8, wantFound: true},
		{name: "O can win - anti-diagonal", board: "__O_O____", mark: game.PlayerO, want: 6, wantFound: true},
		{name: "Completed line has no winning cell", board: "X___X___X", mark: game.PlayerX, want: NoMove},
		{name: "Two threats pick the lower index", board: "_XX___X_X", mark: game.PlayerX, want: 0, wantFound: true},
		{name: "Full board, no win possible", board: "XOXOXOOXO", mark: game.PlayerX, want: NoMove},
		{name: "4x4 row", board: "OOO_XX__________", mark: game.PlayerO, want: 3, wantFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := FindWinningMove(mustBoard(t, tt.board), tt.mark)
			if found != tt.wantFound || got != tt.want {
				t.Errorf("FindWinningMove() got (%d, %v), want (%d, %v)", got, found, tt.want, tt.wantFound)
			}
		})
	}
}

func TestEasyMove(t *testing.T) {
	t.Run("Only one spot left", func(t *testing.T) {
		board := mustBoard(t, "XOXOXOX_O")
		if got := easyMove(board); got != 7 {
			t.Errorf("easyMove should pick the only available spot 7, but got %d", got)
		}
	})

	t.Run("Multiple spots left - check validity", func(t *testing.T) {
		board := mustBoard(t, "X___O____")
		empty := game.EmptyCells(board)
		for i := 0; i < 50; i++ {
			if got := easyMove(board); !slices.Contains(empty, got) {
				t.Errorf("easyMove returned an invalid move %d", got)
			}
		}
	})

	t.Run("Full board", func(t *testing.T) {
		if got := easyMove(mustBoard(t, "XOXOXOXOX")); got != NoMove {
			t.Errorf("easyMove on a full board should return %d, but got %d", NoMove, got)
		}
	})
}

func TestMediumMove(t *testing.T) {
	tests := []struct {
		name    string
		board   string
		botMark game.PlayerMark
		want    int // NoMove means any empty cell
	}{
		{name: "Bot can win", board: "XX_O_____", botMark: game.PlayerX, want: 2},
		{name: "Bot must block opponent", board: "OO_X_____", botMark: game.PlayerX, want: 2},
		{name: "Win beats block", board: "OO_XX____", botMark: game.PlayerX, want: 5},
		{name: "No immediate win or block, random move", board: "X___O____", botMark: game.PlayerX, want: NoMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := mustBoard(t, tt.board)
			got := mediumMove(board, tt.botMark)
			if tt.want == NoMove {
				if !slices.Contains(game.EmptyCells(board), got) {
					t.Errorf("mediumMove returned a non-empty spot %d for random move", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("mediumMove() got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHardMove(t *testing.T) {
	tests := []struct {
		name    string
		board   string
		botMark game.PlayerMark
		want    int
	}{
		{name: "Bot can win", board: "XX_OO____", botMark: game.PlayerX, want: 2},
		{name: "Bot must block opponent", board: "OO_X_____", botMark: game.PlayerX, want: 2},
		{name: "Answer a corner with the center", board: "O________", botMark: game.PlayerX, want: 4},
		{name: "Finished board", board: "XOXOXOXOX", botMark: game.PlayerO, want: NoMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hardMove(mustBoard(t, tt.board), tt.botMark); got != tt.want {
				t.Errorf("hardMove() got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCalculateNextMove(t *testing.T) {
	tests := []struct {
		name       string
		board      string
		botMark    game.PlayerMark
		difficulty string
		want       int // NoMove with a non-full board means any empty cell
	}{
		{name: "Hard difficulty - winning move", board: "XX_O_____", botMark: game.PlayerX, difficulty: Hard, want: 2},
		{name: "Medium difficulty - blocking move", board: "OO_X_____", botMark: game.PlayerX, difficulty: Medium, want: 2},
		{name: "Easy difficulty - random valid move", board: "_________", botMark: game.PlayerX, difficulty: Easy, want: NoMove},
		{name: "Invalid difficulty - defaults to hard", board: "XX_O_____", botMark: game.PlayerX, difficulty: "invalid", want: 2},
		{name: "Full board - easy difficulty", board: "XOXXOOOXX", botMark: game.PlayerX, difficulty: Easy, want: NoMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := mustBoard(t, tt.board)
			got := CalculateNextMove(board, tt.botMark, tt.difficulty)
			if tt.want == NoMove && !game.IsFull(board) {
				if !slices.Contains(game.EmptyCells(board), got) {
					t.Errorf("CalculateNextMove returned a non-empty spot %d", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("CalculateNextMove() got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBotMoveCalculator(t *testing.T) {
	calc := &BotMoveCalculator{Engine: NewEngine(WithAlphaBeta())}
	ctx := context.Background()

	got, err := calc.CalculateNextMove(ctx, mustBoard(t, "O________"), game.PlayerX, Hard)
	if err != nil {
		t.Fatalf("CalculateNextMove() error = %v", err)
	}
	if got != 4 {
		t.Errorf("CalculateNextMove() = %d, want 4", got)
	}

	if _, err := calc.CalculateNextMove(ctx, mustBoard(t, "XOXXOOOXX"), game.PlayerX, Hard); err == nil {
		t.Error("CalculateNextMove() on a full board returned no error")
	}

	got, err = calc.CalculateNextMove(ctx, mustBoard(t, "OO_X_____"), game.PlayerX, Medium)
	if err != nil || got != 2 {
		t.Errorf("CalculateNextMove(medium) = (%d, %v), want (2, nil)", got, err)
	}
}
