package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"ctchen222/tictactoe-solver/internal/book"
	"ctchen222/tictactoe-solver/internal/bot"
	"ctchen222/tictactoe-solver/internal/config"
	"ctchen222/tictactoe-solver/internal/game"
	"ctchen222/tictactoe-solver/internal/logger"
)

// solver writes every solved position reachable from a root board to a book.
func main() {
	configPath := flag.String("config", "", "optional config file")
	out := flag.String("out", "", "book file to write, defaults to book_path from the config")
	root := flag.String("root", "_________", "board to start from")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	path := *out
	if path == "" {
		path = cfg.BookPath
	}
	if path == "" {
		slog.Error("no book path given, use -out or TTT_BOOK_PATH")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := solve(ctx, path, *root, cfg.Search); err != nil {
		slog.Error("failed to build book", "error", err)
		os.Exit(1)
	}
}

func solve(ctx context.Context, path, root string, search config.Search) error {
	b, err := game.ParseBoard(root)
	if err != nil {
		return err
	}

	bk, err := book.Open(ctx, path)
	if err != nil {
		return err
	}
	defer bk.Close()

	opts := []bot.Option{bot.WithAlphaBeta()}
	if search.MaxDepth > 0 {
		opts = append(opts, bot.WithMaxDepth(search.MaxDepth))
	}
	if search.DepthDiscount {
		opts = append(opts, bot.WithDepthDiscount())
	}

	start := time.Now()
	n, err := bk.Build(ctx, bot.NewEngine(opts...), b)
	if err != nil {
		return err
	}
	slog.Info("book written", "book.path", path, "positions", n, "elapsed", time.Since(start))
	return nil
}
