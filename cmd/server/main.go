package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/tictactoe-solver/internal/auth"
	"ctchen222/tictactoe-solver/internal/book"
	"ctchen222/tictactoe-solver/internal/bot"
	"ctchen222/tictactoe-solver/internal/cache"
	"ctchen222/tictactoe-solver/internal/config"
	"ctchen222/tictactoe-solver/internal/db"
	"ctchen222/tictactoe-solver/internal/events"
	"ctchen222/tictactoe-solver/internal/logger"
	"ctchen222/tictactoe-solver/internal/server"
	"ctchen222/tictactoe-solver/internal/session"
	"ctchen222/tictactoe-solver/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const sessionTTL = 2 * time.Hour

func main() {
	configPath := flag.String("config", "", "optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	shutdown, err := telemetry.InitOtel(ctx, cfg.OtlpEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()

	caches := cache.Chain{cache.NewMemoryCache(100_000)}
	if cfg.BookPath != "" {
		bk, err := book.Open(ctx, cfg.BookPath)
		if err != nil {
			return err
		}
		defer bk.Close()
		caches = append(caches, bk)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisAddr != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		caches = append(caches, cache.NewRedisCache(rdb, cfg.CacheTTL))
		publisher = events.NewRedisPublisher(rdb)
	}

	opts := []bot.Option{bot.WithCache(caches)}
	if cfg.Search.AlphaBeta {
		opts = append(opts, bot.WithAlphaBeta())
	}
	if cfg.Search.MaxDepth > 0 {
		opts = append(opts, bot.WithMaxDepth(cfg.Search.MaxDepth))
	}
	if cfg.Search.DepthDiscount {
		opts = append(opts, bot.WithDepthDiscount())
	}
	if cfg.Search.ParallelRoot {
		opts = append(opts, bot.WithParallelRoot())
	}
	engine := bot.NewEngine(opts...)

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		slog.Warn("no jwt secret configured, tokens will not survive a restart")
		secret = []byte(uuid.NewString())
	}
	issuer, err := auth.NewIssuer(secret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	sessions := session.NewManager(&bot.BotMoveCalculator{Engine: engine}, publisher)
	srv := server.NewServer(engine, sessions, issuer)
	defer srv.Close()

	stopPrune := make(chan struct{})
	defer close(stopPrune)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stopPrune:
				return
			case <-ticker.C:
				if n := sessions.Prune(time.Now().Add(-sessionTTL)); n > 0 {
					slog.Info("pruned stale sessions", "count", n)
				}
			}
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: otelhttp.NewHandler(srv.Engine(), "tictactoe-solver"),
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("http server started", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errc:
		return err
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("Server exiting")
	return nil
}
