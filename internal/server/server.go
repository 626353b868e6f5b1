package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ctchen222/tictactoe-solver/internal/api/response"
	"ctchen222/tictactoe-solver/internal/auth"
	"ctchen222/tictactoe-solver/internal/bot"
	"ctchen222/tictactoe-solver/internal/game"
	"ctchen222/tictactoe-solver/internal/room"
	"ctchen222/tictactoe-solver/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// Searcher answers stateless position queries.
type Searcher interface {
	BestMove(ctx context.Context, b game.Board, toMove game.PlayerMark) (bot.Result, error)
}

type Server struct {
	engine   *gin.Engine
	searcher Searcher
	sessions *session.Manager
	issuer   *auth.Issuer
	upgrader websocket.Upgrader

	// rooms live until Close, not until the upgrade request returns.
	roomCtx    context.Context
	closeRooms context.CancelFunc
}

func NewServer(searcher Searcher, sessions *session.Manager, issuer *auth.Issuer) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine:   gin.New(),
		searcher: searcher,
		sessions: sessions,
		issuer:   issuer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomCtx:    ctx,
		closeRooms: cancel,
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok"})
	})
	s.engine.GET("/ws", s.handleWebSocket)

	api := s.engine.Group("/api")
	api.POST("/guest", s.handleGuest)
	api.POST("/search", s.handleSearch)

	games := api.Group("/games", s.issuer.Middleware())
	games.POST("", s.handleCreateGame)
	games.GET("/:id", s.handleGetGame)
	games.POST("/:id/moves", s.handlePlay)
	games.DELETE("/:id", s.handleDeleteGame)
}

// Engine returns the gin engine serving every route.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Close stops every open websocket room.
func (s *Server) Close() {
	s.closeRooms()
}

func (s *Server) handleGuest(c *gin.Context) {
	playerID, token, err := s.issuer.GuestToken()
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to issue guest token", "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	response.SuccessResponse(c, gin.H{"player_id": playerID, "token": token})
}

type searchRequest struct {
	Board  string `json:"board" binding:"required"`
	Player string `json:"player" binding:"required"`
}

func (s *Server) handleSearch(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleSearch")
	defer span.End()

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("board", req.Board), attribute.String("player", req.Player))

	b, err := game.ParseBoard(req.Board)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid board")
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	player, err := game.ParsePlayer(req.Player)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid player")
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	r, err := s.searcher.BestMove(ctx, b, player)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search failed")
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, r)
}

type createGameRequest struct {
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	HumanFirst bool   `json:"human_first"`
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	v, err := s.sessions.Create(c.Request.Context(), auth.PlayerID(c), req.Difficulty, req.HumanFirst)
	if err != nil {
		writeError(c, err)
		return
	}
	response.CreatedResponse(c, v)
}

func (s *Server) handleGetGame(c *gin.Context) {
	v, err := s.sessions.Get(c.Param("id"), auth.PlayerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, v)
}

type playRequest struct {
	Index *int `json:"index" binding:"required"`
}

func (s *Server) handlePlay(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	v, err := s.sessions.Play(c.Request.Context(), c.Param("id"), auth.PlayerID(c), *req.Index)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, v)
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	if _, err := s.sessions.Get(c.Param("id"), auth.PlayerID(c)); err != nil {
		writeError(c, err)
		return
	}
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// handleWebSocket authenticates the token query parameter, upgrades the
// connection and hands it to a new room.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	playerID, err := s.issuer.Parse(c.Query("token"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unauthorized")
		response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	r := room.NewRoom(uuid.NewString(), playerID, conn, s.sessions)
	span.SetAttributes(attribute.String("player.id", playerID), attribute.String("room.id", r.ID))
	slog.InfoContext(ctx, "player connected", "player.id", playerID, "room.id", r.ID)
	go r.Run(s.roomCtx)
}

// writeError maps domain errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrInvalidBoard),
		errors.Is(err, game.ErrInvalidPlayer),
		errors.Is(err, game.ErrOutOfRange),
		errors.Is(err, session.ErrInvalidDifficulty):
		code = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, game.ErrCellOccupied),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, bot.ErrBoardFull):
		code = http.StatusConflict
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	response.ErrorResponse(c, code, err.Error())
}
