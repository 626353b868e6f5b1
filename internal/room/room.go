package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ctchen222/tictactoe-solver/internal/session"

	"go.opentelemetry.io/otel"
)

const heartbeatInterval = 10 * time.Second

var tracer = otel.Tracer("room")

// Room is one websocket client playing against the machine. A room holds at
// most one session at a time; starting a new game replaces it.
type Room struct {
	ID        string
	PlayerID  string
	conn      Connection
	sessions  *session.Manager
	sessionID string

	writeMu   sync.Mutex
	heartbeat time.Duration
}

// NewRoom creates a room for playerID on conn.
func NewRoom(id, playerID string, conn Connection, sessions *session.Manager) *Room {
	return &Room{
		ID:        id,
		PlayerID:  playerID,
		conn:      conn,
		sessions:  sessions,
		heartbeat: heartbeatInterval,
	}
}

// Run serves the connection until the client goes away or ctx is cancelled.
// The room's session is deleted when Run returns.
func (r *Room) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	incoming := make(chan []byte)
	go r.ReadPump(ctx, incoming)

	pingTicker := time.NewTicker(r.heartbeat)
	defer func() {
		pingTicker.Stop()
		r.conn.Close()
		if r.sessionID != "" {
			r.sessions.Delete(r.sessionID)
		}
		slog.InfoContext(ctx, "room closed", "room.id", r.ID, "player.id", r.PlayerID)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-incoming:
			if !ok {
				return
			}
			r.HandleMessage(ctx, msg)

		case <-pingTicker.C:
			if err := r.ping(); err != nil {
				slog.WarnContext(ctx, "Failed to send ping to player, assuming disconnect", "player.id", r.PlayerID, "error", err)
				return
			}
		}
	}
}
