package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ctchen222/tictactoe-solver/pkg/proto"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Send writes a message to the client.
func (r *Room) Send(ctx context.Context, message *proto.ServerToClientMessage) error {
	_, span := tracer.Start(ctx, "room.Send", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("message.type", message.Type),
	))
	defer span.End()

	data, err := json.Marshal(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling message")
		return fmt.Errorf("failed to marshal %s message: %w", message.Type, err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error writing message to player")
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (r *Room) ping() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteMessage(websocket.PingMessage, nil)
}

// ReadPump forwards client messages to out until the connection fails or ctx
// is done, then closes out.
func (r *Room) ReadPump(ctx context.Context, out chan<- []byte) {
	defer close(out)
	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "Player connection error", "player.id", r.PlayerID, "room.id", r.ID, "error", err)
			}
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
