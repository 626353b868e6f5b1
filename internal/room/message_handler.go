package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"ctchen222/tictactoe-solver/internal/session"
	"ctchen222/tictactoe-solver/internal/validator"
	"ctchen222/tictactoe-solver/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errNoGame = errors.New("no game in progress")

// HandleMessage decodes, validates and dispatches one client message.
func (r *Room) HandleMessage(ctx context.Context, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", r.PlayerID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.sendError(ctx, "malformed message")
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", r.PlayerID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.sendError(ctx, "invalid message")
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	var (
		view session.View
		err  error
	)
	switch message.Type {
	case proto.TypeNew:
		view, err = r.handleNew(ctx, &message)
	case proto.TypeMove:
		view, err = r.handleMove(ctx, *message.Index)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Message rejected")
		r.sendError(ctx, err.Error())
		return
	}
	r.sendUpdate(ctx, view)
}

func (r *Room) handleNew(ctx context.Context, message *proto.ClientToServerMessage) (session.View, error) {
	view, err := r.sessions.Create(ctx, r.PlayerID, message.Difficulty, message.HumanFirst)
	if err != nil {
		return session.View{}, err
	}
	if r.sessionID != "" {
		r.sessions.Delete(r.sessionID)
	}
	r.sessionID = view.ID
	return view, nil
}

func (r *Room) handleMove(ctx context.Context, index int) (session.View, error) {
	if r.sessionID == "" {
		return session.View{}, errNoGame
	}
	return r.sessions.Play(ctx, r.sessionID, r.PlayerID, index)
}

func (r *Room) sendUpdate(ctx context.Context, v session.View) {
	msg := &proto.ServerToClientMessage{
		Type:      proto.TypeUpdate,
		SessionID: v.ID,
		Board:     v.Board,
		Outcome:   v.Outcome,
		Winner:    v.Winner,
		Message:   v.Message,
	}
	if !v.Outcome.Finished() {
		msg.Next = v.CurrentTurn
	}
	if v.MachineMove >= 0 {
		move := v.MachineMove
		msg.MachineMove = &move
	}
	if err := r.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to send update", "room.id", r.ID, "error", err)
	}
}

func (r *Room) sendError(ctx context.Context, reason string) {
	if err := r.Send(ctx, &proto.ServerToClientMessage{Type: proto.TypeError, Reason: reason}); err != nil {
		slog.ErrorContext(ctx, "failed to send error", "room.id", r.ID, "error", err)
	}
}
