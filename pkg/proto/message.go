package proto

import "ctchen222/tictactoe-solver/internal/game"

// Client message types
const (
	TypeNew  = "new"
	TypeMove = "move"
)

// Server message types
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type       string `json:"type" validate:"required,oneof=new move"`
	Index      *int   `json:"index,omitempty" validate:"required_if=Type move"`
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	HumanFirst bool   `json:"human_first,omitempty"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type        string          `json:"type" validate:"required"`
	Reason      string          `json:"reason,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	Board       game.Board      `json:"board,omitzero"`
	Next        game.PlayerMark `json:"next,omitempty"`
	Outcome     game.Outcome    `json:"outcome,omitempty"`
	Winner      game.PlayerMark `json:"winner,omitempty"`
	MachineMove *int            `json:"machine_move,omitempty"`
	Message     string          `json:"message,omitempty"`
}
