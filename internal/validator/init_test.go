package validator

import (
	"errors"
	"testing"

	"ctchen222/tictactoe-solver/pkg/proto"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestClientMessages(t *testing.T) {
	tests := []struct {
		name    string
		message proto.ClientToServerMessage
		field   string
	}{
		{name: "New game", message: proto.ClientToServerMessage{Type: "new", Difficulty: "medium"}},
		{name: "New game default difficulty", message: proto.ClientToServerMessage{Type: "new"}},
		{name: "Move", message: proto.ClientToServerMessage{Type: "move", Index: intPtr(0)}},
		{name: "Missing type", message: proto.ClientToServerMessage{}, field: "type"},
		{name: "Unknown type", message: proto.ClientToServerMessage{Type: "rematch"}, field: "type"},
		{name: "Move without index", message: proto.ClientToServerMessage{Type: "move"}, field: "index"},
		{name: "Unknown difficulty", message: proto.ClientToServerMessage{Type: "new", Difficulty: "godlike"}, field: "difficulty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GetValidator().Struct(tt.message)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}
