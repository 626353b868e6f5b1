package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ctchen222/tictactoe-solver/internal/bot"
	"ctchen222/tictactoe-solver/internal/session"
	"ctchen222/tictactoe-solver/pkg/proto"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn feeds queued client messages to the room and records what it writes.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	mu     sync.Mutex
	pings  int
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 8),
		out:    make(chan []byte, 8),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg, ok := <-c.in:
		if !ok {
			return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
		}
		return websocket.TextMessage, msg, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.PingMessage {
		c.mu.Lock()
		c.pings++
		c.mu.Unlock()
		return nil
	}
	c.out <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(t *testing.T, msg string) {
	t.Helper()
	c.in <- []byte(msg)
}

func (c *fakeConn) receive(t *testing.T) proto.ServerToClientMessage {
	t.Helper()
	select {
	case data := <-c.out:
		var raw struct {
			proto.ServerToClientMessage
			Board []string `json:"board"`
		}
		require.NoError(t, json.Unmarshal(data, &raw))
		return raw.ServerToClientMessage
	case <-time.After(5 * time.Second):
		t.Fatal("no message from room")
		return proto.ServerToClientMessage{}
	}
}

func startRoom(t *testing.T) (*fakeConn, *session.Manager, chan struct{}) {
	t.Helper()
	conn := newFakeConn()
	sessions := session.NewManager(&bot.BotMoveCalculator{Engine: bot.NewEngine(bot.WithAlphaBeta())}, nil)
	r := NewRoom("room-1", "alice", conn, sessions)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		conn.Close()
		<-done
	})
	return conn, sessions, done
}

func TestRoomPlaysAGame(t *testing.T) {
	conn, sessions, _ := startRoom(t)

	conn.send(t, `{"type":"new","human_first":true}`)
	msg := conn.receive(t)
	assert.Equal(t, proto.TypeUpdate, msg.Type)
	assert.NotEmpty(t, msg.SessionID)
	assert.Equal(t, "O", string(msg.Next))
	assert.Nil(t, msg.MachineMove)
	assert.Equal(t, 1, sessions.Len())

	conn.send(t, `{"type":"move","index":0}`)
	msg = conn.receive(t)
	assert.Equal(t, proto.TypeUpdate, msg.Type)
	require.NotNil(t, msg.MachineMove)
	assert.Equal(t, 4, *msg.MachineMove)
	assert.Equal(t, "in_progress", string(msg.Outcome))

	conn.send(t, `{"type":"move","index":4}`)
	msg = conn.receive(t)
	assert.Equal(t, proto.TypeError, msg.Type)
	assert.Contains(t, msg.Reason, "occupied")
}

func TestRoomMachineOpens(t *testing.T) {
	conn, _, _ := startRoom(t)

	conn.send(t, `{"type":"new","difficulty":"hard"}`)
	msg := conn.receive(t)
	require.NotNil(t, msg.MachineMove)
	assert.Equal(t, 0, *msg.MachineMove)
}

func TestRoomRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "Not JSON", raw: `{`, reason: "malformed message"},
		{name: "Unknown type", raw: `{"type":"rematch"}`, reason: "invalid message"},
		{name: "Move without index", raw: `{"type":"move"}`, reason: "invalid message"},
		{name: "Move before new", raw: `{"type":"move","index":3}`, reason: "no game in progress"},
	}

	conn, _, _ := startRoom(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn.send(t, tt.raw)
			msg := conn.receive(t)
			assert.Equal(t, proto.TypeError, msg.Type)
			assert.Equal(t, tt.reason, msg.Reason)
		})
	}
}

func TestRoomDeletesSessionOnDisconnect(t *testing.T) {
	conn, sessions, done := startRoom(t)

	conn.send(t, `{"type":"new","human_first":true}`)
	conn.receive(t)
	conn.send(t, `{"type":"new","human_first":true}`)
	conn.receive(t)
	assert.Equal(t, 1, sessions.Len(), "a new game replaces the old one")

	close(conn.in)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("room did not stop")
	}
	assert.Zero(t, sessions.Len())
}

func TestRoomPings(t *testing.T) {
	conn := newFakeConn()
	r := NewRoom("room-2", "bob", conn, session.NewManager(&bot.BotMoveCalculator{}, nil))
	r.heartbeat = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return conn.pings >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
