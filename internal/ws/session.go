package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const outboxSize = 64

// Session is one client connection. The reader goroutine owns lobbyID; the
// writer goroutine drains outbox until it is closed by Rooms.Unregister.
type Session struct {
	ID      string
	lobbyID string
	outbox  chan []byte
	logger  *zap.Logger
}

func newSession(id string, logger *zap.Logger) *Session {
	return &Session{
		ID:     id,
		outbox: make(chan []byte, outboxSize),
		logger: logger.With(zap.String("session_id", id)),
	}
}

// Send marshals and queues one message for this client. A full outbox means
// the client is not keeping up; the message is dropped rather than blocking
// the caller.
func (s *Session) Send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshal outbound message", zap.Error(err))
		return
	}
	s.sendRaw(data)
}

func (s *Session) sendRaw(data []byte) {
	select {
	case s.outbox <- data:
	default:
		s.logger.Warn("outbox full, dropping message")
	}
}

// writeLoop pushes queued messages onto the wire until the outbox closes.
func (s *Session) writeLoop(parent context.Context, conn *websocket.Conn) {
	for data := range s.outbox {
		ctx, cancel := context.WithTimeout(parent, 3*time.Second)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			// Reader will observe the broken connection and tear down.
			return
		}
	}
}
