package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// AckFunc turns one inbound text frame into the reply frame.
type AckFunc func(ctx context.Context, message string) string

type Session struct {
	ID   string
	conn *connWrapper

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSession wraps an upgraded connection. readLimit caps a single frame in
// bytes; zero leaves it unbounded.
func NewSession(conn *websocket.Conn, readLimit int64) *Session {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}

	return &Session{
		ID:   uuid.NewString(),
		conn: newConnWrapper(conn),
	}
}

// Serve answers every text frame with ack until the peer goes away, a read
// fails, or Close is called. Binary frames are ignored. A normal close by
// either side returns nil; anything else, such as an oversized frame, is
// returned.
func (s *Session) Serve(ctx context.Context, ack AckFunc) error {
	defer s.Close()

	for {
		msgType, raw, err := s.conn.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					return err
				}
				return nil
			case s.closed.Load():
				return nil
			default:
				return err
			}
		}

		if msgType != websocket.TextMessage {
			continue
		}

		if err := s.conn.WriteText(ack(ctx, string(raw))); err != nil {
			return err
		}
	}
}

// Shutdown tells the peer the server is going away and closes the socket.
func (s *Session) Shutdown() {
	_ = s.conn.WriteClose(websocket.CloseGoingAway, "server shutting down")
	s.Close()
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.Close()
	})
}
