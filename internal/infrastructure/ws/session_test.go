package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T, registry *Registry, served chan<- error) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s := NewSession(conn, 64)
		registry.Add(s)
		defer registry.Remove(s)

		served <- s.Serve(r.Context(), func(_ context.Context, message string) string {
			return "ack:" + message
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSession_Serve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	served := make(chan error, 1)
	conn := dial(t, newEchoServer(t, registry, served))

	req.NoError(conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("")))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	req.NoError(err)
	req.Equal(websocket.TextMessage, msgType)
	req.Equal("ack:hello", string(raw))

	_, raw, err = conn.ReadMessage()
	req.NoError(err)
	req.Equal("ack:", string(raw))

	req.Equal(1, registry.Len())

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	req.NoError(conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second)))

	select {
	case err := <-served:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after close frame")
	}
}

func TestSession_ReadLimit(t *testing.T) {
	req := require.New(t)
	served := make(chan error, 1)
	conn := dial(t, newEchoServer(t, NewRegistry(), served))

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 65))))

	select {
	case err := <-served:
		req.Error(err)
	case <-time.After(2 * time.Second):
		t.Fatal("oversized frame did not end the session")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	served := make(chan error, 1)
	conn := dial(t, newEchoServer(t, registry, served))

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	req.NoError(err)

	registry.CloseAll()
	req.Equal(0, registry.Len())

	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	select {
	case err := <-served:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after CloseAll")
	}
}
