package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/message" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("Message received: " + string(raw)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SendMessage(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		message      string
		expected     string
		expectedCode int
	}{
		{
			name:     "Acknowledged",
			status:   http.StatusOK,
			message:  "Ciao mondo",
			expected: "Message received: Ciao mondo",
		},
		{
			name:         "Server error",
			status:       http.StatusInternalServerError,
			message:      "hello",
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			c := New(newServer(t, tt.status).URL + "/")

			got, err := c.SendMessage(context.Background(), tt.message)
			if tt.expectedCode != 0 {
				var statusErr *StatusError
				req.True(errors.As(err, &statusErr))
				req.Equal(tt.expectedCode, statusErr.StatusCode)
				req.Contains(statusErr.Error(), "hello")
				return
			}

			req.NoError(err)
			req.Equal(tt.expected, got)
		})
	}
}

func TestClient_EmptyMessage(t *testing.T) {
	_, err := New("http://localhost:1").SendMessage(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestNew_BaseURL(t *testing.T) {
	req := require.New(t)

	t.Setenv(baseURLEnv, "")
	req.Equal(DefaultBaseURL, New("").BaseURL())

	t.Setenv(baseURLEnv, "http://dieti.local:9000")
	req.Equal("http://dieti.local:9000", New("").BaseURL())
	req.Equal("http://explicit:1", New("http://explicit:1/").BaseURL())
}

func TestClient_LargeReply(t *testing.T) {
	srv := newServer(t, http.StatusOK)
	message := strings.Repeat("x", 64)
	expected := "Message received: " + message

	tests := []struct {
		name      string
		limit     int64
		expectErr bool
	}{
		{name: "No cap returns the whole reply", limit: 0},
		{name: "Reply exactly at the cap", limit: int64(len(expected))},
		{name: "Reply over the cap is an error", limit: int64(len(expected)) - 1, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			c := New(srv.URL, WithMaxReplyBytes(tt.limit))

			got, err := c.SendMessage(context.Background(), message)
			if tt.expectErr {
				req.ErrorIs(err, ErrReplyTooLarge)
				req.Empty(got)
				return
			}
			req.NoError(err)
			req.Equal(expected, got)
		})
	}
}

func TestClient_MultiMegabyteMessage(t *testing.T) {
	req := require.New(t)
	message := strings.Repeat("a", 2<<20)

	got, err := New(newServer(t, http.StatusOK).URL).SendMessage(context.Background(), message)
	req.NoError(err)
	req.Equal(len("Message received: ")+len(message), len(got))
}

func TestWithTimeout_LeavesHTTPClientUntouched(t *testing.T) {
	req := require.New(t)
	hc := &http.Client{}

	c := New("http://localhost:1", WithHTTPClient(hc), WithTimeout(5*time.Second))

	req.Zero(hc.Timeout)
	req.Same(hc, c.httpClient)
	req.Equal(5*time.Second, c.timeout)
}

func TestWithTimeout_BoundsTheCall(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).SendMessage(context.Background(), "hello")
	req.ErrorIs(err, context.DeadlineExceeded)
}
