package reporting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	req := require.New(t)

	flush, err := Init(Config{})
	req.NoError(err)
	req.True(flush(context.Background()))
}

func TestInit_InvalidDSN(t *testing.T) {
	_, err := Init(Config{DSN: "not a dsn"})
	require.Error(t, err)
}

func TestMiddleware_ReportsPanic(t *testing.T) {
	req := require.New(t)

	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	opts := clientOptions(Config{
		DSN:         "https://public@sentry.example.com/1",
		Environment: "test",
		SampleRate:  1,
	})
	opts.BeforeSend = func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
		return nil
	}
	req.NoError(sentry.Init(opts))
	t.Cleanup(func() { _ = sentry.Init(sentry.ClientOptions{}) })

	handler := Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req.Panics(func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/message", nil))
	})

	mu.Lock()
	defer mu.Unlock()
	req.Len(events, 1)
	req.Equal("test", events[0].Environment)
}
