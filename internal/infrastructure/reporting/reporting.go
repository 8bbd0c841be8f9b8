package reporting

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

const flushTimeout = 2 * time.Second

type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

type FlushFunc = func(context.Context) bool

func noopFlush(context.Context) bool { return true }

// Init configures the global Sentry client. An empty DSN disables reporting
// and returns a no-op flush.
func Init(cfg Config) (FlushFunc, error) {
	if cfg.DSN == "" {
		return noopFlush, nil
	}

	if err := sentry.Init(clientOptions(cfg)); err != nil {
		return nil, err
	}

	return sentry.FlushWithContext, nil
}

func clientOptions(cfg Config) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
	}
}

// Middleware reports panics to Sentry and re-panics so the outer recoverer
// still answers the request.
func Middleware(next http.Handler) http.Handler {
	return sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         flushTimeout,
	}).Handle(next)
}
