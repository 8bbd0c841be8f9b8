package ratelimiter

import (
	"fmt"
	"time"
)

const (
	StrategyTokenBucket = "token_bucket"
	StrategyFixedWindow = "fixed_window"
)

type Config struct {
	Strategy         string
	MaxRatePerSecond int
	MaxBurst         int
	Window           time.Duration
	CacheTTL         time.Duration
	SourceHeaderKey  string
}

// NewFromConfig builds the limiter for the named strategy. For the fixed
// window, MaxBurst is the per-window limit.
func NewFromConfig(cfg Config) (Limiter, error) {
	switch cfg.Strategy {
	case StrategyTokenBucket, "":
		return New(Options{
			MaxRatePerSecond: cfg.MaxRatePerSecond,
			MaxBurst:         cfg.MaxBurst,
			CacheTTL:         cfg.CacheTTL,
			SourceHeaderKey:  cfg.SourceHeaderKey,
		}), nil
	case StrategyFixedWindow:
		return NewFixedWindow(FixedWindowOptions{
			Limit:           cfg.MaxBurst,
			Window:          cfg.Window,
			SourceHeaderKey: cfg.SourceHeaderKey,
		}), nil
	}

	return nil, fmt.Errorf("unsupported rate limiter strategy %q", cfg.Strategy)
}
