package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dietiestates/backend/internal/infrastructure/configs"
	"github.com/dietiestates/backend/internal/infrastructure/logging"
	"github.com/dietiestates/backend/internal/infrastructure/metrics"
	"github.com/dietiestates/backend/internal/infrastructure/ratelimiter"
	"github.com/dietiestates/backend/internal/infrastructure/reporting"
	"github.com/dietiestates/backend/internal/infrastructure/tracing"
	"github.com/dietiestates/backend/internal/infrastructure/ws"
	"github.com/dietiestates/backend/internal/presentation/api"
	"github.com/dietiestates/backend/internal/presentation/handler/health"
	"github.com/dietiestates/backend/internal/presentation/handler/messages"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: $DIETI_CONFIG or ./config.yaml)")

	return cmd
}

func serve(ctx context.Context, configPath string) error {
	if err := configs.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := configs.Load(configs.DetermineConfigPath(configPath))
	if err != nil {
		return err
	}

	instance := uuid.NewString()
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		AppName:  appName,
		Instance: instance,
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  appName,
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error(logging.Tracing, logging.Shutdown, "failed to flush traces", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	flushReports, err := reporting.Init(reporting.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     appName + "@" + version,
		SampleRate:  cfg.Sentry.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		flushReports(flushCtx)
	}()

	m := metrics.New()

	var limiter ratelimiter.Limiter
	if cfg.RateLimiter.Enabled {
		rl, err := ratelimiter.NewFromConfig(ratelimiter.Config{
			Strategy:         cfg.RateLimiter.Strategy,
			MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
			MaxBurst:         cfg.RateLimiter.MaxBurst,
			Window:           cfg.RateLimiter.Window,
			CacheTTL:         cfg.RateLimiter.CacheTTL,
			SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
		})
		if err != nil {
			return err
		}
		defer rl.Close()
		limiter = rl
	}

	sessions := ws.NewRegistry()
	healthHandler := health.NewHandler(instance)
	messagesHandler := messages.NewHandler(logger, m, sessions, messages.Options{
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	app := api.NewApplication(*cfg, healthHandler, messagesHandler, logger, limiter, m, sessions)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("websocket_sessions", expvar.Func(func() any {
		return sessions.Len()
	}))

	logger.Info(logging.General, logging.Startup, "starting server", map[logging.ExtraKey]any{
		logging.Addr:       cfg.Addr(),
		logging.LoggerName: cfg.Logger.Logger,
	})

	return app.Run(ctx, app.Mount())
}
