package api

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"

	"github.com/dietiestates/backend/internal/infrastructure/configs"
	"github.com/dietiestates/backend/internal/infrastructure/logging"
	"github.com/dietiestates/backend/internal/infrastructure/metrics"
	"github.com/dietiestates/backend/internal/infrastructure/ratelimiter"
	"github.com/dietiestates/backend/internal/infrastructure/reporting"
	"github.com/dietiestates/backend/internal/infrastructure/ws"
	healthHandler "github.com/dietiestates/backend/internal/presentation/handler/health"
	messagesHandler "github.com/dietiestates/backend/internal/presentation/handler/messages"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serverName = "dieti-http"

type Application struct {
	config          configs.Config
	healthHandler   *healthHandler.Handler
	messagesHandler *messagesHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
	metrics         *metrics.Metrics
	sessions        *ws.Registry
}

// NewApplication wires the HTTP surface. limiter may be nil, which disables
// rate limiting.
func NewApplication(
	config configs.Config,
	healthHandler *healthHandler.Handler,
	messagesHandler *messagesHandler.Handler,
	logger logging.Logger,
	limiter ratelimiter.Limiter,
	metrics *metrics.Metrics,
	sessions *ws.Registry,
) *Application {
	return &Application{
		config:          config,
		healthHandler:   healthHandler,
		messagesHandler: messagesHandler,
		logger:          logger,
		ratelimiter:     limiter,
		metrics:         metrics,
		sessions:        sessions,
	}
}

func (app *Application) Mount() http.Handler {
	return otelhttp.NewHandler(app.routes(), serverName)
}

func (app *Application) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if app.config.HTTP.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(app.loggerMiddleware)
	if app.config.Metrics.Enabled {
		r.Use(app.prometheusMiddleware)
	}
	// must run inside the logger and metrics middleware to record the 500
	r.Use(middleware.Recoverer)
	if app.config.Sentry.DSN != "" {
		r.Use(reporting.Middleware)
	}
	if app.ratelimiter != nil {
		r.Use(app.rateLimiterMiddleware)
	}
	r.Use(app.enableCors)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(app.config.HTTP.WriteTimeout))

		r.Post("/message", app.messagesHandler.ReceiveMessageHandler)

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	// long lived, kept out of the timeout group
	r.Get("/message/ws", app.messagesHandler.StreamMessagesHandler)

	if app.config.Metrics.Enabled {
		r.Method(http.MethodGet, app.config.Metrics.Path, app.metrics.Handler())
	}
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	ln, err := net.Listen("tcp", app.config.Addr())
	if err != nil {
		return err
	}

	return app.Serve(ctx, ln, mux)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout. Open WebSocket sessions are closed
// with a going-away frame.
func (app *Application) Serve(ctx context.Context, ln net.Listener, mux http.Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		IdleTimeout:  app.config.HTTP.IdleTimeout,
	}
	srv.RegisterOnShutdown(app.sessions.CloseAll)

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		app.healthHandler.MarkUnhealthy()
		app.logger.Info(logging.General, logging.Shutdown, "shutting down server", map[logging.ExtraKey]any{
			logging.Addr: ln.Addr().String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.HTTP.ShutdownTimeout)
		defer cancel()

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		logging.Addr: ln.Addr().String(),
	})

	err := srv.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		logging.Addr: ln.Addr().String(),
	})

	return nil
}
