package messages

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dietiestates/backend/internal/domain"
	"github.com/dietiestates/backend/internal/infrastructure/json"
	"github.com/dietiestates/backend/internal/infrastructure/logging"
	"github.com/dietiestates/backend/internal/infrastructure/tracing"
	"github.com/dietiestates/backend/internal/infrastructure/ws"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"

	tracerName = "github.com/dietiestates/backend/messages"

	missingBodyMessage = "Required request body is missing"
)

var ErrMissingBody = errors.New("required request body is missing")

// Recorder counts acknowledged messages.
type Recorder interface {
	MessageReceived(transport string)
}

type Handler struct {
	logger       logging.Logger
	recorder     Recorder
	sessions     *ws.Registry
	tracer       trace.Tracer
	upgrader     websocket.Upgrader
	maxBodyBytes int64
}

type Options struct {
	// MaxBodyBytes caps the body (or frame) size. Zero means no limit.
	MaxBodyBytes int64
	// AllowedOrigins restricts WebSocket upgrades; empty or "*" accepts any.
	AllowedOrigins []string
}

func NewHandler(
	logger logging.Logger,
	recorder Recorder,
	sessions *ws.Registry,
	opts Options,
) *Handler {
	return &Handler{
		logger:       logger,
		recorder:     recorder,
		sessions:     sessions,
		tracer:       tracing.GetTracer(tracerName),
		maxBodyBytes: opts.MaxBodyBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
	}
}

// ReceiveMessageHandler godoc
// @Summary      Receive a message
// @Description  Accepts a raw text body and answers with "Message received: " followed by the body, unchanged.
// @Tags         messages
// @Accept       plain
// @Produce      plain
// @Param        request body string true "Message text"
// @Success      200 {string} string "Message received: hello"
// @Failure      400 {object} json.ErrorResponse "Request body is missing or unreadable"
// @Failure      413 {object} json.ErrorResponse "Request body exceeds the configured limit"
// @Failure      429 {object} json.ErrorResponse "Rate limit exceeded"
// @Router       /message [post]
func (h *Handler) ReceiveMessageHandler(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reject(r, "body too large")
			json.WritePayloadTooLargeError(w, maxErr.Limit)
			return
		}
		h.reject(r, err.Error())
		json.WriteBadRequestError(w, "Unable to read request body")
		return
	}

	if len(raw) == 0 {
		h.reject(r, ErrMissingBody.Error())
		json.WriteBadRequestError(w, missingBodyMessage)
		return
	}

	ack := h.acknowledge(r.Context(), string(raw), TransportHTTP)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ack)
}

// StreamMessagesHandler godoc
// @Summary      Stream messages over WebSocket
// @Description  Upgrades to a WebSocket. Each text frame is answered with its acknowledgement.
// @Tags         messages
// @Success      101 "Switching Protocols"
// @Router       /message/ws [get]
func (h *Handler) StreamMessagesHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered with an HTTP error
		h.logger.Warn(logging.WebSocket, logging.Upgrade, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.ClientIp:     r.RemoteAddr,
		})
		return
	}

	session := ws.NewSession(conn, h.maxBodyBytes)
	h.sessions.Add(session)
	defer h.sessions.Remove(session)

	h.logger.Debug(logging.WebSocket, logging.Connection, "websocket session opened", map[logging.ExtraKey]any{
		logging.SessionID: session.ID,
		logging.RequestID: middleware.GetReqID(r.Context()),
	})

	err = session.Serve(context.WithoutCancel(r.Context()), func(ctx context.Context, message string) string {
		return h.acknowledge(ctx, message, TransportWebSocket)
	})
	if err != nil {
		h.logger.Warn(logging.WebSocket, logging.Connection, "websocket session ended with error", map[logging.ExtraKey]any{
			logging.SessionID:    session.ID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	h.logger.Debug(logging.WebSocket, logging.Connection, "websocket session closed", map[logging.ExtraKey]any{
		logging.SessionID: session.ID,
	})
}

// acknowledge is the single place a message turns into its reply. The log
// record is only assembled when Info reaches the sink.
func (h *Handler) acknowledge(ctx context.Context, message, transport string) string {
	_, span := h.tracer.Start(ctx, "message.receive", trace.WithAttributes(
		attribute.Int("message.length", len(message)),
		attribute.String("message.transport", transport),
	))
	defer span.End()

	ack := domain.Acknowledge(message)

	if h.logger.Enabled(logging.InfoLevel) {
		h.logger.Info(logging.Message, logging.Received, ack, map[logging.ExtraKey]any{
			logging.Transport: transport,
			logging.RequestID: middleware.GetReqID(ctx),
		})
	}

	h.recorder.MessageReceived(transport)

	return ack
}

func (h *Handler) reject(r *http.Request, reason string) {
	if !h.logger.Enabled(logging.DebugLevel) {
		return
	}
	h.logger.Debug(logging.Message, logging.Rejected, "message rejected", map[logging.ExtraKey]any{
		logging.ErrorMessage: reason,
		logging.RequestID:    middleware.GetReqID(r.Context()),
		logging.ClientIp:     r.RemoteAddr,
	})
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}

	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
