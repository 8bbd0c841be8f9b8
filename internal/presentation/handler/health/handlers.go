package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dietiestates/backend/internal/infrastructure/json"
)

const (
	statusOK        = "ok"
	statusUnhealthy = "unhealthy"
)

type Handler struct {
	instance  string
	startTime time.Time
	healthy   atomic.Bool
}

func NewHandler(instance string) *Handler {
	h := &Handler{
		instance:  instance,
		startTime: time.Now(),
	}
	h.healthy.Store(true)
	return h
}

// MarkUnhealthy makes every probe answer 503. Called once shutdown starts so
// load balancers stop routing new traffic here.
func (h *Handler) MarkUnhealthy() {
	h.healthy.Store(false)
}

// GetHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API, including uptime and current timestamp
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is healthy"
// @Failure      503 {object} healthResponse "Service is unhealthy"
// @Router       /health [get]
// @Router       /healthz [get]
// @Router       /ready [get]
// @Router       /live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Instance:  h.instance,
	}

	if !h.healthy.Load() {
		resp.Status = statusUnhealthy
		_ = json.Write(w, http.StatusServiceUnavailable, resp)
		return
	}

	_ = json.Write(w, http.StatusOK, resp)
}
