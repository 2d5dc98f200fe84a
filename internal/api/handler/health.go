package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ghozitech/ledger/internal/api/response"
)

// Pinger is implemented by storage backends with a remote connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and storage reachability
type HealthHandler struct {
	pinger Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler; pinger may be nil
func NewHealthHandler(pinger Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: "ok"})
		return
	}

	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Warn("storage ping failed", slog.Any("error", err))
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "degraded", Storage: "unreachable"})
		return
	}

	response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: "ok"})
}
