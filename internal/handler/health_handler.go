package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"leetcode-tracker/internal/model"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to the health checker's dependency shape.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	database pinger
	denylist pinger
	now      func() time.Time
}

// NewHealthHandler builds the probe. denylist may be nil when revocation is
// disabled.
func NewHealthHandler(database pinger, denylist pinger) *HealthHandler {
	return &HealthHandler{database: database, denylist: denylist, now: time.Now}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := model.HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Database:  "connected",
	}

	if err := h.database.Ping(ctx); err != nil {
		slog.Error("health check: database unreachable", "error", err)
		status = http.StatusServiceUnavailable
		body.Status = "degraded"
		body.Database = "disconnected"
	}

	if h.denylist != nil {
		body.Denylist = "connected"
		if err := h.denylist.Ping(ctx); err != nil {
			slog.Error("health check: denylist unreachable", "error", err)
			status = http.StatusServiceUnavailable
			body.Status = "degraded"
			body.Denylist = "disconnected"
		}
	}

	writeSuccess(w, status, body)
}
