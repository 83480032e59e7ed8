package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go-shop-api/internal/model"
)

// Pinger is satisfied by the database and the cache store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	database Pinger
	cache    Pinger
	timeout  time.Duration
}

func NewHealthHandler(database Pinger, cache Pinger) *HealthHandler {
	return &HealthHandler{database: database, cache: cache, timeout: 2 * time.Second}
}

// Check reports 503 only when the database is down. A missing cache
// degrades reads but the API keeps serving.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body := map[string]string{"status": "ok", "database": "up", "cache": "up"}
	status := http.StatusOK

	if err := h.database.Ping(ctx); err != nil {
		slog.Error("health check: database unreachable", "error", err)
		body["database"] = "down"
		body["status"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if err := h.cache.Ping(ctx); err != nil {
		slog.Warn("health check: cache unreachable", "error", err)
		body["cache"] = "down"
		if status == http.StatusOK {
			body["status"] = "degraded"
		}
	}

	if status == http.StatusOK {
		writeSuccess(w, status, body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Data:    body,
		Code:    "SERVICE_UNAVAILABLE",
		Message: "database unreachable",
	})
}
