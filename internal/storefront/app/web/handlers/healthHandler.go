package handlers

import (
	"context"
	"net/http"
	"time"

	"storefront_api/pkg/logger"
)

type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	log     logger.Logger
}

func NewHealthHandler(db Pinger, timeout time.Duration, log logger.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{db: db, timeout: timeout, log: log}
}

// Healthz pings the database; also serves as the keep-alive target.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Error("health check: database unreachable: %v", err)
		writeJSON(w, h.log, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]string{"status": "ok"})
}
