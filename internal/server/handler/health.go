package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	initialized func() bool
	logger      *slog.Logger
}

// NewHealthHandler creates a HealthHandler. The initialized func reports
// whether the pool has been brought online.
func NewHealthHandler(initialized func() bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{initialized: initialized, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive and whether the pool is initialized.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"initialized": h.initialized(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
