package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// LedgerStatus reports whether the chain client holds a live connection.
type LedgerStatus interface {
	Connected() bool
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	ledger   LedgerStatus
	mode     string
	authOn   bool
	startsAt time.Time
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler. ledger may be nil in light mode.
func NewHealthHandler(ledger LedgerStatus, mode string, authOn bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		ledger:   ledger,
		mode:     mode,
		authOn:   authOn,
		startsAt: time.Now().UTC(),
		logger:   logger,
	}
}

// HealthCheck responds with the service status and readiness details.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ledger := "disabled"
	if h.ledger != nil {
		if h.ledger.Connected() {
			ledger = "connected"
		} else {
			ledger = "idle"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"mode":         h.mode,
		"auth_enabled": h.authOn,
		"ledger":       ledger,
		"uptime":       time.Since(h.startsAt).Round(time.Second).String(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
