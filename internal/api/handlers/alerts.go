package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediwatch/internal/core"
	"mediwatch/internal/types"
)

// AlertAcknowledger is the durable acknowledgement contract.
type AlertAcknowledger interface {
	Acknowledge(ctx context.Context, id string, at time.Time) error
}

// LocalAlertStore mirrors acknowledgements into live sessions' in-memory
// stores so the dashboard sees the change without a refresh.
type LocalAlertStore interface {
	AcknowledgeAlert(id string, at time.Time) bool
}

// AlertHandler maps HTTP requests to alert operations.
type AlertHandler struct {
	alerts AlertAcknowledger
	local  LocalAlertStore
	clock  types.Clock
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler. local may be nil when no live
// session mirror exists (e.g., in tools).
func NewAlertHandler(alerts AlertAcknowledger, local LocalAlertStore, clock types.Clock, logger *slog.Logger) *AlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHandler{
		alerts: alerts,
		local:  local,
		clock:  clock,
		logger: logger,
	}
}

// RegisterRoutes mounts the alert endpoints onto the mux.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Post("/alerts/{alertID}/ack", h.HandleAcknowledge)
}

// HandleAcknowledge handles POST /v1/alerts/{alertID}/ack. Acknowledging an
// already-acknowledged alert returns conflict_already_acknowledged; the
// record itself is otherwise immutable.
func (h *AlertHandler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	now := h.clock.Now()

	if err := h.alerts.Acknowledge(r.Context(), alertID, now); err != nil {
		core.Error(w, r, err)
		return
	}

	if h.local != nil {
		h.local.AcknowledgeAlert(alertID, now)
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"alert_id":        alertID,
		"acknowledged":    true,
		"acknowledged_at": now,
	}})
}
