// Package handlers contains the HTTP handler implementations for the
// MediWatch API. Handlers translate requests into service calls and render
// the standard JSON envelopes; domain logic lives in the service packages.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mediwatch/internal/core"
	"mediwatch/internal/monitor"
	"mediwatch/internal/types"
)

// SessionManager defines the session lifecycle contract for the handler.
// Defined locally to avoid tight coupling per the handler injection pattern.
type SessionManager interface {
	Start(ctx context.Context, patientID, location string) (*monitor.Session, error)
	Get(id string) (*monitor.Session, error)
	Stop(ctx context.Context, id string) error
}

// AlertHistory reads the durable alert history for sessions that are no
// longer live in the manager.
type AlertHistory interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]types.AlertRecord, error)
}

// StartSessionRequest is the POST /v1/sessions body.
type StartSessionRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
	Location  string `json:"location" validate:"required"`
}

// AnalyzeRequest is the POST /v1/sessions/{id}/analyze body.
type AnalyzeRequest struct {
	Frame string `json:"frame" validate:"required,frame_data"`
}

// SessionHandler maps HTTP requests to session manager operations.
type SessionHandler struct {
	manager   SessionManager
	history   AlertHistory
	validator *core.Validator
	logger    *slog.Logger
}

// NewSessionHandler creates a SessionHandler with the provided dependencies.
func NewSessionHandler(manager SessionManager, history AlertHistory, val *core.Validator, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		manager:   manager,
		history:   history,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the session endpoints onto the mux. All routes
// assume the authentication middleware is already applied.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.HandleStart)
	r.Get("/sessions/{sessionID}", h.HandleGet)
	r.Delete("/sessions/{sessionID}", h.HandleStop)
	r.Post("/sessions/{sessionID}/analyze", h.HandleAnalyze)
	r.Get("/sessions/{sessionID}/alerts", h.HandleListAlerts)
}

// HandleStart handles POST /v1/sessions: starts monitoring a patient.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	sess, err := h.manager.Start(r.Context(), req.PatientID, req.Location)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: sess.Info()})
}

// HandleGet handles GET /v1/sessions/{sessionID}: returns session state
// including the detector state and recent transition trace.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sess.View()})
}

// HandleStop handles DELETE /v1/sessions/{sessionID}: tears the session
// down and archives its trace.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Stop(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{"status": "stopped"}})
}

// HandleAnalyze handles POST /v1/sessions/{sessionID}/analyze: one
// monitoring tick. A tick arriving while the previous one is still in
// flight is skipped with 202 and status "busy", never queued.
func (h *SessionHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req AnalyzeRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := sess.Analyze(r.Context(), req.Frame)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictBusy {
			core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: map[string]string{"status": "busy"}})
			return
		}
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}

// HandleListAlerts handles GET /v1/sessions/{sessionID}/alerts: the
// session's alerts from the in-memory store, newest first. Optional
// ?limit=N caps the result. Sessions that are no longer live are served
// from the durable history.
func (h *SessionHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationFieldFormat,
				"limit must be a non-negative integer",
				nil,
			))
			return
		}
		limit = parsed
	}

	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.manager.Get(sessionID)
	if err == nil {
		core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sess.Store().Recent(limit)})
		return
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeNotFoundSession || h.history == nil {
		core.Error(w, r, err)
		return
	}

	records, histErr := h.history.ListBySession(r.Context(), sessionID, limit)
	if histErr != nil {
		core.Error(w, r, histErr)
		return
	}
	if len(records) == 0 {
		// Nothing durable either: the session genuinely does not exist.
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: records})
}
