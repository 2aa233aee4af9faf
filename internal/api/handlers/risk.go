package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediwatch/internal/core"
	"mediwatch/internal/types"
)

// RiskService defines the risk-prediction contract for the handler.
type RiskService interface {
	Predict(ctx context.Context, patientID string) (*types.RiskPrediction, error)
}

// PredictRequest is the POST /v1/risk/predict body.
type PredictRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
}

// RiskHandler maps HTTP requests to the risk service.
type RiskHandler struct {
	service   RiskService
	validator *core.Validator
	logger    *slog.Logger
}

// NewRiskHandler creates a RiskHandler with the provided dependencies.
func NewRiskHandler(svc RiskService, val *core.Validator, logger *slog.Logger) *RiskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the risk endpoints onto the mux.
func (h *RiskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/risk/predict", h.HandlePredict)
}

// HandlePredict handles POST /v1/risk/predict: assembles the patient
// snapshot and returns a risk prediction from the external service or the
// local fallback scorer.
func (h *RiskHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	pred, err := h.service.Predict(r.Context(), req.PatientID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: pred})
}
