package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mediwatch/internal/core"
	"mediwatch/internal/types"
)

// PersonDetector defines the detection contract for the media handler.
type PersonDetector interface {
	DetectPersons(ctx context.Context, frame, location string) (*types.DetectionResult, error)
}

// SpeechSynthesizer defines the TTS contract for the media handler.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// DetectRequest is the POST /v1/detect body. Location is optional and passed
// through to the sidecar for logging.
type DetectRequest struct {
	Frame    string `json:"frame" validate:"required,frame_data"`
	Location string `json:"location"`
}

// SpeechRequest is the POST /v1/speech body.
type SpeechRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// MediaHandler proxies the vision and speech services for the dashboard:
// bounding boxes for the camera overlay and audio for alert announcements.
type MediaHandler struct {
	detector  PersonDetector
	speech    SpeechSynthesizer
	validator *core.Validator
	logger    *slog.Logger
}

// NewMediaHandler creates a MediaHandler with the provided dependencies.
func NewMediaHandler(detector PersonDetector, speech SpeechSynthesizer, val *core.Validator, logger *slog.Logger) *MediaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaHandler{
		detector:  detector,
		speech:    speech,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the media endpoints onto the mux.
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/detect", h.HandleDetect)
	r.Post("/speech", h.HandleSpeech)
}

// HandleDetect handles POST /v1/detect: returns person bounding boxes for
// one frame. The dashboard uses these for its overlay; no detector state is
// touched.
func (h *MediaHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.detector.DetectPersons(r.Context(), req.Frame, req.Location)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}

// HandleSpeech handles POST /v1/speech: synthesizes the text and returns
// raw MP3 bytes, not a JSON envelope.
func (h *MediaHandler) HandleSpeech(w http.ResponseWriter, r *http.Request) {
	var req SpeechRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write audio response", "error", err)
	}
}
