package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"mediwatch/internal/types"
)

// GenericFormatter serializes the alert as a stable JSON envelope. It is the
// default for webhook URLs that match no known platform pattern; downstream
// consumers can rely on this contract.
type GenericFormatter struct{}

// Platform returns the platform identifier.
func (f *GenericFormatter) Platform() Platform {
	return PlatformGeneric
}

// GenericPayload is the standard webhook envelope for generic endpoints.
type GenericPayload struct {
	EventType   string    `json:"event_type"`
	AlertID     string    `json:"alert_id"`
	SessionID   string    `json:"session_id"`
	PatientID   string    `json:"patient_id"`
	Category    string    `json:"category"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Urgency     string    `json:"urgency"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Format transforms an AlertMessage into generic JSON.
func (f *GenericFormatter) Format(msg *types.AlertMessage) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("generic formatter: message is nil")
	}

	return json.Marshal(GenericPayload{
		EventType:   "alert.emergency",
		AlertID:     msg.AlertID,
		SessionID:   msg.SessionID,
		PatientID:   msg.PatientID,
		Category:    string(msg.Category),
		Confidence:  msg.Confidence,
		Description: msg.Description,
		Location:    msg.Location,
		Urgency:     string(msg.Urgency),
		ObservedAt:  msg.ObservedAt,
	})
}

// ValidateResponse for generic webhooks checks only the HTTP status code.
func (f *GenericFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return fmt.Errorf("generic webhook: unexpected status %d: %s", statusCode, truncateBody(body))
}
