package types

import (
	"time"
)

// AlertMessage is the SQS payload sent from the API to the alert worker.
// This is the contract between the tick pipeline and the fan-out workers;
// changing it requires coordinating both sides of the queue.
type AlertMessage struct {
	MessageID  string            `json:"message_id"`
	TraceID    string            `json:"trace_id"`
	AlertID    string            `json:"alert_id"`
	SessionID  string            `json:"session_id"`
	PatientID  string            `json:"patient_id"`
	Category   EmergencyCategory `json:"category"`
	Confidence float64           `json:"confidence"`
	Description string           `json:"description"`
	Location   string            `json:"location"`
	Urgency    UrgencyLevel      `json:"urgency"`
	ObservedAt time.Time         `json:"observed_at"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}
