package types

import (
	"time"
)

// ClassificationResult is the outcome of analyzing a single camera frame.
// Produced by the classification boundary (internal/classify) from the raw
// vision-model response; consumed by the emergency detector.
type ClassificationResult struct {
	Emergency   bool              `json:"emergency"`
	Category    EmergencyCategory `json:"category"`
	Confidence  float64           `json:"confidence"`
	Description string            `json:"description"`
	ObservedAt  time.Time         `json:"observed_at"`
}

// AlertRecord is an emitted emergency alert. Records are append-only: the
// only permitted mutation after creation is acknowledgement.
type AlertRecord struct {
	ID             string            `json:"id" db:"id"`
	SessionID      string            `json:"session_id" db:"session_id"`
	PatientID      string            `json:"patient_id" db:"patient_id"`
	Category       EmergencyCategory `json:"category" db:"category"`
	Confidence     float64           `json:"confidence" db:"confidence"`
	Description    string            `json:"description" db:"description"`
	Location       string            `json:"location" db:"location"`
	ObservedAt     time.Time         `json:"observed_at" db:"observed_at"`
	Acknowledged   bool              `json:"acknowledged" db:"acknowledged"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
}

// PatientSnapshot is the point-in-time input to the risk scorer. It is
// assembled on demand from room telemetry and alert history and never
// persisted.
type PatientSnapshot struct {
	PatientID               string            `json:"patient_id"`
	HeartRate               int               `json:"heart_rate"`
	OxygenSaturation        float64           `json:"oxygen_saturation"`
	CurrentStatus           PatientStatus     `json:"current_status"`
	AlertCount1h            int               `json:"alert_count_1h"`
	AlertCount24h           int               `json:"alert_count_24h"`
	LastEmergencyCategory   EmergencyCategory `json:"last_emergency_category,omitempty"`
	LastEmergencyConfidence float64           `json:"last_emergency_confidence"`
	MinutesSinceLastAlert   float64           `json:"minutes_since_last_alert"`
}

// ContributingFactor is a human-readable signal explaining a risk score.
type ContributingFactor struct {
	Factor     string          `json:"factor"`
	Importance float64         `json:"importance"`
	Direction  FactorDirection `json:"direction"`
}

// RiskPrediction is a patient risk assessment, produced either by the
// external risk service or by the local fallback scorer.
//
// Invariant: ContributingFactors is sorted by Importance descending.
type RiskPrediction struct {
	PatientID                string               `json:"patient_id"`
	RiskScore                int                  `json:"risk_score"`
	DeteriorationProbability float64              `json:"deterioration_probability"`
	ContributingFactors      []ContributingFactor `json:"contributing_factors"`
	RecommendedAction        string               `json:"recommended_action"`
	Confidence               float64              `json:"confidence"`
	Source                   RiskSource           `json:"source"`
}

// FaceLandmark is a normalized facial keypoint within a frame.
type FaceLandmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox describes one detected person in a frame. Coordinates and
// dimensions are normalized to [0,1] relative to the frame size.
type BoundingBox struct {
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Label      string         `json:"label,omitempty"`
	Confidence float64        `json:"confidence"`
	Landmarks  []FaceLandmark `json:"landmarks,omitempty"`
}

// DetectionResult is the vision sidecar's response for a single frame.
type DetectionResult struct {
	Persons    []BoundingBox `json:"persons"`
	ObservedAt time.Time     `json:"timestamp"`
}

// MonitorSession represents an active camera monitoring session for one room.
type MonitorSession struct {
	ID        string        `json:"id" db:"id"`
	PatientID string        `json:"patient_id" db:"patient_id"`
	Location  string        `json:"location" db:"location"`
	Status    SessionStatus `json:"status" db:"status"`
	StartedAt time.Time     `json:"started_at" db:"started_at"`
	StoppedAt *time.Time    `json:"stopped_at,omitempty" db:"stopped_at"`
}

// Patient is the care-facility resident a session monitors.
type Patient struct {
	ID        string        `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Room      string        `json:"room" db:"room"`
	Status    PatientStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// VitalsSample is one telemetry reading for a patient.
type VitalsSample struct {
	PatientID        string    `json:"patient_id" db:"patient_id"`
	HeartRate        int       `json:"heart_rate" db:"heart_rate"`
	OxygenSaturation float64   `json:"oxygen_saturation" db:"oxygen_saturation"`
	RecordedAt       time.Time `json:"recorded_at" db:"recorded_at"`
}

// TraceEntry records one detector state transition for observability.
// Entries live in a bounded per-session ring buffer and are archived on
// session teardown.
type TraceEntry struct {
	At         time.Time         `json:"at"`
	From       DetectorState     `json:"from"`
	To         DetectorState     `json:"to"`
	Category   EmergencyCategory `json:"category,omitempty"`
	Confidence float64           `json:"confidence"`
	Alerted    bool              `json:"alerted"`
}
