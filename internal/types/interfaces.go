package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// AlertRepository is the durable store for alert history. The per-session
// in-memory store remains the UI-facing hot path; this is what the snapshot
// assembly reads.
type AlertRepository interface {
	Create(ctx context.Context, a *AlertRecord) error
	Acknowledge(ctx context.Context, id string, at time.Time) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]AlertRecord, error)
	CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int, error)
	LastEmergency(ctx context.Context, patientID string) (*AlertRecord, error)
	HasUnacknowledged(ctx context.Context, patientID string, category EmergencyCategory) (bool, error)
}

// PatientRepository provides patient lookups and the latest vitals sample.
type PatientRepository interface {
	GetByID(ctx context.Context, id string) (*Patient, error)
	LatestVitals(ctx context.Context, patientID string) (*VitalsSample, error)
}

// SessionRepository records monitoring session lifecycle events.
type SessionRepository interface {
	Create(ctx context.Context, s *MonitorSession) error
	Stop(ctx context.Context, id string, at time.Time) error
	GetByID(ctx context.Context, id string) (*MonitorSession, error)
}

// AlertPublisher dispatches alert fan-out messages to downstream workers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, msg AlertMessage) error
}

// NotificationChannel is a delivery channel for alert notifications.
type NotificationChannel interface {
	// Type returns the channel type (e.g., "webhook").
	Type() ChannelType

	// Format transforms the alert message into a channel-specific payload.
	Format(ctx context.Context, msg *AlertMessage, config map[string]any) ([]byte, error)

	// Deliver executes the transmission to the destination.
	Deliver(ctx context.Context, payload []byte, destination string) error

	// ShouldRetry inspects an error to determine if it is transient.
	ShouldRetry(err error) bool
}

// TraceArchiver persists a session's transition trace at teardown.
type TraceArchiver interface {
	ArchiveTrace(ctx context.Context, sessionID string, entries []TraceEntry) error
}
