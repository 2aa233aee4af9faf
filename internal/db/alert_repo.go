package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mediwatch/internal/types"
)

// AlertRepository provides data access for the alerts table. It is the
// durable history behind the per-session in-memory store: risk snapshot
// assembly and the dashboard's historical views read from here.
type AlertRepository struct {
	db DBTX
}

// Compile-time assertion that AlertRepository implements the domain interface.
var _ types.AlertRepository = (*AlertRepository)(nil)

// NewAlertRepository creates an AlertRepository backed by the given database
// connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert record. The caller sets the ID (the debouncer
// generates it when the alert is emitted).
func (r *AlertRepository) Create(ctx context.Context, a *types.AlertRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alerts
		 (id, session_id, patient_id, category, confidence, description,
		  location, observed_at, acknowledged)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)`,
		a.ID,
		a.SessionID,
		a.PatientID,
		string(a.Category),
		a.Confidence,
		a.Description,
		a.Location,
		a.ObservedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create alert", err)
	}
	return nil
}

// Acknowledge marks an alert as acknowledged. Returns not_found_alert when no
// such alert exists and conflict_already_acknowledged when it was already
// acknowledged (the update is conditional so a double-ack never silently
// rewrites the timestamp).
func (r *AlertRepository) Acknowledge(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alerts SET acknowledged = TRUE, acknowledged_at = $1
		 WHERE id = $2 AND acknowledged = FALSE`,
		at, id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to acknowledge alert", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already acknowledged.
		var exists bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM alerts WHERE id = $1)`, id,
		).Scan(&exists)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to check alert existence", err)
		}
		if !exists {
			return types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
		}
		return types.NewAppError(types.ErrCodeConflictAcknowledged, "alert already acknowledged", nil)
	}
	return nil
}

// ListBySession returns the most recent alerts for a session, newest first.
func (r *AlertRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]types.AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, patient_id, category, confidence, description,
		        location, observed_at, acknowledged, acknowledged_at
		 FROM alerts
		 WHERE session_id = $1
		 ORDER BY observed_at DESC
		 LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alerts", err)
	}
	defer rows.Close()

	var alerts []types.AlertRecord
	for rows.Next() {
		var a types.AlertRecord
		var category string
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.PatientID, &category, &a.Confidence,
			&a.Description, &a.Location, &a.ObservedAt, &a.Acknowledged,
			&a.AcknowledgedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert", err)
		}
		a.Category = types.EmergencyCategory(category)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read alerts", err)
	}

	return alerts, nil
}

// CountByPatientSince counts a patient's alerts observed at or after since.
// Used by snapshot assembly for the 1h/24h alert volume terms.
func (r *AlertRepository) CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE patient_id = $1 AND observed_at >= $2`,
		patientID, since,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count alerts", err)
	}
	return count, nil
}

// LastEmergency returns the patient's most recent alert, or nil when the
// patient has no alert history.
func (r *AlertRepository) LastEmergency(ctx context.Context, patientID string) (*types.AlertRecord, error) {
	var a types.AlertRecord
	var category string
	err := r.db.QueryRow(ctx,
		`SELECT id, session_id, patient_id, category, confidence, description,
		        location, observed_at, acknowledged, acknowledged_at
		 FROM alerts
		 WHERE patient_id = $1
		 ORDER BY observed_at DESC
		 LIMIT 1`,
		patientID,
	).Scan(
		&a.ID, &a.SessionID, &a.PatientID, &category, &a.Confidence,
		&a.Description, &a.Location, &a.ObservedAt, &a.Acknowledged,
		&a.AcknowledgedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load last emergency", err)
	}
	a.Category = types.EmergencyCategory(category)
	return &a, nil
}

// HasUnacknowledged reports whether the patient has an unacknowledged alert
// of the given category. This is a UI affordance (badge dedup); it never
// feeds the debouncer, whose suppression policy is the timed cooldown.
func (r *AlertRepository) HasUnacknowledged(ctx context.Context, patientID string, category types.EmergencyCategory) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM alerts
		   WHERE patient_id = $1 AND category = $2 AND acknowledged = FALSE
		 )`,
		patientID, string(category),
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check unacknowledged alerts", err)
	}
	return exists, nil
}
