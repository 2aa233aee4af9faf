package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mediwatch/internal/types"
)

// SessionRepository records monitoring session lifecycle events. The live
// session objects are in-memory (internal/monitor); these rows are the
// durable audit trail.
type SessionRepository struct {
	db DBTX
}

// Compile-time assertion that SessionRepository implements the domain interface.
var _ types.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a SessionRepository backed by the given
// database connection (pool or transaction).
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session start record.
func (r *SessionRepository) Create(ctx context.Context, s *types.MonitorSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO monitor_sessions
		 (id, patient_id, location, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID,
		s.PatientID,
		s.Location,
		string(s.Status),
		s.StartedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create session record", err)
	}
	return nil
}

// Stop marks a session as stopped. Stopping an already-stopped session
// returns conflict_session_stopped.
func (r *SessionRepository) Stop(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE monitor_sessions SET status = $1, stopped_at = $2
		 WHERE id = $3 AND status = $4`,
		string(types.SessionStopped), at, id, string(types.SessionActive),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to stop session record", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM monitor_sessions WHERE id = $1)`, id,
		).Scan(&exists)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to check session existence", err)
		}
		if !exists {
			return types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
		}
		return types.NewAppError(types.ErrCodeConflictSessionStopped, "session already stopped", nil)
	}
	return nil
}

// GetByID loads a session record, returning not_found_session when absent.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*types.MonitorSession, error) {
	var s types.MonitorSession
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT id, patient_id, location, status, started_at, stopped_at
		 FROM monitor_sessions
		 WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.PatientID, &s.Location, &status, &s.StartedAt, &s.StoppedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundSession, "session not found", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load session record", err)
	}
	s.Status = types.SessionStatus(status)
	return &s, nil
}
