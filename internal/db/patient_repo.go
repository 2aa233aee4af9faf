package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"mediwatch/internal/types"
)

// PatientRepository provides data access for the patients and vitals tables.
type PatientRepository struct {
	db DBTX
}

// Compile-time assertion that PatientRepository implements the domain interface.
var _ types.PatientRepository = (*PatientRepository)(nil)

// NewPatientRepository creates a PatientRepository backed by the given
// database connection (pool or transaction).
func NewPatientRepository(db DBTX) *PatientRepository {
	return &PatientRepository{db: db}
}

// GetByID loads a patient, returning not_found_patient when absent.
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	var p types.Patient
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT id, name, room, status, created_at
		 FROM patients
		 WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Room, &status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundPatient, "patient not found", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load patient", err)
	}
	p.Status = types.PatientStatus(status)
	return &p, nil
}

// LatestVitals returns the most recent vitals sample for the patient, or nil
// when no telemetry has been recorded yet.
func (r *PatientRepository) LatestVitals(ctx context.Context, patientID string) (*types.VitalsSample, error) {
	var v types.VitalsSample
	err := r.db.QueryRow(ctx,
		`SELECT patient_id, heart_rate, oxygen_saturation, recorded_at
		 FROM vitals
		 WHERE patient_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT 1`,
		patientID,
	).Scan(&v.PatientID, &v.HeartRate, &v.OxygenSaturation, &v.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load vitals", err)
	}
	return &v, nil
}
