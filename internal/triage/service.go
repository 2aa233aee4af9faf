package triage

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mediwatch/internal/types"
)

// RiskPredictor is the external risk-prediction client surface the service
// depends on. Configured reports whether the upstream has credentials; an
// unconfigured client is skipped entirely rather than called and failed.
type RiskPredictor interface {
	Configured() bool
	Predict(ctx context.Context, snapshot types.PatientSnapshot) (*types.RiskPrediction, error)
}

// Service assembles patient snapshots and produces risk predictions,
// preferring the external engine and falling back to the local scorer.
type Service struct {
	patients types.PatientRepository
	alerts   types.AlertRepository
	risk     RiskPredictor
	clock    types.Clock
	logger   *slog.Logger
}

// NewService wires the risk service. risk may be an unconfigured client; it
// must not be nil.
func NewService(
	patients types.PatientRepository,
	alerts types.AlertRepository,
	risk RiskPredictor,
	clock types.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		patients: patients,
		alerts:   alerts,
		risk:     risk,
		clock:    clock,
		logger:   logger,
	}
}

// Predict produces a risk prediction for the patient.
//
// The snapshot is assembled from the latest vitals sample and the alert
// history; the five reads are independent and fetched in parallel. If the
// external engine is configured it is tried first; any upstream failure
// degrades to the local scorer instead of failing the request. The prediction
// Source field records which engine answered.
func (s *Service) Predict(ctx context.Context, patientID string) (*types.RiskPrediction, error) {
	snapshot, err := s.assembleSnapshot(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if s.risk.Configured() {
		pred, err := s.risk.Predict(ctx, *snapshot)
		if err == nil {
			return pred, nil
		}
		s.logger.Warn("external risk prediction failed, using local scorer",
			slog.String("patient_id", patientID),
			slog.String("error", err.Error()),
		)
	}

	local := ScoreSnapshot(*snapshot)
	return &local, nil
}

// assembleSnapshot builds the point-in-time scorer input from repositories.
func (s *Service) assembleSnapshot(ctx context.Context, patientID string) (*types.PatientSnapshot, error) {
	now := s.clock.Now()

	var (
		patient *types.Patient
		vitals  *types.VitalsSample
		count1h int
		count24 int
		last    *types.AlertRecord
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		patient, err = s.patients.GetByID(gctx, patientID)
		return err
	})
	g.Go(func() error {
		var err error
		vitals, err = s.patients.LatestVitals(gctx, patientID)
		return err
	})
	g.Go(func() error {
		var err error
		count1h, err = s.alerts.CountByPatientSince(gctx, patientID, now.Add(-time.Hour))
		return err
	})
	g.Go(func() error {
		var err error
		count24, err = s.alerts.CountByPatientSince(gctx, patientID, now.Add(-24*time.Hour))
		return err
	})
	g.Go(func() error {
		var err error
		last, err = s.alerts.LastEmergency(gctx, patientID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := types.PatientSnapshot{
		PatientID:     patientID,
		CurrentStatus: patient.Status,
		AlertCount1h:  count1h,
		AlertCount24h: count24,
	}

	if vitals != nil {
		snapshot.HeartRate = vitals.HeartRate
		snapshot.OxygenSaturation = vitals.OxygenSaturation
	}

	if last != nil {
		snapshot.LastEmergencyCategory = last.Category
		snapshot.LastEmergencyConfidence = last.Confidence
		snapshot.MinutesSinceLastAlert = now.Sub(last.ObservedAt).Minutes()
	}

	return &snapshot, nil
}
