package triage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediwatch/internal/types"
)

var serviceNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubPatientRepo struct {
	patient *types.Patient
	vitals  *types.VitalsSample
	err     error
}

func (r *stubPatientRepo) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	return r.patient, r.err
}

func (r *stubPatientRepo) LatestVitals(ctx context.Context, patientID string) (*types.VitalsSample, error) {
	return r.vitals, nil
}

type stubAlertRepo struct {
	types.AlertRepository

	count1h int
	count24 int
	last    *types.AlertRecord
}

func (r *stubAlertRepo) CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	if serviceNow.Sub(since) <= time.Hour {
		return r.count1h, nil
	}
	return r.count24, nil
}

func (r *stubAlertRepo) LastEmergency(ctx context.Context, patientID string) (*types.AlertRecord, error) {
	return r.last, nil
}

type stubRisk struct {
	configured bool
	pred       *types.RiskPrediction
	err        error
	called     bool
}

func (r *stubRisk) Configured() bool { return r.configured }

func (r *stubRisk) Predict(ctx context.Context, snapshot types.PatientSnapshot) (*types.RiskPrediction, error) {
	r.called = true
	return r.pred, r.err
}

func newTestService(risk *stubRisk) (*Service, *stubPatientRepo, *stubAlertRepo) {
	patients := &stubPatientRepo{
		patient: &types.Patient{ID: "patient-1", Status: types.PatientWarning},
		vitals:  &types.VitalsSample{PatientID: "patient-1", HeartRate: 110, OxygenSaturation: 93},
	}
	alerts := &stubAlertRepo{
		count1h: 1,
		count24: 3,
		last: &types.AlertRecord{
			Category:   types.CategoryFall,
			Confidence: 0.9,
			ObservedAt: serviceNow.Add(-15 * time.Minute),
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(patients, alerts, risk, fixedClock{serviceNow}, logger), patients, alerts
}

func TestPredict_UsesExternalEngineWhenConfigured(t *testing.T) {
	risk := &stubRisk{
		configured: true,
		pred: &types.RiskPrediction{
			PatientID: "patient-1",
			RiskScore: 77,
			Source:    types.RiskSourceUpstream,
		},
	}
	svc, _, _ := newTestService(risk)

	pred, err := svc.Predict(t.Context(), "patient-1")

	require.NoError(t, err)
	assert.True(t, risk.called)
	assert.Equal(t, 77, pred.RiskScore)
	assert.Equal(t, types.RiskSourceUpstream, pred.Source)
}

func TestPredict_FallsBackOnUpstreamFailure(t *testing.T) {
	risk := &stubRisk{
		configured: true,
		err:        types.NewAppError(types.ErrCodeUpstreamRisk, "risk service unavailable", nil),
	}
	svc, _, _ := newTestService(risk)

	pred, err := svc.Predict(t.Context(), "patient-1")

	require.NoError(t, err)
	assert.True(t, risk.called)
	assert.Equal(t, types.RiskSourceLocalFallback, pred.Source)
	// HR 110 (+20), SpO2 93 (+20), Warning (+15), alerts (+10+6),
	// recency (20-5)*0.9 = 13.5. Raw 84.5 -> 85.
	assert.Equal(t, 85, pred.RiskScore)
}

func TestPredict_SkipsUnconfiguredEngine(t *testing.T) {
	risk := &stubRisk{configured: false}
	svc, _, _ := newTestService(risk)

	pred, err := svc.Predict(t.Context(), "patient-1")

	require.NoError(t, err)
	assert.False(t, risk.called)
	assert.Equal(t, types.RiskSourceLocalFallback, pred.Source)
}

func TestPredict_PropagatesRepositoryError(t *testing.T) {
	risk := &stubRisk{configured: true}
	svc, patients, _ := newTestService(risk)
	patients.err = types.NewAppError(types.ErrCodeNotFoundPatient, "patient not found", errors.New("no rows"))

	_, err := svc.Predict(t.Context(), "patient-1")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundPatient, appErr.Code)
	assert.False(t, risk.called)
}

func TestPredict_SnapshotHandlesNoHistory(t *testing.T) {
	risk := &stubRisk{configured: false}
	svc, patients, alerts := newTestService(risk)
	patients.patient = &types.Patient{ID: "patient-1", Status: types.PatientNormal}
	patients.vitals = nil
	alerts.count1h = 0
	alerts.count24 = 0
	alerts.last = nil

	pred, err := svc.Predict(t.Context(), "patient-1")

	require.NoError(t, err)
	// No vitals sample means zero-valued vitals; HR 0 lands in the <50
	// bucket. The scorer stays total rather than guessing.
	assert.GreaterOrEqual(t, pred.RiskScore, 0)
	assert.LessOrEqual(t, pred.RiskScore, 100)
}
