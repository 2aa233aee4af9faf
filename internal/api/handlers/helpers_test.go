package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"mediwatch/internal/config"
	"mediwatch/internal/core"
	"mediwatch/internal/monitor"
	"mediwatch/internal/types"
)

const validFrame = "data:image/jpeg;base64,Zg=="

const emergencyRaw = `{"emergency": true, "category": "fall", "confidence": 0.92, "description": "patient on the floor"}`
const normalRaw = `{"emergency": false, "category": "normal", "confidence": 0.1, "description": "patient resting"}`

var handlerNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *core.Validator {
	return core.NewValidator(testLogger())
}

type stubDetector struct {
	persons int
	err     error
	calls   int
}

func (d *stubDetector) DetectPersons(ctx context.Context, frame, location string) (*types.DetectionResult, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	persons := make([]types.BoundingBox, d.persons)
	for i := range persons {
		persons[i] = types.BoundingBox{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.6, Confidence: 0.9}
	}
	return &types.DetectionResult{Persons: persons, ObservedAt: handlerNow}, nil
}

type stubClassifier struct {
	raw string
	err error

	// When set, ClassifyFrame signals entered and then waits for release.
	entered chan struct{}
	release chan struct{}
}

func (c *stubClassifier) ClassifyFrame(ctx context.Context, frame string) (string, error) {
	if c.entered != nil {
		c.entered <- struct{}{}
		<-c.release
	}
	return c.raw, c.err
}

type memAlertRepo struct {
	mu      sync.Mutex
	created []types.AlertRecord
}

func (r *memAlertRepo) Create(ctx context.Context, a *types.AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *a)
	return nil
}

func (r *memAlertRepo) Acknowledge(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (r *memAlertRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]types.AlertRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.AlertRecord
	for i := len(r.created) - 1; i >= 0; i-- {
		if r.created[i].SessionID != sessionID {
			continue
		}
		out = append(out, r.created[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memAlertRepo) CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	return 0, nil
}

func (r *memAlertRepo) LastEmergency(ctx context.Context, patientID string) (*types.AlertRecord, error) {
	return nil, nil
}

func (r *memAlertRepo) HasUnacknowledged(ctx context.Context, patientID string, category types.EmergencyCategory) (bool, error) {
	return false, nil
}

type memSessionRepo struct {
	mu      sync.Mutex
	created []types.MonitorSession
	stopped []string
}

func (r *memSessionRepo) Create(ctx context.Context, s *types.MonitorSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *s)
	return nil
}

func (r *memSessionRepo) Stop(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, id)
	return nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*types.MonitorSession, error) {
	return nil, types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
}

// sessionEnv wires a real session manager behind the session handler so the
// HTTP tests exercise the full analyze pipeline.
type sessionEnv struct {
	router     chi.Router
	manager    *monitor.Manager
	detector   *stubDetector
	classifier *stubClassifier
	alerts     *memAlertRepo
	sessions   *memSessionRepo
}

func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()

	env := &sessionEnv{
		detector:   &stubDetector{persons: 1},
		classifier: &stubClassifier{raw: normalRaw},
		alerts:     &memAlertRepo{},
		sessions:   &memSessionRepo{},
	}
	env.manager = monitor.NewManager(config.MonitorConfig{
		ConfidenceThreshold: 0.7,
		CooldownDuration:    5 * time.Second,
		TraceCapacity:       16,
	}, monitor.Deps{
		Detector:   env.detector,
		Classifier: env.classifier,
		Alerts:     env.alerts,
		Sessions:   env.sessions,
		Publisher:  nil,
		Archiver:   nil,
		Clock:      fixedClock{t: handlerNow},
		Logger:     testLogger(),
	})

	env.router = chi.NewRouter()
	NewSessionHandler(env.manager, env.alerts, testValidator(), testLogger()).RegisterRoutes(env.router)
	return env
}

func (e *sessionEnv) startSession(t *testing.T) string {
	t.Helper()
	rec := doJSON(t, e.router, http.MethodPost, "/sessions",
		`{"patient_id": "patient-1", "location": "Room 204"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data types.MonitorSession `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

// doJSON drives a handler through the router and returns the recorder. An
// empty body sends no payload at all.
func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// errorCode extracts the structured error code from an error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}
