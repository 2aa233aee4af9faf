// Package monitor owns the live monitoring sessions: per-session detector
// state, the in-memory alert store the dashboard polls, and the analyze tick
// pipeline that turns camera frames into alerts.
package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"mediwatch/internal/classify"
	"mediwatch/internal/detect"
	"mediwatch/internal/types"
)

// PersonDetector finds people in a camera frame. The location is passed
// through for sidecar-side logging.
type PersonDetector interface {
	DetectPersons(ctx context.Context, frame, location string) (*types.DetectionResult, error)
}

// FrameClassifier returns the raw vision-model text for a camera frame.
type FrameClassifier interface {
	ClassifyFrame(ctx context.Context, frame string) (string, error)
}

// TickResult is the outcome of one analyze tick.
type TickResult struct {
	Persons        []types.BoundingBox        `json:"persons"`
	Classification types.ClassificationResult `json:"classification"`
	Alert          *types.AlertRecord         `json:"alert,omitempty"`
	DetectorState  types.DetectorState        `json:"detector_state"`
}

// View is the session state returned to the dashboard. Unacknowledged flags
// sessions with an alert a caregiver has not yet acted on.
type View struct {
	Session        types.MonitorSession `json:"session"`
	DetectorState  types.DetectorState  `json:"detector_state"`
	Trace          []types.TraceEntry   `json:"trace"`
	AlertCount     int                  `json:"alert_count"`
	Unacknowledged bool                 `json:"unacknowledged"`
}

// Session is one active camera monitoring session. It owns the debouncer,
// the transition trace, and the in-memory alert store; all three live and
// die with the session.
type Session struct {
	info      types.MonitorSession
	debouncer *detect.Debouncer
	trace     *detect.Trace
	store     *Store

	detector   PersonDetector
	classifier FrameClassifier
	alerts     types.AlertRepository
	publisher  types.AlertPublisher
	clock      types.Clock
	logger     *slog.Logger

	// tickMu serializes analyze ticks. A tick arriving while the previous
	// one is still waiting on an upstream call is skipped, never queued.
	tickMu sync.Mutex
}

// Info returns a copy of the session's identity record.
func (s *Session) Info() types.MonitorSession {
	return s.info
}

// View returns the session state for the dashboard, including the recent
// transition trace.
func (s *Session) View() View {
	return View{
		Session:        s.info,
		DetectorState:  s.debouncer.State(),
		Trace:          s.trace.Snapshot(),
		AlertCount:     s.store.Len(),
		Unacknowledged: s.store.HasUnacknowledged(),
	}
}

// Store returns the session's in-memory alert store.
func (s *Session) Store() *Store {
	return s.store
}

// Analyze runs one monitoring tick: detect persons in the frame, classify it
// for emergencies, feed the result through the debouncer, and dispatch any
// surfaced alert. Returns conflict_busy when the previous tick is still in
// flight; an upstream classification failure is a missed tick and leaves the
// detector state untouched.
func (s *Session) Analyze(ctx context.Context, frame string) (*TickResult, error) {
	if !s.tickMu.TryLock() {
		return nil, types.NewAppError(types.ErrCodeConflictBusy, "previous analysis still in flight", nil)
	}
	defer s.tickMu.Unlock()

	det, err := s.detector.DetectPersons(ctx, frame, s.info.Location)
	if err != nil {
		return nil, err
	}

	if len(det.Persons) == 0 {
		// Nobody visible. Skip the expensive classification call; this is
		// not a tick, so the detector state does not move.
		return &TickResult{
			Persons:        det.Persons,
			Classification: classify.Fallback(s.clock.Now()),
			DetectorState:  s.debouncer.State(),
		}, nil
	}

	raw, err := s.classifier.ClassifyFrame(ctx, frame)
	if err != nil {
		return nil, err
	}

	res, ok := classify.ParseClassification(raw, s.clock.Now())
	if !ok {
		s.logger.Warn("unparseable classification treated as normal",
			"session_id", s.info.ID)
	}

	now := s.clock.Now()
	prev := s.debouncer.State()
	alert := s.debouncer.OnResult(res, now)
	s.trace.Append(types.TraceEntry{
		At:         now,
		From:       prev,
		To:         s.debouncer.State(),
		Category:   res.Category,
		Confidence: res.Confidence,
		Alerted:    alert != nil,
	})

	if alert != nil {
		s.store.Add(*alert)
		s.dispatch(ctx, alert)
	}

	return &TickResult{
		Persons:        det.Persons,
		Classification: res,
		Alert:          alert,
		DetectorState:  s.debouncer.State(),
	}, nil
}

// dispatch persists the alert and enqueues the fan-out message. Failures are
// logged but do not fail the tick; the alert has already surfaced to the
// caller and the in-memory store.
func (s *Session) dispatch(ctx context.Context, alert *types.AlertRecord) {
	// A prior alert of the same category still unacknowledged means nobody has
	// responded yet; flag the repeat so downstream consumers can escalate.
	stale, err := s.alerts.HasUnacknowledged(ctx, alert.PatientID, alert.Category)
	if err != nil {
		s.logger.Error("failed to check unacknowledged alerts",
			"patient_id", alert.PatientID, "error", err)
	} else if stale {
		s.logger.Warn("previous alert of this category is still unacknowledged",
			"alert_id", alert.ID, "patient_id", alert.PatientID, "category", alert.Category)
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("failed to persist alert",
			"alert_id", alert.ID, "session_id", s.info.ID, "error", err)
	}

	if s.publisher == nil {
		return
	}
	msg := types.AlertMessage{
		MessageID:   uuid.NewString(),
		TraceID:     types.GetRequestID(ctx),
		AlertID:     alert.ID,
		SessionID:   alert.SessionID,
		PatientID:   alert.PatientID,
		Category:    alert.Category,
		Confidence:  alert.Confidence,
		Description: alert.Description,
		Location:    alert.Location,
		Urgency:     types.UrgencyForCategory(alert.Category),
		ObservedAt:  alert.ObservedAt,
		EnqueuedAt:  s.clock.Now(),
	}
	if err := s.publisher.PublishAlert(ctx, msg); err != nil {
		s.logger.Error("failed to publish alert message",
			"alert_id", alert.ID, "session_id", s.info.ID, "error", err)
	}
}
