package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mediwatch/internal/config"
	"mediwatch/internal/detect"
	"mediwatch/internal/types"
)

// Deps collects the collaborators every session needs.
type Deps struct {
	Detector   PersonDetector
	Classifier FrameClassifier
	Alerts     types.AlertRepository
	Sessions   types.SessionRepository
	Publisher  types.AlertPublisher
	Archiver   types.TraceArchiver
	Clock      types.Clock
	Logger     *slog.Logger
}

// Manager creates, looks up, and tears down monitoring sessions. Session
// state is held in memory; the session repository keeps the durable
// lifecycle records.
type Manager struct {
	cfg  config.MonitorConfig
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager constructs a session manager.
func NewManager(cfg config.MonitorConfig, deps Deps) *Manager {
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Start creates a monitoring session for the patient and records it.
func (m *Manager) Start(ctx context.Context, patientID, location string) (*Session, error) {
	info := types.MonitorSession{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Location:  location,
		Status:    types.SessionActive,
		StartedAt: m.deps.Clock.Now(),
	}

	if err := m.deps.Sessions.Create(ctx, &info); err != nil {
		return nil, err
	}

	sess := &Session{
		info: info,
		debouncer: detect.NewDebouncer(detect.Config{
			ConfidenceThreshold: m.cfg.ConfidenceThreshold,
			CooldownDuration:    m.cfg.CooldownDuration,
		}, info.ID, patientID, location),
		trace:      detect.NewTrace(m.cfg.TraceCapacity),
		store:      NewStore(),
		detector:   m.deps.Detector,
		classifier: m.deps.Classifier,
		alerts:     m.deps.Alerts,
		publisher:  m.deps.Publisher,
		clock:      m.deps.Clock,
		logger:     m.deps.Logger.With("session_id", info.ID, "patient_id", patientID),
	}

	m.mu.Lock()
	m.sessions[info.ID] = sess
	m.mu.Unlock()

	m.deps.Logger.Info("monitoring session started",
		"session_id", info.ID, "patient_id", patientID, "location", location)
	return sess, nil
}

// Get returns the live session, or not_found_session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
	}
	return sess, nil
}

// Stop tears down a session: removes it from the live set, archives its
// transition trace, and records the stop. An archive failure is logged but
// does not block the stop.
func (m *Manager) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
	}

	if m.deps.Archiver != nil {
		if err := m.deps.Archiver.ArchiveTrace(ctx, id, sess.trace.Snapshot()); err != nil {
			m.deps.Logger.Error("failed to archive session trace",
				"session_id", id, "error", err)
		}
	}

	if err := m.deps.Sessions.Stop(ctx, id, m.deps.Clock.Now()); err != nil {
		return err
	}

	m.deps.Logger.Info("monitoring session stopped", "session_id", id)
	return nil
}

// AcknowledgeAlert marks the alert acknowledged in whichever live session's
// store holds it. Reports whether a live session was updated; the durable
// record is acknowledged separately by the caller.
func (m *Manager) AcknowledgeAlert(id string, at time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sess := range m.sessions {
		if sess.store.Acknowledge(id, at) {
			return true
		}
	}
	return false
}

// Shutdown stops all live sessions concurrently. Used on server shutdown so
// every trace gets archived.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			return m.Stop(ctx, id)
		})
	}
	return g.Wait()
}
