// Package detect implements the emergency alert debouncer: a small state
// machine that consumes the stream of per-frame classification results and
// decides when to surface exactly one alert per emergency episode, suppressing
// repeats while the episode continues or a post-episode cooldown runs.
package detect

import (
	"time"

	"github.com/google/uuid"

	"mediwatch/internal/types"
)

// Default debouncing constants. Overridable via config for tests and tuning.
const (
	DefaultConfidenceThreshold = 0.7
	DefaultCooldownDuration    = 5 * time.Second
)

// Config tunes the debouncer.
type Config struct {
	// ConfidenceThreshold is the minimum classification confidence (exclusive)
	// for a result to count as a real emergency.
	ConfidenceThreshold float64

	// CooldownDuration is how long after an episode ends new alerts stay
	// suppressed even if the emergency condition reappears.
	CooldownDuration time.Duration
}

// withDefaults fills zero values with the standard constants.
func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.CooldownDuration == 0 {
		c.CooldownDuration = DefaultCooldownDuration
	}
	return c
}

// Debouncer is the per-session emergency detection state machine.
//
// It is deliberately single-threaded: state is mutated only by OnResult, which
// the owning session invokes once per tick under its own lock. A missed tick
// (upstream classification failure) simply means OnResult is not called; no
// transition occurs.
type Debouncer struct {
	cfg Config

	sessionID string
	patientID string
	location  string

	state         types.DetectorState
	cooldownStart time.Time
}

// NewDebouncer creates a debouncer in the NORMAL state for one monitoring
// session. The session/patient/location identity is stamped onto every alert
// the debouncer emits.
func NewDebouncer(cfg Config, sessionID, patientID, location string) *Debouncer {
	return &Debouncer{
		cfg:       cfg.withDefaults(),
		sessionID: sessionID,
		patientID: patientID,
		location:  location,
		state:     types.DetectorNormal,
	}
}

// State returns the current detector state for observability.
func (d *Debouncer) State() types.DetectorState {
	return d.state
}

// OnResult feeds one classification result into the state machine and returns
// the alert to surface, or nil when the result is suppressed.
//
// Guarantees:
//   - At most one alert per contiguous run of high-confidence emergency
//     results (one episode, one alert).
//   - After an episode ends, at most one alert per cooldown window even if
//     the emergency condition persists intermittently.
func (d *Debouncer) OnResult(res types.ClassificationResult, now time.Time) *types.AlertRecord {
	active := d.isActiveEmergency(res)

	switch d.state {
	case types.DetectorNormal:
		if active {
			d.state = types.DetectorEmergencyActive
			return d.newAlert(res)
		}
		return nil

	case types.DetectorEmergencyActive:
		if active {
			// Same episode continuing; suppress.
			return nil
		}
		d.state = types.DetectorCooldown
		d.cooldownStart = now
		return nil

	case types.DetectorCooldown:
		elapsed := now.Sub(d.cooldownStart)
		if active {
			if elapsed < d.cfg.CooldownDuration {
				return nil
			}
			// Cooldown expired and the emergency is back: new episode.
			d.state = types.DetectorEmergencyActive
			return d.newAlert(res)
		}
		if elapsed >= d.cfg.CooldownDuration {
			d.state = types.DetectorNormal
		}
		return nil
	}

	return nil
}

// isActiveEmergency reports whether the result should be treated as a live
// emergency: flagged, a real category, and above the confidence threshold.
func (d *Debouncer) isActiveEmergency(res types.ClassificationResult) bool {
	return res.Emergency &&
		res.Category != types.CategoryNormal &&
		res.Confidence > d.cfg.ConfidenceThreshold
}

// newAlert builds the alert record for an episode start.
func (d *Debouncer) newAlert(res types.ClassificationResult) *types.AlertRecord {
	return &types.AlertRecord{
		ID:          uuid.NewString(),
		SessionID:   d.sessionID,
		PatientID:   d.patientID,
		Category:    res.Category,
		Confidence:  res.Confidence,
		Description: res.Description,
		Location:    d.location,
		ObservedAt:  res.ObservedAt,
	}
}
