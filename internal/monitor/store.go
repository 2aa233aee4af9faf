package monitor

import (
	"sync"
	"time"

	"mediwatch/internal/types"
)

// Store is the per-session in-memory alert list. It is the dashboard's hot
// path; the database keeps the durable history. Alerts are append-only, the
// only mutation is acknowledgement.
type Store struct {
	mu     sync.RWMutex
	alerts []types.AlertRecord
}

// NewStore creates an empty alert store.
func NewStore() *Store {
	return &Store{}
}

// Add appends an alert.
func (st *Store) Add(a types.AlertRecord) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.alerts = append(st.alerts, a)
}

// Recent returns up to limit alerts, newest first. A non-positive limit
// returns all alerts.
func (st *Store) Recent(limit int) []types.AlertRecord {
	st.mu.RLock()
	defer st.mu.RUnlock()

	n := len(st.alerts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]types.AlertRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, st.alerts[i])
	}
	return out
}

// Acknowledge marks the alert acknowledged. Reports whether the alert was
// found and not already acknowledged.
func (st *Store) Acknowledge(id string, at time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	for i := range st.alerts {
		if st.alerts[i].ID != id || st.alerts[i].Acknowledged {
			continue
		}
		st.alerts[i].Acknowledged = true
		ackAt := at
		st.alerts[i].AcknowledgedAt = &ackAt
		return true
	}
	return false
}

// HasUnacknowledged reports whether any alert is still unacknowledged. This
// is a dashboard affordance only; alert suppression is decided exclusively by
// the detector's cooldown.
func (st *Store) HasUnacknowledged() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for i := range st.alerts {
		if !st.alerts[i].Acknowledged {
			return true
		}
	}
	return false
}

// Len returns the number of stored alerts.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.alerts)
}
