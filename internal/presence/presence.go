// Package presence tracks ephemeral per-account sessions used to derive
// online status. Sessions live only in memory; eviction affects isOnline
// queries, never stored data.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/meridian-games/landsync/internal/model"
)

// DefaultTimeout is the inactivity window after which a session counts as offline.
const DefaultTimeout = 5 * time.Minute

// Tracker owns the concurrency-safe session table. Construct at process
// start, run the sweeper, and let context cancellation shut it down.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[int64]*model.Session

	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// New constructs a tracker with the given inactivity timeout (DefaultTimeout if <= 0).
func New(timeout time.Duration, log *zap.Logger) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		sessions: make(map[int64]*model.Session),
		timeout:  timeout,
		now:      time.Now,
		log:      log,
	}
}

// Track upserts the session for an account. ConnectedAt and SessionID survive
// repeated calls; LastActiveAt always moves forward.
func (t *Tracker) Track(accountID, documentKey int64, node, meta string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[accountID]; ok {
		s.DocumentKey = documentKey
		s.ServerNode = node
		s.Meta = meta
		s.LastActiveAt = now
		return
	}
	t.sessions[accountID] = &model.Session{
		SessionID:    uuid.Must(uuid.NewV4()),
		AccountID:    accountID,
		DocumentKey:  documentKey,
		ServerNode:   node,
		Meta:         meta,
		ConnectedAt:  now,
		LastActiveAt: now,
	}
}

// Touch refreshes LastActiveAt only; unknown accounts are ignored.
func (t *Tracker) Touch(accountID int64) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[accountID]; ok {
		s.LastActiveAt = now
	}
}

// IsOnline reports whether the account has an unexpired session.
// Stale entries are evicted on the spot.
func (t *Tracker) IsOnline(accountID int64) bool {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[accountID]
	if !ok {
		return false
	}
	if now.Sub(s.LastActiveAt) >= t.timeout {
		delete(t.sessions, accountID)
		return false
	}
	return true
}

// Snapshot returns a copy of all live sessions.
func (t *Tracker) Snapshot() []model.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, *s)
	}
	return out
}

// Count returns the number of tracked sessions, expired or not.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Stats aggregates session ages and per-node distribution.
func (t *Tracker) Stats() model.PresenceStats {
	now := t.now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := model.PresenceStats{PerNode: make(map[string]int)}
	var total time.Duration
	for _, s := range t.sessions {
		age := now.Sub(s.ConnectedAt)
		total += age
		if st.Sessions == 0 || age < st.MinAge {
			st.MinAge = age
		}
		if age > st.MaxAge {
			st.MaxAge = age
		}
		st.PerNode[s.ServerNode]++
		st.Sessions++
	}
	if st.Sessions > 0 {
		st.AvgAge = total / time.Duration(st.Sessions)
	}
	return st
}

// Sweep evicts all expired sessions and returns how many were removed.
func (t *Tracker) Sweep() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for id, s := range t.sessions {
		if now.Sub(s.LastActiveAt) >= t.timeout {
			delete(t.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on the given interval until the context is canceled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.log.Info("presence sweeper stopped")
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				t.log.Info("presence sweep", zap.Int("evicted", n))
			}
		}
	}
}
