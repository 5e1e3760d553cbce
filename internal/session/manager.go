// Package session tracks terminal connections and their show
// subscriptions, and releases any holds a dropped connection leaves
// behind.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/observability"
)

// HoldReleaser is the engine-side disconnect hook.
type HoldReleaser interface {
	ReleaseSession(ctx context.Context, sessionID string) []domain.Hold
}

var ErrUnknownSession = errors.New("unknown session")

type state struct {
	id          string
	connectedAt time.Time
	lastSeen    time.Time
	topics      map[uuid.UUID]struct{}
}

// Manager is the connection lifecycle handler: CONNECTED → SUBSCRIBED
// (0..n show topics) → DISCONNECTED. Subscribe and unsubscribe are
// observational; only disconnect mutates seat state, by releasing the
// session's orphaned holds before the session is forgotten.
type Manager struct {
	releaser HoldReleaser
	log      observability.Logger
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]*state
}

func NewManager(releaser HoldReleaser, log observability.Logger, ttl time.Duration) *Manager {
	return &Manager{
		releaser: releaser,
		log:      log,
		ttl:      ttl,
		sessions: make(map[string]*state),
	}
}

// Connect registers a session. An empty id mints a fresh one. Connecting
// an existing id just refreshes its last-seen.
func (m *Manager) Connect(sessionID string) string {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.lastSeen = now
		return sessionID
	}
	m.sessions[sessionID] = &state{
		id:          sessionID,
		connectedAt: now,
		lastSeen:    now,
		topics:      make(map[uuid.UUID]struct{}),
	}
	observability.SessionsActive.Inc()
	m.log.WithField("session_id", sessionID).Info("session connected")
	return sessionID
}

func (m *Manager) Subscribe(sessionID string, showID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return errors.Wrapf(ErrUnknownSession, "subscribe %s", sessionID)
	}
	s.topics[showID] = struct{}{}
	s.lastSeen = time.Now()
	m.log.WithField("session_id", sessionID).WithField("show_id", showID).Info("session subscribed")
	return nil
}

func (m *Manager) Unsubscribe(sessionID string, showID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return errors.Wrapf(ErrUnknownSession, "unsubscribe %s", sessionID)
	}
	delete(s.topics, showID)
	s.lastSeen = time.Now()
	m.log.WithField("session_id", sessionID).WithField("show_id", showID).Info("session unsubscribed")
	return nil
}

// Heartbeat refreshes the session's liveness window.
func (m *Manager) Heartbeat(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return errors.Wrapf(ErrUnknownSession, "heartbeat %s", sessionID)
	}
	s.lastSeen = time.Now()
	return nil
}

// Disconnect forgets the session after releasing every hold it owned, so
// no leaked hold outlives its connection even inside the TTL window.
func (m *Manager) Disconnect(ctx context.Context, sessionID string) {
	m.mu.Lock()
	_, known := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !known {
		return
	}
	observability.SessionsActive.Dec()

	released := m.releaser.ReleaseSession(ctx, sessionID)
	m.log.WithField("session_id", sessionID).
		WithField("released_holds", len(released)).
		Info("session disconnected")
}

// Run sweeps for sessions whose heartbeat lapsed, treating them as
// disconnected. Period is half the session TTL.
func (m *Manager) Run(ctx context.Context) {
	period := m.ttl / 2
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(ctx, now)
		}
	}
}

// Sweep disconnects every session silent for longer than the TTL.
// Exported so tests drive it directly.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		m.log.WithField("session_id", id).Warn("session heartbeat lapsed")
		m.Disconnect(ctx, id)
	}
	return len(stale)
}

// Active reports whether the session is currently connected.
func (m *Manager) Active(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}
