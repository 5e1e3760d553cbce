// Package registry keeps the in-process index of live seat holds. It is
// authoritative for holds only; the durable seat store remains the final
// arbiter at commit time.
package registry

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/cinepos/seat-inventory/internal/domain"
)

const shardCount = 64

// Registry tracks seat→hold and session→seats with a forward/reverse
// index pair behind one RWMutex, plus a ring of per-seat mutexes used to
// serialize the hold/commit critical sections. First hold to be recorded
// wins; the loser observes "already held" before touching shared state.
type Registry struct {
	shards [shardCount]sync.Mutex

	mu       sync.RWMutex
	seats    map[uuid.UUID]domain.Hold
	sessions map[string]map[uuid.UUID]struct{}
}

func New() *Registry {
	return &Registry{
		seats:    make(map[uuid.UUID]domain.Hold),
		sessions: make(map[string]map[uuid.UUID]struct{}),
	}
}

func shardIndex(seatID uuid.UUID) int {
	h := fnv.New32a()
	h.Write(seatID[:])
	return int(h.Sum32() % shardCount)
}

// WithSeat runs fn inside the seat's critical section. Hold and commit
// paths go through here so concurrent requests for one seat serialize
// instead of racing last-write-wins.
func (r *Registry) WithSeat(seatID uuid.UUID, fn func() error) error {
	i := shardIndex(seatID)
	r.shards[i].Lock()
	defer r.shards[i].Unlock()
	return fn()
}

// WithSeats locks the critical sections of all given seats for a group
// operation. Shard indexes are deduplicated and taken in order to keep
// lock acquisition deadlock-free.
func (r *Registry) WithSeats(seatIDs []uuid.UUID, fn func() error) error {
	seen := make(map[int]struct{}, len(seatIDs))
	idx := make([]int, 0, len(seatIDs))
	for _, id := range seatIDs {
		i := shardIndex(id)
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		r.shards[i].Lock()
	}
	defer func() {
		for _, i := range idx {
			r.shards[i].Unlock()
		}
	}()
	return fn()
}

// Hold records a hold on the seat. A seat already held by the same
// holderRef is refreshed in place (new TTL, refreshed=true, no error);
// any other live hold yields ErrSeatConflict. Callers run this inside
// WithSeat.
func (r *Registry) Hold(sessionID string, showID, seatID uuid.UUID, holderRef string, ttl time.Duration) (domain.Hold, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.seats[seatID]; ok {
		if existing.HolderRef != holderRef {
			return domain.Hold{}, false, errors.Wrapf(domain.ErrSeatConflict, "seat %s held by another terminal", seatID)
		}
		existing.ExpiresAt = time.Now().Add(ttl)
		// A refresh from a new session re-homes the hold, so the old
		// session's disconnect cannot release a seat the reconnected
		// terminal still believes it holds.
		if existing.SessionID != sessionID {
			r.unindexLocked(existing.SessionID, seatID)
			existing.SessionID = sessionID
			r.indexLocked(sessionID, seatID)
		}
		r.seats[seatID] = existing
		return existing, true, nil
	}

	h := domain.NewHold(sessionID, showID, seatID, holderRef, ttl)
	r.seats[seatID] = h
	r.indexLocked(sessionID, seatID)
	return h, false, nil
}

func (r *Registry) indexLocked(sessionID string, seatID uuid.UUID) {
	if r.sessions[sessionID] == nil {
		r.sessions[sessionID] = make(map[uuid.UUID]struct{})
	}
	r.sessions[sessionID][seatID] = struct{}{}
}

func (r *Registry) unindexLocked(sessionID string, seatID uuid.UUID) {
	if held, ok := r.sessions[sessionID]; ok {
		delete(held, seatID)
		if len(held) == 0 {
			delete(r.sessions, sessionID)
		}
	}
}

// Release drops the hold on a seat regardless of owner. Idempotent: the
// second call reports live=false and callers skip the broadcast.
func (r *Registry) Release(seatID uuid.UUID) (domain.Hold, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked(seatID)
}

func (r *Registry) releaseLocked(seatID uuid.UUID) (domain.Hold, bool) {
	h, ok := r.seats[seatID]
	if !ok {
		return domain.Hold{}, false
	}
	delete(r.seats, seatID)
	r.unindexLocked(h.SessionID, seatID)
	return h, true
}

// SessionSeats snapshots the seats currently held by a session, so the
// disconnect path can take each seat's critical section one at a time.
func (r *Registry) SessionSeats(sessionID string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	held := r.sessions[sessionID]
	seats := make([]uuid.UUID, 0, len(held))
	for seatID := range held {
		seats = append(seats, seatID)
	}
	return seats
}

// ReleaseOwned drops the hold only if it still belongs to the session.
// A hold re-homed or replaced between the snapshot and this call stays.
func (r *Registry) ReleaseOwned(seatID uuid.UUID, sessionID string) (domain.Hold, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.seats[seatID]
	if !ok || h.SessionID != sessionID {
		return domain.Hold{}, false
	}
	return r.releaseLocked(seatID)
}

// ReleaseIfExpired drops the hold only when it is still past its
// deadline at removal time, so a hold refreshed between the reaper's
// snapshot and its sweep survives.
func (r *Registry) ReleaseIfExpired(seatID uuid.UUID, now time.Time) (domain.Hold, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.seats[seatID]
	if !ok || !h.Expired(now) {
		return domain.Hold{}, false
	}
	return r.releaseLocked(seatID)
}

// Get returns the live hold on a seat, if any.
func (r *Registry) Get(seatID uuid.UUID) (domain.Hold, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.seats[seatID]
	return h, ok
}

// RemainingTTL reports how long the seat's hold has left, for the
// terminal countdown. ErrHoldNotFound when no live hold exists.
func (r *Registry) RemainingTTL(seatID uuid.UUID) (time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.seats[seatID]
	if !ok {
		return 0, domain.ErrHoldNotFound
	}
	ttl := time.Until(h.ExpiresAt)
	if ttl < 0 {
		ttl = 0
	}
	return ttl, nil
}

// Snapshot copies the live holds so the reaper can scan without holding
// the registry lock for the duration of the sweep.
func (r *Registry) Snapshot() []domain.Hold {
	r.mu.RLock()
	defer r.mu.RUnlock()
	holds := make([]domain.Hold, 0, len(r.seats))
	for _, h := range r.seats {
		holds = append(holds, h)
	}
	return holds
}

// Len reports the number of live holds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seats)
}
