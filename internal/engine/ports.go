package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cinepos/seat-inventory/internal/domain"
)

// SeatStore is the durable seat record store: the single writer-of-record
// for AVAILABLE/HELD/SOLD, guarded by the per-row version counter.
type SeatStore interface {
	SeatsByShow(ctx context.Context, showID uuid.UUID) ([]domain.ShowSeat, error)
	GetSeat(ctx context.Context, seatID uuid.UUID) (*domain.ShowSeat, error)

	// MarkHeld flips an AVAILABLE row to HELD iff its version still
	// matches. domain.ErrConcurrentModification on a stale version.
	MarkHeld(ctx context.Context, seatID uuid.UUID, holderRef string, expiresAt time.Time, version int64) error
	// RefreshHold extends the deadline of a row already HELD by holderRef.
	RefreshHold(ctx context.Context, seatID uuid.UUID, holderRef string, expiresAt time.Time) error
	// ClearHold returns a HELD row to AVAILABLE. Idempotent; reports
	// whether a hold row was actually cleared.
	ClearHold(ctx context.Context, seatID uuid.UUID) (bool, error)

	// CommitGroup atomically re-validates every seat, flips them to SOLD
	// under version CAS, persists the group and fills in its seats and
	// amounts. All-or-nothing: any failure leaves no seat changed.
	CommitGroup(ctx context.Context, group *domain.BookingGroup, seatIDs []uuid.UUID, holderRef string, taxRateBps int64) error
	// ReleaseGroup closes an ACTIVE group (cancel or refund) and returns
	// every seat of the group to AVAILABLE atomically.
	ReleaseGroup(ctx context.Context, ref string, target domain.BookingStatus, reason string) (*domain.BookingGroup, error)
	GetGroup(ctx context.Context, ref string) (*domain.BookingGroup, error)
}

// HoldMirror mirrors live holds into a shared store (redis) so sibling
// processes observe them. Advisory only; the seat store stays the final
// arbiter at commit.
type HoldMirror interface {
	SetHoldLock(ctx context.Context, showID, seatID uuid.UUID, holderRef string, ttl time.Duration) (bool, error)
	ReleaseHoldLock(ctx context.Context, showID, seatID uuid.UUID) error
}

// Audit records transitions for the back office. Best-effort: failures
// are logged, never surfaced.
type Audit interface {
	RecordSeatEvent(ctx context.Context, ev domain.SeatEvent) error
	RecordBooking(ctx context.Context, group *domain.BookingGroup, action string) error
}
