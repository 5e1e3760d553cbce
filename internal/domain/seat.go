package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatHeld      SeatState = "HELD"
	SeatSold      SeatState = "SOLD"
)

// ShowSeat is the per-show runtime record for one physical seat. The
// snapshot columns are frozen when the show is scheduled and never
// re-derived from the live screen layout. Runtime columns change only
// through hold/release/commit/cancel transitions guarded by Version.
type ShowSeat struct {
	ID     uuid.UUID
	ShowID uuid.UUID
	// SeatID links back to the physical seat the snapshot was taken
	// from. Historical reference only, never joined against at runtime.
	SeatID uuid.UUID

	Label      string
	SeatType   string
	RowNum     int
	ColNum     int
	SeatGroup  string
	PriceCents int64

	State              SeatState
	ReservedBy         *string
	ReservedAt         *time.Time
	ExpiresAt          *time.Time
	ConfirmedBookingID *string
	Version            int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *ShowSeat) IsAvailable() bool {
	return s.State == SeatAvailable
}

// HeldBy reports whether the seat is currently held by the given holder.
func (s *ShowSeat) HeldBy(holderRef string) bool {
	return s.State == SeatHeld && s.ReservedBy != nil && *s.ReservedBy == holderRef
}

// Committable reports whether holderRef may include this seat in a group
// commit: the seat is free, or held by that same holder.
func (s *ShowSeat) Committable(holderRef string) bool {
	return s.State == SeatAvailable || s.HeldBy(holderRef)
}
