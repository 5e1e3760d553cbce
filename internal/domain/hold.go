package domain

import (
	"time"

	"github.com/google/uuid"
)

// Hold is a transient, TTL-bounded claim on one seat by one terminal
// session. Holds live in the in-process registry only; the durable seat
// row mirrors them through ReservedBy/ExpiresAt. At most one live Hold
// exists per seat at any time.
type Hold struct {
	SeatID    uuid.UUID
	ShowID    uuid.UUID
	SessionID string
	HolderRef string
	ExpiresAt time.Time
}

func NewHold(sessionID string, showID, seatID uuid.UUID, holderRef string, ttl time.Duration) Hold {
	return Hold{
		SeatID:    seatID,
		ShowID:    showID,
		SessionID: sessionID,
		HolderRef: holderRef,
		ExpiresAt: time.Now().Add(ttl),
	}
}

func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
