package domain

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	// ErrSeatConflict: hold refused because the seat is held by another
	// holder or already sold.
	ErrSeatConflict = errors.New("seat conflict")
	// ErrSeatUnavailable: group commit refused because at least one seat
	// is not in a committable state. Usually wrapped in
	// UnavailableSeatsError naming the seats.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrConcurrentModification: optimistic-lock version mismatch on the
	// durable seat row.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrHoldNotFound: operation referenced a hold that expired or never
	// existed.
	ErrHoldNotFound = errors.New("hold not found")
	// ErrGroupAlreadyClosed: cancel/refund on a booking group that is no
	// longer active.
	ErrGroupAlreadyClosed = errors.New("booking group already closed")

	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
)

// UnavailableSeatsError names the exact seats that blocked a group
// commit so the terminal can show which ones were grabbed in the
// interim. Unwraps to ErrSeatUnavailable.
type UnavailableSeatsError struct {
	SeatIDs []uuid.UUID
}

func (e *UnavailableSeatsError) Error() string {
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("seats unavailable: %s", strings.Join(ids, ", "))
}

func (e *UnavailableSeatsError) Unwrap() error {
	return ErrSeatUnavailable
}
