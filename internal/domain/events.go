package domain

import (
	"time"

	"github.com/google/uuid"
)

// Seat event types carried on a show topic. These are wire-level
// projections of ShowSeat transitions, never a source of truth.
const (
	EventSeatHeld     = "seat.held"
	EventSeatReleased = "seat.released"
	EventSeatExpired  = "seat.expired"
	EventSeatSold     = "seat.sold"
)

// System event types carried on the global notices topic.
const (
	EventBookingCancelled = "booking.cancelled"
	EventBookingRefunded  = "booking.refunded"
)

type SeatEvent struct {
	ShowID    uuid.UUID `json:"show_id"`
	SeatID    uuid.UUID `json:"seat_id"`
	State     SeatState `json:"state"`
	HolderRef string    `json:"holder_ref,omitempty"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	BookingID string    `json:"booking_id,omitempty"`
}

// SeatEventBatch groups the per-seat events of one atomic transition
// (group commit, group cancel) under a single timestamp so subscribers
// see it as one change.
type SeatEventBatch struct {
	ShowID    uuid.UUID   `json:"show_id"`
	Events    []SeatEvent `json:"events"`
	Timestamp time.Time   `json:"timestamp"`
}

type BookingConfirmedEvent struct {
	BookingID   string    `json:"booking_id"`
	ShowID      uuid.UUID `json:"show_id"`
	SeatLabels  []string  `json:"seats"`
	TotalCents  int64     `json:"total_amount_cents"`
	PaymentMode string    `json:"payment_mode"`
	Timestamp   time.Time `json:"timestamp"`
}

type SystemEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action,omitempty"`
}

// NewSeatEvent projects one seat transition onto the wire shape.
func NewSeatEvent(seat *ShowSeat, eventType string) SeatEvent {
	ev := SeatEvent{
		ShowID:    seat.ShowID,
		SeatID:    seat.ID,
		State:     seat.State,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
	if seat.ReservedBy != nil {
		ev.HolderRef = *seat.ReservedBy
	}
	if seat.ConfirmedBookingID != nil {
		ev.BookingID = *seat.ConfirmedBookingID
	}
	return ev
}
