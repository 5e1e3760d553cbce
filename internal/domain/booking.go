package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "ACTIVE"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingRefunded  BookingStatus = "REFUNDED"
)

// BookingGroup is a set of seats sold together as one all-or-nothing
// transaction. Amounts are integer cents, computed once at commit time
// from the frozen per-seat price snapshot and never recomputed.
type BookingGroup struct {
	Ref         string
	ShowID      uuid.UUID
	Status      BookingStatus
	CustomerRef string
	PaymentMode string
	PaymentRef  string
	BaseCents   int64
	TaxCents    int64
	TotalCents  int64
	Seats       []BookingSeat
	CreatedAt   time.Time
	ClosedAt    *time.Time
	CloseReason string
}

// BookingSeat pins the price a seat was sold at inside its group.
type BookingSeat struct {
	ShowSeatID uuid.UUID
	Label      string
	PriceCents int64
}

func (g *BookingGroup) SeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(g.Seats))
	for i, s := range g.Seats {
		ids[i] = s.ShowSeatID
	}
	return ids
}

func (g *BookingGroup) SeatLabels() []string {
	labels := make([]string, len(g.Seats))
	for i, s := range g.Seats {
		labels[i] = s.Label
	}
	return labels
}

// NewGroupRef mints a booking group reference. The reference doubles as
// the ConfirmedBookingID stamped onto every seat of the group.
func NewGroupRef() string {
	return "bkg-" + uuid.NewString()
}

// ComputeAmounts fills the aggregate amounts from the per-seat prices.
// taxRateBps is the tax rate in basis points (e.g. 900 = 9%); the tax is
// rounded half-up on the group total, not per seat.
func (g *BookingGroup) ComputeAmounts(taxRateBps int64) {
	var base int64
	for _, s := range g.Seats {
		base += s.PriceCents
	}
	g.BaseCents = base
	g.TaxCents = (base*taxRateBps + 5000) / 10000
	g.TotalCents = g.BaseCents + g.TaxCents
}
