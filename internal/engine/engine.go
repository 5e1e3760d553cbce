// Package engine orchestrates the seat-inventory state machine: holds,
// releases, group commits and cancellations, with the broadcast fan-out
// hanging off every transition.
package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/notify"
	"github.com/cinepos/seat-inventory/internal/observability"
	"github.com/cinepos/seat-inventory/internal/registry"
)

// BookingPayload carries the commercial fields of a commit request. The
// engine never talks to a payment processor; PaymentRef is an opaque
// reference from the POS terminal.
type BookingPayload struct {
	CustomerRef string
	PaymentMode string
	PaymentRef  string
}

type Engine struct {
	store    SeatStore
	registry *registry.Registry
	mirror   HoldMirror
	audit    Audit
	notifier notify.Publisher
	log      observability.Logger

	holdTTL    time.Duration
	taxRateBps int64
}

func New(store SeatStore, reg *registry.Registry, mirror HoldMirror, audit Audit, notifier notify.Publisher, log observability.Logger, holdTTL time.Duration, taxRateBps int64) *Engine {
	return &Engine{
		store:      store,
		registry:   reg,
		mirror:     mirror,
		audit:      audit,
		notifier:   notifier,
		log:        log,
		holdTTL:    holdTTL,
		taxRateBps: taxRateBps,
	}
}

// Registry exposes the hold registry for the reaper and session layers.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Seats returns the full current state of a show, the reconciliation
// path for terminals that reconnect after missing broadcasts.
func (e *Engine) Seats(ctx context.Context, showID uuid.UUID) ([]domain.ShowSeat, error) {
	return e.store.SeatsByShow(ctx, showID)
}

// RemainingTTL reports the countdown left on a seat's hold.
func (e *Engine) RemainingTTL(seatID uuid.UUID) (time.Duration, error) {
	return e.registry.RemainingTTL(seatID)
}

// Hold claims one seat for a terminal session. Re-holding by the same
// holderRef refreshes the TTL in place without a second broadcast. A
// seat held by anyone else or already sold fails with ErrSeatConflict.
func (e *Engine) Hold(ctx context.Context, sessionID string, showID, seatID uuid.UUID, holderRef string) (domain.Hold, error) {
	if sessionID == "" || holderRef == "" {
		return domain.Hold{}, errors.Wrap(domain.ErrInvalidInput, "session and holder required")
	}

	var hold domain.Hold
	err := e.registry.WithSeat(seatID, func() error {
		seat, err := e.store.GetSeat(ctx, seatID)
		if err != nil {
			return err
		}
		if seat.ShowID != showID {
			return errors.Wrapf(domain.ErrInvalidInput, "seat %s does not belong to show %s", seatID, showID)
		}
		if seat.State == domain.SeatSold {
			return errors.Wrapf(domain.ErrSeatConflict, "seat %s already sold", seatID)
		}
		// The registry carries the in-process tie-break; a HELD store row
		// with no registry entry means another process owns it.
		if _, live := e.registry.Get(seatID); !live && seat.State == domain.SeatHeld {
			return errors.Wrapf(domain.ErrSeatConflict, "seat %s held elsewhere", seatID)
		}

		h, refreshed, err := e.registry.Hold(sessionID, showID, seatID, holderRef, e.holdTTL)
		if err != nil {
			return err
		}
		if refreshed {
			if err := e.store.RefreshHold(ctx, seatID, holderRef, h.ExpiresAt); err != nil {
				e.log.WithError(err).WithField("seat_id", seatID).Warn("refresh durable hold")
			}
			if _, err := e.mirror.SetHoldLock(ctx, showID, seatID, holderRef, e.holdTTL); err != nil {
				e.log.WithError(err).WithField("seat_id", seatID).Warn("refresh hold mirror")
			}
			hold = h
			return nil
		}

		ok, err := e.mirror.SetHoldLock(ctx, showID, seatID, holderRef, e.holdTTL)
		if err == nil && !ok {
			e.registry.Release(seatID)
			return errors.Wrapf(domain.ErrSeatConflict, "seat %s held by another process", seatID)
		}
		if err != nil {
			// Mirror outage degrades to single-process protection.
			e.log.WithError(err).WithField("seat_id", seatID).Warn("hold mirror unavailable")
		}

		if err := e.store.MarkHeld(ctx, seatID, holderRef, h.ExpiresAt, seat.Version); err != nil {
			e.registry.Release(seatID)
			if rerr := e.mirror.ReleaseHoldLock(ctx, showID, seatID); rerr != nil {
				e.log.WithError(rerr).WithField("seat_id", seatID).Warn("roll back hold mirror")
			}
			return err
		}

		hold = h
		e.emitSeat(ctx, domain.SeatEvent{
			ShowID:    showID,
			SeatID:    seatID,
			State:     domain.SeatHeld,
			HolderRef: holderRef,
			EventType: domain.EventSeatHeld,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSeatConflict) {
			observability.HoldConflicts.Inc()
		}
		return domain.Hold{}, err
	}
	observability.HoldsGranted.Inc()
	return hold, nil
}

// Release frees a held seat. Idempotent: releasing a seat with no live
// hold is a no-op and emits nothing. Runs inside the seat's critical
// section, so it serializes with in-flight holds for the same seat
// instead of racing their registry-insert/MarkHeld sequence.
func (e *Engine) Release(ctx context.Context, showID, seatID uuid.UUID) error {
	return e.registry.WithSeat(seatID, func() error {
		h, live := e.registry.Release(seatID)
		if !live {
			return nil
		}
		e.finishRelease(ctx, h, domain.EventSeatReleased, "explicit")
		return nil
	})
}

// ReleaseExpired is the reaper's entry: it frees the seat only if its
// hold is still past deadline, then broadcasts a seat.expired release.
func (e *Engine) ReleaseExpired(ctx context.Context, seatID uuid.UUID, now time.Time) bool {
	var released bool
	_ = e.registry.WithSeat(seatID, func() error {
		h, live := e.registry.ReleaseIfExpired(seatID, now)
		if !live {
			return nil
		}
		e.finishRelease(ctx, h, domain.EventSeatExpired, "expired")
		released = true
		return nil
	})
	return released
}

// ReleaseSession frees every hold owned by a session, the disconnect
// path. Each seat goes through its own critical section, and only holds
// still owned by the session at release time are dropped, so a hold
// re-homed to a reconnected session survives the old session's exit.
// Returns the holds that were actually released.
func (e *Engine) ReleaseSession(ctx context.Context, sessionID string) []domain.Hold {
	var released []domain.Hold
	for _, seatID := range e.registry.SessionSeats(sessionID) {
		_ = e.registry.WithSeat(seatID, func() error {
			h, live := e.registry.ReleaseOwned(seatID, sessionID)
			if !live {
				return nil
			}
			e.finishRelease(ctx, h, domain.EventSeatReleased, "disconnect")
			released = append(released, h)
			return nil
		})
	}
	return released
}

// finishRelease clears the durable row and mirror for a hold already
// removed from the registry. The AVAILABLE broadcast fires only when
// the store row was actually flipped: a row that is no longer HELD was
// sold or reclaimed in the interim, and announcing it free would lie.
func (e *Engine) finishRelease(ctx context.Context, h domain.Hold, eventType, cause string) {
	cleared, err := e.store.ClearHold(ctx, h.SeatID)
	if err != nil {
		e.log.WithError(err).WithField("seat_id", h.SeatID).Error("clear durable hold")
	}
	if mErr := e.mirror.ReleaseHoldLock(ctx, h.ShowID, h.SeatID); mErr != nil {
		e.log.WithError(mErr).WithField("seat_id", h.SeatID).Warn("clear hold mirror")
	}
	if err == nil && !cleared {
		return
	}
	observability.HoldsReleased.WithLabelValues(cause).Inc()
	e.emitSeat(ctx, domain.SeatEvent{
		ShowID:    h.ShowID,
		SeatID:    h.SeatID,
		State:     domain.SeatAvailable,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	})
}

// Commit atomically sells a set of seats as one booking group. Every
// seat must be AVAILABLE or HELD by holderRef in the durable store at
// commit time; the store, not the registry, is the final arbiter. On any
// failure no seat changes.
func (e *Engine) Commit(ctx context.Context, showID uuid.UUID, seatIDs []uuid.UUID, holderRef string, payload BookingPayload) (*domain.BookingGroup, error) {
	if holderRef == "" || len(seatIDs) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "holder and seats required")
	}
	seatIDs = dedupe(seatIDs)

	group := &domain.BookingGroup{
		Ref:         domain.NewGroupRef(),
		ShowID:      showID,
		Status:      domain.BookingActive,
		CustomerRef: payload.CustomerRef,
		PaymentMode: payload.PaymentMode,
		PaymentRef:  payload.PaymentRef,
		CreatedAt:   time.Now().UTC(),
	}

	err := e.registry.WithSeats(seatIDs, func() error {
		return e.store.CommitGroup(ctx, group, seatIDs, holderRef, e.taxRateBps)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSeatUnavailable):
			observability.CommitsTotal.WithLabelValues("unavailable").Inc()
		case errors.Is(err, domain.ErrConcurrentModification), errors.Is(err, domain.ErrSerializationFailure):
			observability.CommitsTotal.WithLabelValues("version_conflict").Inc()
		default:
			observability.CommitsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	observability.CommitsTotal.WithLabelValues("ok").Inc()

	now := time.Now().UTC()
	batch := domain.SeatEventBatch{ShowID: showID, Timestamp: now}
	for _, s := range group.Seats {
		if _, live := e.registry.Release(s.ShowSeatID); live {
			observability.HoldsReleased.WithLabelValues("commit").Inc()
		}
		if err := e.mirror.ReleaseHoldLock(ctx, showID, s.ShowSeatID); err != nil {
			e.log.WithError(err).WithField("seat_id", s.ShowSeatID).Warn("clear hold mirror")
		}
		batch.Events = append(batch.Events, domain.SeatEvent{
			ShowID:    showID,
			SeatID:    s.ShowSeatID,
			State:     domain.SeatSold,
			HolderRef: holderRef,
			EventType: domain.EventSeatSold,
			Timestamp: now,
			BookingID: group.Ref,
		})
	}
	e.notifier.PublishBatch(ctx, showID, batch)
	e.notifier.PublishBookingConfirmation(ctx, domain.BookingConfirmedEvent{
		BookingID:   group.Ref,
		ShowID:      showID,
		SeatLabels:  group.SeatLabels(),
		TotalCents:  group.TotalCents,
		PaymentMode: group.PaymentMode,
		Timestamp:   now,
	})
	e.recordBooking(ctx, group, "commit")
	return group, nil
}

// Cancel returns every seat of an active booking group to AVAILABLE.
// Re-cancelling fails with ErrGroupAlreadyClosed rather than succeeding
// silently, so callers can tell "already cancelled" from "cancelled now".
func (e *Engine) Cancel(ctx context.Context, groupRef, reason string) (*domain.BookingGroup, error) {
	return e.closeGroup(ctx, groupRef, domain.BookingCancelled, reason, domain.EventBookingCancelled)
}

// Refund is the refund-flavoured group release; same atomicity as Cancel.
func (e *Engine) Refund(ctx context.Context, groupRef, reason string) (*domain.BookingGroup, error) {
	return e.closeGroup(ctx, groupRef, domain.BookingRefunded, reason, domain.EventBookingRefunded)
}

func (e *Engine) closeGroup(ctx context.Context, groupRef string, target domain.BookingStatus, reason, eventType string) (*domain.BookingGroup, error) {
	group, err := e.store.ReleaseGroup(ctx, groupRef, target, reason)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := domain.SeatEventBatch{ShowID: group.ShowID, Timestamp: now}
	for _, s := range group.Seats {
		batch.Events = append(batch.Events, domain.SeatEvent{
			ShowID:    group.ShowID,
			SeatID:    s.ShowSeatID,
			State:     domain.SeatAvailable,
			EventType: domain.EventSeatReleased,
			Timestamp: now,
		})
	}
	e.notifier.PublishBatch(ctx, group.ShowID, batch)
	e.notifier.PublishSystemEvent(ctx, domain.SystemEvent{
		Type:      eventType,
		Message:   "booking " + group.Ref + " " + string(target) + ": " + reason,
		Timestamp: now,
		Action:    "refetch",
	})
	e.recordBooking(ctx, group, string(target))
	return group, nil
}

func (e *Engine) emitSeat(ctx context.Context, ev domain.SeatEvent) {
	e.notifier.PublishSeatChange(ctx, ev.ShowID, ev)
	if e.audit != nil {
		if err := e.audit.RecordSeatEvent(ctx, ev); err != nil {
			e.log.WithError(err).Warn("audit seat event")
		}
	}
}

func (e *Engine) recordBooking(ctx context.Context, group *domain.BookingGroup, action string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.RecordBooking(ctx, group, action); err != nil {
		e.log.WithError(err).WithField("booking_ref", group.Ref).Warn("audit booking")
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
