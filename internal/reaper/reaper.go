// Package reaper reclaims holds that outlived their TTL. It is the
// guarantee that an abandoned hold always returns to AVAILABLE even with
// zero further client interaction.
package reaper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/observability"
)

// Source yields a snapshot of live holds without blocking mutators.
type Source interface {
	Snapshot() []domain.Hold
}

// Releaser frees one expired hold through the same release path explicit
// releases use, so the AVAILABLE broadcast fires.
type Releaser interface {
	ReleaseExpired(ctx context.Context, seatID uuid.UUID, now time.Time) bool
}

type Reaper struct {
	source   Source
	releaser Releaser
	log      observability.Logger
	period   time.Duration
}

func New(source Source, releaser Releaser, log observability.Logger, period time.Duration) *Reaper {
	return &Reaper{source: source, releaser: releaser, log: log, period: period}
}

// Run sweeps on a fixed period until ctx is cancelled. A failing tick is
// logged and the next tick proceeds; the loop never panics the process.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.log.WithField("period", r.period.String()).Info("expiry reaper started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("expiry reaper stopped")
			return
		case now := <-ticker.C:
			r.Tick(ctx, now)
		}
	}
}

// Tick performs one sweep: snapshot, then release whatever is past
// deadline. Snapshot-then-act; holds refreshed mid-sweep are skipped by
// the releaser's re-check. Exported so tests drive sweeps directly.
func (r *Reaper) Tick(ctx context.Context, now time.Time) int {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("panic", rec).Error("reaper tick panicked")
		}
	}()

	reaped := 0
	for _, h := range r.source.Snapshot() {
		if !h.Expired(now) {
			continue
		}
		if r.releaser.ReleaseExpired(ctx, h.SeatID, now) {
			reaped++
			r.log.WithField("seat_id", h.SeatID).WithField("session_id", h.SessionID).Info("reaped expired hold")
		}
	}
	observability.ReaperSweeps.Inc()
	if reaped > 0 {
		observability.ReapedHolds.Add(float64(reaped))
	}
	return reaped
}
