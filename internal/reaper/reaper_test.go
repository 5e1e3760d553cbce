package reaper_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinepos/seat-inventory/internal/observability"
	"github.com/cinepos/seat-inventory/internal/reaper"
	"github.com/cinepos/seat-inventory/internal/registry"
)

// registryReleaser frees expired holds straight out of the registry,
// recording which seats were reaped.
type registryReleaser struct {
	reg *registry.Registry

	mu     sync.Mutex
	reaped []uuid.UUID
}

func (r *registryReleaser) ReleaseExpired(ctx context.Context, seatID uuid.UUID, now time.Time) bool {
	_, released := r.reg.ReleaseIfExpired(seatID, now)
	if released {
		r.mu.Lock()
		r.reaped = append(r.reaped, seatID)
		r.mu.Unlock()
	}
	return released
}

func TestTick_ReapsOnlyExpiredHolds(t *testing.T) {
	reg := registry.New()
	showID := uuid.New()

	stale := uuid.New()
	fresh := uuid.New()
	_, _, err := reg.Hold("sess-stale", showID, stale, "terminal-1", time.Minute)
	require.NoError(t, err)
	_, _, err = reg.Hold("sess-fresh", showID, fresh, "terminal-2", time.Hour)
	require.NoError(t, err)

	rel := &registryReleaser{reg: reg}
	r := reaper.New(reg, rel, observability.NewLogger(), 30*time.Second)

	reaped := r.Tick(context.Background(), time.Now().Add(5*time.Minute))
	assert.Equal(t, 1, reaped)
	assert.Equal(t, []uuid.UUID{stale}, rel.reaped)

	_, live := reg.Get(fresh)
	assert.True(t, live, "unexpired hold must survive the sweep")
	_, live = reg.Get(stale)
	assert.False(t, live)
}

func TestTick_NothingExpiredIsANoop(t *testing.T) {
	reg := registry.New()
	seatID := uuid.New()
	_, _, err := reg.Hold("sess-1", uuid.New(), seatID, "terminal-1", time.Hour)
	require.NoError(t, err)

	rel := &registryReleaser{reg: reg}
	r := reaper.New(reg, rel, observability.NewLogger(), 30*time.Second)

	assert.Equal(t, 0, r.Tick(context.Background(), time.Now()))
	assert.Equal(t, 1, reg.Len())
}

func TestTick_RefreshDuringSweepSurvives(t *testing.T) {
	reg := registry.New()
	showID := uuid.New()
	seatID := uuid.New()
	_, _, err := reg.Hold("sess-1", showID, seatID, "terminal-1", time.Minute)
	require.NoError(t, err)

	// Snapshot sees the hold as expired, but a refresh lands before the
	// release. The deadline re-check must keep the refreshed hold alive.
	refreshOnRelease := &refreshingReleaser{reg: reg, showID: showID, holder: "terminal-1"}
	r := reaper.New(reg, refreshOnRelease, observability.NewLogger(), 30*time.Second)

	reaped := r.Tick(context.Background(), time.Now().Add(5*time.Minute))
	assert.Equal(t, 0, reaped)

	_, live := reg.Get(seatID)
	assert.True(t, live, "hold refreshed mid-sweep must not be reaped")
}

// refreshingReleaser refreshes the hold right before attempting the
// release, simulating a terminal racing the reaper.
type refreshingReleaser struct {
	reg    *registry.Registry
	showID uuid.UUID
	holder string
}

func (r *refreshingReleaser) ReleaseExpired(ctx context.Context, seatID uuid.UUID, now time.Time) bool {
	_, _, _ = r.reg.Hold("sess-1", r.showID, seatID, r.holder, 24*time.Hour)
	_, released := r.reg.ReleaseIfExpired(seatID, now)
	return released
}
