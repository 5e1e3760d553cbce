package engine_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cinepos/seat-inventory/internal/domain"
	"github.com/cinepos/seat-inventory/internal/engine"
	"github.com/cinepos/seat-inventory/internal/notify"
	"github.com/cinepos/seat-inventory/internal/observability"
	"github.com/cinepos/seat-inventory/internal/reaper"
	"github.com/cinepos/seat-inventory/internal/registry"
)

// fakeStore is an in-memory SeatStore with the same transition rules as
// the durable one: version CAS on MarkHeld, all-or-nothing CommitGroup,
// status guard on ReleaseGroup.
type fakeStore struct {
	mu     sync.Mutex
	seats  map[uuid.UUID]*domain.ShowSeat
	groups map[string]*domain.BookingGroup
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seats:  make(map[uuid.UUID]*domain.ShowSeat),
		groups: make(map[string]*domain.BookingGroup),
	}
}

func (f *fakeStore) addSeat(showID uuid.UUID, label string, priceCents int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.seats[id] = &domain.ShowSeat{
		ID:         id,
		ShowID:     showID,
		SeatID:     uuid.New(),
		Label:      label,
		SeatType:   "REGULAR",
		PriceCents: priceCents,
		State:      domain.SeatAvailable,
		Version:    1,
	}
	return id
}

func (f *fakeStore) SeatsByShow(ctx context.Context, showID uuid.UUID) ([]domain.ShowSeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ShowSeat
	for _, s := range f.seats {
		if s.ShowID == showID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSeat(ctx context.Context, seatID uuid.UUID) (*domain.ShowSeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "seat %s", seatID)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) MarkHeld(ctx context.Context, seatID uuid.UUID, holderRef string, expiresAt time.Time, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "seat %s", seatID)
	}
	if s.State != domain.SeatAvailable || s.Version != version {
		return errors.Wrapf(domain.ErrConcurrentModification, "seat %s", seatID)
	}
	s.State = domain.SeatHeld
	s.ReservedBy = &holderRef
	exp := expiresAt
	s.ExpiresAt = &exp
	s.Version++
	return nil
}

func (f *fakeStore) RefreshHold(ctx context.Context, seatID uuid.UUID, holderRef string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || !s.HeldBy(holderRef) {
		return errors.Wrapf(domain.ErrHoldNotFound, "seat %s", seatID)
	}
	exp := expiresAt
	s.ExpiresAt = &exp
	return nil
}

func (f *fakeStore) ClearHold(ctx context.Context, seatID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.State != domain.SeatHeld {
		return false, nil
	}
	s.State = domain.SeatAvailable
	s.ReservedBy = nil
	s.ExpiresAt = nil
	s.Version++
	return true, nil
}

func (f *fakeStore) CommitGroup(ctx context.Context, group *domain.BookingGroup, seatIDs []uuid.UUID, holderRef string, taxRateBps int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var unavailable []uuid.UUID
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok {
			return errors.Wrapf(domain.ErrNotFound, "seat %s", id)
		}
		if !s.Committable(holderRef) {
			unavailable = append(unavailable, id)
		}
	}
	if len(unavailable) > 0 {
		return &domain.UnavailableSeatsError{SeatIDs: unavailable}
	}

	for _, id := range seatIDs {
		s := f.seats[id]
		group.Seats = append(group.Seats, domain.BookingSeat{
			ShowSeatID: id,
			Label:      s.Label,
			PriceCents: s.PriceCents,
		})
		s.State = domain.SeatSold
		s.ReservedBy = nil
		s.ExpiresAt = nil
		ref := group.Ref
		s.ConfirmedBookingID = &ref
		s.Version++
	}
	group.ComputeAmounts(taxRateBps)
	cp := *group
	f.groups[group.Ref] = &cp
	return nil
}

func (f *fakeStore) ReleaseGroup(ctx context.Context, ref string, target domain.BookingStatus, reason string) (*domain.BookingGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[ref]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "booking %s", ref)
	}
	if g.Status != domain.BookingActive {
		return nil, errors.Wrapf(domain.ErrGroupAlreadyClosed, "booking %s is %s", ref, g.Status)
	}
	g.Status = target
	now := time.Now().UTC()
	g.ClosedAt = &now
	g.CloseReason = reason
	for _, bs := range g.Seats {
		s := f.seats[bs.ShowSeatID]
		s.State = domain.SeatAvailable
		s.ConfirmedBookingID = nil
		s.Version++
	}
	cp := *g
	return &cp, nil
}

func (f *fakeStore) GetGroup(ctx context.Context, ref string) (*domain.BookingGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[ref]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "booking %s", ref)
	}
	cp := *g
	return &cp, nil
}

func (f *fakeStore) seatState(id uuid.UUID) domain.SeatState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats[id].State
}

func (f *fakeStore) forceState(id uuid.UUID, st domain.SeatState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seats[id].State = st
}

// gatedStore stalls the first MarkHeld until the gate opens, freezing a
// hold mid-flight inside its critical section.
type gatedStore struct {
	*fakeStore
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (g *gatedStore) MarkHeld(ctx context.Context, seatID uuid.UUID, holderRef string, expiresAt time.Time, version int64) error {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	return g.fakeStore.MarkHeld(ctx, seatID, holderRef, expiresAt, version)
}

// openMirror grants every lock, standing in for a healthy redis with no
// sibling process.
type openMirror struct{}

func (openMirror) SetHoldLock(ctx context.Context, showID, seatID uuid.UUID, holderRef string, ttl time.Duration) (bool, error) {
	return true, nil
}
func (openMirror) ReleaseHoldLock(ctx context.Context, showID, seatID uuid.UUID) error { return nil }

func newTestEngine(t *testing.T, store *fakeStore) (*engine.Engine, *notify.Bus, func()) {
	t.Helper()
	bus := notify.NewBus()
	logger := observability.NewLogger()
	notifier := notify.NewNotifier(bus, logger)
	eng := engine.New(store, registry.New(), openMirror{}, nil, notifier, logger, 5*time.Minute, 900)
	return eng, bus, notifier.Close
}

func recvEnvelope(t *testing.T, ch <-chan notify.Envelope) notify.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return notify.Envelope{}
	}
}

func assertNoEnvelope(t *testing.T, ch <-chan notify.Envelope) {
	t.Helper()
	select {
	case env := <-ch:
		t.Fatalf("unexpected broadcast: kind=%s body=%s", env.Kind, env.Body)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHold_GrantsAndBroadcastsOnce(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seatID := store.addSeat(showID, "A1", 1500)
	eng, bus, done := newTestEngine(t, store)
	defer done()

	events, cancel := bus.Subscribe(notify.ShowTopic(showID))
	defer cancel()

	hold, err := eng.Hold(context.Background(), "sess-1", showID, seatID, "terminal-7")
	require.NoError(t, err)
	assert.Equal(t, seatID, hold.SeatID)
	assert.Equal(t, domain.SeatHeld, store.seatState(seatID))

	env := recvEnvelope(t, events)
	assert.Equal(t, notify.KindSeat, env.Kind)
	var ev domain.SeatEvent
	require.NoError(t, json.Unmarshal(env.Body, &ev))
	assert.Equal(t, domain.EventSeatHeld, ev.EventType)
	assert.Equal(t, "terminal-7", ev.HolderRef)
	assertNoEnvelope(t, events)
}

func TestHold_ConflictForSecondHolder(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seatID := store.addSeat(showID, "A1", 1500)
	eng, _, done := newTestEngine(t, store)
	defer done()

	_, err := eng.Hold(context.Background(), "sess-1", showID, seatID, "terminal-7")
	require.NoError(t, err)

	_, err = eng.Hold(context.Background(), "sess-2", showID, seatID, "terminal-8")
	assert.ErrorIs(t, err, domain.ErrSeatConflict)
	assert.Equal(t, domain.SeatHeld, store.seatState(seatID))
}

func TestHold_RefreshEmitsNoSecondBroadcast(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seatID := store.addSeat(showID, "A1", 1500)
	eng, bus, done := newTestEngine(t, store)
	defer done()

	events, cancel := bus.Subscribe(notify.ShowTopic(showID))
	defer cancel()

	first, err := eng.Hold(context.Background(), "sess-1", showID, seatID, "terminal-7")
	require.NoError(t, err)
	recvEnvelope(t, events)

	second, err := eng.Hold(context.Background(), "sess-1", showID, seatID, "terminal-7")
	require.NoError(t, err)
	assert.False(t, second.ExpiresAt.Before(first.ExpiresAt))
	assertNoEnvelope(t, events)
}

func TestHoldRelease_NoResidualState(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seatID := store.addSeat(showID, "A1", 1500)
	eng, bus, done := newTestEngine(t, store)
	defer done()

	events, cancel := bus.Subscribe(notify.ShowTopic(showID))
	defer cancel()

	_, err := eng.Hold(context.Background(), "sess-1", showID, seatID, "terminal-7")
	require.NoError(t, err)
	recvEnvelope(t, events)

	require.NoError(t, eng.Release(context.Background(), showID, seatID))
	env := recvEnvelope(t, events)
	var ev domain.SeatEvent
	require.NoError(t, json.Unmarshal(env.Body, &ev))
	assert.Equal(t, domain.EventSeatReleased, ev.EventType)
	assert.Equal(t, domain.SeatAvailable, ev.State)

	assert.Equal(t, domain.SeatAvailable, store.seatState(seatID))
	assert.Equal(t, 0, eng.Registry().Len())

	// Releasing again is a no-op and broadcasts nothing.
	require.NoError(t, eng.Release(context.Background(), showID, seatID))
	assertNoEnvelope(t, events)

	// The seat is immediately holdable by someone else.
	_, err = eng.Hold(context.Background(), "sess-2", showID, seatID, "terminal-8")
	assert.NoError(t, err)
}

func TestCommit_SellsGroupAndClearsHolds(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	a1 := store.addSeat(showID, "A1", 1500)
	a2 := store.addSeat(showID, "A2", 1500)
	eng, bus, done := newTestEngine(t, store)
	defer done()

	showEvents, cancelShow := bus.Subscribe(notify.ShowTopic(showID))
	defer cancelShow()
	bookings, cancelBookings := bus.Subscribe(notify.TopicBookings)
	defer cancelBookings()

	for _, id := range []uuid.UUID{a1, a2} {
		_, err := eng.Hold(context.Background(), "sess-1", showID, id, "terminal-7")
		require.NoError(t, err)
		recvEnvelope(t, showEvents)
	}

	reqSeats := []uuid.UUID{a1, a1, a2}
	group, err := eng.Commit(context.Background(), showID, reqSeats, "terminal-7", engine.BookingPayload{
		CustomerRef: "walk-in",
		PaymentMode: "CASH",
	})
	require.NoError(t, err)
	assert.Len(t, group.Seats, 2, "duplicate seat ids collapse")
	assert.Equal(t, []uuid.UUID{a1, a1, a2}, reqSeats, "the request slice is not rewritten by deduplication")
	assert.Equal(t, int64(3000), group.BaseCents)
	assert.Equal(t, int64(270), group.TaxCents)
	assert.Equal(t, int64(3270), group.TotalCents)

	assert.Equal(t, domain.SeatSold, store.seatState(a1))
	assert.Equal(t, domain.SeatSold, store.seatState(a2))
	assert.Equal(t, 0, eng.Registry().Len(), "commit consumes the holds")

	env := recvEnvelope(t, showEvents)
	assert.Equal(t, notify.KindBatch, env.Kind)
	var batch domain.SeatEventBatch
	require.NoError(t, json.Unmarshal(env.Body, &batch))
	require.Len(t, batch.Events, 2)
	for _, ev := range batch.Events {
		assert.Equal(t, domain.EventSeatSold, ev.EventType)
		assert.Equal(t, group.Ref, ev.BookingID)
		assert.Equal(t, batch.Timestamp, ev.Timestamp, "one timestamp for the whole group")
	}

	conf := recvEnvelope(t, bookings)
	var confirmed domain.BookingConfirmedEvent
	require.NoError(t, json.Unmarshal(conf.Body, &confirmed))
	assert.Equal(t, group.Ref, confirmed.BookingID)
	assert.ElementsMatch(t, []string{"A1", "A2"}, confirmed.SeatLabels)
	assert.Equal(t, int64(3270), confirmed.TotalCents)
}

func TestCommit_NamesUnavailableSeatsAndChangesNothing(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	free := store.addSeat(showID, "B1", 2000)
	taken := store.addSeat(showID, "B2", 2000)
	eng, _, done := newTestEngine(t, store)
	defer done()

	_, err := eng.Hold(context.Background(), "sess-other", showID, taken, "terminal-9")
	require.NoError(t, err)

	_, err = eng.Commit(context.Background(), showID, []uuid.UUID{free, taken}, "terminal-7", engine.BookingPayload{PaymentMode: "CARD"})
	require.ErrorIs(t, err, domain.ErrSeatUnavailable)

	var unavailErr *domain.UnavailableSeatsError
	require.True(t, errors.As(err, &unavailErr))
	assert.Equal(t, []uuid.UUID{taken}, unavailErr.SeatIDs)

	assert.Equal(t, domain.SeatAvailable, store.seatState(free), "no partial sale")
	assert.Equal(t, domain.SeatHeld, store.seatState(taken))
}

func TestCommit_OverlappingGroupsOneWinner(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seats := []uuid.UUID{
		store.addSeat(showID, "C1", 1000),
		store.addSeat(showID, "C2", 1000),
		store.addSeat(showID, "C3", 1000),
	}
	eng, _, done := newTestEngine(t, store)
	defer done()

	var mu sync.Mutex
	wins := 0
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		holder := "terminal-" + string(rune('a'+i))
		g.Go(func() error {
			_, err := eng.Commit(context.Background(), showID, seats, holder, engine.BookingPayload{PaymentMode: "CASH"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return nil
			}
			if errors.Is(err, domain.ErrSeatUnavailable) || errors.Is(err, domain.ErrConcurrentModification) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, wins, "exactly one overlapping commit wins")
	for _, id := range seats {
		assert.Equal(t, domain.SeatSold, store.seatState(id))
	}
}

func TestCancel_FreesSeatsAndRefusesSecondCancel(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seatID := store.addSeat(showID, "D1", 1200)
	eng, bus, done := newTestEngine(t, store)
	defer done()

	showEvents, cancelShow := bus.Subscribe(notify.ShowTopic(showID))
	defer cancelShow()
	notices, cancelNotices := bus.Subscribe(notify.TopicSystem)
	defer cancelNotices()

	group, err := eng.Commit(context.Background(), showID, []uuid.UUID{seatID}, "terminal-7", engine.BookingPayload{PaymentMode: "CASH"})
	require.NoError(t, err)

	// Drain the sold batch from the commit itself.
	recvEnvelope(t, showEvents)

	closed, err := eng.Cancel(context.Background(), group.Ref, "customer no-show")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, closed.Status)
	assert.Equal(t, domain.SeatAvailable, store.seatState(seatID))

	env := recvEnvelope(t, showEvents)
	var batch domain.SeatEventBatch
	require.NoError(t, json.Unmarshal(env.Body, &batch))
	require.Len(t, batch.Events, 1)
	assert.Equal(t, domain.SeatAvailable, batch.Events[0].State)

	sys := recvEnvelope(t, notices)
	var notice domain.SystemEvent
	require.NoError(t, json.Unmarshal(sys.Body, &notice))
	assert.Equal(t, domain.EventBookingCancelled, notice.Type)
	assert.Equal(t, "refetch", notice.Action)

	_, err = eng.Cancel(context.Background(), group.Ref, "again")
	assert.ErrorIs(t, err, domain.ErrGroupAlreadyClosed)

	_, err = eng.Refund(context.Background(), group.Ref, "late refund")
	assert.ErrorIs(t, err, domain.ErrGroupAlreadyClosed)
}

func TestReleaseSession_FreesOnlyOwnedSeats(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	mine1 := store.addSeat(showID, "E1", 1000)
	mine2 := store.addSeat(showID, "E2", 1000)
	theirs := store.addSeat(showID, "E3", 1000)
	eng, _, done := newTestEngine(t, store)
	defer done()

	ctx := context.Background()
	_, err := eng.Hold(ctx, "sess-mine", showID, mine1, "terminal-1")
	require.NoError(t, err)
	_, err = eng.Hold(ctx, "sess-mine", showID, mine2, "terminal-1")
	require.NoError(t, err)
	_, err = eng.Hold(ctx, "sess-theirs", showID, theirs, "terminal-2")
	require.NoError(t, err)

	released := eng.ReleaseSession(ctx, "sess-mine")
	assert.Len(t, released, 2)
	assert.Equal(t, domain.SeatAvailable, store.seatState(mine1))
	assert.Equal(t, domain.SeatAvailable, store.seatState(mine2))
	assert.Equal(t, domain.SeatHeld, store.seatState(theirs))
	assert.Equal(t, 1, eng.Registry().Len())
}

func TestRelease_SerializesWithInFlightHold(t *testing.T) {
	fs := newFakeStore()
	showID := uuid.New()
	seatID := fs.addSeat(showID, "G1", 1000)
	gs := &gatedStore{fakeStore: fs, entered: make(chan struct{}), gate: make(chan struct{})}

	bus := notify.NewBus()
	logger := observability.NewLogger()
	notifier := notify.NewNotifier(bus, logger)
	defer notifier.Close()
	eng := engine.New(gs, registry.New(), openMirror{}, nil, notifier, logger, 5*time.Minute, 900)

	ctx := context.Background()
	var g errgroup.Group
	g.Go(func() error {
		_, err := eng.Hold(ctx, "sess-1", showID, seatID, "terminal-1")
		return err
	})
	// The hold is now inside the seat's critical section, registry entry
	// recorded, durable write stalled. A release for the same seat must
	// wait for it instead of deleting the entry out from under it.
	<-gs.entered
	g.Go(func() error {
		return eng.Release(ctx, showID, seatID)
	})
	time.Sleep(50 * time.Millisecond)
	close(gs.gate)
	require.NoError(t, g.Wait())

	// Serialized outcome: hold completed, then the release freed it. The
	// seat must not be stranded HELD in the store with no registry entry.
	assert.Equal(t, domain.SeatAvailable, fs.seatState(seatID))
	assert.Equal(t, 0, eng.Registry().Len())
	_, err := eng.Hold(ctx, "sess-2", showID, seatID, "terminal-2")
	assert.NoError(t, err, "seat must be holdable again")
}

func TestRelease_NoBroadcastWhenRowNotHeld(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seatID := store.addSeat(showID, "H1", 1000)
	eng, bus, done := newTestEngine(t, store)
	defer done()

	events, cancel := bus.Subscribe(notify.ShowTopic(showID))
	defer cancel()

	_, err := eng.Hold(context.Background(), "sess-1", showID, seatID, "terminal-1")
	require.NoError(t, err)
	recvEnvelope(t, events)

	// The durable row moved on (sold out from under the stale registry
	// entry). The release must clean up silently, not announce AVAILABLE
	// for a seat that is not.
	store.forceState(seatID, domain.SeatSold)

	require.NoError(t, eng.Release(context.Background(), showID, seatID))
	assert.Equal(t, 0, eng.Registry().Len())
	assert.Equal(t, domain.SeatSold, store.seatState(seatID))
	assertNoEnvelope(t, events)
}

func TestReaperTick_ExpiresHoldEndToEnd(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	j1 := store.addSeat(showID, "J1", 1000)
	j2 := store.addSeat(showID, "J2", 1000)
	eng, bus, done := newTestEngine(t, store)
	defer done()

	events, cancel := bus.Subscribe(notify.ShowTopic(showID))
	defer cancel()

	ctx := context.Background()
	_, err := eng.Hold(ctx, "sess-1", showID, j1, "terminal-1")
	require.NoError(t, err)
	recvEnvelope(t, events)
	_, err = eng.Hold(ctx, "sess-1", showID, j2, "terminal-1")
	require.NoError(t, err)
	recvEnvelope(t, events)

	r := reaper.New(eng.Registry(), eng, observability.NewLogger(), 30*time.Second)

	// Nothing expired yet: no releases, no broadcasts.
	assert.Equal(t, 0, r.Tick(ctx, time.Now()))
	assertNoEnvelope(t, events)

	// Ten minutes out both 5-minute holds have lapsed.
	reaped := r.Tick(ctx, time.Now().Add(10*time.Minute))
	assert.Equal(t, 2, reaped)

	for i := 0; i < 2; i++ {
		env := recvEnvelope(t, events)
		assert.Equal(t, notify.KindSeat, env.Kind)
		var ev domain.SeatEvent
		require.NoError(t, json.Unmarshal(env.Body, &ev))
		assert.Equal(t, domain.EventSeatExpired, ev.EventType)
		assert.Equal(t, domain.SeatAvailable, ev.State)
	}

	for _, id := range []uuid.UUID{j1, j2} {
		seat, err := store.GetSeat(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.SeatAvailable, seat.State)
		assert.Nil(t, seat.ReservedBy, "no residual reservation fields")
		assert.Nil(t, seat.ExpiresAt)
	}
	assert.Equal(t, 0, eng.Registry().Len())

	// A second sweep finds nothing.
	assert.Equal(t, 0, r.Tick(ctx, time.Now().Add(20*time.Minute)))
}

func TestHold_WrongShowRejected(t *testing.T) {
	store := newFakeStore()
	showID := uuid.New()
	seatID := store.addSeat(showID, "F1", 1000)
	eng, _, done := newTestEngine(t, store)
	defer done()

	_, err := eng.Hold(context.Background(), "sess-1", uuid.New(), seatID, "terminal-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.SeatAvailable, store.seatState(seatID))
}

func TestCommit_UnknownGroupNotFound(t *testing.T) {
	store := newFakeStore()
	eng, _, done := newTestEngine(t, store)
	defer done()

	_, err := eng.Cancel(context.Background(), "bkg-missing", "oops")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
