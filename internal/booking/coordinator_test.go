package booking_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
	"github.com/kiarashv/movie-ticketing/internal/store/memory"
)

// fakeClock is a swappable time source for driving the hold window.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// countingGateway records charges so tests can assert how often the
// external boundary was crossed.
type countingGateway struct {
	charges atomic.Int64
	decline bool
}

func (g *countingGateway) Charge(_ context.Context, req booking.ChargeRequest) (booking.ChargeResult, error) {
	g.charges.Add(1)
	ref := req.Ref
	if ref == "" {
		ref = "chg-test"
	}
	return booking.ChargeResult{Ref: ref, Completed: !g.decline}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) ReservationConfirmed(_ context.Context, res *model.Reservation, _ *model.Screening, seats []model.Seat) {
	labels := make([]string, 0, len(seats))
	for i := range seats {
		labels = append(labels, seats[i].Label())
	}
	n.mu.Lock()
	n.events = append(n.events, res.ConfirmationCode+":"+strings.Join(labels, ","))
	n.mu.Unlock()
}

type fixture struct {
	coord   *booking.Coordinator
	inv     *memory.Inventory
	ledger  *memory.Ledger
	catalog *memory.Catalog
	clock   *fakeClock
	gateway *countingGateway
	scr     *model.Screening
}

func newFixture(t *testing.T, opts ...booking.Option) *fixture {
	t.Helper()
	f := &fixture{
		inv:     memory.NewInventory(),
		ledger:  memory.NewLedger(),
		catalog: memory.NewCatalog(),
		clock:   newFakeClock(),
		gateway: &countingGateway{},
	}
	all := append([]booking.Option{booking.WithClock(f.clock.Now)}, opts...)
	f.coord = booking.NewCoordinator(f.inv, f.ledger, f.catalog, f.gateway, all...)

	f.scr = &model.Screening{
		Title:      "Night Train",
		Room:       "1",
		StartsAt:   f.clock.Now().Add(3 * time.Hour),
		PriceCents: 1200,
		SeatRows:   3,
		SeatCols:   4,
	}
	require.NoError(t, f.coord.CreateScreening(context.Background(), f.scr))
	return f
}

func (f *fixture) seatIDs(t *testing.T, n int) []uint64 {
	t.Helper()
	seats, err := f.inv.SeatsFor(context.Background(), f.scr.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(seats), n)
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		ids[i] = seats[i].ID
	}
	return ids
}

func (f *fixture) seatStatus(t *testing.T, id uint64) model.SeatStatus {
	t.Helper()
	st, err := f.inv.SeatStatus(context.Background(), id)
	require.NoError(t, err)
	return st
}

func guest() model.Holder {
	return model.Holder{GuestName: "Ada", GuestEmail: "ada@example.com"}
}

func TestCreateScreening_GeneratesSeats(t *testing.T) {
	f := newFixture(t)
	seats, err := f.inv.SeatsFor(context.Background(), f.scr.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 12)

	err = f.coord.CreateScreening(context.Background(), &model.Screening{Title: "Bad", Room: "2"})
	assert.ErrorIs(t, err, booking.ErrBadSeatSelection)
}

func TestHoldSeats_HappyPath(t *testing.T) {
	f := newFixture(t)
	ids := f.seatIDs(t, 2)

	res, err := f.coord.HoldSeats(context.Background(), f.scr.ID, ids, guest())
	require.NoError(t, err)
	assert.Equal(t, model.ReservationHolding, res.Status)
	assert.Equal(t, ids, res.SeatIDs)
	assert.Equal(t, f.clock.Now().Add(booking.DefaultHoldWindow), res.ExpiresAt)

	for _, id := range ids {
		assert.Equal(t, model.SeatHeld, f.seatStatus(t, id))
	}
}

func TestHoldSeats_RejectsBadSelections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 1)

	_, err := f.coord.HoldSeats(ctx, f.scr.ID, nil, guest())
	assert.ErrorIs(t, err, booking.ErrBadSeatSelection)

	_, err = f.coord.HoldSeats(ctx, f.scr.ID, []uint64{ids[0], ids[0]}, guest())
	assert.ErrorIs(t, err, booking.ErrBadSeatSelection, "duplicate seat ids")

	_, err = f.coord.HoldSeats(ctx, f.scr.ID, []uint64{0}, guest())
	assert.ErrorIs(t, err, booking.ErrBadSeatSelection)

	_, err = f.coord.HoldSeats(ctx, f.scr.ID, []uint64{9999}, guest())
	assert.ErrorIs(t, err, booking.ErrBadSeatSelection, "seat of another screening")

	_, err = f.coord.HoldSeats(ctx, 424242, ids, guest())
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestHoldSeats_ConflictReportsSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 3)

	_, err := f.coord.HoldSeats(ctx, f.scr.ID, ids[:2], guest())
	require.NoError(t, err)

	_, err = f.coord.HoldSeats(ctx, f.scr.ID, ids[1:], guest())
	var unavailable *booking.SeatsUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uint64{ids[1]}, unavailable.Seats)

	// The loser's untaken seat stays on the market and can be held next.
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, ids[2]))
	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids[2:], guest())
	require.NoError(t, err)
	assert.Equal(t, model.ReservationHolding, res.Status)
}

func TestConfirmPayment_FullLifecycle(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newFixture(t, booking.WithNotifier(notifier))
	ctx := context.Background()
	ids := f.seatIDs(t, 2)

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)
	require.NoError(t, f.coord.BeginPayment(ctx, res.ID))

	confirmed, err := f.coord.ConfirmPayment(ctx, res.ID, model.Payment{ReservationID: res.ID, Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, confirmed.Status)
	assert.Equal(t, uint32(2400), confirmed.TotalCents, "2 seats at 1200 cents")
	assert.True(t, strings.HasPrefix(confirmed.ConfirmationCode, "TKT-"))
	assert.Len(t, confirmed.ConfirmationCode, 12)
	assert.NotEmpty(t, confirmed.PaymentRef)

	for _, id := range ids {
		assert.Equal(t, model.SeatSold, f.seatStatus(t, id))
	}

	got, err := f.ledger.FindByCode(ctx, confirmed.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.events, 1)
	assert.Equal(t, confirmed.ConfirmationCode+":A1,A2", notifier.events[0])
}

func TestConfirmPayment_RequiresBeginPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, f.seatIDs(t, 1), guest())
	require.NoError(t, err)

	_, err = f.coord.ConfirmPayment(ctx, res.ID, model.Payment{})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
}

func TestConfirmPayment_IdempotentRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, f.seatIDs(t, 1), guest())
	require.NoError(t, err)
	require.NoError(t, f.coord.BeginPayment(ctx, res.ID))

	first, err := f.coord.ConfirmPayment(ctx, res.ID, model.Payment{Ref: "client-ref-1"})
	require.NoError(t, err)

	// Retry with the same reference: same record back, no second charge.
	second, err := f.coord.ConfirmPayment(ctx, res.ID, model.Payment{Ref: "client-ref-1"})
	require.NoError(t, err)
	assert.Equal(t, first.ConfirmationCode, second.ConfirmationCode)
	assert.Equal(t, first.TotalCents, second.TotalCents)
	assert.Equal(t, int64(1), f.gateway.charges.Load())

	// A different reference against a settled reservation is rejected.
	_, err = f.coord.ConfirmPayment(ctx, res.ID, model.Payment{Ref: "client-ref-2"})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
}

func TestConfirmPayment_Declined(t *testing.T) {
	f := newFixture(t)
	f.gateway.decline = true
	ctx := context.Background()
	ids := f.seatIDs(t, 2)

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)
	require.NoError(t, f.coord.BeginPayment(ctx, res.ID))

	_, err = f.coord.ConfirmPayment(ctx, res.ID, model.Payment{})
	assert.ErrorIs(t, err, booking.ErrPaymentDeclined)

	got, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, got.Status)
	for _, id := range ids {
		assert.Equal(t, model.SeatAvailable, f.seatStatus(t, id))
	}
}

func TestBeginPayment_ExpiredHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 1)

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)

	f.clock.Advance(booking.DefaultHoldWindow + time.Second)

	err = f.coord.BeginPayment(ctx, res.ID)
	assert.ErrorIs(t, err, booking.ErrHoldExpired)

	got, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, ids[0]))
}

func TestHoldSeats_LazySweepFreesLapsedHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 1)

	first, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)

	f.clock.Advance(booking.DefaultHoldWindow + time.Minute)

	// Same seat is grantable again without waiting for the sweeper.
	second, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := f.ledger.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, model.SeatHeld, f.seatStatus(t, ids[0]))
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 3)

	lapsing, err := f.coord.HoldSeats(ctx, f.scr.ID, ids[:2], guest())
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	fresh, err := f.coord.HoldSeats(ctx, f.scr.ID, ids[2:], guest())
	require.NoError(t, err)

	f.clock.Advance(booking.DefaultHoldWindow - 10*time.Minute + time.Second)

	n, err := f.coord.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.ledger.Get(ctx, lapsing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, ids[0]))

	got, err = f.ledger.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationHolding, got.Status)
	assert.Equal(t, model.SeatHeld, f.seatStatus(t, ids[2]))

	// A second sweep finds nothing new.
	n, err = f.coord.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepExpired_ExpiresAwaitingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 1)

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)
	require.NoError(t, f.coord.BeginPayment(ctx, res.ID))

	f.clock.Advance(booking.DefaultHoldWindow + time.Second)

	n, err := f.coord.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 2)

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)
	require.NoError(t, f.coord.Cancel(ctx, res.ID, "guest"))

	got, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, got.Status)
	for _, id := range ids {
		assert.Equal(t, model.SeatAvailable, f.seatStatus(t, id))
	}

	// Only HOLDING reservations can be cancelled through this path.
	err = f.coord.Cancel(ctx, res.ID, "guest")
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
}

func TestFailPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 1)

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)

	// Not yet in AWAITING_PAYMENT.
	err = f.coord.FailPayment(ctx, res.ID, "card error")
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	require.NoError(t, f.coord.BeginPayment(ctx, res.ID))
	require.NoError(t, f.coord.FailPayment(ctx, res.ID, "card error"))

	got, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, got.Status)
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, ids[0]))
}

func TestRepairSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 1)

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
	require.NoError(t, err)

	err = f.coord.RepairSeats(ctx, f.scr.ID)
	assert.ErrorIs(t, err, booking.ErrHasActiveHolds)

	// Once the hold lapses the repair sweeps it and proceeds.
	f.clock.Advance(booking.DefaultHoldWindow + time.Second)
	require.NoError(t, f.coord.RepairSeats(ctx, f.scr.ID))

	seats, err := f.inv.SeatsFor(ctx, f.scr.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 12)
	for i := range seats {
		assert.Equal(t, model.SeatAvailable, seats[i].Status)
	}

	// Reservation history survives the regeneration.
	got, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
}

func TestHoldSeats_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seatIDs(t, 2)

	const attempts = 32
	var wins, conflicts atomic.Int64
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := f.coord.HoldSeats(ctx, f.scr.ID, ids, guest())
			switch {
			case err == nil:
				wins.Add(1)
			default:
				var unavailable *booking.SeatsUnavailableError
				if assert.ErrorAs(t, err, &unavailable) {
					conflicts.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load(), "exactly one hold wins")
	assert.Equal(t, int64(attempts-1), conflicts.Load())
	for _, id := range ids {
		assert.Equal(t, model.SeatHeld, f.seatStatus(t, id))
	}
}

func TestConfirmPayment_ConcurrentRetriesSingleConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coord.HoldSeats(ctx, f.scr.ID, f.seatIDs(t, 1), guest())
	require.NoError(t, err)
	require.NoError(t, f.coord.BeginPayment(ctx, res.ID))

	const retries = 8
	results := make([]*model.Reservation, retries)
	errs := make([]error, retries)
	var wg sync.WaitGroup
	wg.Add(retries)
	for i := 0; i < retries; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.coord.ConfirmPayment(ctx, res.ID, model.Payment{Ref: "shared-ref"})
		}(i)
	}
	wg.Wait()

	// The gateway may be reached more than once (the charge runs outside
	// the lock) but every retry converges on the single confirmed record.
	var confirmedCode string
	for i := 0; i < retries; i++ {
		require.NoError(t, errs[i])
		if confirmedCode == "" {
			confirmedCode = results[i].ConfirmationCode
		}
		assert.Equal(t, confirmedCode, results[i].ConfirmationCode)
	}
	assert.GreaterOrEqual(t, f.gateway.charges.Load(), int64(1))

	got, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, got.Status)
	assert.Equal(t, "shared-ref", got.PaymentRef)
}
