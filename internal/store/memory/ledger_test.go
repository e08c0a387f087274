package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

func newHoldingReservation(t *testing.T, l *Ledger, screeningID uint64, seatIDs []uint64, expiresAt time.Time) *model.Reservation {
	t.Helper()
	res := &model.Reservation{
		ScreeningID: screeningID,
		SeatIDs:     seatIDs,
		Holder:      model.Holder{GuestName: "Ada", GuestEmail: "ada@example.com"},
		Status:      model.ReservationHolding,
		CreatedAt:   expiresAt.Add(-30 * time.Minute),
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, l.Create(context.Background(), res))
	return res
}

func TestLedger_CreateAssignsID(t *testing.T) {
	l := NewLedger()
	now := time.Now().UTC()

	a := newHoldingReservation(t, l, 1, []uint64{1, 2}, now.Add(time.Hour))
	b := newHoldingReservation(t, l, 1, []uint64{3}, now.Add(time.Hour))
	assert.NotZero(t, a.ID)
	assert.Equal(t, a.ID+1, b.ID)

	got, err := l.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, got.SeatIDs)
	assert.Equal(t, model.ReservationHolding, got.Status)
}

func TestLedger_GetUnknown(t *testing.T) {
	l := NewLedger()
	_, err := l.Get(context.Background(), 7)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestLedger_GetReturnsCopy(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	res := newHoldingReservation(t, l, 1, []uint64{1}, time.Now().UTC().Add(time.Hour))

	got, err := l.Get(ctx, res.ID)
	require.NoError(t, err)
	got.Status = model.ReservationCancelled
	got.SeatIDs[0] = 999

	again, err := l.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationHolding, again.Status)
	assert.Equal(t, []uint64{1}, again.SeatIDs)
}

func TestLedger_TransitionCAS(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	res := newHoldingReservation(t, l, 1, []uint64{1}, time.Now().UTC().Add(time.Hour))

	require.NoError(t, l.Transition(ctx, res.ID, model.ReservationHolding, model.ReservationAwaitingPayment))

	// Same edge again: the reservation is no longer HOLDING.
	err := l.Transition(ctx, res.ID, model.ReservationHolding, model.ReservationAwaitingPayment)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	// Edge not in the state machine.
	err = l.Transition(ctx, res.ID, model.ReservationAwaitingPayment, model.ReservationHolding)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	err = l.Transition(ctx, 999, model.ReservationHolding, model.ReservationExpired)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestLedger_ConfirmAndLookupByCode(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	res := newHoldingReservation(t, l, 1, []uint64{1, 2}, time.Now().UTC().Add(time.Hour))

	// Confirm requires AWAITING_PAYMENT.
	err := l.Confirm(ctx, res.ID, "TKT-AAAA2222", 2400, "pay-1")
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	require.NoError(t, l.Transition(ctx, res.ID, model.ReservationHolding, model.ReservationAwaitingPayment))
	require.NoError(t, l.Confirm(ctx, res.ID, "TKT-AAAA2222", 2400, "pay-1"))

	got, err := l.FindByCode(ctx, "TKT-AAAA2222")
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, model.ReservationConfirmed, got.Status)
	assert.Equal(t, uint32(2400), got.TotalCents)
	assert.Equal(t, "pay-1", got.PaymentRef)

	_, err = l.FindByCode(ctx, "TKT-MISSING9")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestLedger_FindBySeat(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	res := newHoldingReservation(t, l, 1, []uint64{4, 5}, time.Now().UTC().Add(time.Hour))

	got, err := l.FindBySeat(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = l.FindBySeat(ctx, 6)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	// Terminal reservations no longer claim their seats.
	require.NoError(t, l.Transition(ctx, res.ID, model.ReservationHolding, model.ReservationCancelled))
	_, err = l.FindBySeat(ctx, 5)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestLedger_ListByScreeningNewestFirst(t *testing.T) {
	l := NewLedger()
	now := time.Now().UTC()
	a := newHoldingReservation(t, l, 1, []uint64{1}, now.Add(time.Hour))
	_ = newHoldingReservation(t, l, 2, []uint64{9}, now.Add(time.Hour))
	b := newHoldingReservation(t, l, 1, []uint64{2}, now.Add(time.Hour))

	items, err := l.ListByScreening(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)
}

func TestLedger_ExpiredAsOf(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	now := time.Now().UTC()

	lapsed := newHoldingReservation(t, l, 1, []uint64{1}, now.Add(-time.Minute))
	_ = newHoldingReservation(t, l, 1, []uint64{2}, now.Add(time.Hour))
	otherScreening := newHoldingReservation(t, l, 2, []uint64{3}, now.Add(-time.Minute))

	// Confirmed reservations never expire.
	done := newHoldingReservation(t, l, 1, []uint64{4}, now.Add(-time.Minute))
	require.NoError(t, l.Transition(ctx, done.ID, model.ReservationHolding, model.ReservationAwaitingPayment))
	require.NoError(t, l.Confirm(ctx, done.ID, "TKT-DONE2345", 800, "pay-9"))

	got, err := l.ExpiredAsOf(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lapsed.ID, got[0].ID)

	// Zero screening id scans everything.
	got, err = l.ExpiredAsOf(ctx, 0, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, lapsed.ID, got[0].ID)
	assert.Equal(t, otherScreening.ID, got[1].ID)
}
