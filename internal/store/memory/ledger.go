package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// Ledger is the in-memory reservation ledger.  Records are never deleted;
// terminal reservations stay around for audit and lookup just like rows in
// the MySQL implementation.
type Ledger struct {
	mu     sync.RWMutex
	byID   map[uint64]*model.Reservation
	byCode map[string]uint64
	nextID uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byID:   make(map[uint64]*model.Reservation),
		byCode: make(map[string]uint64),
		nextID: 1,
	}
}

func cloneReservation(r *model.Reservation) *model.Reservation {
	c := *r
	c.SeatIDs = append([]uint64(nil), r.SeatIDs...)
	return &c
}

// Create inserts the reservation and assigns its id.
func (l *Ledger) Create(_ context.Context, res *model.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	res.ID = l.nextID
	l.nextID++
	l.byID[res.ID] = cloneReservation(res)
	return nil
}

// Get returns a copy of the reservation.
func (l *Ledger) Get(_ context.Context, id uint64) (*model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.byID[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return cloneReservation(r), nil
}

// FindBySeat returns the active reservation holding the seat, if any.
func (l *Ledger) FindBySeat(_ context.Context, seatID uint64) (*model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.byID {
		if !r.Status.Active() && r.Status != model.ReservationConfirmed {
			continue
		}
		for _, id := range r.SeatIDs {
			if id == seatID {
				return cloneReservation(r), nil
			}
		}
	}
	return nil, booking.ErrNotFound
}

// FindByCode returns the reservation with the given confirmation code.
func (l *Ledger) FindByCode(_ context.Context, code string) (*model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byCode[code]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return cloneReservation(l.byID[id]), nil
}

// ListByScreening returns all reservations of the screening, newest first.
func (l *Ledger) ListByScreening(_ context.Context, screeningID uint64) ([]model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Reservation
	for _, r := range l.byID {
		if r.ScreeningID == screeningID {
			out = append(out, *cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Transition applies one state machine edge as a compare-and-swap.
func (l *Ledger) Transition(_ context.Context, id uint64, from, to model.ReservationStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.byID[id]
	if !ok {
		return booking.ErrNotFound
	}
	if r.Status != from || !model.CanTransition(from, to) {
		return booking.ErrInvalidTransition
	}
	r.Status = to
	return nil
}

// Confirm finalises AWAITING_PAYMENT -> CONFIRMED together with the code,
// total and payment reference, all under one lock acquisition.
func (l *Ledger) Confirm(_ context.Context, id uint64, code string, totalCents uint32, paymentRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.byID[id]
	if !ok {
		return booking.ErrNotFound
	}
	if r.Status != model.ReservationAwaitingPayment {
		return booking.ErrInvalidTransition
	}
	r.Status = model.ReservationConfirmed
	r.ConfirmationCode = code
	r.TotalCents = totalCents
	r.PaymentRef = paymentRef
	l.byCode[code] = id
	return nil
}

// ExpiredAsOf returns active reservations whose hold window has lapsed.
func (l *Ledger) ExpiredAsOf(_ context.Context, screeningID uint64, now time.Time) ([]model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Reservation
	for _, r := range l.byID {
		if screeningID != 0 && r.ScreeningID != screeningID {
			continue
		}
		if r.ExpiredAt(now) {
			out = append(out, *cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
