package booking

import (
	"context"
	"time"

	"github.com/kiarashv/movie-ticketing/internal/model"
)

// SeatInventory is the per-screening seat collection.  Implementations hold
// no business logic beyond validated status flips: SetStatus is a batch
// compare-and-swap and must apply completely or not at all.
//
// Two implementations exist: the MySQL one in internal/repository for the
// deployed service and an in-memory one in internal/store/memory used by
// tests and standalone mode.
type SeatInventory interface {
	// SeatsFor returns the screening's seats ordered by row label then
	// seat number.  Read-only; safe to call without the screening lock.
	SeatsFor(ctx context.Context, screeningID uint64) ([]model.Seat, error)

	// SeatStatus returns the current status of one seat.
	SeatStatus(ctx context.Context, seatID uint64) (model.SeatStatus, error)

	// SetStatus flips every listed seat of the screening from one status
	// to another.  If any seat is not currently in the from status, no
	// seat is changed and a *SeatsUnavailableError listing the offenders
	// is returned.
	SetStatus(ctx context.Context, screeningID uint64, seatIDs []uint64, from, to model.SeatStatus) error

	// Generate creates the fixed seat set for a new screening from a
	// rows-by-cols layout, all seats AVAILABLE.
	Generate(ctx context.Context, screeningID uint64, rows, cols uint32) error

	// Regenerate replaces the screening's full seat set.  It fails with
	// ErrHasActiveHolds, leaving the set untouched, when any seat is
	// HELD or SOLD.
	Regenerate(ctx context.Context, screeningID uint64, rows, cols uint32) error
}

// ReservationLedger records who holds which seats and in what status.  The
// ledger validates transitions against the model state machine and never
// deletes a record.
type ReservationLedger interface {
	// Create inserts a new reservation and assigns its id.  The caller
	// (always the coordinator) has already flipped the seats to HELD.
	Create(ctx context.Context, res *model.Reservation) error

	// Get returns a reservation by id, or ErrNotFound.
	Get(ctx context.Context, id uint64) (*model.Reservation, error)

	// FindBySeat returns the active reservation referencing the seat, or
	// ErrNotFound when no active reservation holds it.
	FindBySeat(ctx context.Context, seatID uint64) (*model.Reservation, error)

	// FindByCode returns the reservation carrying a confirmation code.
	FindByCode(ctx context.Context, code string) (*model.Reservation, error)

	// ListByScreening returns all reservations for a screening, newest
	// first, including terminal ones.
	ListByScreening(ctx context.Context, screeningID uint64) ([]model.Reservation, error)

	// Transition moves a reservation from one status to another.  It is a
	// compare-and-swap: ErrInvalidTransition is returned when the edge is
	// not in the state machine or the reservation is no longer in the
	// from status, ErrNotFound when the id is unknown.
	Transition(ctx context.Context, id uint64, from, to model.ReservationStatus) error

	// Confirm atomically performs AWAITING_PAYMENT -> CONFIRMED and fixes
	// the confirmation code, total price and payment reference.  Same
	// CAS semantics as Transition.
	Confirm(ctx context.Context, id uint64, code string, totalCents uint32, paymentRef string) error

	// ExpiredAsOf returns reservations still in an active status whose
	// hold window has lapsed at the given instant.  A zero screeningID
	// scans all screenings.
	ExpiredAsOf(ctx context.Context, screeningID uint64, now time.Time) ([]model.Reservation, error)
}

// ScreeningCatalog is the read-mostly source of screening reference data
// (price, room, layout) the coordinator validates against.
type ScreeningCatalog interface {
	Create(ctx context.Context, s *model.Screening) error
	Get(ctx context.Context, id uint64) (*model.Screening, error)
	List(ctx context.Context) ([]model.Screening, error)
}

// Notifier is invoked after a reservation is confirmed, outside the
// critical section.  Failures are logged and ignored: a lost notification
// never rolls back a confirmed booking.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, res *model.Reservation, scr *model.Screening, seats []model.Seat)
}
