// Package booking contains the seat inventory core: the coordinator that
// owns every inventory and ledger mutation, the per-screening locking, and
// the hold expiry sweeper.  Everything else in the service (handlers,
// middleware, queues) only talks to seats and reservations through this
// package or through read-only lookups.
package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a screening, seat or reservation id does not
// exist.  Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when an operation would take a
// reservation across an edge that is not part of the state machine.  It
// usually indicates a race (two actors driving the same reservation) and is
// surfaced to callers as a generic retry-later conflict.
var ErrInvalidTransition = errors.New("invalid reservation transition")

// ErrHoldExpired is returned when a payment step touches a reservation
// whose hold window has lapsed.  The reservation is expired on the spot and
// the caller must re-select seats.
var ErrHoldExpired = errors.New("hold expired")

// ErrHasActiveHolds is returned when seat regeneration is attempted while
// any seat of the screening is HELD or SOLD.  It is a business rule, not a
// fault: the admin must wait until the screening has no live inventory.
var ErrHasActiveHolds = errors.New("screening has active holds or sold seats")

// ErrPaymentDeclined is returned by ConfirmPayment when the gateway refuses
// the charge.  The reservation has already been moved to CANCELLED and its
// seats released by the time the error is returned.
var ErrPaymentDeclined = errors.New("payment declined")

// ErrBadSeatSelection is returned when a hold request names no seats,
// repeats a seat, or includes seats that do not belong to the screening.
var ErrBadSeatSelection = errors.New("invalid seat selection")

// SeatsUnavailableError reports a failed compare-and-swap over a batch of
// seats.  Seats carries the ids that were not in the expected status so the
// caller can re-render availability.  This is an expected, high-frequency
// outcome of concurrent bookings, not a fault.
type SeatsUnavailableError struct {
	Seats []uint64
}

func (e *SeatsUnavailableError) Error() string {
	ids := make([]string, len(e.Seats))
	for i, id := range e.Seats {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return "seats unavailable: [" + strings.Join(ids, ",") + "]"
}

// NewSeatsUnavailable builds a SeatsUnavailableError with a sorted copy of
// the conflicting seat ids, so error payloads are deterministic.
func NewSeatsUnavailable(seatIDs []uint64) *SeatsUnavailableError {
	s := append([]uint64(nil), seatIDs...)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return &SeatsUnavailableError{Seats: s}
}
