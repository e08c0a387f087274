package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.  HOLDING and
// AWAITING_PAYMENT are the two active states; CONFIRMED, EXPIRED and
// CANCELLED are terminal.  Transitions are validated against the explicit
// edge list in CanTransition; anything not listed there is rejected.
type ReservationStatus string

const (
	ReservationHolding         ReservationStatus = "HOLDING"
	ReservationAwaitingPayment ReservationStatus = "AWAITING_PAYMENT"
	ReservationConfirmed       ReservationStatus = "CONFIRMED"
	ReservationExpired         ReservationStatus = "EXPIRED"
	ReservationCancelled       ReservationStatus = "CANCELLED"
)

// transitions is the full state machine.  Edges:
//
//	HOLDING          -> AWAITING_PAYMENT  payment submitted
//	HOLDING          -> EXPIRED           hold timer fired
//	HOLDING          -> CANCELLED         customer/admin abort
//	AWAITING_PAYMENT -> CONFIRMED         payment completed
//	AWAITING_PAYMENT -> EXPIRED           hold timer fired before payment resolved
//	AWAITING_PAYMENT -> CANCELLED         payment failed or declined
var transitions = map[ReservationStatus]map[ReservationStatus]bool{
	ReservationHolding: {
		ReservationAwaitingPayment: true,
		ReservationExpired:         true,
		ReservationCancelled:       true,
	},
	ReservationAwaitingPayment: {
		ReservationConfirmed: true,
		ReservationExpired:   true,
		ReservationCancelled: true,
	},
}

// CanTransition reports whether moving a reservation from one status to
// another is a listed edge of the state machine.
func CanTransition(from, to ReservationStatus) bool {
	return transitions[from][to]
}

// Active reports whether the status still ties up seats.  A reservation in
// an active state keeps its seats HELD; terminal states release or finalise
// them.
func (s ReservationStatus) Active() bool {
	return s == ReservationHolding || s == ReservationAwaitingPayment
}

// Terminal reports whether the status permits no further transitions.
func (s ReservationStatus) Terminal() bool {
	return !s.Active() && s != ""
}

// Holder identifies who a reservation belongs to: either a registered user
// (UserID non-nil) or a guest identified by name and contact details.
type Holder struct {
	UserID     *uint64 `json:"user_id,omitempty"`
	GuestName  string  `json:"guest_name,omitempty"`
	GuestEmail string  `json:"guest_email,omitempty"`
	GuestPhone string  `json:"guest_phone,omitempty"`
}

// Registered reports whether the holder is a registered user.
func (h Holder) Registered() bool { return h.UserID != nil && *h.UserID != 0 }

// Reservation records who holds which seats of a screening and in what
// lifecycle state.  Seats are listed in the order they were requested and
// are all distinct and owned by the same screening.  The record is never
// deleted; EXPIRED and CANCELLED reservations persist for audit and
// customer lookup.
//
// TotalCents and ConfirmationCode are only populated on the transition to
// CONFIRMED: the total is fixed at confirmation time (seat count times the
// screening price as of that moment) and never recomputed, and the code is
// the unique human-shareable identifier customers use to find their booking.
type Reservation struct {
	ID               uint64            `json:"id"`
	ScreeningID      uint64            `json:"screening_id"`
	SeatIDs          []uint64          `json:"seat_ids"`
	Holder           Holder            `json:"holder"`
	Status           ReservationStatus `json:"status"`
	TotalCents       uint32            `json:"total_cents,omitempty"`
	ConfirmationCode string            `json:"confirmation_code,omitempty"`
	PaymentRef       string            `json:"payment_ref,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
}

// ExpiredAt reports whether the hold window has lapsed at the given instant
// while the reservation is still in an active state.
func (r *Reservation) ExpiredAt(now time.Time) bool {
	return r.Status.Active() && !r.ExpiresAt.After(now)
}

// PaymentStatus is the outcome state of an external charge.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment mirrors the record the external gateway settles for a
// reservation.  A reservation has at most one terminal payment.
type Payment struct {
	ReservationID uint64        `json:"reservation_id"`
	Ref           string        `json:"ref"`
	AmountCents   uint32        `json:"amount_cents"`
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
}
