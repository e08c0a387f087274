// Package queue defines the message payloads exchanged over the broker and
// the background consumer that materialises tickets from them.
package queue

// ReservationConfirmedEvent is published once per confirmed reservation.
// It carries enough context for downstream consumers (ticket issuing,
// notification, analytics) to act without querying the primary store.
type ReservationConfirmedEvent struct {
	ReservationID    uint64   `json:"reservation_id"`
	UserID           uint64   `json:"user_id,omitempty"`
	GuestEmail       string   `json:"guest_email,omitempty"`
	ScreeningID      uint64   `json:"screening_id"`
	Title            string   `json:"title"`
	Room             string   `json:"room"`
	StartsAt         string   `json:"starts_at"`
	SeatLabels       []string `json:"seats"`
	TotalCents       uint32   `json:"total_cents"`
	ConfirmationCode string   `json:"confirmation_code"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
