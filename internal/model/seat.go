package model

import "strconv"

// SeatStatus is the availability state of a single seat for a screening.
// The status is derived state: a seat is HELD or SOLD exactly when one
// active reservation references it with the matching status.  Only the
// booking coordinator may write it, in the same atomic step as the
// reservation transition that justifies it.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatSold      SeatStatus = "SOLD"
)

// Seat is one physical seat of a screening.  Row label plus seat number is
// unique within the screening.
//
// Fields:
//  ID          - primary key identifier.
//  ScreeningID - owning screening; a seat never moves between screenings.
//  RowLabel    - letter designating the row (A, B, ... AA).
//  SeatNumber  - 1-based position within the row.
//  Status      - AVAILABLE, HELD or SOLD.
type Seat struct {
	ID          uint64     `json:"id"`
	ScreeningID uint64     `json:"screening_id"`
	RowLabel    string     `json:"row_label"`
	SeatNumber  uint32     `json:"seat_number"`
	Status      SeatStatus `json:"status"`
}

// Label returns the customer-facing seat name, e.g. "B7".
func (s *Seat) Label() string {
	return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}
