package model

import "time"

// Screening is an immutable scheduled showing of a film in a room.  It is
// created once by an admin and acts as the reference frame for seat
// inventory: every seat belongs to exactly one screening and the ticket
// price applies uniformly to all of its seats.
//
// Fields:
//  ID         - primary key identifier.
//  Title      - film title shown to customers.
//  Room       - name of the room/hall the screening takes place in.
//  StartsAt   - when the screening begins (UTC).
//  PriceCents - ticket price per seat in cents.
//  SeatRows   - number of seat rows in the room layout.
//  SeatCols   - number of seats per row.
//  CreatedAt  - creation timestamp.
type Screening struct {
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	Room       string    `json:"room"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents uint32    `json:"price_cents"`
	SeatRows   uint32    `json:"seat_rows"`
	SeatCols   uint32    `json:"seat_cols"`
	CreatedAt  time.Time `json:"created_at"`
}

// TotalSeats returns the size of the fixed seat set owned by the screening.
func (s *Screening) TotalSeats() uint32 { return s.SeatRows * s.SeatCols }
