// Package memory provides in-memory implementations of the booking ports.
// They back the test suite and the standalone mode of the server (no MySQL
// configured).  All methods are safe for concurrent use; the coordinator
// additionally serializes mutations per screening.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// Inventory is the in-memory seat inventory.
type Inventory struct {
	mu          sync.RWMutex
	seats       map[uint64]*model.Seat
	byScreening map[uint64][]uint64
	nextID      uint64
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		seats:       make(map[uint64]*model.Seat),
		byScreening: make(map[uint64][]uint64),
		nextID:      1,
	}
}

// indexToRowLabel converts a zero-based row index to a label like A, B, AA.
func indexToRowLabel(i int) string {
	var b []rune
	for {
		b = append(b, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(b)-1; j < k; j, k = j+1, k-1 {
		b[j], b[k] = b[k], b[j]
	}
	return string(b)
}

// Generate creates the seat grid for a screening with every seat AVAILABLE.
func (inv *Inventory) Generate(_ context.Context, screeningID uint64, rows, cols uint32) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.generateLocked(screeningID, rows, cols)
	return nil
}

func (inv *Inventory) generateLocked(screeningID uint64, rows, cols uint32) {
	for _, id := range inv.byScreening[screeningID] {
		delete(inv.seats, id)
	}
	ids := make([]uint64, 0, rows*cols)
	for r := uint32(0); r < rows; r++ {
		label := indexToRowLabel(int(r))
		for n := uint32(1); n <= cols; n++ {
			id := inv.nextID
			inv.nextID++
			inv.seats[id] = &model.Seat{
				ID:          id,
				ScreeningID: screeningID,
				RowLabel:    label,
				SeatNumber:  n,
				Status:      model.SeatAvailable,
			}
			ids = append(ids, id)
		}
	}
	inv.byScreening[screeningID] = ids
}

// Regenerate replaces the seat set unless any seat is HELD or SOLD.
func (inv *Inventory) Regenerate(_ context.Context, screeningID uint64, rows, cols uint32) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, id := range inv.byScreening[screeningID] {
		if s := inv.seats[id]; s != nil && s.Status != model.SeatAvailable {
			return booking.ErrHasActiveHolds
		}
	}
	inv.generateLocked(screeningID, rows, cols)
	return nil
}

// SeatsFor returns copies of the screening's seats ordered by row label
// then seat number.
func (inv *Inventory) SeatsFor(_ context.Context, screeningID uint64) ([]model.Seat, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	ids, ok := inv.byScreening[screeningID]
	if !ok {
		return nil, booking.ErrNotFound
	}
	out := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		out = append(out, *inv.seats[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLabel != out[j].RowLabel {
			if len(out[i].RowLabel) != len(out[j].RowLabel) {
				return len(out[i].RowLabel) < len(out[j].RowLabel)
			}
			return strings.Compare(out[i].RowLabel, out[j].RowLabel) < 0
		}
		return out[i].SeatNumber < out[j].SeatNumber
	})
	return out, nil
}

// SeatStatus returns the current status of one seat.
func (inv *Inventory) SeatStatus(_ context.Context, seatID uint64) (model.SeatStatus, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	s, ok := inv.seats[seatID]
	if !ok {
		return "", booking.ErrNotFound
	}
	return s.Status, nil
}

// SetStatus is the batch compare-and-swap over seat statuses.  Either every
// listed seat moves from the expected status to the new one, or none do and
// the offenders are reported.
func (inv *Inventory) SetStatus(_ context.Context, screeningID uint64, seatIDs []uint64, from, to model.SeatStatus) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	var conflicts []uint64
	for _, id := range seatIDs {
		s, ok := inv.seats[id]
		if !ok || s.ScreeningID != screeningID || s.Status != from {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return booking.NewSeatsUnavailable(conflicts)
	}
	for _, id := range seatIDs {
		inv.seats[id].Status = to
	}
	return nil
}
