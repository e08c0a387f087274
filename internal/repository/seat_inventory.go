package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// SeatInventory persists the per-screening seat set.  It implements
// booking.SeatInventory with plain SQL: the batch compare-and-swap is a
// single conditional UPDATE inside a transaction, rolled back whenever the
// affected row count falls short of the batch size.
type SeatInventory struct {
	db *sql.DB
}

// NewSeatInventory returns a SeatInventory bound to the given database.
func NewSeatInventory(db *sql.DB) *SeatInventory { return &SeatInventory{db: db} }

// placeholders builds "?, ?, ?" for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// SeatsFor returns the screening's seats ordered by row label then number.
// Row labels sort shorter-first so AA follows Z.
func (r *SeatInventory) SeatsFor(ctx context.Context, screeningID uint64) ([]model.Seat, error) {
	const q = `SELECT id, screening_id, row_label, seat_number, status
	           FROM seats
	           WHERE screening_id = ?
	           ORDER BY LENGTH(row_label), row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ScreeningID, &s.RowLabel, &s.SeatNumber, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		// Distinguish an unknown screening from one with zero seats.
		var n int
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM screenings WHERE id = ?`, screeningID).Scan(&n); err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, booking.ErrNotFound
		}
	}
	return out, nil
}

// SeatStatus returns the current status of one seat.
func (r *SeatInventory) SeatStatus(ctx context.Context, seatID uint64) (model.SeatStatus, error) {
	var st model.SeatStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM seats WHERE id = ?`, seatID).Scan(&st)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", booking.ErrNotFound
		}
		return "", err
	}
	return st, nil
}

// SetStatus flips the whole batch from one status to another, or nothing at
// all.  When the conditional UPDATE touches fewer rows than requested the
// transaction is rolled back and the seats that were not in the expected
// status are reported.
func (r *SeatInventory) SetStatus(ctx context.Context, screeningID uint64, seatIDs []uint64, from, to model.SeatStatus) error {
	if len(seatIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	args := make([]interface{}, 0, len(seatIDs)+3)
	args = append(args, to, screeningID, from)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	q := `UPDATE seats SET status = ? WHERE screening_id = ? AND status = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(seatIDs)) {
		conflicts, cErr := r.conflictingSeats(ctx, tx, screeningID, seatIDs, to)
		if cErr != nil {
			return cErr
		}
		return booking.NewSeatsUnavailable(conflicts)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// conflictingSeats lists the batch members that did not end up in the
// target status, including ids that do not exist or belong to another
// screening.
func (r *SeatInventory) conflictingSeats(ctx context.Context, tx *sql.Tx, screeningID uint64, seatIDs []uint64, want model.SeatStatus) ([]uint64, error) {
	args := make([]interface{}, 0, len(seatIDs)+2)
	args = append(args, screeningID, want)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	q := `SELECT id FROM seats WHERE screening_id = ? AND status = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ok := make(map[uint64]struct{}, len(seatIDs))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ok[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var conflicts []uint64
	for _, id := range seatIDs {
		if _, fine := ok[id]; !fine {
			conflicts = append(conflicts, id)
		}
	}
	return conflicts, nil
}

// Generate creates the seat grid for a screening, replacing whatever rows
// exist, with every seat AVAILABLE.
func (r *SeatInventory) Generate(ctx context.Context, screeningID uint64, rows, cols uint32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := generateTx(ctx, tx, screeningID, rows, cols); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Regenerate replaces the full seat set only when no seat is HELD or SOLD.
func (r *SeatInventory) Regenerate(ctx context.Context, screeningID uint64, rows, cols uint32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var active int
	const check = `SELECT COUNT(*) FROM seats WHERE screening_id = ? AND status <> ? FOR UPDATE`
	if err := tx.QueryRowContext(ctx, check, screeningID, model.SeatAvailable).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return booking.ErrHasActiveHolds
	}
	if err := generateTx(ctx, tx, screeningID, rows, cols); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// generateTx deletes and re-inserts the screening's seat grid inside the
// given transaction.
func generateTx(ctx context.Context, tx *sql.Tx, screeningID uint64, rows, cols uint32) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE screening_id = ?`, screeningID); err != nil {
		return err
	}
	if rows == 0 || cols == 0 {
		return nil
	}
	q := `INSERT INTO seats (screening_id, row_label, seat_number, status) VALUES `
	args := make([]interface{}, 0, int(rows*cols)*4)
	first := true
	for ri := uint32(0); ri < rows; ri++ {
		label := indexToRowLabel(int(ri))
		for n := uint32(1); n <= cols; n++ {
			if !first {
				q += ","
			}
			first = false
			q += "(?, ?, ?, ?)"
			args = append(args, screeningID, label, n, model.SeatAvailable)
		}
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
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
