package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// ReservationLedger persists reservations and their seat sets.  It
// implements booking.ReservationLedger.  State transitions are conditional
// UPDATEs keyed on the current status, which gives the same
// compare-and-swap behaviour the coordinator relies on for its rollback
// guarantees.  Rows are never deleted.
type ReservationLedger struct {
	db *sql.DB
}

// NewReservationLedger returns a ReservationLedger bound to the database.
func NewReservationLedger(db *sql.DB) *ReservationLedger { return &ReservationLedger{db: db} }

const reservationColumns = `id, screening_id, user_id, guest_name, guest_email, guest_phone,
	status, total_cents, confirmation_code, payment_ref, created_at, expires_at`

// scanReservation reads one reservation row (without its seats).
func scanReservation(row interface{ Scan(...interface{}) error }) (*model.Reservation, error) {
	var (
		res    model.Reservation
		userID sql.NullInt64
		code   sql.NullString
		payRef sql.NullString
	)
	err := row.Scan(
		&res.ID, &res.ScreeningID, &userID,
		&res.Holder.GuestName, &res.Holder.GuestEmail, &res.Holder.GuestPhone,
		&res.Status, &res.TotalCents, &code, &payRef, &res.CreatedAt, &res.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		res.Holder.UserID = &uid
	}
	if code.Valid {
		res.ConfirmationCode = code.String
	}
	if payRef.Valid {
		res.PaymentRef = payRef.String
	}
	return &res, nil
}

// Create inserts the reservation together with its seat list.
func (r *ReservationLedger) Create(ctx context.Context, res *model.Reservation) error {
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

	var userID interface{}
	if res.Holder.Registered() {
		userID = *res.Holder.UserID
	}
	const q = `INSERT INTO reservations
	           (screening_id, user_id, guest_name, guest_email, guest_phone, status, created_at, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.ScreeningID, userID,
		res.Holder.GuestName, res.Holder.GuestEmail, res.Holder.GuestPhone,
		res.Status, res.CreatedAt.UTC(), res.ExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	if len(res.SeatIDs) > 0 {
		sq := `INSERT INTO reservation_seats (reservation_id, seat_id) VALUES `
		args := make([]interface{}, 0, len(res.SeatIDs)*2)
		for i, sid := range res.SeatIDs {
			if i > 0 {
				sq += ","
			}
			sq += "(?, ?)"
			args = append(args, res.ID, sid)
		}
		if _, err := tx.ExecContext(ctx, sq, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// seatIDsFor loads the ordered seat list of one reservation.
func (r *ReservationLedger) seatIDsFor(ctx context.Context, reservationID uint64) ([]uint64, error) {
	const q = `SELECT seat_id FROM reservation_seats WHERE reservation_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get returns a reservation by id, or booking.ErrNotFound.
func (r *ReservationLedger) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	if res.SeatIDs, err = r.seatIDsFor(ctx, res.ID); err != nil {
		return nil, err
	}
	return res, nil
}

// FindBySeat returns the active or confirmed reservation referencing the
// seat, if any.
func (r *ReservationLedger) FindBySeat(ctx context.Context, seatID uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE id IN (SELECT reservation_id FROM reservation_seats WHERE seat_id = ?)
	             AND status IN (?, ?, ?)
	           ORDER BY id DESC LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, seatID,
		model.ReservationHolding, model.ReservationAwaitingPayment, model.ReservationConfirmed))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	if res.SeatIDs, err = r.seatIDsFor(ctx, res.ID); err != nil {
		return nil, err
	}
	return res, nil
}

// FindByCode returns the reservation carrying the confirmation code.
func (r *ReservationLedger) FindByCode(ctx context.Context, code string) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE confirmation_code = ?`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	if res.SeatIDs, err = r.seatIDsFor(ctx, res.ID); err != nil {
		return nil, err
	}
	return res, nil
}

// listWhere runs a reservation query and fills in the seat lists.
func (r *ReservationLedger) listWhere(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].SeatIDs, err = r.seatIDsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListByScreening returns all reservations of a screening, newest first.
func (r *ReservationLedger) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Reservation, error) {
	return r.listWhere(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE screening_id = ? ORDER BY created_at DESC, id DESC`,
		screeningID)
}

// Transition applies one state machine edge via a conditional UPDATE.
func (r *ReservationLedger) Transition(ctx context.Context, id uint64, from, to model.ReservationStatus) error {
	if !model.CanTransition(from, to) {
		return booking.ErrInvalidTransition
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	return r.missOrInvalid(ctx, id)
}

// Confirm finalises the reservation in one statement so the status flip,
// code, total and payment reference land together or not at all.
func (r *ReservationLedger) Confirm(ctx context.Context, id uint64, code string, totalCents uint32, paymentRef string) error {
	const q = `UPDATE reservations
	           SET status = ?, confirmation_code = ?, total_cents = ?, payment_ref = ?
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q,
		model.ReservationConfirmed, code, totalCents, paymentRef, id, model.ReservationAwaitingPayment)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	return r.missOrInvalid(ctx, id)
}

// missOrInvalid decides whether a zero-row CAS update means the id is
// unknown or the reservation moved on.
func (r *ReservationLedger) missOrInvalid(ctx context.Context, id uint64) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return booking.ErrInvalidTransition
}

// ExpiredAsOf returns active reservations whose hold window has lapsed at
// the given instant.  A zero screeningID scans all screenings.
func (r *ReservationLedger) ExpiredAsOf(ctx context.Context, screeningID uint64, now time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
	      FROM reservations
	      WHERE status IN (?, ?) AND expires_at <= ?`
	args := []interface{}{model.ReservationHolding, model.ReservationAwaitingPayment, now.UTC()}
	if screeningID != 0 {
		q += ` AND screening_id = ?`
		args = append(args, screeningID)
	}
	q += ` ORDER BY id`
	return r.listWhere(ctx, q, args...)
}
