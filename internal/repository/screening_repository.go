// Package repository implements the booking ports on MySQL.  All timestamp
// columns are stored and compared in UTC; the connection is opened with
// parseTime=true so DATETIME columns scan into time.Time directly.  Failure
// modes are mapped onto the sentinel and typed errors of the booking
// package so handlers never see raw sql errors.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// ScreeningRepo persists screenings.  It implements booking.ScreeningCatalog.
type ScreeningRepo struct {
	db *sql.DB
}

// NewScreeningRepo returns a ScreeningRepo bound to the given database.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

// Create inserts a screening and populates its generated ID and CreatedAt.
func (r *ScreeningRepo) Create(ctx context.Context, s *model.Screening) error {
	const q = `INSERT INTO screenings (title, room, starts_at, price_cents, seat_rows, seat_cols)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.Title, s.Room, s.StartsAt.UTC(), s.PriceCents, s.SeatRows, s.SeatCols)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT created_at FROM screenings WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt)
}

// Get returns a screening by id, or booking.ErrNotFound.
func (r *ScreeningRepo) Get(ctx context.Context, id uint64) (*model.Screening, error) {
	const q = `SELECT id, title, room, starts_at, price_cents, seat_rows, seat_cols, created_at
	           FROM screenings WHERE id = ?`
	var s model.Screening
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Title, &s.Room, &s.StartsAt, &s.PriceCents, &s.SeatRows, &s.SeatCols, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns all screenings ordered by start time ascending.
func (r *ScreeningRepo) List(ctx context.Context) ([]model.Screening, error) {
	const q = `SELECT id, title, room, starts_at, price_cents, seat_rows, seat_cols, created_at
	           FROM screenings ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Screening
	for rows.Next() {
		var s model.Screening
		if err := rows.Scan(&s.ID, &s.Title, &s.Room, &s.StartsAt, &s.PriceCents, &s.SeatRows, &s.SeatCols, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
