package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// AdminHandler covers screening management: creating screenings (which
// generates their seat set), repairing a broken seat map and auditing the
// reservation history of a screening.  The router guards every route here
// with the ADMIN role.
type AdminHandler struct {
	Coord  *booking.Coordinator
	Ledger booking.ReservationLedger
}

func NewAdminHandler(coord *booking.Coordinator, ledger booking.ReservationLedger) *AdminHandler {
	if coord == nil || ledger == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Coord: coord, Ledger: ledger}
}

// CreateScreening handles POST /v1/admin/screenings.  The seat set is
// generated from the rows-by-cols layout in the same call, all seats
// AVAILABLE.
func (h *AdminHandler) CreateScreening(c echo.Context) error {
	var body struct {
		Title      string    `json:"title"`
		Room       string    `json:"room"`
		StartsAt   time.Time `json:"starts_at"`
		PriceCents uint32    `json:"price_cents"`
		SeatRows   uint32    `json:"seat_rows"`
		SeatCols   uint32    `json:"seat_cols"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Title = strings.TrimSpace(body.Title)
	body.Room = strings.TrimSpace(body.Room)
	switch {
	case body.Title == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	case body.Room == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room is required"})
	case body.StartsAt.IsZero():
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at is required"})
	case body.SeatRows == 0 || body.SeatCols == 0:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_rows and seat_cols must be positive"})
	case body.SeatRows > 26:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_rows may not exceed 26"})
	}

	scr := &model.Screening{
		Title:      body.Title,
		Room:       body.Room,
		StartsAt:   body.StartsAt.UTC(),
		PriceCents: body.PriceCents,
		SeatRows:   body.SeatRows,
		SeatCols:   body.SeatCols,
	}
	if err := h.Coord.CreateScreening(c.Request().Context(), scr); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"screening": scr})
}

// RepairSeats handles POST /v1/admin/screenings/:id/repair-seats.  It
// regenerates the screening's seat set from the stored layout.  Returns 409
// while any seat is held or sold; reservation history is kept either way.
func (h *AdminHandler) RepairSeats(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	if err := h.Coord.RepairSeats(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"repaired": id})
}

// ListReservations handles GET /v1/admin/screenings/:id/reservations.  All
// reservations including expired and cancelled ones come back, newest
// first.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	items, err := h.Ledger.ListByScreening(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
