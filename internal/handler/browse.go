package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kiarashv/movie-ticketing/internal/booking"
)

// BrowseHandler serves the read-only public surface: screening listings and
// seat maps.  Seat maps are a point-in-time snapshot; a seat shown
// AVAILABLE here can still be lost to a concurrent hold, which is why the
// hold endpoint re-validates and returns the conflicting IDs.
type BrowseHandler struct {
	Catalog booking.ScreeningCatalog
	Inv     booking.SeatInventory
}

func NewBrowseHandler(catalog booking.ScreeningCatalog, inv booking.SeatInventory) *BrowseHandler {
	if catalog == nil || inv == nil {
		panic("nil dependency passed to NewBrowseHandler")
	}
	return &BrowseHandler{Catalog: catalog, Inv: inv}
}

// ListScreenings handles GET /v1/screenings.
func (h *BrowseHandler) ListScreenings(c echo.Context) error {
	items, err := h.Catalog.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetScreening handles GET /v1/screenings/:id.
func (h *BrowseHandler) GetScreening(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	scr, err := h.Catalog.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"screening": scr})
}

// SeatMap handles GET /v1/screenings/:id/seats.  Seats come back ordered by
// row label then seat number so clients can render the room directly.
func (h *BrowseHandler) SeatMap(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	seats, err := h.Inv.SeatsFor(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"screening_id": id,
		"seats":        seats,
	})
}
