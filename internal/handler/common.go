package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kiarashv/movie-ticketing/internal/booking"
)

// pathID parses a positive numeric path parameter.  Returns 0 when the
// parameter is missing, malformed or zero.
func pathID(c echo.Context, name string) uint64 {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// respondError maps errors from the booking layer onto HTTP responses.
// Every handler funnels coordinator errors through here so the error
// vocabulary stays consistent across the whole surface:
//
//	ErrNotFound              -> 404
//	ErrBadSeatSelection      -> 400
//	SeatsUnavailableError    -> 409 with the conflicting seat IDs
//	ErrInvalidTransition     -> 409
//	ErrHasActiveHolds        -> 409
//	ErrHoldExpired           -> 410
//	ErrPaymentDeclined       -> 402
//	anything else            -> 500
func respondError(c echo.Context, err error) error {
	var unavailable *booking.SeatsUnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "seats_unavailable",
			"message":     "some seats are not available",
			"unavailable": unavailable.Seats,
		})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	case errors.Is(err, booking.ErrBadSeatSelection):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_seat_selection"})
	case errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_state"})
	case errors.Is(err, booking.ErrHasActiveHolds):
		return c.JSON(http.StatusConflict, echo.Map{"error": "active_holds"})
	case errors.Is(err, booking.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "hold_expired"})
	case errors.Is(err, booking.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment_declined"})
	default:
		c.Logger().Errorf("unhandled booking error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}
}
