package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/middleware"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// BookingHandler exposes the reservation lifecycle over HTTP.  All state
// changes go through the coordinator; the handler only parses requests,
// resolves the holder identity and shapes responses.
type BookingHandler struct {
	Coord  *booking.Coordinator
	Ledger booking.ReservationLedger
}

// NewBookingHandler constructs a BookingHandler.  Both dependencies must be
// non-nil.
func NewBookingHandler(coord *booking.Coordinator, ledger booking.ReservationLedger) *BookingHandler {
	if coord == nil || ledger == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Coord: coord, Ledger: ledger}
}

// holdRequest is the body of POST /v1/screenings/:id/hold.  Guest fields
// are required only when no authenticated user is attached to the request.
type holdRequest struct {
	SeatIDs    []uint64 `json:"seat_ids"`
	GuestName  string   `json:"guest_name"`
	GuestEmail string   `json:"guest_email"`
	GuestPhone string   `json:"guest_phone"`
}

// holderFrom resolves the reservation holder: the JWT identity when one is
// present, otherwise the guest contact details from the request body.
func holderFrom(c echo.Context, body holdRequest) (model.Holder, bool) {
	if uid, ok := middleware.UserID(c); ok {
		return model.Holder{UserID: &uid}, true
	}
	name := strings.TrimSpace(body.GuestName)
	email := strings.TrimSpace(body.GuestEmail)
	if name == "" || email == "" {
		return model.Holder{}, false
	}
	return model.Holder{
		GuestName:  name,
		GuestEmail: email,
		GuestPhone: strings.TrimSpace(body.GuestPhone),
	}, true
}

// HoldSeats handles POST /v1/screenings/:id/hold.  It places a timed hold
// on the requested seats and opens a reservation in HOLDING.  Returns 201
// with the reservation and its expiry on success, 409 with the conflicting
// seat IDs when any requested seat is taken.
func (h *BookingHandler) HoldSeats(c echo.Context) error {
	screeningID := pathID(c, "id")
	if screeningID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	var body holdRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	holder, ok := holderFrom(c, body)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_name and guest_email are required for guest holds"})
	}

	res, err := h.Coord.HoldSeats(c.Request().Context(), screeningID, body.SeatIDs, holder)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation": res,
		"expires_at":  res.ExpiresAt.Format(time.RFC3339),
	})
}

// BeginPayment handles POST /v1/reservations/:id/payment.  It moves the
// reservation from HOLDING to AWAITING_PAYMENT.  Returns 410 when the hold
// lapsed before payment started.
func (h *BookingHandler) BeginPayment(c echo.Context) error {
	resID := pathID(c, "id")
	if resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Coord.BeginPayment(c.Request().Context(), resID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.ReservationAwaitingPayment})
}

// ConfirmPayment handles POST /v1/reservations/:id/confirm.  It charges
// the gateway and finalises the reservation.  The optional payment_ref lets
// clients retry safely: a repeat confirm carrying the reference of an
// already settled charge returns the existing reservation unchanged.
func (h *BookingHandler) ConfirmPayment(c echo.Context) error {
	resID := pathID(c, "id")
	if resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		Method     string `json:"method"`
		PaymentRef string `json:"payment_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Method == "" {
		body.Method = "card"
	}

	res, err := h.Coord.ConfirmPayment(c.Request().Context(), resID, model.Payment{
		ReservationID: resID,
		Method:        body.Method,
		Ref:           body.PaymentRef,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation":       res,
		"confirmation_code": res.ConfirmationCode,
		"total_cents":       res.TotalCents,
	})
}

// FailPayment handles POST /v1/reservations/:id/payment/fail.  Clients call
// it when a charge attempt failed on their side; the reservation is
// cancelled and its seats released.
func (h *BookingHandler) FailPayment(c echo.Context) error {
	resID := pathID(c, "id")
	if resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&body)
	if body.Reason == "" {
		body.Reason = "client reported failure"
	}
	if err := h.Coord.FailPayment(c.Request().Context(), resID, body.Reason); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.ReservationCancelled})
}

// Cancel handles DELETE /v1/reservations/:id.  It aborts a HOLDING
// reservation and releases its seats.  Confirmed reservations cannot be
// cancelled through this endpoint and yield 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	resID := pathID(c, "id")
	if resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	actor := "guest"
	if uid, ok := middleware.UserID(c); ok {
		actor = "user " + strconv.FormatUint(uid, 10)
	}
	if err := h.Coord.Cancel(c.Request().Context(), resID, actor); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetReservation handles GET /v1/reservations/:id.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	resID := pathID(c, "id")
	if resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Ledger.Get(c.Request().Context(), resID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// LookupByCode handles GET /v1/reservations/code/:code.  Customers use the
// confirmation code printed on their ticket to retrieve the booking.
func (h *BookingHandler) LookupByCode(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid confirmation code"})
	}
	res, err := h.Ledger.FindByCode(c.Request().Context(), code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}
