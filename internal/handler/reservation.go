package handler

import (
	"net/http" // HTTP status codes

	"github.com/iliyamo/study-cafe-reservation/internal/service" // reservation workflow
	"github.com/labstack/echo/v4"                                // Echo web framework
)

// ReservationHandler exposes the seat claim/confirm/checkout workflow
// and the public status board.  All protected methods assume the JWT
// middleware already placed the caller's user_id into the context; the
// seat to act on comes from the request body, matching the flow of a
// customer clicking a seat on the board.
type ReservationHandler struct {
	Reservations *service.ReservationService // workflow and aggregator
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	if reservations == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations}
}

// seatRequest is the shared request body for seat-directed operations.
type seatRequest struct {
	SeatNumber uint32 `json:"seat_number"`
}

// PreOccupy handles POST /v1/reservations/pre-occupy.  It provisionally
// claims the seat for five minutes; exactly one of any set of
// concurrent claimants succeeds.
func (h *ReservationHandler) PreOccupy(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body seatRequest
	if err := c.Bind(&body); err != nil || body.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number is required"})
	}
	if err := h.Reservations.PreOccupy(c.Request().Context(), userID, body.SeatNumber); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seat_number": body.SeatNumber,
		"message":     "seat claimed for 5 minutes",
	})
}

// Confirm handles POST /v1/reservations/confirm.  It converts a live
// claim into a durable reservation for the requested number of hours.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		SeatNumber uint32 `json:"seat_number"`
		Hours      int    `json:"hours"`
	}
	if err := c.Bind(&body); err != nil || body.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number is required"})
	}
	if body.Hours <= 0 || body.Hours > 24 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hours must be between 1 and 24"})
	}
	res, err := h.Reservations.Confirm(c.Request().Context(), userID, body.SeatNumber, body.Hours)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"seat_number":    body.SeatNumber,
		"start_time":     res.StartTime,
		"end_time":       res.EndTime,
	})
}

// Cancel handles POST /v1/reservations/cancel.  It drops a provisional
// claim immediately; calling it without a live claim is a no-op.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body seatRequest
	if err := c.Bind(&body); err != nil || body.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number is required"})
	}
	h.Reservations.CancelPreOccupy(c.Request().Context(), body.SeatNumber)
	return c.JSON(http.StatusOK, echo.Map{"message": "claim released"})
}

// EndUse handles POST /v1/reservations/end-use, the explicit early
// checkout of the caller's active reservation.
func (h *ReservationHandler) EndUse(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Reservations.EndUse(c.Request().Context(), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "checked out"})
}

// CurrentSeat handles GET /v1/reservations/me and reports the seat the
// caller currently occupies.
func (h *ReservationHandler) CurrentSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatNumber, err := h.Reservations.CurrentSeat(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_number": seatNumber})
}

// SeatStatuses handles GET /v1/reservations/seats, the public status
// board merging durable occupancy with live claims.
func (h *ReservationHandler) SeatStatuses(c echo.Context) error {
	statuses, err := h.Reservations.SeatStatuses(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, statuses)
}
