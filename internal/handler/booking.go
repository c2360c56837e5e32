package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// Bookings is the part of the booking service used by the customer
// endpoints.
type Bookings interface {
	HoldSeats(ctx context.Context, req service.HoldRequest) ([]model.SeatReservation, time.Time, error)
	ReleaseHolds(ctx context.Context, userID, showtimeID uint64) (int, error)
	CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID uint64) (*model.Booking, error)
	ListBookings(ctx context.Context, userID uint64) ([]model.Booking, error)
	MarkPaid(ctx context.Context, userID, bookingID uint64, method string) (*model.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID uint64) (*model.Booking, error)
}

// BookingHandler serves the customer endpoints.  All methods assume that
// JWT authentication and role validation already ran.
type BookingHandler struct {
	svc Bookings
	log *zap.Logger
}

// NewBookingHandler returns a handler backed by svc.
func NewBookingHandler(svc Bookings, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{svc: svc, log: log}
}

// HoldSeats handles POST /v1/showtimes/:id/holds with {"seat_ids": [...]}.
// It replaces the caller's previous holds on the showtime and answers 201
// with the hold tokens and their expiry.
func (h *BookingHandler) HoldSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body seatsRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	holds, expiresAt, err := h.svc.HoldSeats(c.Request().Context(), service.HoldRequest{
		UserID:     userID,
		ShowtimeID: showtimeID,
		SeatIDs:    body.SeatIDs,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := holdResponse{
		ShowtimeID: showtimeID,
		SeatIDs:    make([]uint64, 0, len(holds)),
		Tokens:     make([]string, 0, len(holds)),
		ExpiresAt:  expiresAt,
	}
	for _, hd := range holds {
		resp.SeatIDs = append(resp.SeatIDs, hd.SeatID)
		resp.Tokens = append(resp.Tokens, hd.HoldToken)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ReleaseHolds handles DELETE /v1/showtimes/:id/holds.
func (h *BookingHandler) ReleaseHolds(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	n, err := h.svc.ReleaseHolds(c.Request().Context(), userID, showtimeID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// CreateBooking handles POST /v1/showtimes/:id/bookings.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	req := service.CreateBookingRequest{
		UserID:     userID,
		ShowtimeID: showtimeID,
		SeatIDs:    body.SeatIDs,
	}
	for _, line := range body.Concessions {
		req.Concessions = append(req.Concessions, service.ConcessionLine{
			ConcessionID: line.ConcessionID,
			Quantity:     line.Quantity,
		})
	}
	b, err := h.svc.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// ListBookings handles GET /v1/bookings, newest first.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.svc.ListBookings(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]bookingResponse, 0, len(list))
	for i := range list {
		out = append(out, toBookingResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.svc.GetBooking(c.Request().Context(), userID, bookingID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// PayBooking handles POST /v1/bookings/:id/pay with {"payment_method": "..."}.
func (h *BookingHandler) PayBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body payRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PaymentMethod == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_method is required"})
	}
	b, err := h.svc.MarkPaid(c.Request().Context(), userID, bookingID, body.PaymentMethod)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// CancelBooking handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.svc.CancelBooking(c.Request().Context(), userID, bookingID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
