package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// Catalog is the part of the booking service used by the public endpoints.
type Catalog interface {
	SeatMap(ctx context.Context, showtimeID uint64) (*service.SeatMap, error)
	OccupiedSeats(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, error)
	Concessions(ctx context.Context) ([]model.Concession, error)
}

// PublicHandler serves unauthenticated browse endpoints.
type PublicHandler struct {
	svc Catalog
	log *zap.Logger
	now func() time.Time
}

// NewPublicHandler returns a handler backed by svc.
func NewPublicHandler(svc Catalog, log *zap.Logger) *PublicHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{svc: svc, log: log, now: time.Now}
}

// SeatMap handles GET /v1/showtimes/:id/seats: every seat of the screen
// with an occupied flag.
func (h *PublicHandler) SeatMap(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	m, err := h.svc.SeatMap(c.Request().Context(), showtimeID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toSeatMapResponse(m, h.now()))
}

// OccupiedSeats handles GET /v1/showtimes/:id/occupied.
func (h *PublicHandler) OccupiedSeats(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	taken, err := h.svc.OccupiedSeats(c.Request().Context(), showtimeID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ids := make([]uint64, 0, len(taken))
	for id := range taken {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return c.JSON(http.StatusOK, echo.Map{"showtime_id": showtimeID, "seat_ids": ids})
}

// Concessions handles GET /v1/concessions.
func (h *PublicHandler) Concessions(c echo.Context) error {
	list, err := h.svc.Concessions(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]concessionResponse, 0, len(list))
	for _, item := range list {
		out = append(out, concessionResponse{ID: item.ID, Name: item.Name, PriceCents: item.PriceCents})
	}
	return c.JSON(http.StatusOK, echo.Map{"concessions": out})
}
