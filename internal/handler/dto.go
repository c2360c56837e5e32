package handler

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// Request bodies.

type seatsRequest struct {
	SeatIDs []uint64 `json:"seat_ids"`
}

type concessionRequest struct {
	ConcessionID uint64 `json:"concession_id"`
	Quantity     uint32 `json:"quantity"`
}

type createBookingRequest struct {
	SeatIDs     []uint64            `json:"seat_ids"`
	Concessions []concessionRequest `json:"concessions"`
}

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// Responses.

type ticketResponse struct {
	ID         uint64 `json:"id"`
	SeatID     uint64 `json:"seat_id"`
	Seat       string `json:"seat"`
	SeatType   string `json:"seat_type"`
	PriceCents int64  `json:"price_cents"`
}

type bookingConcessionResponse struct {
	ConcessionID   uint64 `json:"concession_id"`
	Name           string `json:"name"`
	Quantity       uint32 `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type bookingResponse struct {
	ID               uint64                      `json:"id"`
	Code             string                      `json:"code"`
	ShowtimeID       uint64                      `json:"showtime_id"`
	Status           string                      `json:"status"`
	TotalAmountCents int64                       `json:"total_amount_cents"`
	PaymentMethod    string                      `json:"payment_method,omitempty"`
	PaymentRef       *string                     `json:"payment_ref,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	PaidAt           *time.Time                  `json:"paid_at,omitempty"`
	ExpiresAt        time.Time                   `json:"expires_at"`
	Tickets          []ticketResponse            `json:"tickets"`
	Concessions      []bookingConcessionResponse `json:"concessions"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	out := bookingResponse{
		ID:               b.ID,
		Code:             b.Code,
		ShowtimeID:       b.ShowtimeID,
		Status:           string(b.Status),
		TotalAmountCents: b.TotalAmountCents,
		PaymentMethod:    b.PaymentMethod,
		PaymentRef:       b.PaymentRef,
		CreatedAt:        b.CreatedAt,
		PaidAt:           b.PaidAt,
		ExpiresAt:        b.ExpiresAt,
		Tickets:          make([]ticketResponse, 0, len(b.Tickets)),
		Concessions:      make([]bookingConcessionResponse, 0, len(b.Concessions)),
	}
	for _, t := range b.Tickets {
		out.Tickets = append(out.Tickets, ticketResponse{
			ID:         t.ID,
			SeatID:     t.SeatID,
			Seat:       t.SeatLabel,
			SeatType:   string(t.SeatType),
			PriceCents: t.PriceCents,
		})
	}
	for _, c := range b.Concessions {
		out.Concessions = append(out.Concessions, bookingConcessionResponse{
			ConcessionID:   c.ConcessionID,
			Name:           c.Name,
			Quantity:       c.Quantity,
			UnitPriceCents: c.UnitPriceCents,
			LineTotalCents: c.LineTotalCents(),
		})
	}
	return out
}

type holdResponse struct {
	ShowtimeID uint64    `json:"showtime_id"`
	SeatIDs    []uint64  `json:"seat_ids"`
	Tokens     []string  `json:"hold_tokens"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type seatResponse struct {
	ID       uint64 `json:"id"`
	Seat     string `json:"seat"`
	Row      string `json:"row"`
	Number   uint32 `json:"number"`
	SeatType string `json:"seat_type"`
	Active   bool   `json:"is_active"`
	Occupied bool   `json:"occupied"`
}

type seatMapResponse struct {
	ShowtimeID     uint64         `json:"showtime_id"`
	MovieTitle     string         `json:"movie_title"`
	StartsAt       time.Time      `json:"starts_at"`
	Screen         string         `json:"screen"`
	ScreenType     string         `json:"screen_type"`
	BasePriceCents int64          `json:"base_price_cents"`
	Bookable       bool           `json:"bookable"`
	Seats          []seatResponse `json:"seats"`
}

func toSeatMapResponse(m *service.SeatMap, now time.Time) seatMapResponse {
	out := seatMapResponse{
		ShowtimeID:     m.Showtime.ID,
		MovieTitle:     m.Showtime.MovieTitle,
		StartsAt:       m.Showtime.StartsAt,
		Screen:         m.Screen.Name,
		ScreenType:     m.Screen.ScreenType,
		BasePriceCents: m.Showtime.BasePriceCents,
		Bookable:       m.Showtime.Bookable(now),
		Seats:          make([]seatResponse, 0, len(m.Seats)),
	}
	for _, s := range m.Seats {
		out.Seats = append(out.Seats, seatResponse{
			ID:       s.ID,
			Seat:     s.Label(),
			Row:      s.RowLabel,
			Number:   s.Number,
			SeatType: string(s.SeatType),
			Active:   s.IsActive,
			Occupied: s.Occupied,
		})
	}
	return out
}

type concessionResponse struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}
