package model

// TicketPrice overrides the showtime base price for one seat type.
type TicketPrice struct {
	ShowtimeID uint64   // ticket_prices.showtime_id
	SeatType   SeatType // ticket_prices.seat_type
	PriceCents int64    // ticket_prices.price_cents
}
