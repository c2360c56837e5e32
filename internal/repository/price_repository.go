package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// TicketPriceRepo reads the per seat type price overrides of showtimes.
type TicketPriceRepo struct {
	db *sql.DB
}

// NewTicketPriceRepo returns a TicketPriceRepo bound to db.
func NewTicketPriceRepo(db *sql.DB) *TicketPriceRepo { return &TicketPriceRepo{db: db} }

// ByShowtime returns the overrides of a showtime keyed by seat type.  A
// seat type missing from the map is charged the showtime base price.
func (r *TicketPriceRepo) ByShowtime(ctx context.Context, showtimeID uint64) (map[model.SeatType]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_type, price_cents FROM ticket_prices WHERE showtime_id = ?`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	prices := make(map[model.SeatType]int64)
	for rows.Next() {
		var seatType string
		var cents int64
		if err := rows.Scan(&seatType, &cents); err != nil {
			return nil, err
		}
		prices[model.SeatType(seatType)] = cents
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}
