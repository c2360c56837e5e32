package model

import "time"

// Showtime is a scheduled screening of a movie on a screen.  Seats
// without a TicketPrice override for their type are charged
// BasePriceCents.
//
// Fields:
//  ID             – primary key identifier.
//  MovieID        – movie being screened.
//  MovieTitle     – denormalised title for display and notifications.
//  ScreenID       – screen hosting the showtime.
//  StartsAt       – when the screening begins (UTC).
//  EndsAt         – when it ends (UTC).
//  BasePriceCents – fallback seat price in cents.
//  IsActive       – whether the showtime is open for sale.
type Showtime struct {
	ID             uint64    // showtimes.id
	MovieID        uint64    // showtimes.movie_id
	MovieTitle     string    // movies.title
	ScreenID       uint64    // showtimes.screen_id
	StartsAt       time.Time // showtimes.start_time
	EndsAt         time.Time // showtimes.end_time
	BasePriceCents int64     // showtimes.base_price_cents
	IsActive       bool      // showtimes.is_active
}

// Bookable reports whether tickets can still be sold at now.
func (s Showtime) Bookable(now time.Time) bool {
	return s.IsActive && s.StartsAt.After(now)
}
