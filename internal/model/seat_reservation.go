package model

import "time"

// SeatReservation is a short hold placed on a seat while a user is in
// checkout.  A reservation stops counting as soon as ExpiresAt has
// passed, even if IsActive has not been swept yet.
//
// Fields:
//  ID         – primary key identifier.
//  ShowtimeID – showtime for which the seat is held.
//  SeatID     – seat being held.
//  UserID     – user holding the seat.
//  BookingID  – booking that consumed the hold (nil while in checkout).
//  HoldToken  – opaque token returned to the client.
//  ReservedAt – when the hold was placed.
//  ExpiresAt  – when the hold lapses.
//  IsActive   – cleared when released, consumed or swept.
type SeatReservation struct {
	ID         uint64    // seat_reservations.id
	ShowtimeID uint64    // seat_reservations.showtime_id
	SeatID     uint64    // seat_reservations.seat_id
	UserID     uint64    // seat_reservations.user_id
	BookingID  *uint64   // seat_reservations.booking_id (nullable)
	HoldToken  string    // seat_reservations.hold_token
	ReservedAt time.Time // seat_reservations.reserved_at
	ExpiresAt  time.Time // seat_reservations.expires_at
	IsActive   bool      // seat_reservations.is_active
}

// Holding reports whether the reservation still blocks the seat at now.
func (r SeatReservation) Holding(now time.Time) bool {
	return r.IsActive && r.ExpiresAt.After(now)
}
