package model

import "time"

// BookingStatus is the lifecycle state of a booking.  PENDING is the only
// non-terminal state.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingPaid      BookingStatus = "PAID"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Occupying reports whether tickets of a booking in this state hold
// their seats.
func (s BookingStatus) Occupying() bool {
	return s == BookingPending || s == BookingPaid
}

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s != BookingPending
}

// Booking records a user's purchase for one showtime.  It aggregates
// the tickets (one per seat) and any concession lines bought with them.
// TotalAmountCents always equals the sum of ticket prices plus
// concession line totals.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – user who owns the booking.
//  ShowtimeID       – showtime being booked.
//  Code             – short unique code shown to the customer.
//  TotalAmountCents – total price in cents.
//  Status           – PENDING, PAID, CANCELLED or EXPIRED.
//  PaymentMethod    – method reported by the payment step.
//  PaymentRef       – reference returned by the payment gateway.
//  CreatedAt        – creation timestamp.
//  PaidAt           – when payment completed (nil until PAID).
//  ExpiresAt        – checkout deadline for PENDING bookings.
type Booking struct {
	ID               uint64        // bookings.id
	UserID           uint64        // bookings.user_id
	ShowtimeID       uint64        // bookings.showtime_id
	Code             string        // bookings.booking_code
	TotalAmountCents int64         // bookings.total_amount_cents
	Status           BookingStatus // bookings.status
	PaymentMethod    string        // bookings.payment_method
	PaymentRef       *string       // bookings.payment_ref (nullable)
	CreatedAt        time.Time     // bookings.created_at
	PaidAt           *time.Time    // bookings.paid_at (nullable)
	ExpiresAt        time.Time     // bookings.expires_at

	Tickets     []Ticket
	Concessions []BookingConcession
}

// ComputeTotal returns the sum of all line items of the booking.
func (b *Booking) ComputeTotal() int64 {
	var total int64
	for _, t := range b.Tickets {
		total += t.PriceCents
	}
	for _, c := range b.Concessions {
		total += c.LineTotalCents()
	}
	return total
}

// Ticket is one seat inside a booking.  PriceCents is frozen at booking
// time and never recomputed.
type Ticket struct {
	ID         uint64   // tickets.id
	BookingID  uint64   // tickets.booking_id
	SeatID     uint64   // tickets.seat_id
	SeatLabel  string   // seats.row_label + seats.seat_number
	SeatType   SeatType // seats.seat_type at booking time
	PriceCents int64    // tickets.price_cents
}

// BookingConcession is a concession line item of a booking.
type BookingConcession struct {
	BookingID      uint64 // booking_concessions.booking_id
	ConcessionID   uint64 // booking_concessions.concession_id
	Name           string // concessions.name
	Quantity       uint32 // booking_concessions.quantity
	UnitPriceCents int64  // booking_concessions.unit_price_cents
}

// LineTotalCents is quantity times the unit price.
func (c BookingConcession) LineTotalCents() int64 {
	return int64(c.Quantity) * c.UnitPriceCents
}
