package model

import "strconv"

// SeatType classifies a seat for pricing.
type SeatType string

const (
	SeatStandard SeatType = "STANDARD"
	SeatVIP      SeatType = "VIP"
	SeatCouple   SeatType = "COUPLE"
)

// Valid reports whether t is one of the known seat types.
func (t SeatType) Valid() bool {
	switch t {
	case SeatStandard, SeatVIP, SeatCouple:
		return true
	}
	return false
}

// Seat describes a physical seat on a screen.  Seats are uniquely
// identified by their screen, row label and seat number.  Inactive seats
// (broken, removed) can never be booked.
//
// Fields:
//  ID        – primary key identifier.
//  ScreenID  – screen to which this seat belongs.
//  RowLabel  – letter or string designating the row.
//  Number    – number of the seat within the row.
//  SeatType  – STANDARD, VIP or COUPLE.
//  IsActive  – whether the seat can be sold.
type Seat struct {
	ID       uint64   // seats.id
	ScreenID uint64   // seats.screen_id
	RowLabel string   // seats.row_label
	Number   uint32   // seats.seat_number
	SeatType SeatType // seats.seat_type
	IsActive bool     // seats.is_active
}

// Label returns the human readable seat name, e.g. "A2".
func (s Seat) Label() string {
	return s.RowLabel + strconv.FormatUint(uint64(s.Number), 10)
}
