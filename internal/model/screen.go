package model

// Screen is an auditorium inside a cinema.  Seats belong to exactly one
// screen and every showtime is projected on one screen.
//
// Fields:
//  ID          – primary key identifier.
//  CinemaID    – cinema that owns the screen.
//  Name        – unique name per cinema.
//  ScreenType  – projection format (2D, 3D, IMAX, 4DX).
//  Rows        – number of seat rows.
//  SeatsPerRow – seats in each row.
//  IsActive    – whether the screen is in use.
type Screen struct {
	ID          uint64 // screens.id
	CinemaID    uint64 // screens.cinema_id
	Name        string // screens.name
	ScreenType  string // screens.screen_type
	Rows        uint32 // screens.seat_rows
	SeatsPerRow uint32 // screens.seats_per_row
	IsActive    bool   // screens.is_active
}
