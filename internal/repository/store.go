package repository

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Catalog exposes the read-only reference data the booking core needs.
// These reads may happen outside the exclusive per-showtime region since
// seats, prices and concessions do not change during a sale.
type Catalog interface {
	// Showtime returns ErrNotFound for unknown ids.
	Showtime(ctx context.Context, id uint64) (*model.Showtime, error)
	// Screen returns ErrNotFound for unknown ids.
	Screen(ctx context.Context, id uint64) (*model.Screen, error)
	// SeatsByIDs returns the active seats of screenID among ids.  Ids on
	// other screens or of inactive seats are silently left out.
	SeatsByIDs(ctx context.Context, screenID uint64, ids []uint64) ([]model.Seat, error)
	// SeatsByScreen returns every seat of a screen ordered by row and number.
	SeatsByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error)
	// TicketPrices returns the per seat type overrides of a showtime.
	TicketPrices(ctx context.Context, showtimeID uint64) (map[model.SeatType]int64, error)
	// ConcessionsByIDs returns the active concessions among ids.
	ConcessionsByIDs(ctx context.Context, ids []uint64) ([]model.Concession, error)
	// ActiveConcessions lists the concession menu.
	ActiveConcessions(ctx context.Context) ([]model.Concession, error)
}

// ShowtimeTx is the unit of work executed while a showtime is exclusively
// locked.  Everything written through it commits or rolls back together.
type ShowtimeTx interface {
	// OccupiedSeats returns the seats sold or pending for the showtime plus
	// the seats held by active, unexpired reservations.  Holds owned by
	// exceptUserID are left out; pass 0 to include every hold.
	OccupiedSeats(ctx context.Context, now time.Time, exceptUserID uint64) (map[uint64]struct{}, error)
	// InsertBooking stores the booking with its tickets and concession
	// lines and populates the generated ids.
	InsertBooking(ctx context.Context, b *model.Booking) error
	// ClaimHolds deactivates the user's holds on seatIDs and links them to
	// bookingID.
	ClaimHolds(ctx context.Context, userID, bookingID uint64, seatIDs []uint64) error
	// ReplaceHolds drops the user's previous holds on the showtime and
	// stores the given ones.
	ReplaceHolds(ctx context.Context, userID uint64, holds []model.SeatReservation) error
	// ReleaseHolds deactivates the user's active holds and returns how many
	// were released.
	ReleaseHolds(ctx context.Context, userID uint64) (int, error)
}

// Store is the transactional seat/booking store behind the booking core.
type Store interface {
	Catalog

	// OccupiedSeats is the read-only availability query for a showtime.
	OccupiedSeats(ctx context.Context, showtimeID uint64, now time.Time) (map[uint64]struct{}, error)

	// WithShowtimeLock runs fn while holding the exclusive lock of the
	// showtime.  Bookings for other showtimes are not blocked.  When fn
	// returns an error every write made through tx is discarded.
	WithShowtimeLock(ctx context.Context, showtimeID uint64, fn func(tx ShowtimeTx) error) error

	// WithBookingLock loads the booking exclusively and passes it to fn.
	// Status, payment fields and PaidAt changed by fn are persisted when
	// fn returns nil.  Returns ErrNotFound for unknown ids.
	WithBookingLock(ctx context.Context, bookingID uint64, fn func(b *model.Booking) error) error

	// ExpireStale moves every PENDING booking whose deadline is not after
	// now to EXPIRED, deactivates lapsed holds and returns the number of
	// bookings expired.
	ExpireStale(ctx context.Context, now time.Time) (int, error)

	// Booking returns a booking with its tickets and concession lines.
	Booking(ctx context.Context, id uint64) (*model.Booking, error)
	// BookingsByUser lists a user's bookings, newest first.
	BookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}
