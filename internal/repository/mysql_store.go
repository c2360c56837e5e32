package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// MySQLStore implements Store on top of the MySQL repositories.  The
// exclusive region of a showtime is a transaction that starts by locking
// the showtime row with SELECT ... FOR UPDATE.
type MySQLStore struct {
	db           *sql.DB
	Screens      *ScreenRepo
	Seats        *SeatRepo
	Showtimes    *ShowtimeRepo
	Prices       *TicketPriceRepo
	Concessions  *ConcessionRepo
	Occupancy    *OccupancyRepo
	Bookings     *BookingRepo
	Reservations *SeatReservationRepo
}

// NewMySQLStore wires every repository to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:           db,
		Screens:      NewScreenRepo(db),
		Seats:        NewSeatRepo(db),
		Showtimes:    NewShowtimeRepo(db),
		Prices:       NewTicketPriceRepo(db),
		Concessions:  NewConcessionRepo(db),
		Occupancy:    NewOccupancyRepo(db),
		Bookings:     NewBookingRepo(db),
		Reservations: NewSeatReservationRepo(db),
	}
}

var _ Store = (*MySQLStore)(nil)

// Each statement inside the lock must see rows committed by the previous
// lock holder, hence READ COMMITTED rather than the InnoDB default.
var lockTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

func (s *MySQLStore) Showtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	return s.Showtimes.GetByID(ctx, id)
}

func (s *MySQLStore) Screen(ctx context.Context, id uint64) (*model.Screen, error) {
	return s.Screens.GetByID(ctx, id)
}

func (s *MySQLStore) SeatsByIDs(ctx context.Context, screenID uint64, ids []uint64) ([]model.Seat, error) {
	return s.Seats.GetActiveByIDs(ctx, screenID, ids)
}

func (s *MySQLStore) SeatsByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	return s.Seats.ListByScreen(ctx, screenID)
}

func (s *MySQLStore) TicketPrices(ctx context.Context, showtimeID uint64) (map[model.SeatType]int64, error) {
	return s.Prices.ByShowtime(ctx, showtimeID)
}

func (s *MySQLStore) ConcessionsByIDs(ctx context.Context, ids []uint64) ([]model.Concession, error) {
	return s.Concessions.GetActiveByIDs(ctx, ids)
}

func (s *MySQLStore) ActiveConcessions(ctx context.Context) ([]model.Concession, error) {
	return s.Concessions.ListActive(ctx)
}

// OccupiedSeats returns ErrNotFound for an unknown showtime; the union
// query alone would answer with an empty set.
func (s *MySQLStore) OccupiedSeats(ctx context.Context, showtimeID uint64, now time.Time) (map[uint64]struct{}, error) {
	if _, err := s.Showtimes.GetByID(ctx, showtimeID); err != nil {
		return nil, err
	}
	return s.Occupancy.Occupied(ctx, showtimeID, now, 0)
}

func (s *MySQLStore) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *MySQLStore) BookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

// WithShowtimeLock begins a transaction, locks the showtime row and runs fn.
// The transaction is committed only when fn succeeds.
func (s *MySQLStore) WithShowtimeLock(ctx context.Context, showtimeID uint64, fn func(tx ShowtimeTx) error) error {
	tx, err := s.db.BeginTx(ctx, lockTxOptions)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.Showtimes.LockTx(ctx, tx, showtimeID); err != nil {
		return err
	}
	if err := fn(&mysqlShowtimeTx{store: s, tx: tx, showtimeID: showtimeID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// WithBookingLock locks the booking row, runs fn and writes back its state.
func (s *MySQLStore) WithBookingLock(ctx context.Context, bookingID uint64, fn func(b *model.Booking) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	before := *b
	fnErr := fn(b)
	if fnErr != nil && !stateChanged(&before, b) {
		return fnErr
	}
	// fn may both change state and report an error (an overdue booking
	// flipped to EXPIRED); the change is kept and the error still returned.
	if err := s.Bookings.UpdateStateTx(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return fnErr
}

// ExpireStale expires overdue PENDING bookings and lapsed holds in one
// transaction.
func (s *MySQLStore) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := s.Bookings.ExpireStaleTx(ctx, tx, now)
	if err != nil {
		return 0, err
	}
	if _, err := s.Reservations.DeactivateAllLapsedTx(ctx, tx, now); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

func stateChanged(before, after *model.Booking) bool {
	return before.Status != after.Status ||
		before.PaymentMethod != after.PaymentMethod ||
		before.PaymentRef != after.PaymentRef ||
		before.PaidAt != after.PaidAt
}

type mysqlShowtimeTx struct {
	store      *MySQLStore
	tx         *sql.Tx
	showtimeID uint64
}

func (t *mysqlShowtimeTx) OccupiedSeats(ctx context.Context, now time.Time, exceptUserID uint64) (map[uint64]struct{}, error) {
	return t.store.Occupancy.OccupiedTx(ctx, t.tx, t.showtimeID, now, exceptUserID)
}

func (t *mysqlShowtimeTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.store.Bookings.CreateTx(ctx, t.tx, b)
}

func (t *mysqlShowtimeTx) ClaimHolds(ctx context.Context, userID, bookingID uint64, seatIDs []uint64) error {
	return t.store.Reservations.ClaimTx(ctx, t.tx, t.showtimeID, userID, bookingID, seatIDs)
}

func (t *mysqlShowtimeTx) ReplaceHolds(ctx context.Context, userID uint64, holds []model.SeatReservation) error {
	now := time.Now().UTC()
	if len(holds) > 0 {
		now = holds[0].ReservedAt
	}
	if err := t.store.Reservations.DeactivateLapsedTx(ctx, t.tx, t.showtimeID, now); err != nil {
		return err
	}
	if _, err := t.store.Reservations.ReleaseByUserTx(ctx, t.tx, t.showtimeID, userID); err != nil {
		return err
	}
	return t.store.Reservations.CreateMultipleTx(ctx, t.tx, holds)
}

func (t *mysqlShowtimeTx) ReleaseHolds(ctx context.Context, userID uint64) (int, error) {
	return t.store.Reservations.ReleaseByUserTx(ctx, t.tx, t.showtimeID, userID)
}
