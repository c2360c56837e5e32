package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

func newMock(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var bookingCols = []string{"id", "user_id", "showtime_id", "booking_code", "total_amount_cents", "status",
	"payment_method", "payment_ref", "created_at", "paid_at", "expires_at"}

var showtimeCols = []string{"id", "movie_id", "title", "screen_id", "start_time", "end_time", "base_price_cents", "is_active"}

func showtimeRow(id uint64) *sqlmock.Rows {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(showtimeCols).AddRow(id, 3, "Heat", 2, start, start.Add(2*time.Hour), 1000, true)
}

func TestShowtimeGetByID(t *testing.T) {
	store, mock := newMock(t)
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("FROM showtimes s")).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "title", "screen_id", "start_time", "end_time", "base_price_cents", "is_active"}).
			AddRow(7, 3, "Heat", 2, start, start.Add(2*time.Hour), 1000, true))

	st, err := store.Showtime(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Heat", st.MovieTitle)
	assert.Equal(t, uint64(2), st.ScreenID)
	assert.Equal(t, int64(1000), st.BasePriceCents)
	assert.True(t, st.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowtimeGetByIDNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("FROM showtimes s")).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Showtime(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeatsByIDsFiltersByScreen(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("WHERE screen_id = ? AND is_active = 1 AND id IN (?, ?)")).
		WithArgs(uint64(2), uint64(10), uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "screen_id", "row_label", "seat_number", "seat_type", "is_active"}).
			AddRow(10, 2, "A", 1, "VIP", true))

	seats, err := store.SeatsByIDs(context.Background(), 2, []uint64{10, 11})
	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, model.SeatVIP, seats[0].SeatType)
	assert.Equal(t, "A1", seats[0].Label())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketPrices(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("FROM ticket_prices WHERE showtime_id = ?")).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_type", "price_cents"}).
			AddRow("STANDARD", 800).AddRow("VIP", 1200))

	prices, err := store.TicketPrices(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, map[model.SeatType]int64{model.SeatStandard: 800, model.SeatVIP: 1200}, prices)
}

func TestOccupiedSeatsUnionsTicketsAndHolds(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("FROM showtimes s")).WithArgs(uint64(7)).
		WillReturnRows(showtimeRow(7))
	mock.ExpectQuery(q("b.status IN ('PAID', 'PENDING')")).
		WithArgs(uint64(7), uint64(7), now, uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(10).AddRow(12))

	taken, err := store.OccupiedSeats(context.Background(), 7, now)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]struct{}{10: {}, 12: {}}, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedSeatsUnknownShowtime(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("FROM showtimes s")).WithArgs(uint64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	taken, err := store.OccupiedSeats(context.Background(), 999, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithShowtimeLockCommitsBooking(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM showtimes WHERE id = ? FOR UPDATE")).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(q("FROM seat_reservations r")).
		WithArgs(uint64(7), uint64(7), now, uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	mock.ExpectExec(q("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectExec(q("INSERT INTO tickets")).WithArgs(uint64(40), uint64(10), int64(800)).
		WillReturnResult(sqlmock.NewResult(400, 1))
	mock.ExpectExec(q("INSERT INTO booking_concessions")).WithArgs(uint64(40), uint64(3), uint32(2), int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE seat_reservations SET is_active = 0, booking_id = ?")).
		WithArgs(uint64(40), uint64(7), uint64(1), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &model.Booking{
		UserID: 1, ShowtimeID: 7, Code: "ABCD1234", Status: model.BookingPending,
		TotalAmountCents: 1800, CreatedAt: now, ExpiresAt: now.Add(15 * time.Minute),
		Tickets:     []model.Ticket{{SeatID: 10, PriceCents: 800}},
		Concessions: []model.BookingConcession{{ConcessionID: 3, Quantity: 2, UnitPriceCents: 500}},
	}
	err := store.WithShowtimeLock(context.Background(), 7, func(tx ShowtimeTx) error {
		taken, err := tx.OccupiedSeats(context.Background(), now, 1)
		if err != nil {
			return err
		}
		assert.Empty(t, taken)
		if err := tx.InsertBooking(context.Background(), b); err != nil {
			return err
		}
		return tx.ClaimHolds(context.Background(), 1, b.ID, []uint64{10})
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(40), b.ID)
	assert.Equal(t, uint64(400), b.Tickets[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithShowtimeLockRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("seat taken")

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectRollback()

	err := store.WithShowtimeLock(context.Background(), 7, func(ShowtimeTx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithShowtimeLockUnknownShowtime(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	called := false
	err := store.WithShowtimeLock(context.Background(), 8, func(ShowtimeTx) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBookingDuplicateCode(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(q("INSERT INTO bookings")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := store.WithShowtimeLock(context.Background(), 7, func(tx ShowtimeTx) error {
		return tx.InsertBooking(context.Background(), &model.Booking{UserID: 1, ShowtimeID: 7, Code: "DUPE0001"})
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestReplaceHolds(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(q("expires_at <= ?")).WithArgs(uint64(7), now).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("WHERE showtime_id = ? AND user_id = ? AND is_active = 1")).
		WithArgs(uint64(7), uint64(1)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("INSERT INTO seat_reservations")).
		WithArgs(uint64(7), uint64(10), uint64(1), "tok", now, now.Add(5*time.Minute)).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectCommit()

	holds := []model.SeatReservation{{ShowtimeID: 7, SeatID: 10, UserID: 1, HoldToken: "tok", ReservedAt: now, ExpiresAt: now.Add(5 * time.Minute)}}
	err := store.WithShowtimeLock(context.Background(), 7, func(tx ShowtimeTx) error {
		return tx.ReplaceHolds(context.Background(), 1, holds)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(55), holds[0].ID)
	assert.True(t, holds[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithBookingLockPersistsTransition(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM bookings WHERE id = ? FOR UPDATE")).WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(40, 1, 7, "ABCD1234", 800, "PENDING", "", nil, now, nil, now.Add(15*time.Minute)))
	mock.ExpectQuery(q("FROM tickets t")).WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_id", "label", "seat_type", "price_cents"}).
			AddRow(400, 10, "A1", "STANDARD", 800))
	mock.ExpectQuery(q("FROM booking_concessions bc")).WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"concession_id", "name", "quantity", "unit_price_cents"}))
	mock.ExpectExec(q("UPDATE bookings SET status = ?, payment_method = ?, payment_ref = ?, paid_at = ? WHERE id = ?")).
		WithArgs("PAID", "card", "ref-1", now, uint64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithBookingLock(context.Background(), 40, func(b *model.Booking) error {
		require.Len(t, b.Tickets, 1)
		assert.Equal(t, "A1", b.Tickets[0].SeatLabel)
		ref := "ref-1"
		b.Status = model.BookingPaid
		b.PaymentMethod = "card"
		b.PaymentRef = &ref
		b.PaidAt = &now
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithBookingLockKeepsStateChangeAlongsideError(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	overdue := errors.New("overdue")

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(40, 1, 7, "ABCD1234", 800, "PENDING", "", nil, now, nil, now))
	mock.ExpectQuery(q("FROM tickets t")).WillReturnRows(sqlmock.NewRows([]string{"id", "seat_id", "label", "seat_type", "price_cents"}))
	mock.ExpectQuery(q("FROM booking_concessions bc")).WillReturnRows(sqlmock.NewRows([]string{"concession_id", "name", "quantity", "unit_price_cents"}))
	mock.ExpectExec(q("UPDATE bookings SET status = ?")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithBookingLock(context.Background(), 40, func(b *model.Booking) error {
		b.Status = model.BookingExpired
		return overdue
	})
	assert.ErrorIs(t, err, overdue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireStale(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE bookings SET status = 'EXPIRED' WHERE status = 'PENDING' AND expires_at <= ?")).
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("UPDATE seat_reservations SET is_active = 0 WHERE is_active = 1 AND expires_at <= ?")).
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	n, err := store.ExpireStale(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingsByUserNewestFirst(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	paidAt := now.Add(time.Minute)

	mock.ExpectQuery(q("WHERE user_id = ? ORDER BY created_at DESC, id DESC")).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(41, 1, 7, "BBBB0002", 1000, "PAID", "card", "ref", now, paidAt, now.Add(15*time.Minute)).
			AddRow(40, 1, 7, "AAAA0001", 800, "EXPIRED", "", nil, now.Add(-time.Hour), nil, now.Add(-45*time.Minute)))
	for range 2 {
		mock.ExpectQuery(q("FROM tickets t")).WillReturnRows(sqlmock.NewRows([]string{"id", "seat_id", "label", "seat_type", "price_cents"}))
		mock.ExpectQuery(q("FROM booking_concessions bc")).WillReturnRows(sqlmock.NewRows([]string{"concession_id", "name", "quantity", "unit_price_cents"}))
	}

	list, err := store.BookingsByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(41), list[0].ID)
	require.NotNil(t, list[0].PaidAt)
	assert.Equal(t, paidAt, *list[0].PaidAt)
	require.NotNil(t, list[0].PaymentRef)
	assert.Equal(t, model.BookingExpired, list[1].Status)
	assert.Nil(t, list[1].PaymentRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
