package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// SeatReservationRepo provides data access to the seat_reservations table.
// A reservation is a short checkout hold on one seat of one showtime.  Rows
// are never deleted; releasing, claiming or expiring a hold clears
// is_active, which also frees the (showtime_id, active_seat) unique key.
// All timestamps are UTC.
type SeatReservationRepo struct {
	db *sql.DB
}

// NewSeatReservationRepo returns a new SeatReservationRepo bound to the provided database.
func NewSeatReservationRepo(db *sql.DB) *SeatReservationRepo { return &SeatReservationRepo{db: db} }

// DeactivateLapsedTx clears is_active on holds of a showtime whose
// expires_at is not after now, so their seats can be held again.
func (r *SeatReservationRepo) DeactivateLapsedTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE seat_reservations SET is_active = 0
		 WHERE showtime_id = ? AND is_active = 1 AND expires_at <= ?`,
		showtimeID, now.UTC(),
	)
	return err
}

// DeactivateAllLapsedTx is DeactivateLapsedTx across every showtime.  It
// returns the number of holds that lapsed.
func (r *SeatReservationRepo) DeactivateAllLapsedTx(ctx context.Context, tx *sql.Tx, now time.Time) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_reservations SET is_active = 0 WHERE is_active = 1 AND expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ReleaseByUserTx deactivates the user's active holds on the showtime and
// reports how many rows changed.
func (r *SeatReservationRepo) ReleaseByUserTx(ctx context.Context, tx *sql.Tx, showtimeID, userID uint64) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_reservations SET is_active = 0
		 WHERE showtime_id = ? AND user_id = ? AND is_active = 1`,
		showtimeID, userID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ClaimTx links the user's active holds on seatIDs to a booking and
// deactivates them.  Seats the user did not hold are ignored.
func (r *SeatReservationRepo) ClaimTx(ctx context.Context, tx *sql.Tx, showtimeID, userID, bookingID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(seatIDs)+3)
	args = append(args, bookingID, showtimeID, userID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE seat_reservations SET is_active = 0, booking_id = ?
		 WHERE showtime_id = ? AND user_id = ? AND is_active = 1 AND seat_id IN (`+placeholders(len(seatIDs))+`)`,
		args...,
	)
	return err
}

// CreateMultipleTx inserts holds within the provided transaction.  Each
// hold must carry ShowtimeID, SeatID, UserID, HoldToken, ReservedAt and
// ExpiresAt.  Generated ids are written back into holds.  Passing an
// empty slice has no effect.
func (r *SeatReservationRepo) CreateMultipleTx(ctx context.Context, tx *sql.Tx, holds []model.SeatReservation) error {
	const q = `INSERT INTO seat_reservations (showtime_id, seat_id, user_id, hold_token, reserved_at, expires_at, is_active)
	           VALUES (?, ?, ?, ?, ?, ?, 1)`
	for i := range holds {
		h := &holds[i]
		res, err := tx.ExecContext(ctx, q, h.ShowtimeID, h.SeatID, h.UserID, h.HoldToken, h.ReservedAt.UTC(), h.ExpiresAt.UTC())
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		h.ID = uint64(id)
		h.IsActive = true
	}
	return nil
}

// NewHoldToken returns the opaque token handed to clients for a hold.
func NewHoldToken() string {
	return uuid.NewString()
}
