package repository

import (
	"context"
	"database/sql"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// OccupancyRepo answers which seats of a showtime are taken.  A seat is
// taken when it is on a ticket of a PAID or PENDING booking, or when an
// active reservation on it has not yet expired.
type OccupancyRepo struct {
	db *sql.DB
}

// NewOccupancyRepo returns an OccupancyRepo bound to db.
func NewOccupancyRepo(db *sql.DB) *OccupancyRepo { return &OccupancyRepo{db: db} }

const occupiedSeatsQuery = `SELECT t.seat_id
	FROM tickets t
	JOIN bookings b ON b.id = t.booking_id
	WHERE b.showtime_id = ? AND b.status IN ('PAID', 'PENDING')
	UNION
	SELECT r.seat_id
	FROM seat_reservations r
	WHERE r.showtime_id = ? AND r.is_active = 1 AND r.expires_at > ? AND r.user_id <> ?`

// Occupied returns the taken seats of a showtime.  Holds of exceptUserID
// are ignored; user ids start at 1 so 0 keeps every hold.
func (r *OccupancyRepo) Occupied(ctx context.Context, showtimeID uint64, now time.Time, exceptUserID uint64) (map[uint64]struct{}, error) {
	return occupied(ctx, r.db, showtimeID, now, exceptUserID)
}

// OccupiedTx is Occupied inside tx, after the showtime lock was taken.
func (r *OccupancyRepo) OccupiedTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, now time.Time, exceptUserID uint64) (map[uint64]struct{}, error) {
	return occupied(ctx, tx, showtimeID, now, exceptUserID)
}

func occupied(ctx context.Context, q querier, showtimeID uint64, now time.Time, exceptUserID uint64) (map[uint64]struct{}, error) {
	rows, err := q.QueryContext(ctx, occupiedSeatsQuery, showtimeID, showtimeID, now.UTC(), exceptUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	taken := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return taken, nil
}
