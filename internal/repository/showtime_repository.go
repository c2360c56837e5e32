package repository // showtimes; a showtime row is also the lock serialising its bookings

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel comparisons

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

const showtimeColumns = `s.id, s.movie_id, COALESCE(m.title, ''), s.screen_id, s.start_time, s.end_time, s.base_price_cents, s.is_active`

// GetByID retrieves a showtime and its movie title.  It returns
// ErrNotFound if there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	q := `SELECT ` + showtimeColumns + `
	      FROM showtimes s
	      LEFT JOIN movies m ON m.id = s.movie_id
	      WHERE s.id = ?`
	var s model.Showtime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.MovieID, &s.MovieTitle, &s.ScreenID, &s.StartsAt, &s.EndsAt, &s.BasePriceCents, &s.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.StartsAt = s.StartsAt.UTC()
	s.EndsAt = s.EndsAt.UTC()
	return &s, nil
}

// LockTx takes the exclusive row lock of a showtime inside tx.  Every
// booking or hold for the showtime goes through this lock, so two
// transactions can never both pass the availability check for the same
// seat.  Returns ErrNotFound when the showtime does not exist.
func (r *ShowtimeRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var locked uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM showtimes WHERE id = ? FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
