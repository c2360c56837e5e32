package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparisons
	"strings"      // building IN placeholders

	"github.com/iliyamo/cinema-booking/internal/model"
)

// SeatRepo provides read access to the seats of a screen.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// ListByScreen retrieves all seats of a screen ordered by row_label then
// seat_number.
func (r *SeatRepo) ListByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	const q = `SELECT id, screen_id, row_label, seat_number, seat_type, is_active
	           FROM seats
	           WHERE screen_id = ?
	           ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// GetActiveByIDs returns the active seats of screenID whose ids are in
// ids.  Seats of other screens are filtered out by the query itself, so a
// forged id simply does not come back and the caller sees a count
// mismatch.
func (r *SeatRepo) GetActiveByIDs(ctx context.Context, screenID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, screenID)
	for _, id := range ids {
		args = append(args, id)
	}
	q := `SELECT id, screen_id, row_label, seat_number, seat_type, is_active
	      FROM seats
	      WHERE screen_id = ? AND is_active = 1 AND id IN (` + placeholders(len(ids)) + `)
	      ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	result := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		var seatType string
		if err := rows.Scan(&s.ID, &s.ScreenID, &s.RowLabel, &s.Number, &seatType, &s.IsActive); err != nil {
			return nil, err
		}
		s.SeatType = model.SeatType(seatType)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ScreenRepo reads screens.
type ScreenRepo struct {
	db *sql.DB
}

// NewScreenRepo constructs a ScreenRepo with the given DB handle.
func NewScreenRepo(db *sql.DB) *ScreenRepo {
	return &ScreenRepo{db: db}
}

// GetByID returns a screen or ErrNotFound.
func (r *ScreenRepo) GetByID(ctx context.Context, id uint64) (*model.Screen, error) {
	const q = `SELECT id, cinema_id, name, screen_type, seat_rows, seats_per_row, is_active
	           FROM screens WHERE id = ?`
	var s model.Screen
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.CinemaID, &s.Name, &s.ScreenType, &s.Rows, &s.SeatsPerRow, &s.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
