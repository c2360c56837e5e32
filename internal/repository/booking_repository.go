package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo persists bookings together with their tickets and
// concession lines.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, showtime_id, booking_code, total_amount_cents, status,
	payment_method, payment_ref, created_at, paid_at, expires_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var status string
	var paymentRef sql.NullString
	var paidAt sql.NullTime
	if err := row.Scan(&b.ID, &b.UserID, &b.ShowtimeID, &b.Code, &b.TotalAmountCents, &status,
		&b.PaymentMethod, &paymentRef, &b.CreatedAt, &paidAt, &b.ExpiresAt); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.ExpiresAt = b.ExpiresAt.UTC()
	if paymentRef.Valid {
		ref := paymentRef.String
		b.PaymentRef = &ref
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		b.PaidAt = &t
	}
	return &b, nil
}

// CreateTx inserts the booking row, one ticket row per ticket and one row
// per concession line within tx.  Generated ids are written back into b.
// The caller must commit or roll back the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, showtime_id, booking_code, total_amount_cents, status, payment_method, created_at, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.Code, b.TotalAmountCents, string(b.Status),
		b.PaymentMethod, b.CreatedAt.UTC(), b.ExpiresAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	const qt = `INSERT INTO tickets (booking_id, seat_id, price_cents) VALUES (?, ?, ?)`
	for i := range b.Tickets {
		t := &b.Tickets[i]
		t.BookingID = b.ID
		res, err := tx.ExecContext(ctx, qt, b.ID, t.SeatID, t.PriceCents)
		if err != nil {
			return err
		}
		tid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(tid)
	}

	if len(b.Concessions) == 0 {
		return nil
	}
	query := `INSERT INTO booking_concessions (booking_id, concession_id, quantity, unit_price_cents) VALUES `
	args := make([]interface{}, 0, len(b.Concessions)*4)
	for i := range b.Concessions {
		c := &b.Concessions[i]
		c.BookingID = b.ID
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, b.ID, c.ConcessionID, c.Quantity, c.UnitPriceCents)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a booking with its tickets and concession lines, or
// ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, r.db, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListByUser returns the user's bookings, newest first, each with its
// lines.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadLines(ctx, r.db, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetForUpdateTx loads a booking and locks its row until tx ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateStateTx writes the mutable part of a booking: status, payment
// method, payment reference and paid_at.
func (r *BookingRepo) UpdateStateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var paidAt interface{}
	if b.PaidAt != nil {
		paidAt = b.PaidAt.UTC()
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_method = ?, payment_ref = ?, paid_at = ? WHERE id = ?`,
		string(b.Status), b.PaymentMethod, b.PaymentRef, paidAt, b.ID,
	)
	return err
}

// ExpireStaleTx moves PENDING bookings whose expires_at is not after now
// to EXPIRED and returns how many rows changed.
func (r *BookingRepo) ExpireStaleTx(ctx context.Context, tx *sql.Tx, now time.Time) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'EXPIRED' WHERE status = 'PENDING' AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *BookingRepo) loadLines(ctx context.Context, q querier, b *model.Booking) error {
	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.seat_id, CONCAT(s.row_label, s.seat_number), s.seat_type, t.price_cents
		 FROM tickets t
		 JOIN seats s ON s.id = t.seat_id
		 WHERE t.booking_id = ?
		 ORDER BY s.row_label, s.seat_number`, b.ID)
	if err != nil {
		return err
	}
	b.Tickets = make([]model.Ticket, 0)
	for rows.Next() {
		t := model.Ticket{BookingID: b.ID}
		var seatType string
		if err := rows.Scan(&t.ID, &t.SeatID, &t.SeatLabel, &seatType, &t.PriceCents); err != nil {
			rows.Close()
			return err
		}
		t.SeatType = model.SeatType(seatType)
		b.Tickets = append(b.Tickets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx,
		`SELECT bc.concession_id, c.name, bc.quantity, bc.unit_price_cents
		 FROM booking_concessions bc
		 JOIN concessions c ON c.id = bc.concession_id
		 WHERE bc.booking_id = ?
		 ORDER BY bc.concession_id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.Concessions = make([]model.BookingConcession, 0)
	for rows.Next() {
		c := model.BookingConcession{BookingID: b.ID}
		if err := rows.Scan(&c.ConcessionID, &c.Name, &c.Quantity, &c.UnitPriceCents); err != nil {
			return err
		}
		b.Concessions = append(b.Concessions, c)
	}
	return rows.Err()
}

// isDuplicateKey reports MySQL error 1062 (ER_DUP_ENTRY).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
