// Package service holds the booking core: availability, the seat-booking
// transaction, checkout holds, payment and expiry.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

const (
	DefaultBookingTTL = 15 * time.Minute
	DefaultHoldTTL    = 5 * time.Minute

	codeAttempts = 3
)

// ConcessionLine asks for Quantity units of a concession.
type ConcessionLine struct {
	ConcessionID uint64
	Quantity     uint32
}

// CreateBookingRequest is the input of CreateBooking.
type CreateBookingRequest struct {
	UserID      uint64
	ShowtimeID  uint64
	SeatIDs     []uint64
	Concessions []ConcessionLine
}

// HoldRequest is the input of HoldSeats.
type HoldRequest struct {
	UserID     uint64
	ShowtimeID uint64
	SeatIDs    []uint64
}

// SeatState is a seat of a seat map with its availability.
type SeatState struct {
	model.Seat
	Occupied bool
}

// SeatMap is a showtime with every seat of its screen.
type SeatMap struct {
	Showtime model.Showtime
	Screen   model.Screen
	Seats    []SeatState
}

// BookingService implements the booking operations on top of a
// repository.Store.
type BookingService struct {
	store      repository.Store
	payments   PaymentGateway
	notifier   Notifier
	log        *zap.Logger
	now        func() time.Time
	bookingTTL time.Duration
	holdTTL    time.Duration
}

// Option configures a BookingService.
type Option func(*BookingService)

// WithBookingTTL sets how long a PENDING booking waits for payment.
func WithBookingTTL(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.bookingTTL = d
		}
	}
}

// WithHoldTTL sets the lifetime of checkout holds.
func WithHoldTTL(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *BookingService) { s.log = l }
}

func WithPaymentGateway(g PaymentGateway) Option {
	return func(s *BookingService) { s.payments = g }
}

func WithNotifier(n Notifier) Option {
	return func(s *BookingService) { s.notifier = n }
}

// NewBookingService returns a service using the stub gateway, no notifier
// and the default TTLs unless overridden by opts.
func NewBookingService(store repository.Store, opts ...Option) *BookingService {
	s := &BookingService{
		store:      store,
		payments:   StubGateway{},
		notifier:   nopNotifier{},
		log:        zap.NewNop(),
		now:        time.Now,
		bookingTTL: DefaultBookingTTL,
		holdTTL:    DefaultHoldTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) clock() time.Time { return s.now().UTC() }

// OccupiedSeats returns the seats of a showtime that cannot be booked right
// now.
func (s *BookingService) OccupiedSeats(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, error) {
	taken, err := s.store.OccupiedSeats(ctx, showtimeID, s.clock())
	if err != nil {
		return nil, storeErr("occupied seats", err)
	}
	return taken, nil
}

// SeatMap returns every seat of the showtime's screen flagged with its
// availability.
func (s *BookingService) SeatMap(ctx context.Context, showtimeID uint64) (*SeatMap, error) {
	st, err := s.store.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, storeErr("load showtime", err)
	}
	screen, err := s.store.Screen(ctx, st.ScreenID)
	if err != nil {
		return nil, storeErr("load screen", err)
	}
	seats, err := s.store.SeatsByScreen(ctx, st.ScreenID)
	if err != nil {
		return nil, storeErr("load seats", err)
	}
	taken, err := s.store.OccupiedSeats(ctx, showtimeID, s.clock())
	if err != nil {
		return nil, storeErr("occupied seats", err)
	}
	m := &SeatMap{Showtime: *st, Screen: *screen, Seats: make([]SeatState, 0, len(seats))}
	for _, seat := range seats {
		_, occupied := taken[seat.ID]
		m.Seats = append(m.Seats, SeatState{Seat: seat, Occupied: occupied})
	}
	return m, nil
}

// Concessions lists the concession menu.
func (s *BookingService) Concessions(ctx context.Context) ([]model.Concession, error) {
	list, err := s.store.ActiveConcessions(ctx)
	if err != nil {
		return nil, storeErr("list concessions", err)
	}
	return list, nil
}

// CreateBooking books the requested seats as one PENDING booking.  Seats
// are checked against the occupancy of the showtime inside its exclusive
// region, so of two concurrent requests for the same seat at most one
// succeeds.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*model.Booking, error) {
	if req.UserID == 0 || req.ShowtimeID == 0 {
		return nil, ErrInvalidRequest
	}
	seatIDs, err := uniqueSeatIDs(req.SeatIDs)
	if err != nil {
		return nil, err
	}
	for _, line := range req.Concessions {
		if line.ConcessionID == 0 || line.Quantity == 0 {
			return nil, fmt.Errorf("%w: concession %d quantity %d", ErrInvalidConcession, line.ConcessionID, line.Quantity)
		}
	}

	now := s.clock()
	st, err := s.bookableShowtime(ctx, req.ShowtimeID, now)
	if err != nil {
		return nil, err
	}
	seats, err := s.resolveSeats(ctx, st, seatIDs)
	if err != nil {
		return nil, err
	}
	prices, err := s.store.TicketPrices(ctx, st.ID)
	if err != nil {
		return nil, storeErr("load ticket prices", err)
	}
	lines, err := s.resolveConcessions(ctx, req.Concessions)
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		UserID:      req.UserID,
		ShowtimeID:  st.ID,
		Status:      model.BookingPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.bookingTTL),
		Tickets:     make([]model.Ticket, 0, len(seats)),
		Concessions: lines,
	}
	for _, seat := range seats {
		b.Tickets = append(b.Tickets, model.Ticket{
			SeatID:     seat.ID,
			SeatLabel:  seat.Label(),
			SeatType:   seat.SeatType,
			PriceCents: ticketPrice(st, prices, seat.SeatType),
		})
	}
	b.TotalAmountCents = b.ComputeTotal()

	for attempt := 1; ; attempt++ {
		b.Code = newBookingCode()
		err = s.store.WithShowtimeLock(ctx, st.ID, func(tx repository.ShowtimeTx) error {
			taken, err := tx.OccupiedSeats(ctx, now, req.UserID)
			if err != nil {
				return err
			}
			for _, seat := range seats {
				if _, ok := taken[seat.ID]; ok {
					return &SeatConflictError{SeatID: seat.ID, Label: seat.Label()}
				}
			}
			if err := tx.InsertBooking(ctx, b); err != nil {
				return err
			}
			return tx.ClaimHolds(ctx, req.UserID, b.ID, seatIDs)
		})
		if errors.Is(err, repository.ErrConflict) && attempt < codeAttempts {
			continue
		}
		break
	}
	if err != nil {
		var conflict *SeatConflictError
		if errors.As(err, &conflict) {
			s.log.Info("seat conflict",
				zap.Uint64("showtime_id", st.ID),
				zap.Uint64("user_id", req.UserID),
				zap.String("seat", conflict.Label))
			return nil, err
		}
		return nil, storeErr("create booking", err)
	}

	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID),
		zap.String("code", b.Code),
		zap.Uint64("showtime_id", b.ShowtimeID),
		zap.Uint64("user_id", b.UserID),
		zap.Int("seats", len(b.Tickets)),
		zap.Int64("total_cents", b.TotalAmountCents))
	return b, nil
}

// HoldSeats places checkout holds for the user on the requested seats,
// replacing any holds the user already had on the showtime.
func (s *BookingService) HoldSeats(ctx context.Context, req HoldRequest) ([]model.SeatReservation, time.Time, error) {
	if req.UserID == 0 || req.ShowtimeID == 0 {
		return nil, time.Time{}, ErrInvalidRequest
	}
	seatIDs, err := uniqueSeatIDs(req.SeatIDs)
	if err != nil {
		return nil, time.Time{}, err
	}
	now := s.clock()
	st, err := s.bookableShowtime(ctx, req.ShowtimeID, now)
	if err != nil {
		return nil, time.Time{}, err
	}
	seats, err := s.resolveSeats(ctx, st, seatIDs)
	if err != nil {
		return nil, time.Time{}, err
	}

	expiresAt := now.Add(s.holdTTL)
	holds := make([]model.SeatReservation, 0, len(seats))
	for _, seat := range seats {
		holds = append(holds, model.SeatReservation{
			ShowtimeID: st.ID,
			SeatID:     seat.ID,
			UserID:     req.UserID,
			HoldToken:  repository.NewHoldToken(),
			ReservedAt: now,
			ExpiresAt:  expiresAt,
		})
	}
	err = s.store.WithShowtimeLock(ctx, st.ID, func(tx repository.ShowtimeTx) error {
		taken, err := tx.OccupiedSeats(ctx, now, req.UserID)
		if err != nil {
			return err
		}
		for _, seat := range seats {
			if _, ok := taken[seat.ID]; ok {
				return &SeatConflictError{SeatID: seat.ID, Label: seat.Label()}
			}
		}
		return tx.ReplaceHolds(ctx, req.UserID, holds)
	})
	if err != nil {
		if errors.Is(err, ErrSeatConflict) {
			return nil, time.Time{}, err
		}
		return nil, time.Time{}, storeErr("hold seats", err)
	}
	s.log.Debug("seats held",
		zap.Uint64("showtime_id", st.ID),
		zap.Uint64("user_id", req.UserID),
		zap.Int("seats", len(holds)),
		zap.Time("expires_at", expiresAt))
	return holds, expiresAt, nil
}

// ReleaseHolds drops the user's holds on a showtime.
func (s *BookingService) ReleaseHolds(ctx context.Context, userID, showtimeID uint64) (int, error) {
	if userID == 0 || showtimeID == 0 {
		return 0, ErrInvalidRequest
	}
	var n int
	err := s.store.WithShowtimeLock(ctx, showtimeID, func(tx repository.ShowtimeTx) error {
		var err error
		n, err = tx.ReleaseHolds(ctx, userID)
		return err
	})
	if err != nil {
		return 0, storeErr("release holds", err)
	}
	return n, nil
}

// GetBooking returns one of the user's bookings.  Bookings of other users
// are reported as not found.
func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	b, err := s.store.Booking(ctx, bookingID)
	if err != nil {
		return nil, storeErr("load booking", err)
	}
	if b.UserID != userID {
		return nil, ErrNotFound
	}
	return b, nil
}

// ListBookings returns the user's bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	list, err := s.store.BookingsByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	return list, nil
}

// MarkPaid charges a PENDING booking and moves it to PAID.  A booking past
// its deadline is expired instead.  The notifier runs after the state
// change and its failure is only logged.
func (s *BookingService) MarkPaid(ctx context.Context, userID, bookingID uint64, method string) (*model.Booking, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidRequest)
	}
	current, err := s.GetBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, ErrAlreadyFinalized
	}
	if !s.clock().Before(current.ExpiresAt) {
		// Let the locked transition below record the expiry.
		return s.finalize(ctx, bookingID, func(b *model.Booking) error { return nil })
	}

	ref, err := s.payments.Charge(ctx, current, method)
	if err != nil {
		s.log.Warn("payment declined",
			zap.Uint64("booking_id", bookingID),
			zap.String("method", method),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	paid, err := s.finalize(ctx, bookingID, func(b *model.Booking) error {
		paidAt := s.clock()
		b.Status = model.BookingPaid
		b.PaymentMethod = method
		b.PaymentRef = &ref
		b.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			s.log.Error("charged booking could not be marked paid",
				zap.Uint64("booking_id", bookingID),
				zap.String("payment_ref", ref))
		}
		return nil, err
	}
	s.log.Info("booking paid",
		zap.Uint64("booking_id", paid.ID),
		zap.String("code", paid.Code),
		zap.String("method", method))

	if err := s.notifier.BookingPaid(ctx, paid); err != nil {
		s.log.Warn("booking confirmation not sent",
			zap.Uint64("booking_id", paid.ID),
			zap.Error(err))
	}
	return paid, nil
}

// CancelBooking moves one of the user's PENDING bookings to CANCELLED.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	if _, err := s.GetBooking(ctx, userID, bookingID); err != nil {
		return nil, err
	}
	b, err := s.finalize(ctx, bookingID, func(b *model.Booking) error {
		b.Status = model.BookingCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("booking cancelled", zap.Uint64("booking_id", b.ID), zap.Uint64("user_id", userID))
	return b, nil
}

// finalize applies a transition out of PENDING under the booking lock.
// Overdue bookings become EXPIRED and ErrAlreadyFinalized is returned.
func (s *BookingService) finalize(ctx context.Context, bookingID uint64, transition func(b *model.Booking) error) (*model.Booking, error) {
	var result *model.Booking
	err := s.store.WithBookingLock(ctx, bookingID, func(b *model.Booking) error {
		if b.Status.Terminal() {
			return ErrAlreadyFinalized
		}
		if !s.clock().Before(b.ExpiresAt) {
			b.Status = model.BookingExpired
			return ErrAlreadyFinalized
		}
		if err := transition(b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			return nil, err
		}
		return nil, storeErr("update booking", err)
	}
	return result, nil
}

// ExpireStaleBookings expires every PENDING booking whose deadline is not
// after now and lapses old holds.  It returns the number of bookings
// expired.
func (s *BookingService) ExpireStaleBookings(ctx context.Context, now time.Time) (int, error) {
	n, err := s.store.ExpireStale(ctx, now.UTC())
	if err != nil {
		return 0, storeErr("expire bookings", err)
	}
	if n > 0 {
		s.log.Info("expired stale bookings", zap.Int("count", n))
	}
	return n, nil
}

func (s *BookingService) bookableShowtime(ctx context.Context, id uint64, now time.Time) (*model.Showtime, error) {
	st, err := s.store.Showtime(ctx, id)
	if err != nil {
		return nil, storeErr("load showtime", err)
	}
	if !st.Bookable(now) {
		return nil, ErrShowtimeNotBookable
	}
	return st, nil
}

func (s *BookingService) resolveSeats(ctx context.Context, st *model.Showtime, ids []uint64) ([]model.Seat, error) {
	seats, err := s.store.SeatsByIDs(ctx, st.ScreenID, ids)
	if err != nil {
		return nil, storeErr("load seats", err)
	}
	if len(seats) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d seats belong to screen %d", ErrInvalidSeatSelection, len(seats), len(ids), st.ScreenID)
	}
	return seats, nil
}

func (s *BookingService) resolveConcessions(ctx context.Context, lines []ConcessionLine) ([]model.BookingConcession, error) {
	if len(lines) == 0 {
		return []model.BookingConcession{}, nil
	}
	qty := make(map[uint64]uint32, len(lines))
	order := make([]uint64, 0, len(lines))
	for _, l := range lines {
		if _, ok := qty[l.ConcessionID]; !ok {
			order = append(order, l.ConcessionID)
		}
		qty[l.ConcessionID] += l.Quantity
	}
	found, err := s.store.ConcessionsByIDs(ctx, order)
	if err != nil {
		return nil, storeErr("load concessions", err)
	}
	byID := make(map[uint64]model.Concession, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]model.BookingConcession, 0, len(order))
	for _, id := range order {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: concession %d is not on sale", ErrInvalidConcession, id)
		}
		out = append(out, model.BookingConcession{
			ConcessionID:   c.ID,
			Name:           c.Name,
			Quantity:       qty[id],
			UnitPriceCents: c.PriceCents,
		})
	}
	return out, nil
}

// ticketPrice returns the showtime override for the seat type, falling back
// to the base price.
func ticketPrice(st *model.Showtime, prices map[model.SeatType]int64, t model.SeatType) int64 {
	if p, ok := prices[t]; ok {
		return p
	}
	return st.BasePriceCents
}

func uniqueSeatIDs(ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidSeatSelection)
	}
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, fmt.Errorf("%w: seat id 0", ErrInvalidSeatSelection)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: seat %d requested twice", ErrInvalidSeatSelection, id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func newBookingCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// storeErr maps repository.ErrNotFound to ErrNotFound and wraps anything
// else with the failed step.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	var conflict *SeatConflictError
	if errors.As(err, &conflict) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
