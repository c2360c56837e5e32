// Package memstore is an in-memory implementation of repository.Store.  It
// backs STORE_DRIVER=memory and the tests.  Each showtime has its own
// mutex; writes made inside a locked region are buffered and applied only
// when the region succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Store holds every table in maps guarded by mu.
type Store struct {
	mu           sync.RWMutex
	screens      map[uint64]model.Screen
	seats        map[uint64]model.Seat
	showtimes    map[uint64]model.Showtime
	prices       map[uint64]map[model.SeatType]int64
	concessions  map[uint64]model.Concession
	bookings     map[uint64]*model.Booking
	codes        map[string]uint64
	reservations map[uint64]*model.SeatReservation

	locksMu   sync.Mutex
	showLocks map[uint64]*sync.Mutex

	nextID atomic.Uint64
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		screens:      make(map[uint64]model.Screen),
		seats:        make(map[uint64]model.Seat),
		showtimes:    make(map[uint64]model.Showtime),
		prices:       make(map[uint64]map[model.SeatType]int64),
		concessions:  make(map[uint64]model.Concession),
		bookings:     make(map[uint64]*model.Booking),
		codes:        make(map[string]uint64),
		reservations: make(map[uint64]*model.SeatReservation),
		showLocks:    make(map[uint64]*sync.Mutex),
	}
}

func (s *Store) id() uint64 { return s.nextID.Add(1) }

func (s *Store) showtimeLock(id uint64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.showLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.showLocks[id] = m
	}
	return m
}

func (s *Store) Showtime(_ context.Context, id uint64) (*model.Showtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.showtimes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (s *Store) Screen(_ context.Context, id uint64) (*model.Screen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.screens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sc, nil
}

func (s *Store) SeatsByIDs(_ context.Context, screenID uint64, ids []uint64) ([]model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Seat, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		seat, ok := s.seats[id]
		if !ok || seat.ScreenID != screenID || !seat.IsActive {
			continue
		}
		out = append(out, seat)
	}
	sortSeats(out)
	return out, nil
}

func (s *Store) SeatsByScreen(_ context.Context, screenID uint64) ([]model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Seat, 0)
	for _, seat := range s.seats {
		if seat.ScreenID == screenID {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out, nil
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].RowLabel != seats[j].RowLabel {
			return seats[i].RowLabel < seats[j].RowLabel
		}
		return seats[i].Number < seats[j].Number
	})
}

func (s *Store) TicketPrices(_ context.Context, showtimeID uint64) (map[model.SeatType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.SeatType]int64, len(s.prices[showtimeID]))
	for k, v := range s.prices[showtimeID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) ConcessionsByIDs(_ context.Context, ids []uint64) ([]model.Concession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Concession, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c, ok := s.concessions[id]; ok && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) ActiveConcessions(_ context.Context) ([]model.Concession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Concession, 0, len(s.concessions))
	for _, c := range s.concessions {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) OccupiedSeats(_ context.Context, showtimeID uint64, now time.Time) (map[uint64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.showtimes[showtimeID]; !ok {
		return nil, repository.ErrNotFound
	}
	return s.occupiedLocked(showtimeID, now, 0), nil
}

// occupiedLocked requires at least a read lock on mu.
func (s *Store) occupiedLocked(showtimeID uint64, now time.Time, exceptUserID uint64) map[uint64]struct{} {
	taken := make(map[uint64]struct{})
	for _, b := range s.bookings {
		if b.ShowtimeID != showtimeID || !b.Status.Occupying() {
			continue
		}
		for _, t := range b.Tickets {
			taken[t.SeatID] = struct{}{}
		}
	}
	for _, r := range s.reservations {
		if r.ShowtimeID != showtimeID || !r.Holding(now) {
			continue
		}
		if exceptUserID != 0 && r.UserID == exceptUserID {
			continue
		}
		taken[r.SeatID] = struct{}{}
	}
	return taken
}

func (s *Store) WithShowtimeLock(ctx context.Context, showtimeID uint64, fn func(tx repository.ShowtimeTx) error) error {
	if _, err := s.Showtime(ctx, showtimeID); err != nil {
		return err
	}
	lock := s.showtimeLock(showtimeID)
	lock.Lock()
	defer lock.Unlock()

	tx := &showtimeTx{store: s, showtimeID: showtimeID}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tx.bookings {
		if _, dup := s.codes[b.Code]; dup {
			return repository.ErrConflict
		}
	}
	for _, op := range tx.ops {
		op()
	}
	return nil
}

func (s *Store) WithBookingLock(_ context.Context, bookingID uint64, fn func(b *model.Booking) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bookings[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	b := cloneBooking(stored)
	err := fn(b)
	if err != nil && stored.Status == b.Status {
		return err
	}
	stored.Status = b.Status
	stored.PaymentMethod = b.PaymentMethod
	stored.PaymentRef = b.PaymentRef
	stored.PaidAt = b.PaidAt
	return err
}

func (s *Store) ExpireStale(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.Status == model.BookingPending && !b.ExpiresAt.After(now) {
			b.Status = model.BookingExpired
			n++
		}
	}
	for _, r := range s.reservations {
		if r.IsActive && !r.ExpiresAt.After(now) {
			r.IsActive = false
		}
	}
	return n, nil
}

func (s *Store) Booking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *Store) BookingsByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Reservations returns a copy of every hold of a showtime, active or not.
func (s *Store) Reservations(showtimeID uint64) []model.SeatReservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SeatReservation, 0)
	for _, r := range s.reservations {
		if r.ShowtimeID == showtimeID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	c.Tickets = append([]model.Ticket(nil), b.Tickets...)
	c.Concessions = append([]model.BookingConcession(nil), b.Concessions...)
	if b.PaymentRef != nil {
		ref := *b.PaymentRef
		c.PaymentRef = &ref
	}
	if b.PaidAt != nil {
		t := *b.PaidAt
		c.PaidAt = &t
	}
	return &c
}

// showtimeTx buffers writes until WithShowtimeLock decides to apply them.
type showtimeTx struct {
	store      *Store
	showtimeID uint64
	ops        []func()
	bookings   []*model.Booking
}

func (t *showtimeTx) OccupiedSeats(_ context.Context, now time.Time, exceptUserID uint64) (map[uint64]struct{}, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.occupiedLocked(t.showtimeID, now, exceptUserID), nil
}

func (t *showtimeTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.store.mu.RLock()
	labels := make(map[uint64]model.Seat, len(b.Tickets))
	for _, tk := range b.Tickets {
		labels[tk.SeatID] = t.store.seats[tk.SeatID]
	}
	names := make(map[uint64]string, len(b.Concessions))
	for _, c := range b.Concessions {
		names[c.ConcessionID] = t.store.concessions[c.ConcessionID].Name
	}
	t.store.mu.RUnlock()

	b.ID = t.store.id()
	for i := range b.Tickets {
		tk := &b.Tickets[i]
		tk.ID = t.store.id()
		tk.BookingID = b.ID
		if tk.SeatLabel == "" {
			tk.SeatLabel = labels[tk.SeatID].Label()
			tk.SeatType = labels[tk.SeatID].SeatType
		}
	}
	for i := range b.Concessions {
		c := &b.Concessions[i]
		c.BookingID = b.ID
		if c.Name == "" {
			c.Name = names[c.ConcessionID]
		}
	}
	stored := cloneBooking(b)
	t.bookings = append(t.bookings, stored)
	t.ops = append(t.ops, func() {
		t.store.bookings[stored.ID] = stored
		t.store.codes[stored.Code] = stored.ID
	})
	return nil
}

func (t *showtimeTx) ClaimHolds(_ context.Context, userID, bookingID uint64, seatIDs []uint64) error {
	want := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = struct{}{}
	}
	t.ops = append(t.ops, func() {
		for _, r := range t.store.reservations {
			if r.ShowtimeID != t.showtimeID || r.UserID != userID || !r.IsActive {
				continue
			}
			if _, ok := want[r.SeatID]; !ok {
				continue
			}
			bid := bookingID
			r.IsActive = false
			r.BookingID = &bid
		}
	})
	return nil
}

func (t *showtimeTx) ReplaceHolds(_ context.Context, userID uint64, holds []model.SeatReservation) error {
	stored := make([]*model.SeatReservation, 0, len(holds))
	for i := range holds {
		holds[i].ID = t.store.id()
		holds[i].IsActive = true
		h := holds[i]
		stored = append(stored, &h)
	}
	t.ops = append(t.ops, func() {
		t.deactivateLocked(userID)
		for _, h := range stored {
			t.store.reservations[h.ID] = h
		}
	})
	return nil
}

func (t *showtimeTx) ReleaseHolds(_ context.Context, userID uint64) (int, error) {
	t.store.mu.RLock()
	n := 0
	for _, r := range t.store.reservations {
		if r.ShowtimeID == t.showtimeID && r.UserID == userID && r.IsActive {
			n++
		}
	}
	t.store.mu.RUnlock()
	t.ops = append(t.ops, func() { t.deactivateLocked(userID) })
	return n, nil
}

// deactivateLocked runs with mu held for writing.
func (t *showtimeTx) deactivateLocked(userID uint64) {
	for _, r := range t.store.reservations {
		if r.ShowtimeID == t.showtimeID && r.UserID == userID && r.IsActive {
			r.IsActive = false
		}
	}
}
