package memstore

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// AddScreen stores a screen and returns its id.
func (s *Store) AddScreen(sc model.Screen) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.ID = s.id()
	s.screens[sc.ID] = sc
	return sc.ID
}

// AddSeat stores a seat and returns its id.  Unknown seat types are stored
// as STANDARD.
func (s *Store) AddSeat(seat model.Seat) uint64 {
	if !seat.SeatType.Valid() {
		seat.SeatType = model.SeatStandard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seat.ID = s.id()
	s.seats[seat.ID] = seat
	return seat.ID
}

// AddShowtime stores a showtime and returns its id.
func (s *Store) AddShowtime(st model.Showtime) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.id()
	s.showtimes[st.ID] = st
	return st.ID
}

// SetTicketPrice sets or replaces the price override of a seat type.
func (s *Store) SetTicketPrice(p model.TicketPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prices[p.ShowtimeID] == nil {
		s.prices[p.ShowtimeID] = make(map[model.SeatType]int64)
	}
	s.prices[p.ShowtimeID][p.SeatType] = p.PriceCents
}

// AddConcession stores a concession and returns its id.
func (s *Store) AddConcession(c model.Concession) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.concessions[c.ID] = c
	return c.ID
}

// SetShowtimeActive toggles whether a showtime is on sale.
func (s *Store) SetShowtimeActive(id uint64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.showtimes[id]; ok {
		st.IsActive = active
		s.showtimes[id] = st
	}
}

// SeedDemo fills the store with one screen of five rows by eight seats
// (row E is VIP, the last two seats of row D form couple seats), two
// showtimes starting tomorrow and a small concession menu.  It returns the
// id of the first showtime.
func (s *Store) SeedDemo(now time.Time) uint64 {
	screenID := s.AddScreen(model.Screen{Name: "Screen 1", ScreenType: "2D", Rows: 5, SeatsPerRow: 8, IsActive: true})
	for _, row := range []string{"A", "B", "C", "D", "E"} {
		for n := uint32(1); n <= 8; n++ {
			seatType := model.SeatStandard
			switch {
			case row == "E":
				seatType = model.SeatVIP
			case row == "D" && n >= 7:
				seatType = model.SeatCouple
			}
			s.AddSeat(model.Seat{ScreenID: screenID, RowLabel: row, Number: n, SeatType: seatType, IsActive: true})
		}
	}

	start := now.UTC().Add(24 * time.Hour).Truncate(time.Hour)
	first := uint64(0)
	for i, title := range []string{"The Long Night", "Paper Planes"} {
		starts := start.Add(time.Duration(i*3) * time.Hour)
		id := s.AddShowtime(model.Showtime{
			MovieID:        uint64(i + 1),
			MovieTitle:     title,
			ScreenID:       screenID,
			StartsAt:       starts,
			EndsAt:         starts.Add(2 * time.Hour),
			BasePriceCents: 1000,
			IsActive:       true,
		})
		s.SetTicketPrice(model.TicketPrice{ShowtimeID: id, SeatType: model.SeatVIP, PriceCents: 1500})
		s.SetTicketPrice(model.TicketPrice{ShowtimeID: id, SeatType: model.SeatCouple, PriceCents: 2500})
		if first == 0 {
			first = id
		}
	}

	for _, c := range []model.Concession{
		{Name: "Popcorn", PriceCents: 500, IsActive: true},
		{Name: "Soda", PriceCents: 300, IsActive: true},
		{Name: "Combo", PriceCents: 750, IsActive: true},
	} {
		s.AddConcession(c)
	}
	return first
}
