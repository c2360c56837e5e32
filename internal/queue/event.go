// Package queue carries booking notifications over RabbitMQ: the publisher
// used as the booking service's notifier and the consumer that records
// confirmations.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingPaidQueue is the durable queue receiving BookingPaidEvent messages.
const BookingPaidQueue = "booking.paid"

// BookingPaidEvent is published once a booking is paid.  It carries enough
// information for downstream consumers to send or log a confirmation
// without querying the primary database.
type BookingPaidEvent struct {
	BookingID        uint64   `json:"booking_id"`
	BookingCode      string   `json:"booking_code"`
	UserID           uint64   `json:"user_id"`
	ShowtimeID       uint64   `json:"showtime_id"`
	SeatLabels       []string `json:"seats"`
	Concessions      []string `json:"concessions,omitempty"`
	TotalAmountCents int64    `json:"total_amount_cents"`
	PaymentMethod    string   `json:"payment_method"`
	PaidAt           string   `json:"paid_at"`
}

// NewBookingPaidEvent builds the event for a paid booking.
func NewBookingPaidEvent(b *model.Booking) BookingPaidEvent {
	ev := BookingPaidEvent{
		BookingID:        b.ID,
		BookingCode:      b.Code,
		UserID:           b.UserID,
		ShowtimeID:       b.ShowtimeID,
		SeatLabels:       make([]string, 0, len(b.Tickets)),
		TotalAmountCents: b.TotalAmountCents,
		PaymentMethod:    b.PaymentMethod,
	}
	for _, t := range b.Tickets {
		ev.SeatLabels = append(ev.SeatLabels, t.SeatLabel)
	}
	for _, c := range b.Concessions {
		ev.Concessions = append(ev.Concessions, c.Name+" x"+itoa(c.Quantity))
	}
	paidAt := time.Now().UTC()
	if b.PaidAt != nil {
		paidAt = b.PaidAt.UTC()
	}
	ev.PaidAt = paidAt.Format(time.RFC3339)
	return ev
}
