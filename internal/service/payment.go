package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// PaymentGateway charges a booking.  It returns the provider reference of
// the charge.
type PaymentGateway interface {
	Charge(ctx context.Context, b *model.Booking, method string) (string, error)
}

// StubGateway accepts every charge.  It stands in for a real provider.
type StubGateway struct{}

func (StubGateway) Charge(_ context.Context, b *model.Booking, method string) (string, error) {
	return "stub-" + strings.ToLower(method) + "-" + uuid.NewString()[:12], nil
}

// Notifier is told about bookings that were paid.  Failures are logged by
// the caller and never undo the payment.
type Notifier interface {
	BookingPaid(ctx context.Context, b *model.Booking) error
}

type nopNotifier struct{}

func (nopNotifier) BookingPaid(context.Context, *model.Booking) error { return nil }
