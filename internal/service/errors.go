package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrNotFound             = errors.New("not found")
	ErrShowtimeNotBookable  = errors.New("showtime is not open for booking")
	ErrInvalidSeatSelection = errors.New("invalid seat selection")
	ErrInvalidConcession    = errors.New("invalid concession")
	ErrSeatConflict         = errors.New("seat already taken")
	ErrAlreadyFinalized     = errors.New("booking is no longer pending")
	ErrPaymentFailed        = errors.New("payment failed")
)

// SeatConflictError names the first requested seat found occupied.
type SeatConflictError struct {
	SeatID uint64
	Label  string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s already taken", e.Label)
}

// Is makes errors.Is(err, ErrSeatConflict) hold.
func (e *SeatConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}
