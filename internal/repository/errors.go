// Package repository defines the persistence contract of the booking core
// and its MySQL implementation.  Sentinel errors declared here let the
// service layer distinguish between missing rows and storage failures
// without depending on a particular driver.
package repository

import "errors"

// ErrNotFound is returned when a showtime, seat or booking lookup yields
// no row.  Services translate it into a user-visible not-found error.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with existing state, such
// as a booking code that is already taken.
var ErrConflict = errors.New("conflict")
