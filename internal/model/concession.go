package model

// Concession is a sellable item (popcorn, drinks) that can be added to a
// booking.  Concessions never occupy seats.
type Concession struct {
	ID         uint64 // concessions.id
	Name       string // concessions.name
	PriceCents int64  // concessions.price_cents
	IsActive   bool   // concessions.is_active
}
