package domain

import (
	"context"
	"time"
)

// Ledger is the durable store of booking records and the only source of
// truth for occupancy.
type Ledger interface {
	// Read paths
	CountBookings(ctx context.Context, roomType string, day time.Time) (int, error)
	GetBooking(ctx context.Context, reference string) (BookingRecord, error)

	// Admit counts the slot and inserts rec as one atomic step. It returns
	// ErrSlotFull without writing when capacity records already exist.
	Admit(ctx context.Context, rec BookingRecord, capacity int) (BookingRecord, error)
}

// Cache holds sold-out markers for availability slots.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
}
