package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"luxury_hotel/internal/domain"
)

// ---- fakes ----

// memLedger admits under one mutex, which gives it the same per-slot
// atomicity the SQL ledgers get from their transactions.
type memLedger struct {
	mu      sync.Mutex
	records []domain.BookingRecord
	counts  int // CountBookings calls
	failAll error
}

func (l *memLedger) CountBookings(ctx context.Context, roomType string, day time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts++
	if l.failAll != nil {
		return 0, l.failAll
	}
	return l.countLocked(roomType, day), nil
}

func (l *memLedger) countLocked(roomType string, day time.Time) int {
	n := 0
	for _, r := range l.records {
		if r.RoomType == roomType && r.CheckInDate.Equal(day) {
			n++
		}
	}
	return n
}

func (l *memLedger) Admit(ctx context.Context, rec domain.BookingRecord, capacity int) (domain.BookingRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAll != nil {
		return domain.BookingRecord{}, l.failAll
	}
	if l.countLocked(rec.RoomType, rec.CheckInDate) >= capacity {
		return domain.BookingRecord{}, domain.ErrSlotFull
	}
	rec.ID = int64(len(l.records) + 1)
	rec.CreatedAt = time.Now().UTC()
	l.records = append(l.records, rec)
	return rec, nil
}

func (l *memLedger) GetBooking(ctx context.Context, reference string) (domain.BookingRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.Reference == reference {
			return r, nil
		}
	}
	return domain.BookingRecord{}, domain.ErrNotFound
}

func (l *memLedger) seed(roomType string, day time.Time, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for range n {
		l.records = append(l.records, domain.BookingRecord{RoomType: roomType, CheckInDate: domain.Day(day), Guests: 1})
	}
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]int
	sets  int
	err   error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	*dst.(*int) = v
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.store == nil {
		c.store = map[string]int{}
	}
	c.store[key] = v.(int)
	c.sets++
	return nil
}

var errLedgerDown = errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}
