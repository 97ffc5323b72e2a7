package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxury_hotel/internal/app"
	"luxury_hotel/internal/domain"
)

func TestCheck_EmptyLedger(t *testing.T) {
	s := app.NewAvailabilityService(&memLedger{}, nil, 0)
	assert.Equal(t, 2, s.Check(context.Background(), "Standard Twin", day("2025-05-06")))
}

func TestCheck_CountsOnlyThatSlot(t *testing.T) {
	l := &memLedger{}
	l.seed("Standard Twin", day("2025-05-06"), 1)
	l.seed("Standard Twin", day("2025-05-07"), 2)
	l.seed("Deluxe Suite", day("2025-05-06"), 2)
	s := app.NewAvailabilityService(l, nil, 0)

	// time of day does not matter
	at := time.Date(2025, 5, 6, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, s.Check(context.Background(), "Standard Twin", at))
	assert.Equal(t, 0, s.Check(context.Background(), "Standard Twin", day("2025-05-07")))
	assert.Equal(t, 2, s.Check(context.Background(), "Executive Twin", day("2025-05-06")))
}

func TestCheck_NeverNegative(t *testing.T) {
	l := &memLedger{}
	// an over-full slot, e.g. rows written before the capacity check existed
	l.seed("Standard Twin", day("2025-05-06"), 3)
	s := app.NewAvailabilityService(l, nil, 0)
	assert.Equal(t, 0, s.Check(context.Background(), "Standard Twin", day("2025-05-06")))
}

func TestCheck_LedgerFaultReportsZero(t *testing.T) {
	l := &memLedger{failAll: errLedgerDown}
	s := app.NewAvailabilityService(l, nil, 0)
	assert.Equal(t, 0, s.Check(context.Background(), "Standard Twin", day("2025-05-06")))
}

func TestCheck_Idempotent(t *testing.T) {
	l := &memLedger{}
	l.seed("Deluxe Suite", day("2025-06-01"), 1)
	s := app.NewAvailabilityService(l, nil, 0)
	ctx := context.Background()
	assert.Equal(t, s.Check(ctx, "Deluxe Suite", day("2025-06-01")), s.Check(ctx, "Deluxe Suite", day("2025-06-01")))
}

func TestCheck_CachesOnlySoldOut(t *testing.T) {
	l := &memLedger{}
	l.seed("Superior Suite", day("2025-05-07"), 2)
	c := &fakeCache{}
	s := app.NewAvailabilityService(l, c, time.Minute)
	ctx := context.Background()

	// a free slot is always read from the ledger
	assert.Equal(t, 2, s.Check(ctx, "Superior Suite", day("2025-05-06")))
	assert.Equal(t, 2, s.Check(ctx, "Superior Suite", day("2025-05-06")))
	assert.Equal(t, 2, l.counts)
	assert.Empty(t, c.store)

	// a full one is remembered
	assert.Equal(t, 0, s.Check(ctx, "Superior Suite", day("2025-05-07")))
	assert.Equal(t, 0, s.Check(ctx, "Superior Suite", day("2025-05-07")))
	assert.Equal(t, 3, l.counts, "second sold-out read should come from cache")
	assert.Equal(t, map[string]int{"avail:Superior Suite:2025-05-07": 0}, c.store)
}

func TestCheck_IgnoresCachedPositiveCount(t *testing.T) {
	l := &memLedger{}
	l.seed("Superior Suite", day("2025-05-06"), 2)
	c := &fakeCache{store: map[string]int{"avail:Superior Suite:2025-05-06": 2}}
	s := app.NewAvailabilityService(l, c, time.Minute)
	assert.Equal(t, 0, s.Check(context.Background(), "Superior Suite", day("2025-05-06")))
}

// pausingLedger holds the first CountBookings after it has counted until
// release is closed.
type pausingLedger struct {
	*memLedger
	once    sync.Once
	counted chan struct{}
	release chan struct{}
}

func (p *pausingLedger) CountBookings(ctx context.Context, roomType string, day time.Time) (int, error) {
	n, err := p.memLedger.CountBookings(ctx, roomType, day)
	p.once.Do(func() {
		close(p.counted)
		<-p.release
	})
	return n, err
}

func TestCheck_BookingDuringLookupDoesNotLeaveStaleAvailability(t *testing.T) {
	l := &pausingLedger{memLedger: &memLedger{}, counted: make(chan struct{}), release: make(chan struct{})}
	l.seed("Standard Twin", day("2025-05-06"), 1)
	c := &fakeCache{}
	avail := app.NewAvailabilityService(l, c, time.Minute)
	bookings := newBookingService(l, c).WithCacheTTL(time.Minute)
	ctx := context.Background()

	first := make(chan int, 1)
	go func() { first <- avail.Check(ctx, "Standard Twin", day("2025-05-06")) }()
	<-l.counted

	// the last room goes while the lookup above is between count and return
	require.True(t, bookings.Submit(ctx, request("Standard Twin", "2025-05-06")).Success)
	close(l.release)
	assert.Equal(t, 1, <-first, "the in-flight lookup answers with what it counted")

	n, _ := l.CountBookings(ctx, "Standard Twin", day("2025-05-06"))
	require.Equal(t, domain.MaxRoomsPerType, n)
	assert.Equal(t, 0, avail.Check(ctx, "Standard Twin", day("2025-05-06")))
}

func TestCheck_CacheErrorFallsBackToLedger(t *testing.T) {
	l := &memLedger{}
	l.seed("Superior Suite", day("2025-05-06"), 1)
	s := app.NewAvailabilityService(l, &fakeCache{err: errors.New("redis down")}, time.Minute)
	assert.Equal(t, 1, s.Check(context.Background(), "Superior Suite", day("2025-05-06")))
}

func TestCheck_FaultIsNotCached(t *testing.T) {
	l := &memLedger{failAll: errLedgerDown}
	c := &fakeCache{}
	s := app.NewAvailabilityService(l, c, time.Minute)
	assert.Equal(t, 0, s.Check(context.Background(), "Superior Suite", day("2025-05-06")))
	assert.Empty(t, c.store)
}

func TestRange(t *testing.T) {
	l := &memLedger{}
	l.seed("Executive Suite", day("2025-05-02"), 1)
	l.seed("Executive Suite", day("2025-05-03"), 2)
	s := app.NewAvailabilityService(l, nil, 0)

	got, err := s.Range(context.Background(), "Executive Suite", day("2025-05-01"), day("2025-05-04"))
	require.NoError(t, err)
	require.Len(t, got, 4)

	want := []int{2, 1, 0, 2}
	for i, d := range got {
		assert.Equal(t, day("2025-05-01").AddDate(0, 0, i), d.Date)
		assert.Equal(t, want[i], d.Available, d.Date.Format(domain.DateLayout))
	}
}

func TestRange_SingleDayAndBounds(t *testing.T) {
	s := app.NewAvailabilityService(&memLedger{}, nil, 0)
	ctx := context.Background()

	got, err := s.Range(ctx, "Standard Twin", day("2025-05-01"), day("2025-05-01"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = s.Range(ctx, "Standard Twin", day("2025-05-02"), day("2025-05-01"))
	assert.Error(t, err)

	_, err = s.Range(ctx, "Standard Twin", day("2025-01-01"), day("2025-01-01").AddDate(0, 0, app.MaxRangeDays))
	assert.Error(t, err)

	got, err = s.Range(ctx, "Standard Twin", day("2025-01-01"), day("2025-01-01").AddDate(0, 0, app.MaxRangeDays-1))
	require.NoError(t, err)
	assert.Len(t, got, app.MaxRangeDays)
}

func TestRange_LedgerFaultGivesZeros(t *testing.T) {
	s := app.NewAvailabilityService(&memLedger{failAll: errLedgerDown}, nil, 0)
	got, err := s.Range(context.Background(), "Standard Twin", day("2025-05-01"), day("2025-05-03"))
	require.NoError(t, err)
	for _, d := range got {
		assert.Equal(t, 0, d.Available)
	}
}
