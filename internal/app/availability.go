package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"luxury_hotel/internal/adapters/observability"
	"luxury_hotel/internal/domain"
)

const (
	// MaxRangeDays caps one calendar request at about two months.
	MaxRangeDays = 62

	rangeParallelism = 4
)

type AvailabilityService struct {
	ledger   domain.Ledger
	cache    domain.Cache // optional
	cacheTTL time.Duration
}

func NewAvailabilityService(l domain.Ledger, c domain.Cache, ttl time.Duration) *AvailabilityService {
	return &AvailabilityService{ledger: l, cache: c, cacheTTL: ttl}
}

func availabilityKey(roomType string, day time.Time) string {
	return fmt.Sprintf("avail:%s:%s", roomType, day.Format(domain.DateLayout))
}

// Check returns how many rooms of roomType are still free on date, between
// 0 and MaxRoomsPerType. When the ledger cannot answer it reports 0: showing
// a room as sold out is safer than selling one that is not there.
//
// Only sold-out answers are cached. Records are never deleted, so a full slot
// stays full and a cached 0 can never overstate what is left. A positive
// count is always read from the ledger.
func (s *AvailabilityService) Check(ctx context.Context, roomType string, date time.Time) int {
	day := domain.Day(date)
	key := availabilityKey(roomType, day)

	if s.cache != nil {
		var cached int
		if ok, _ := s.cache.Get(ctx, key, &cached); ok && cached == 0 {
			observability.ObserveAvailability("cache")
			return 0
		}
	}

	start := time.Now()
	n, err := s.ledger.CountBookings(ctx, roomType, day)
	observability.ObserveLedger("count", start)
	if err != nil {
		observability.ObserveAvailability("fault")
		log.Error().Err(err).
			Str("room_type", roomType).
			Str("date", day.Format(domain.DateLayout)).
			Msg("availability lookup failed, reporting none available")
		return 0
	}
	observability.ObserveAvailability("ledger")

	available := max(0, domain.MaxRoomsPerType-n)
	if available == 0 {
		markSoldOut(ctx, s.cache, key, s.cacheTTL)
	}
	return available
}

// markSoldOut remembers that a slot is full. Cache errors are ignored; the
// ledger stays the source of truth.
func markSoldOut(ctx context.Context, c domain.Cache, key string, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	if err := c.Set(ctx, key, 0, int(ttl.Seconds())); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("sold-out marker not cached")
	}
}

// Range checks every day from..to inclusive, a few days at a time.
func (s *AvailabilityService) Range(ctx context.Context, roomType string, from, to time.Time) ([]domain.DayAvailability, error) {
	from, to = domain.Day(from), domain.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", to.Format(domain.DateLayout), from.Format(domain.DateLayout))
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > MaxRangeDays {
		return nil, fmt.Errorf("range of %d days exceeds %d", days, MaxRangeDays)
	}

	out := make([]domain.DayAvailability, days)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rangeParallelism)
	for i := range days {
		day := from.AddDate(0, 0, i)
		g.Go(func() error {
			// Check never fails; each slot is written by exactly one goroutine.
			out[i] = domain.DayAvailability{Date: day, Available: s.Check(gctx, roomType, day)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
