package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"luxury_hotel/internal/adapters/observability"
	"luxury_hotel/internal/domain"
)

const (
	MsgBooked         = "The below booking has been successful!"
	MsgNoAvailability = "Sorry! There is no available room!"
	MsgLedgerFault    = "An error occurred while processing your booking. Please try again later."
)

type BookingService struct {
	ledger   domain.Ledger
	cache    domain.Cache // optional; a rejected slot is marked sold out
	cacheTTL time.Duration
	catalog  *domain.Catalog
	now      func() time.Time
}

func NewBookingService(l domain.Ledger, c domain.Cache, cat *domain.Catalog) *BookingService {
	return &BookingService{ledger: l, cache: c, catalog: cat, now: time.Now}
}

// WithClock replaces the clock used to reject past check-in dates.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// WithCacheTTL sets how long a sold-out marker written after a rejection
// lives. Zero, the default, writes none.
func (s *BookingService) WithCacheTTL(ttl time.Duration) *BookingService {
	s.cacheTTL = ttl
	return s
}

// Submit admits a booking if its slot still has capacity. It always returns
// a determinate Outcome; ledger errors are reported, never propagated.
func (s *BookingService) Submit(ctx context.Context, req domain.BookingRequest) domain.Outcome {
	rec, err := s.normalize(req)
	if err != nil {
		observability.ObserveBooking(string(domain.ReasonInvalid))
		return domain.Outcome{Reason: domain.ReasonInvalid, Message: err.Error()}
	}

	logger := log.With().
		Str("room_type", rec.RoomType).
		Str("date", rec.CheckInDate.Format(domain.DateLayout)).
		Str("reference", rec.Reference).
		Logger()

	start := time.Now()
	saved, err := s.ledger.Admit(ctx, rec, domain.MaxRoomsPerType)
	observability.ObserveLedger("admit", start)

	switch {
	case errors.Is(err, domain.ErrSlotFull):
		observability.ObserveBooking(string(domain.ReasonNoAvailability))
		logger.Info().Msg("slot full, booking rejected")
		markSoldOut(ctx, s.cache, availabilityKey(rec.RoomType, rec.CheckInDate), s.cacheTTL)
		return domain.Outcome{Reason: domain.ReasonNoAvailability, Message: MsgNoAvailability}
	case err != nil:
		observability.ObserveBooking(string(domain.ReasonLedgerFault))
		logger.Error().Err(err).Msg("ledger fault during admission")
		return domain.Outcome{Reason: domain.ReasonLedgerFault, Message: MsgLedgerFault}
	}

	observability.ObserveBooking(string(domain.ReasonBooked))
	logger.Info().Int("guests", saved.Guests).Msg("booking admitted")
	return domain.Outcome{Success: true, Reason: domain.ReasonBooked, Message: MsgBooked, Booking: &saved}
}

func (s *BookingService) normalize(req domain.BookingRequest) (domain.BookingRecord, error) {
	rec := domain.BookingRecord{
		Reference:   uuid.NewString(),
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		CheckInDate: domain.Day(req.CheckInDate),
		RoomType:    strings.TrimSpace(req.RoomType),
		Guests:      req.Guests,
	}
	if !s.catalog.Has(rec.RoomType) {
		return domain.BookingRecord{}, fmt.Errorf("%w: %q", domain.ErrUnknownRoomType, rec.RoomType)
	}
	if req.CheckInDate.IsZero() {
		return domain.BookingRecord{}, errors.New("check-in date is required")
	}
	if rec.CheckInDate.Before(domain.Day(s.now())) {
		return domain.BookingRecord{}, errors.New("check-in date is in the past")
	}
	if rec.Guests < 1 {
		return domain.BookingRecord{}, errors.New("at least one guest is required")
	}
	if max := s.catalog.MaxGuests(rec.RoomType); rec.Guests > max {
		return domain.BookingRecord{}, fmt.Errorf("this room type can accommodate a maximum of %d guests", max)
	}
	return rec, nil
}

// Get looks up a stored booking for the confirmation view.
func (s *BookingService) Get(ctx context.Context, reference string) (domain.BookingRecord, error) {
	if _, err := uuid.Parse(reference); err != nil {
		return domain.BookingRecord{}, domain.ErrNotFound
	}
	return s.ledger.GetBooking(ctx, reference)
}
