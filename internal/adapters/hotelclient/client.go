// Package hotelclient talks to the booking API over HTTP.
package hotelclient

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"luxury_hotel/internal/domain"
)

const maxAttempts = 4

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrNotFound    = errors.New("hotel: not found")
	ErrBadRequest  = errors.New("hotel: bad request")
	ErrRateLimited = errors.New("hotel: rate limited")
)

// Booking is a stored booking as the API returns it.
type Booking struct {
	Reference   string    `json:"reference"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CheckInDate string    `json:"checkInDate"`
	RoomType    string    `json:"roomType"`
	Guests      int       `json:"guests"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BookingResult is the answer to a submission. Status carries the HTTP code
// (201 booked, 409 no availability, 422 invalid, 503 ledger fault).
type BookingResult struct {
	Status  int               `json:"-"`
	Success bool              `json:"success"`
	Reason  domain.Reason     `json:"reason"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Booking *Booking          `json:"booking,omitempty"`
}

// ---- Public API ----

func (c *Client) Rooms(ctx context.Context) ([]domain.RoomType, error) {
	var out []domain.RoomType
	_, err := c.call(ctx, http.MethodGet, c.base+"/v1/rooms", nil, &out, nil)
	return out, err
}

func (c *Client) Availability(ctx context.Context, roomType string, day time.Time) (int, error) {
	q := url.Values{"roomType": {roomType}, "date": {day.Format(domain.DateLayout)}}
	var out struct {
		Available int `json:"available"`
	}
	_, err := c.call(ctx, http.MethodGet, c.base+"/v1/availability?"+q.Encode(), nil, &out, nil)
	return out.Available, err
}

func (c *Client) Calendar(ctx context.Context, roomType string, from, to time.Time) ([]domain.DayAvailability, error) {
	q := url.Values{
		"roomType": {roomType},
		"from":     {from.Format(domain.DateLayout)},
		"to":       {to.Format(domain.DateLayout)},
	}
	var out struct {
		Days []struct {
			Date      string `json:"date"`
			Available int    `json:"available"`
		} `json:"days"`
	}
	if _, err := c.call(ctx, http.MethodGet, c.base+"/v1/availability/calendar?"+q.Encode(), nil, &out, nil); err != nil {
		return nil, err
	}
	days := make([]domain.DayAvailability, 0, len(out.Days))
	for _, d := range out.Days {
		t, err := domain.ParseDay(d.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar day %q: %w", d.Date, err)
		}
		days = append(days, domain.DayAvailability{Date: t, Available: d.Available})
	}
	return days, nil
}

// Validate returns the field errors of form; an empty map means valid.
func (c *Client) Validate(ctx context.Context, form domain.BookingForm) (map[string]string, error) {
	var out struct {
		Errors map[string]string `json:"errors"`
	}
	_, err := c.call(ctx, http.MethodPost, c.base+"/v1/bookings/validate", form, &out, nil)
	return out.Errors, err
}

// SubmitBooking posts form once. Only a 429 is retried: any other failure
// may already have reached the ledger.
func (c *Client) SubmitBooking(ctx context.Context, form domain.BookingForm) (BookingResult, error) {
	var out BookingResult
	status, err := c.call(ctx, http.MethodPost, c.base+"/v1/bookings", form, &out, map[int]bool{
		http.StatusCreated:             true,
		http.StatusConflict:            true,
		http.StatusUnprocessableEntity: true,
		http.StatusServiceUnavailable:  true,
	})
	out.Status = status
	return out, err
}

func (c *Client) GetBooking(ctx context.Context, reference string) (Booking, error) {
	var out Booking
	_, err := c.call(ctx, http.MethodGet, c.base+"/v1/bookings/"+url.PathEscape(reference), nil, &out, nil)
	return out, err
}

// ---- Internals ----

// call performs one API request with client-side rate limiting and JSON
// decode into out. Statuses listed in decodeAs are treated as answers and
// decoded as-is. GETs retry on network errors, 429 and transient 5xx;
// POSTs retry on 429 only. Retry-After is honoured when provided.
func (c *Client) call(ctx context.Context, method, u string, in, out any, decodeAs map[int]bool) (int, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}
	idempotent := method == http.MethodGet

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return 0, err
		}
		// build a fresh request each attempt
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "luxury-hotel-client/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			lastErr = err
			if idempotent && i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, lastErr
		}

		status := resp.StatusCode
		switch {
		case status == http.StatusOK || decodeAs[status]:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return status, fmt.Errorf("decode %d response: %w", status, err)
			}
			return status, nil

		case status == http.StatusNotFound:
			resp.Body.Close()
			return status, ErrNotFound

		case status == http.StatusBadRequest:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return status, fmt.Errorf("%w: %s", ErrBadRequest, strings.TrimSpace(string(b)))

		case status == http.StatusTooManyRequests ||
			(idempotent && (status == http.StatusInternalServerError || status == http.StatusBadGateway ||
				status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout)):
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", status)
			if status == http.StatusTooManyRequests {
				lastErr = ErrRateLimited
			}
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return status, ctx.Err()
			}
			return status, lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return status, fmt.Errorf("bad status %d: %s", status, strings.TrimSpace(string(b)))
		}
	}
	return 0, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 100ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 100 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
