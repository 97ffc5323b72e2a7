package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"luxury_hotel/internal/app"
	"luxury_hotel/internal/domain"
)

type Handlers struct {
	Catalog      *domain.Catalog
	Validator    *app.Validator
	Availability *app.AvailabilityService
	Bookings     *app.BookingService
	// Limiter throttles the booking endpoints per client IP; nil means unlimited.
	Limiter *RateLimiter
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type availabilityResponse struct {
	RoomType  string `json:"roomType"`
	Date      string `json:"date"`
	Available int    `json:"available"`
}

type dayView struct {
	Date      string `json:"date"`
	Available int    `json:"available"`
}

type calendarResponse struct {
	RoomType string    `json:"roomType"`
	Days     []dayView `json:"days"`
}

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// bookingView echoes the submitted booking back to the guest.
type bookingView struct {
	Reference   string    `json:"reference"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CheckInDate string    `json:"checkInDate"`
	RoomType    string    `json:"roomType"`
	Guests      int       `json:"guests"`
	CreatedAt   time.Time `json:"createdAt"`
}

type bookingResponse struct {
	Success bool              `json:"success"`
	Reason  domain.Reason     `json:"reason"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Booking *bookingView      `json:"booking,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/rooms", h.listRooms)
		r.Get("/rooms/{name}", h.getRoom)
		r.Get("/availability", h.getAvailability)
		r.Get("/availability/calendar", h.getCalendar)
		r.Get("/bookings/{reference}", h.getBooking)
		r.Group(func(r chi.Router) {
			r.Use(h.Limiter.Middleware)
			r.Use(LimitBody)
			r.Post("/bookings/validate", h.validateBooking)
			r.Post("/bookings", h.createBooking)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// decodeJSON reads exactly one JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func readForm(w http.ResponseWriter, r *http.Request, form *domain.BookingForm) bool {
	err := decodeJSON(r, form)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Body too large", fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
		return false
	}
	writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
	return false
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	writeCacheable(w, r, h.Catalog.Rooms())
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.Catalog.Room(chi.URLParam(r, "name"))
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "room type not found")
		return
	}
	writeCacheable(w, r, room)
}

// roomType reads and checks the roomType query parameter.
// On failure it has already written the problem response.
func (h *Handlers) roomType(w http.ResponseWriter, r *http.Request) (string, bool) {
	roomType := strings.TrimSpace(r.URL.Query().Get("roomType"))
	if roomType == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid roomType", "roomType is required")
		return "", false
	}
	if !h.Catalog.Has(roomType) {
		writeProblem(w, http.StatusNotFound, "Not Found", "room type not found")
		return "", false
	}
	return roomType, true
}

func queryDay(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	d, err := domain.ParseDay(r.URL.Query().Get(name))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid "+name, name+" must be a date formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func (h *Handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	roomType, ok := h.roomType(w, r)
	if !ok {
		return
	}
	d, ok := queryDay(w, r, "date")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		RoomType:  roomType,
		Date:      d.Format(domain.DateLayout),
		Available: h.Availability.Check(r.Context(), roomType, d),
	})
}

func (h *Handlers) getCalendar(w http.ResponseWriter, r *http.Request) {
	roomType, ok := h.roomType(w, r)
	if !ok {
		return
	}
	from, ok := queryDay(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDay(w, r, "to")
	if !ok {
		return
	}
	days, err := h.Availability.Range(r.Context(), roomType, from, to)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid range", err.Error())
		return
	}
	out := calendarResponse{RoomType: roomType, Days: make([]dayView, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, dayView{Date: d.Date.Format(domain.DateLayout), Available: d.Available})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) validateBooking(w http.ResponseWriter, r *http.Request) {
	var form domain.BookingForm
	if !readForm(w, r, &form) {
		return
	}
	errs := h.Validator.Validate(form)
	writeJSON(w, http.StatusOK, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var form domain.BookingForm
	if !readForm(w, r, &form) {
		return
	}

	if errs := h.Validator.Validate(form); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, bookingResponse{
			Reason:  domain.ReasonInvalid,
			Message: "Please correct the highlighted fields",
			Errors:  errs,
		})
		return
	}
	checkIn, err := domain.ParseDay(form.CheckInDate)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, bookingResponse{
			Reason:  domain.ReasonInvalid,
			Message: "Please correct the highlighted fields",
			Errors:  map[string]string{"checkInDate": "Please select a check-in date"},
		})
		return
	}
	// Validate has already guaranteed a positive integer.
	guests, _ := strconv.Atoi(strings.TrimSpace(form.Guests))

	out := h.Bookings.Submit(r.Context(), domain.BookingRequest{
		FullName:    form.FullName,
		Email:       form.Email,
		Phone:       form.Phone,
		CheckInDate: checkIn,
		RoomType:    form.RoomType,
		Guests:      guests,
	})

	resp := bookingResponse{Success: out.Success, Reason: out.Reason, Message: out.Message}
	if out.Booking != nil {
		resp.Booking = viewOf(*out.Booking)
	}
	writeJSON(w, statusFor(out.Reason), resp)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Bookings.Get(r.Context(), chi.URLParam(r, "reference"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "booking not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("booking lookup failed")
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", app.MsgLedgerFault)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

func viewOf(rec domain.BookingRecord) *bookingView {
	return &bookingView{
		Reference:   rec.Reference,
		FullName:    rec.FullName,
		Email:       rec.Email,
		Phone:       rec.Phone,
		CheckInDate: rec.CheckInDate.Format(domain.DateLayout),
		RoomType:    rec.RoomType,
		Guests:      rec.Guests,
		CreatedAt:   rec.CreatedAt,
	}
}

func statusFor(reason domain.Reason) int {
	switch reason {
	case domain.ReasonBooked:
		return http.StatusCreated
	case domain.ReasonNoAvailability:
		return http.StatusConflict
	case domain.ReasonLedgerFault:
		return http.StatusServiceUnavailable
	case domain.ReasonInvalid:
		return http.StatusUnprocessableEntity
	default:
		panic(fmt.Sprintf("unhandled booking reason %q", reason))
	}
}
