package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSlotFull        = errors.New("no available room for slot")
	ErrUnknownRoomType = errors.New("unknown room type")
)

// DateLayout is the wire and storage format of a check-in date.
const DateLayout = "2006-01-02"

// BookingForm is the raw booking form as typed by the guest.
type BookingForm struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CheckInDate string `json:"checkInDate"`
	RoomType    string `json:"roomType"`
	Guests      string `json:"guests"`
}

// BookingRequest is a validated form with typed fields.
type BookingRequest struct {
	FullName    string
	Email       string
	Phone       string
	CheckInDate time.Time
	RoomType    string
	Guests      int
}

// BookingRecord is one row of the ledger. Records are append-only.
type BookingRecord struct {
	ID          int64     `json:"-"`
	Reference   string    `json:"reference"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CheckInDate time.Time `json:"-"`
	RoomType    string    `json:"roomType"`
	Guests      int       `json:"guests"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reason tells apart the ways an admission can end.
type Reason string

const (
	ReasonBooked         Reason = "booked"
	ReasonInvalid        Reason = "invalid"
	ReasonNoAvailability Reason = "no_availability"
	ReasonLedgerFault    Reason = "ledger_fault"
)

// Outcome is the result of a booking submission. Every submission produces one.
type Outcome struct {
	Success bool
	Reason  Reason
	Message string
	Booking *BookingRecord
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DayAvailability is one cell of the availability calendar.
type DayAvailability struct {
	Date      time.Time
	Available int
}
