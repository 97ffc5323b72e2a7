package app

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"luxury_hotel/internal/domain"
)

// Validator checks a booking form field by field. It does no I/O and is safe
// for concurrent use.
type Validator struct {
	v       *validator.Validate
	catalog *domain.Catalog
}

// form mirrors domain.BookingForm with the rule set attached. Each field stops
// at its first failing tag.
type form struct {
	FullName string `json:"fullName" validate:"nonblank,fullname"`
	Email    string `json:"email" validate:"nonblank,contains=@"`
	Phone    string `json:"phone" validate:"nonblank,phone_digits,phone_prefix"`
	RoomType string `json:"roomType" validate:"nonblank"`
	Guests   string `json:"guests"`
}

var messages = map[string]map[string]string{
	"fullName": {
		"nonblank": "Full name is required",
		"fullname": "Please enter both first and last name separated by a space",
	},
	"email": {
		"nonblank": "Email address is required",
		"contains": "Please enter a valid email address",
	},
	"phone": {
		"nonblank":     "Phone number is required",
		"phone_digits": "Phone number must be 10 digits",
		"phone_prefix": "Phone number must start with 04",
	},
	"roomType": {
		"nonblank": "Please select a room type",
	},
	"guests": {
		"guest_count": "Please select the number of guests",
	},
}

func NewValidator(c *domain.Catalog) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "fullname", func(fl validator.FieldLevel) bool {
		return strings.Contains(strings.TrimSpace(fl.Field().String()), " ")
	})
	mustRegister(v, "phone_digits", func(fl validator.FieldLevel) bool {
		return len(PhoneDigits(fl.Field().String())) == 10
	})
	mustRegister(v, "phone_prefix", func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(PhoneDigits(fl.Field().String()), "04")
	})

	val := &Validator{v: v, catalog: c}
	v.RegisterStructValidation(val.guests, form{})
	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// guests applies the occupancy limit of the selected room type. Without a
// room type there is nothing to compare against.
func (val *Validator) guests(sl validator.StructLevel) {
	f := sl.Current().Interface().(form)
	if strings.TrimSpace(f.RoomType) == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(f.Guests))
	if err != nil || n < 1 {
		sl.ReportError(f.Guests, "guests", "Guests", "guest_count", "")
		return
	}
	if max := val.catalog.MaxGuests(f.RoomType); n > max {
		sl.ReportError(f.Guests, "guests", "Guests", "max_guests", strconv.Itoa(max))
	}
}

// Validate returns one message per invalid field, keyed by the form's JSON
// field name. An empty map means the form is valid.
func (val *Validator) Validate(in domain.BookingForm) map[string]string {
	out := map[string]string{}
	err := val.v.Struct(form{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		RoomType: in.RoomType,
		Guests:   in.Guests,
	})
	if err == nil {
		return out
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		// only InvalidValidationError is left, which a fixed struct cannot produce
		panic(err)
	}
	for _, fe := range fes {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	if fe.Tag() == "max_guests" {
		return fmt.Sprintf("This room type can accommodate a maximum of %s guests", fe.Param())
	}
	if m, ok := messages[fe.Field()][fe.Tag()]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// PhoneDigits strips everything but ASCII digits.
func PhoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
