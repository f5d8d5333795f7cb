// Package enums holds the string enumerations persisted in the database and
// exchanged over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func parse[T ~string](kind string, set []T, raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

// Currency is an ISO 4217 code. Only rupees are sold today.
type Currency string

const CurrencyINR Currency = "INR"

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return c == CurrencyINR }

func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}

// PaymentStatus tracks a gateway order from creation to signature verification.
// Only created payments may move, and only once.
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusExpired  PaymentStatus = "expired"
)

var paymentStatuses = []PaymentStatus{PaymentStatusCreated, PaymentStatusVerified, PaymentStatusFailed, PaymentStatusExpired}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return slices.Contains(paymentStatuses, p) }

// Terminal reports whether no further transition is allowed.
func (p PaymentStatus) Terminal() bool { return p.IsValid() && p != PaymentStatusCreated }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", paymentStatuses, value)
}

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

var bookingStatuses = []BookingStatus{BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted}

func (b BookingStatus) String() string { return string(b) }

func (b BookingStatus) IsValid() bool { return slices.Contains(bookingStatuses, b) }

func ParseBookingStatus(value string) (BookingStatus, error) {
	return parse("booking status", bookingStatuses, value)
}
