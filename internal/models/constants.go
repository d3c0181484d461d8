package models

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	GroundFull = "full"
	GroundHalf = "half"
)

// Ground units bookable per hour.
const (
	UnitFull  = "full"
	UnitHalf1 = "half1"
	UnitHalf2 = "half2"
)

const (
	PaymentCash   = "cash"
	PaymentOnline = "online"
	PaymentUPI    = "upi"
)

const (
	// FirstHour and LastHour bound the bookable day, both inclusive.
	FirstHour   = 6
	LastHour    = 23
	HoursPerDay = LastHour - FirstHour + 1

	// MaxSlotsPerBooking caps the length of one contiguous booking.
	MaxSlotsPerBooking = 6

	// MaxAdvanceDays is how far ahead a date may be booked, inclusive.
	MaxAdvanceDays = 90

	PriceFullPerHour = 2000
	PriceHalfPerHour = 1000

	// DaysPerYear is the horizon used for slot capacity in admin stats.
	DaysPerYear = 365

	// RateLimitBookings booking attempts per client in one window
	RateLimitBookings = 10
	RateLimitWindow   = time.Minute
)

// DateLayout is the only accepted wire format for calendar dates.
const DateLayout = "2006-01-02"

// GroundUnits lists units in allocation preference order.
var GroundUnits = []string{UnitFull, UnitHalf1, UnitHalf2}

var PaymentMethods = []string{PaymentCash, PaymentOnline, PaymentUPI}

// PricePerHour returns 0 for an unknown ground type.
func PricePerHour(groundType string) int64 {
	switch groundType {
	case GroundFull:
		return PriceFullPerHour
	case GroundHalf:
		return PriceHalfPerHour
	default:
		return 0
	}
}

func IsValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

func IsValidUnit(unit string) bool {
	return unit == UnitFull || unit == UnitHalf1 || unit == UnitHalf2
}
