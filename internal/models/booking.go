package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidStatus     = errors.New("invalid booking status")
	ErrInvalidTransition = errors.New("booking status transition not allowed")
)

type Booking struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"fullName"`
	PhoneNumber   string    `json:"phoneNumber"`
	Email         string    `json:"email"`
	GroundType    string    `json:"groundType"`
	Date          time.Time `json:"date"`
	TimeSlot      string    `json:"timeSlot"`
	Hours         int       `json:"hours"`
	Slots         []string  `json:"selectedSlots"`
	PaymentMethod string    `json:"paymentMethod"`
	PhotoURL      string    `json:"photoUrl,omitempty"`
	TotalPrice    int64     `json:"totalPrice"`
	Status        string    `json:"status"` // confirmed, pending, cancelled
	IsWeekend     bool      `json:"isWeekend"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ValidateTransition allows any move between known statuses except leaving cancelled.
// Re-applying the current status is a no-op and always allowed.
func ValidateTransition(from, to string) error {
	if !IsValidStatus(to) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from == to {
		return nil
	}
	if from == StatusCancelled {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// BookingRequest is the customer-submitted booking form.
type BookingRequest struct {
	FullName      string   `json:"fullName"`
	PhoneNumber   string   `json:"phoneNumber"`
	Email         string   `json:"email"`
	GroundType    string   `json:"groundType"`
	Date          string   `json:"date"`
	TimeSlot      string   `json:"timeSlot"`
	SelectedSlots []string `json:"selectedSlots"`
	Hours         int      `json:"hours"`
	PaymentMethod string   `json:"paymentMethod"`
	PhotoURL      string   `json:"photoUrl"`
}
