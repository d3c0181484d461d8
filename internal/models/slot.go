package models

import "time"

type Slot struct {
	ID         int64     `json:"id"`
	Date       time.Time `json:"date"`
	Hour       int       `json:"hour"`
	TimeSlot   string    `json:"timeSlot"`
	GroundType string    `json:"groundType"` // full, half1, half2
	IsBooked   bool      `json:"isBooked"`
	BookingID  *int64    `json:"bookingId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UnitState is one ground unit within an hour row of the day grid.
type UnitState struct {
	Booked    bool   `json:"booked"`
	BookingID *int64 `json:"bookingId"`
}

type SlotRow struct {
	Time  string    `json:"time"`
	Full  UnitState `json:"full"`
	Half1 UnitState `json:"half1"`
	Half2 UnitState `json:"half2"`
}
