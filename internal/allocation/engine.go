// Package allocation decides whether a set of hours can be booked on a
// ground and which ground units the booking occupies. It holds no state;
// callers supply the current occupancy of the date and must apply the
// resulting plan atomically.
package allocation

import (
	"fmt"
	"sort"
	"strings"

	"arena/internal/calendar"
	"arena/internal/models"
)

// Request is a normalized booking selection: explicit slots or a start hour with a duration.
type Request struct {
	GroundType    string
	SelectedSlots []string
	StartSlot     string
	Hours         int
}

// HourState holds the booked flags of one hour's ground units.
type HourState struct {
	Full  bool
	Half1 bool
	Half2 bool
}

// Occupancy maps hour of day to the units booked at that hour.
type Occupancy map[int]HourState

// OccupancyFromSlots builds the occupancy of a date from its booked slots.
func OccupancyFromSlots(slots []*models.Slot) Occupancy {
	occ := make(Occupancy, models.HoursPerDay)
	for _, s := range slots {
		if s == nil || !s.IsBooked {
			continue
		}
		st := occ[s.Hour]
		switch s.GroundType {
		case models.UnitFull:
			st.Full = true
		case models.UnitHalf1:
			st.Half1 = true
		case models.UnitHalf2:
			st.Half2 = true
		}
		occ[s.Hour] = st
	}
	return occ
}

// Reservation is one ground unit held for one hour.
type Reservation struct {
	Hour  int
	Label string
	Unit  string
}

// Plan is the set of reservations a booking takes and its total price.
type Plan struct {
	GroundType   string
	Reservations []Reservation
	TotalPrice   int64
}

func (p *Plan) Hours() int {
	return len(p.Reservations)
}

func (p *Plan) Labels() []string {
	labels := make([]string, len(p.Reservations))
	for i, r := range p.Reservations {
		labels[i] = r.Label
	}
	return labels
}

func (p *Plan) StartSlot() string {
	if len(p.Reservations) == 0 {
		return ""
	}
	return p.Reservations[0].Label
}

// Normalize validates the hour selection of req and returns its hours in
// ascending order. An explicit slot list takes precedence over start+hours.
func Normalize(req Request) ([]int, error) {
	if req.GroundType != models.GroundFull && req.GroundType != models.GroundHalf {
		return nil, invalid(fmt.Errorf("%w: %q", ErrInvalidGroundType, req.GroundType))
	}

	var hours []int
	if len(req.SelectedSlots) > 0 {
		var err error
		if hours, err = parseSelection(req.SelectedSlots); err != nil {
			return nil, err
		}
	} else {
		var err error
		if hours, err = expandRange(req.StartSlot, req.Hours); err != nil {
			return nil, err
		}
	}

	for i := 1; i < len(hours); i++ {
		if hours[i]-hours[i-1] != 1 {
			return nil, invalid(ErrNotContiguous)
		}
	}
	return hours, nil
}

func parseSelection(labels []string) ([]int, error) {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		key := strings.TrimSpace(l)
		if _, dup := seen[key]; dup {
			return nil, invalid(ErrDuplicateSlots)
		}
		seen[key] = struct{}{}
	}
	if len(labels) > models.MaxSlotsPerBooking {
		return nil, invalid(ErrTooManySlots)
	}

	hours := make([]int, 0, len(labels))
	for _, l := range labels {
		h, err := calendar.ParseHourLabel(l)
		if err != nil {
			return nil, invalid(err)
		}
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours, nil
}

func expandRange(start string, count int) ([]int, error) {
	if strings.TrimSpace(start) == "" || count < 1 {
		return nil, invalid(ErrMissingSelection)
	}
	if count > models.MaxSlotsPerBooking {
		return nil, invalid(ErrTooManySlots)
	}
	first, err := calendar.ParseHourLabel(start)
	if err != nil {
		return nil, invalid(err)
	}
	if first+count-1 > models.LastHour {
		return nil, invalid(ErrOverflow)
	}

	hours := make([]int, count)
	for i := range hours {
		hours[i] = first + i
	}
	return hours, nil
}

// Conflicts returns labels of the hours that cannot take another booking of groundType.
// A full booking needs the full unit; a half booking needs either half unit.
func Conflicts(groundType string, hours []int, occ Occupancy) []string {
	var out []string
	for _, h := range hours {
		st := occ[h]
		taken := st.Full
		if groundType == models.GroundHalf {
			taken = st.Half1 && st.Half2
		}
		if taken {
			out = append(out, calendar.HourLabel(h))
		}
	}
	return out
}

// Assign builds the reservation plan for hours, or a *ConflictError when any hour is taken.
// Half bookings take half1 whenever it is free, otherwise half2.
func Assign(groundType string, hours []int, occ Occupancy) (*Plan, error) {
	if len(hours) == 0 {
		return nil, invalid(ErrMissingSelection)
	}
	if unavailable := Conflicts(groundType, hours, occ); len(unavailable) > 0 {
		return nil, &ConflictError{GroundType: groundType, Unavailable: unavailable}
	}

	plan := &Plan{
		GroundType:   groundType,
		Reservations: make([]Reservation, 0, len(hours)),
		TotalPrice:   Price(groundType, len(hours)),
	}
	for _, h := range hours {
		unit := models.UnitFull
		if groundType == models.GroundHalf {
			unit = models.UnitHalf1
			if occ[h].Half1 {
				unit = models.UnitHalf2
			}
		}
		plan.Reservations = append(plan.Reservations, Reservation{
			Hour:  h,
			Label: calendar.HourLabel(h),
			Unit:  unit,
		})
	}
	return plan, nil
}

// Allocate normalizes req and assigns it against occ in one step.
func Allocate(req Request, occ Occupancy) (*Plan, error) {
	hours, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	return Assign(req.GroundType, hours, occ)
}

// Price is the hourly rate of groundType times hours.
func Price(groundType string, hours int) int64 {
	return models.PricePerHour(groundType) * int64(hours)
}
