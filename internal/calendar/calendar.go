// Package calendar turns wire dates into local calendar days and answers
// window questions about them. A day is always represented by its local
// midnight in the configured location.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"arena/internal/models"
)

var (
	ErrInvalidDate = errors.New("invalid date format; expected YYYY-MM-DD")
	ErrPastDate    = errors.New("date is in the past")
	ErrDateTooFar  = errors.New("date is beyond the advance booking window")
	ErrInvalidHour = errors.New("invalid time slot; expected HH:00 between 06:00 and 23:00")
)

type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, now: time.Now}
}

// WithClock returns a copy that reads the current time from now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Parse accepts only YYYY-MM-DD and returns local midnight of that day.
func (c *Calendar) Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(models.DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	day, err := time.ParseInLocation(models.DateLayout, raw, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return day, nil
}

func (c *Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// DayRange returns the half-open interval [start, end) covering the day of t.
func (c *Calendar) DayRange(t time.Time) (start, end time.Time) {
	start = c.StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

func (c *Calendar) Today() time.Time {
	return c.StartOfDay(c.Now())
}

// StartOfWeek returns the most recent Sunday midnight at or before t.
func (c *Calendar) StartOfWeek(t time.Time) time.Time {
	day := c.StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func (c *Calendar) StartOfMonth(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, c.loc)
}

func (c *Calendar) Key(t time.Time) string {
	return t.In(c.loc).Format(models.DateLayout)
}

func (c *Calendar) IsWeekend(t time.Time) bool {
	wd := t.In(c.loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// CheckWindow reports whether day lies in [today, today+maxDays].
func (c *Calendar) CheckWindow(day time.Time, maxDays int) error {
	day = c.StartOfDay(day)
	today := c.Today()
	if day.Before(today) {
		return ErrPastDate
	}
	if day.After(today.AddDate(0, 0, maxDays)) {
		return fmt.Errorf("%w: at most %d days ahead", ErrDateTooFar, maxDays)
	}
	return nil
}

func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// ParseHourLabel parses an HH:00 label within the bookable day.
func ParseHourLabel(label string) (int, error) {
	label = strings.TrimSpace(label)
	if len(label) != 5 || label[2] != ':' || label[3:] != "00" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHour, label)
	}
	hour, err := strconv.Atoi(label[:2])
	if err != nil || label[0] == '+' || label[0] == '-' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHour, label)
	}
	if hour < models.FirstHour || hour > models.LastHour {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHour, label)
	}
	return hour, nil
}

// DayHours lists every bookable hour label in order.
func DayHours() []string {
	labels := make([]string, 0, models.HoursPerDay)
	for h := models.FirstHour; h <= models.LastHour; h++ {
		labels = append(labels, HourLabel(h))
	}
	return labels
}
