// Package export renders bookings into an Excel workbook for the admin.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"arena/internal/calendar"
	"arena/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	gridSheet     = "Schedule"
)

var bookingHeaders = []string{
	"ID", "Date", "Start", "Hours", "Slots", "Ground", "Name", "Phone", "Email",
	"Payment", "Total", "Status", "Weekend", "Created",
}

// FileName is the suggested download name for a period.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// Workbook builds a workbook with a flat booking list and a per-day schedule
// of active bookings between from and to inclusive. Callers close the file.
func Workbook(bookings []*models.Booking, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeBookings(f, bookings); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(gridSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	writeSchedule(f, bookings, from, to)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeBookings(f *excelize.File, bookings []*models.Booking) error {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
	_ = f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle)

	for i, b := range bookings {
		row := []any{
			b.ID,
			b.Date.Format(models.DateLayout),
			b.TimeSlot,
			b.Hours,
			strings.Join(b.Slots, ", "),
			b.GroundType,
			b.FullName,
			b.PhoneNumber,
			b.Email,
			b.PaymentMethod,
			b.TotalPrice,
			b.Status,
			b.IsWeekend,
			b.CreatedAt.Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(bookingsSheet, cell, &row); err != nil {
			return fmt.Errorf("error writing booking %d: %w", b.ID, err)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "D", 10)
	_ = f.SetColWidth(bookingsSheet, "E", "I", 22)
	_ = f.SetColWidth(bookingsSheet, "J", "N", 14)
	return nil
}

// writeSchedule lays out one row per date and one column per hour.
func writeSchedule(f *excelize.File, bookings []*models.Booking, from, to time.Time) {
	hours := calendar.DayHours()
	_ = f.SetCellValue(gridSheet, "A1", "Date")
	for i, h := range hours {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		_ = f.SetCellValue(gridSheet, cell, h)
	}

	byDate := make(map[string][]*models.Booking)
	for _, b := range bookings {
		if !b.IsActive() {
			continue
		}
		key := b.Date.Format(models.DateLayout)
		byDate[key] = append(byDate[key], b)
	}

	busy, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FCE4D6"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	row := 2
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(models.DateLayout)
		dateCell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(gridSheet, dateCell, key)

		cells := make(map[string][]string)
		dayBookings := byDate[key]
		sort.Slice(dayBookings, func(i, j int) bool { return dayBookings[i].ID < dayBookings[j].ID })
		for _, b := range dayBookings {
			for _, slot := range b.Slots {
				cells[slot] = append(cells[slot], fmt.Sprintf("%s #%d %s", b.GroundType, b.ID, b.FullName))
			}
		}
		for i, h := range hours {
			entries, ok := cells[h]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(i+2, row)
			_ = f.SetCellValue(gridSheet, cell, strings.Join(entries, "\n"))
			_ = f.SetCellStyle(gridSheet, cell, cell, busy)
		}
		row++
	}

	_ = f.SetColWidth(gridSheet, "A", "A", 12)
	lastCol, _ := excelize.ColumnNumberToName(len(hours) + 1)
	_ = f.SetColWidth(gridSheet, "B", lastCol, 18)
}
