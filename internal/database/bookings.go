package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"arena/internal/allocation"
	"arena/internal/domain"
	"arena/internal/models"
)

const bookingColumns = `id, full_name, phone_number, email, ground_type, date, time_slot, hours, slots,
    payment_method, photo_url, total_price, status, is_weekend, created_at, updated_at`

// CreateBookingWithSlots checks the day's slots, inserts the booking and
// reserves its units inside one transaction.
func (db *DB) CreateBookingWithSlots(ctx context.Context, booking *models.Booking, hours []int) (*allocation.Plan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	key := db.dateKey(booking.Date)
	slots, err := db.listSlots(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read slots in tx: %w", err)
	}

	plan, err := allocation.Assign(booking.GroundType, hours, allocation.OccupancyFromSlots(slots))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	booking.TimeSlot = plan.StartSlot()
	booking.Hours = plan.Hours()
	booking.Slots = plan.Labels()
	booking.TotalPrice = plan.TotalPrice
	if booking.Status == "" {
		booking.Status = models.StatusConfirmed
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (
                full_name, phone_number, email, ground_type, date, time_slot, hours, slots,
                payment_method, photo_url, total_price, status, is_weekend, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.FullName,
		booking.PhoneNumber,
		booking.Email,
		booking.GroundType,
		key,
		booking.TimeSlot,
		booking.Hours,
		strings.Join(booking.Slots, ","),
		booking.PaymentMethod,
		booking.PhotoURL,
		booking.TotalPrice,
		booking.Status,
		booking.IsWeekend,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	for _, r := range plan.Reservations {
		if err := reserveSlot(ctx, tx, key, r.Hour, r.Unit, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}
	booking.ID = id
	return plan, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return db.getBooking(ctx, db, id)
}

func (db *DB) getBooking(ctx context.Context, q querier, id int64) (*models.Booking, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := db.scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// ListBookings returns every booking, newest first.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC`)
}

// GetBookingsByDateRange returns bookings whose date falls in [start, end].
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE date >= ? AND date <= ? ORDER BY date, time_slot, id`,
		db.dateKey(start), db.dateKey(end))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := db.getBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateTransition(booking.Status, status); err != nil {
		return nil, err
	}
	if booking.Status == status {
		return booking, nil
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`, status, now, id); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	if status == models.StatusCancelled {
		if _, err := releaseBookingSlots(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	booking.Status = status
	booking.UpdatedAt = now
	return booking, nil
}

func (db *DB) scanBooking(r rowScanner) (*models.Booking, error) {
	var (
		b     models.Booking
		key   string
		slots string
	)
	if err := r.Scan(
		&b.ID, &b.FullName, &b.PhoneNumber, &b.Email, &b.GroundType, &key, &b.TimeSlot, &b.Hours, &slots,
		&b.PaymentMethod, &b.PhotoURL, &b.TotalPrice, &b.Status, &b.IsWeekend, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	day, err := db.parseDateKey(key)
	if err != nil {
		return nil, fmt.Errorf("bad booking date %q: %w", key, err)
	}
	b.Date = day
	if slots != "" {
		b.Slots = strings.Split(slots, ",")
	}
	return &b, nil
}
