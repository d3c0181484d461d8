package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arena/internal/calendar"
	"arena/internal/domain"
	"arena/internal/models"
)

const slotColumns = `id, date, hour, ground_type, is_booked, booking_id, created_at, updated_at`

// InitializeDate creates any missing slot of the day and leaves existing ones untouched.
func (db *DB) InitializeDate(ctx context.Context, day time.Time) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	key := db.dateKey(day)
	now := time.Now()
	created := 0
	for hour := models.FirstHour; hour <= models.LastHour; hour++ {
		for _, unit := range models.GroundUnits {
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO slots (date, hour, ground_type, is_booked, created_at, updated_at)
                 VALUES (?, ?, ?, 0, ?, ?)`,
				key, hour, unit, now, now)
			if err != nil {
				return 0, fmt.Errorf("failed to init slot %s %02d %s: %w", key, hour, unit, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				created += int(n)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit slot init: %w", err)
	}
	return created, nil
}

func (db *DB) ListSlotsByDate(ctx context.Context, day time.Time) ([]*models.Slot, error) {
	return db.listSlots(ctx, db, db.dateKey(day))
}

func (db *DB) listSlots(ctx context.Context, q querier, key string) ([]*models.Slot, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE date = ? ORDER BY hour, ground_type`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.Slot
	for rows.Next() {
		s, err := db.scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (db *DB) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	row := db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id)
	s, err := db.scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return s, nil
}

// UpdateSlot sets the booked flag of a slot directly. Unbooking drops the reference.
func (db *DB) UpdateSlot(ctx context.Context, id int64, isBooked bool, bookingID *int64) (*models.Slot, error) {
	var ref sql.NullInt64
	if isBooked && bookingID != nil {
		ref = sql.NullInt64{Int64: *bookingID, Valid: true}
	}

	res, err := db.ExecContext(ctx,
		`UPDATE slots SET is_booked = ?, booking_id = ?, updated_at = ? WHERE id = ?`,
		isBooked, ref, time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrSlotNotFound
	}
	return db.GetSlot(ctx, id)
}

func (db *DB) ReserveSlot(ctx context.Context, day time.Time, hour int, unit string, bookingID int64) error {
	return reserveSlot(ctx, db, db.dateKey(day), hour, unit, bookingID)
}

func reserveSlot(ctx context.Context, ex execer, key string, hour int, unit string, bookingID int64) error {
	now := time.Now()
	_, err := ex.ExecContext(ctx,
		`INSERT INTO slots (date, hour, ground_type, is_booked, booking_id, created_at, updated_at)
         VALUES (?, ?, ?, 1, ?, ?, ?)
         ON CONFLICT(date, hour, ground_type) DO UPDATE SET
            is_booked = 1,
            booking_id = excluded.booking_id,
            updated_at = excluded.updated_at`,
		key, hour, unit, bookingID, now, now)
	if err != nil {
		return fmt.Errorf("failed to reserve slot %s %02d %s: %w", key, hour, unit, err)
	}
	return nil
}

func (db *DB) ReleaseBookingSlots(ctx context.Context, bookingID int64) (int, error) {
	return releaseBookingSlots(ctx, db, bookingID)
}

func releaseBookingSlots(ctx context.Context, ex execer, bookingID int64) (int, error) {
	res, err := ex.ExecContext(ctx,
		`UPDATE slots SET is_booked = 0, booking_id = NULL, updated_at = ? WHERE booking_id = ?`,
		time.Now(), bookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to release slots of booking %d: %w", bookingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (db *DB) CountBookedSlots(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots WHERE is_booked = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count booked slots: %w", err)
	}
	return count, nil
}

func (db *DB) scanSlot(r rowScanner) (*models.Slot, error) {
	var (
		s   models.Slot
		key string
		ref sql.NullInt64
	)
	if err := r.Scan(&s.ID, &key, &s.Hour, &s.GroundType, &s.IsBooked, &ref, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	day, err := db.parseDateKey(key)
	if err != nil {
		return nil, fmt.Errorf("bad slot date %q: %w", key, err)
	}
	s.Date = day
	s.TimeSlot = calendar.HourLabel(s.Hour)
	if ref.Valid {
		id := ref.Int64
		s.BookingID = &id
	}
	return &s, nil
}
