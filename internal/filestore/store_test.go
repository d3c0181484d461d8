package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"arena/internal/allocation"
	"arena/internal/domain"
	"arena/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ domain.Repository = (*Store)(nil)

var testDay = time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC)

func newStore(t *testing.T, path string) *Store {
	t.Helper()
	logger := zerolog.Nop()
	s, err := New(path, time.UTC, &logger)
	require.NoError(t, err)
	return s
}

func newBooking(ground string) *models.Booking {
	return &models.Booking{
		FullName:      "Asha",
		PhoneNumber:   "9000000001",
		Email:         "asha@example.com",
		GroundType:    ground,
		Date:          testDay,
		PaymentMethod: models.PaymentCash,
	}
}

func TestInitializeDate(t *testing.T) {
	s := newStore(t, "")
	ctx := context.Background()

	created, err := s.InitializeDate(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, 54, created)

	created, err = s.InitializeDate(ctx, testDay.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, created)

	slots, err := s.ListSlotsByDate(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, slots, 54)
	assert.Equal(t, "06:00", slots[0].TimeSlot)
	assert.Equal(t, models.UnitFull, slots[0].GroundType)
	assert.Equal(t, "23:00", slots[53].TimeSlot)
	assert.Equal(t, models.UnitHalf2, slots[53].GroundType)

	other, err := s.ListSlotsByDate(ctx, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.json")
	ctx := context.Background()

	s := newStore(t, path)
	_, err := s.InitializeDate(ctx, testDay)
	require.NoError(t, err)

	booking := newBooking(models.GroundFull)
	_, err = s.CreateBookingWithSlots(ctx, booking, []int{18, 19, 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), booking.ID)
	assert.Equal(t, int64(6000), booking.TotalPrice)

	contact := &models.Contact{Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, s.CreateContact(ctx, contact))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "slotCounter")
	assert.Contains(t, doc, "bookingCounter")
	assert.Contains(t, doc, "slots")
	assert.Contains(t, doc, "bookings")

	reloaded := newStore(t, path)
	got, err := reloaded.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"18:00", "19:00", "20:00"}, got.Slots)
	assert.Equal(t, testDay, got.Date)

	booked, err := reloaded.CountBookedSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, booked)

	next := newBooking(models.GroundHalf)
	_, err = reloaded.CreateBookingWithSlots(ctx, next, []int{6})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)

	contacts, err := reloaded.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ann", contacts[0].Name)
}

func TestScenarioAndCancel(t *testing.T) {
	s := newStore(t, "")
	ctx := context.Background()

	full := newBooking(models.GroundFull)
	_, err := s.CreateBookingWithSlots(ctx, full, []int{18, 19, 20})
	require.NoError(t, err)

	_, err = s.CreateBookingWithSlots(ctx, newBooking(models.GroundFull), []int{19, 20, 21})
	conflict, ok := allocation.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, []string{"19:00", "20:00"}, conflict.Unavailable)

	h1, h2 := newBooking(models.GroundHalf), newBooking(models.GroundHalf)
	p1, err := s.CreateBookingWithSlots(ctx, h1, []int{19})
	require.NoError(t, err)
	p2, err := s.CreateBookingWithSlots(ctx, h2, []int{19})
	require.NoError(t, err)
	assert.Equal(t, models.UnitHalf1, p1.Reservations[0].Unit)
	assert.Equal(t, models.UnitHalf2, p2.Reservations[0].Unit)

	_, err = s.CreateBookingWithSlots(ctx, newBooking(models.GroundHalf), []int{19})
	_, ok = allocation.AsConflict(err)
	assert.True(t, ok)

	cancelled, err := s.UpdateBookingStatus(ctx, h1.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	slots, err := s.ListSlotsByDate(ctx, testDay)
	require.NoError(t, err)
	for _, slot := range slots {
		switch {
		case slot.GroundType == models.UnitHalf1:
			assert.False(t, slot.IsBooked)
		case slot.GroundType == models.UnitHalf2:
			assert.Equal(t, h2.ID, *slot.BookingID)
		default:
			assert.Equal(t, full.ID, *slot.BookingID)
		}
	}

	_, err = s.UpdateBookingStatus(ctx, h1.ID, models.StatusConfirmed)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = s.UpdateBookingStatus(ctx, 999, models.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	all, err := s.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, h2.ID, all[0].ID)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := newStore(t, "")
	ctx := context.Background()

	booking := newBooking(models.GroundFull)
	_, err := s.CreateBookingWithSlots(ctx, booking, []int{7})
	require.NoError(t, err)

	got, err := s.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	got.Status = models.StatusCancelled
	got.Slots[0] = "08:00"

	again, err := s.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, again.Status)
	assert.Equal(t, []string{"07:00"}, again.Slots)
}

func TestSlotUpdateAndRange(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	ctx := context.Background()

	require.NoError(t, s.ReserveSlot(ctx, testDay, 9, models.UnitHalf1, 77))
	slots, err := s.ListSlotsByDate(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, slots, 1)

	updated, err := s.UpdateSlot(ctx, slots[0].ID, false, nil)
	require.NoError(t, err)
	assert.False(t, updated.IsBooked)
	assert.Nil(t, updated.BookingID)

	_, err = s.GetSlot(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := newBooking(models.GroundFull)
	b.Date = testDay.AddDate(0, 0, 2)
	_, err = s.CreateBookingWithSlots(ctx, b, []int{10})
	require.NoError(t, err)

	inRange, err := s.GetBookingsByDateRange(ctx, testDay, testDay.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Len(t, inRange, 1)
	outOfRange, err := s.GetBookingsByDateRange(ctx, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, outOfRange)
}

func TestConcurrentHalfBookings(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateBookingWithSlots(ctx, newBooking(models.GroundHalf), []int{12, 13})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 2, ok)

	booked, err := s.CountBookedSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, booked)
}

func TestClosedStore(t *testing.T) {
	s := newStore(t, "")
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.Error(t, s.Ping(ctx))
	_, err := s.InitializeDate(ctx, testDay)
	assert.Error(t, err)
	_, err = s.ListBookings(ctx)
	assert.Error(t, err)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	logger := zerolog.Nop()
	_, err := New(path, time.UTC, &logger)
	assert.Error(t, err)
}

func TestFailedPersistLeavesStateUntouched(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "store.json")
	ctx := context.Background()

	s := newStore(t, path)
	_, err := s.InitializeDate(ctx, testDay)
	require.NoError(t, err)
	existing := newBooking(models.GroundFull)
	_, err = s.CreateBookingWithSlots(ctx, existing, []int{6, 7})
	require.NoError(t, err)

	slots, err := s.ListSlotsByDate(ctx, testDay)
	require.NoError(t, err)
	freeSlot := slots[len(slots)-1]
	require.False(t, freeSlot.IsBooked)

	// A regular file where the directory was makes every write fail.
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("blocker"), 0o644))

	_, err = s.CreateBookingWithSlots(ctx, newBooking(models.GroundFull), []int{18})
	require.Error(t, err)
	_, err = s.CreateBookingWithSlots(ctx, newBooking(models.GroundFull), []int{10})
	require.Error(t, err)

	_, err = s.UpdateBookingStatus(ctx, existing.ID, models.StatusCancelled)
	require.Error(t, err)

	ref := existing.ID
	_, err = s.UpdateSlot(ctx, freeSlot.ID, true, &ref)
	require.Error(t, err)

	_, err = s.ReleaseBookingSlots(ctx, existing.ID)
	require.Error(t, err)

	_, err = s.InitializeDate(ctx, testDay.AddDate(0, 0, 1))
	require.Error(t, err)

	require.Error(t, s.CreateContact(ctx, &models.Contact{Name: "Ann", Email: "ann@example.com"}))

	bookings, err := s.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.StatusConfirmed, bookings[0].Status)

	booked, err := s.CountBookedSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, booked)

	slot, err := s.GetSlot(ctx, freeSlot.ID)
	require.NoError(t, err)
	assert.False(t, slot.IsBooked)
	assert.Nil(t, slot.BookingID)

	next, err := s.ListSlotsByDate(ctx, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, next)

	contacts, err := s.ListContacts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contacts)

	require.NoError(t, os.Remove(dir))

	retry := newBooking(models.GroundFull)
	_, err = s.CreateBookingWithSlots(ctx, retry, []int{18})
	require.NoError(t, err)
	assert.Equal(t, int64(2), retry.ID)

	reloaded := newStore(t, path)
	booked, err = reloaded.CountBookedSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, booked)
	all, err := reloaded.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
