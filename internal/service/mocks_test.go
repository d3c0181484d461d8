package service

import (
	"context"
	"testing"
	"time"

	"arena/internal/allocation"
	"arena/internal/calendar"
	"arena/internal/filestore"
	"arena/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Thursday morning; the 12th is a Saturday.
var testNow = time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)

func testCalendar() *calendar.Calendar {
	return calendar.New(time.UTC).WithClock(func() time.Time { return testNow })
}

func newTestStore(t *testing.T) *filestore.Store {
	t.Helper()
	logger := zerolog.Nop()
	s, err := filestore.New("", time.UTC, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockRepo) Close() error                   { return m.Called().Error(0) }

func (m *mockRepo) InitializeDate(ctx context.Context, day time.Time) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) ListSlotsByDate(ctx context.Context, day time.Time) ([]*models.Slot, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Slot), args.Error(1)
}
func (m *mockRepo) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Slot), args.Error(1)
}
func (m *mockRepo) UpdateSlot(ctx context.Context, id int64, isBooked bool, bookingID *int64) (*models.Slot, error) {
	args := m.Called(ctx, id, isBooked, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Slot), args.Error(1)
}
func (m *mockRepo) ReserveSlot(ctx context.Context, day time.Time, hour int, unit string, bookingID int64) error {
	return m.Called(ctx, day, hour, unit, bookingID).Error(0)
}
func (m *mockRepo) ReleaseBookingSlots(ctx context.Context, bookingID int64) (int, error) {
	args := m.Called(ctx, bookingID)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) CountBookedSlots(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) CreateBookingWithSlots(ctx context.Context, b *models.Booking, hours []int) (*allocation.Plan, error) {
	args := m.Called(ctx, b, hours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Plan), args.Error(1)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBookingsByDateRange(ctx context.Context, s, e time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) UpdateBookingStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) CreateContact(ctx context.Context, c *models.Contact) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockRepo) ListContacts(ctx context.Context) ([]*models.Contact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Contact), args.Error(1)
}

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

func (m *mockCoordinator) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
