package domain

import (
	"context"
	"io"
	"time"

	"arena/internal/allocation"
	"arena/internal/models"
)

// Repository is the storage contract shared by the SQLite and file backends.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	InitializeDate(ctx context.Context, day time.Time) (int, error)
	ListSlotsByDate(ctx context.Context, day time.Time) ([]*models.Slot, error)
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	UpdateSlot(ctx context.Context, id int64, isBooked bool, bookingID *int64) (*models.Slot, error)
	ReserveSlot(ctx context.Context, day time.Time, hour int, unit string, bookingID int64) error
	ReleaseBookingSlots(ctx context.Context, bookingID int64) (int, error)
	CountBookedSlots(ctx context.Context) (int, error)

	// CreateBookingWithSlots re-reads the day's occupancy, assigns hours and
	// stores the booking together with its slot reservations as one unit.
	CreateBookingWithSlots(ctx context.Context, booking *models.Booking, hours []int) (*allocation.Plan, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	// UpdateBookingStatus releases the booking's slots when status becomes cancelled.
	UpdateBookingStatus(ctx context.Context, id int64, status string) (*models.Booking, error)

	CreateContact(ctx context.Context, contact *models.Contact) error
	ListContacts(ctx context.Context) ([]*models.Contact, error)
}

// Coordinator serializes work per key and throttles callers.
type Coordinator interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, req *models.BookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*models.Booking, error)
	AllowBookingAttempt(ctx context.Context, clientKey string) (bool, error)
}

type SlotService interface {
	InitializeDate(ctx context.Context, rawDate string) (int, error)
	DayGrid(ctx context.Context, rawDate string) ([]models.SlotRow, error)
	UpdateSlot(ctx context.Context, id int64, isBooked bool, bookingID *int64) (*models.Slot, error)
}

type AdminService interface {
	Login(username, password string) (string, error)
	ValidateToken(token string) bool
	Stats(ctx context.Context) (*models.Stats, error)
	Revenue(ctx context.Context) (*models.Revenue, error)
	// ExportBookings writes an xlsx workbook to w and returns its file name.
	ExportBookings(ctx context.Context, rawFrom, rawTo string, w io.Writer) (string, error)
}

type ContactService interface {
	Submit(ctx context.Context, contact *models.Contact) error
	List(ctx context.Context) ([]*models.Contact, error)
	Stats(ctx context.Context) (*models.ContactStats, error)
}
