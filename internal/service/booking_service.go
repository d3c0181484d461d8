package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"arena/internal/allocation"
	"arena/internal/calendar"
	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/events"
	"arena/internal/metrics"
	"arena/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrMissingFields        = errors.New("missing required booking fields")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidEmail         = errors.New("invalid email address")
)

const (
	allocationLockPrefix = "alloc:"
	defaultLockTTL       = 5 * time.Second
)

type BookingService struct {
	repo     domain.Repository
	coord    domain.Coordinator
	eventBus domain.EventPublisher
	cal      *calendar.Calendar
	cfg      config.BookingConfig
	logger   *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	coord domain.Coordinator,
	eventBus domain.EventPublisher,
	cal *calendar.Calendar,
	cfg config.BookingConfig,
	logger *zerolog.Logger,
) *BookingService {
	if cfg.MaxAdvanceDays <= 0 {
		cfg.MaxAdvanceDays = models.MaxAdvanceDays
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = models.RateLimitBookings
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = models.RateLimitWindow
	}
	return &BookingService{
		repo:     repo,
		coord:    coord,
		eventBus: eventBus,
		cal:      cal,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateBooking validates req, allocates its hours and stores the booking.
// Allocation for one date runs under a per-date lock.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	booking, hours, err := s.prepare(req)
	if err != nil {
		groundType := ""
		if req != nil {
			groundType = req.GroundType
		}
		metrics.IncBookingAttempt(groundType, metrics.OutcomeInvalid)
		return nil, err
	}

	release, err := s.lockDate(ctx, s.cal.Key(booking.Date))
	if err != nil {
		metrics.IncBookingAttempt(booking.GroundType, metrics.OutcomeError)
		return nil, err
	}
	defer release()

	plan, err := s.repo.CreateBookingWithSlots(ctx, booking, hours)
	if err != nil {
		if conflict, ok := allocation.AsConflict(err); ok {
			metrics.IncBookingAttempt(booking.GroundType, metrics.OutcomeConflict)
			s.logger.Info().
				Str("date", s.cal.Key(booking.Date)).
				Str("ground_type", booking.GroundType).
				Strs("unavailable", conflict.Unavailable).
				Msg("booking conflict")
			return nil, err
		}
		metrics.IncBookingAttempt(booking.GroundType, metrics.OutcomeError)
		return nil, err
	}

	metrics.IncBookingAttempt(booking.GroundType, metrics.OutcomeCreated)
	metrics.AddBookedHours(booking.GroundType, plan.Hours())

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("date", s.cal.Key(booking.Date)).
		Str("ground_type", booking.GroundType).
		Strs("slots", booking.Slots).
		Int64("total_price", booking.TotalPrice).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, booking, "")
	return booking, nil
}

// prepare turns the submitted form into a booking shell and its hour list.
func (s *BookingService) prepare(req *models.BookingRequest) (*models.Booking, []int, error) {
	if req == nil {
		return nil, nil, allocation.NewValidationError(ErrMissingFields)
	}

	fullName := strings.TrimSpace(req.FullName)
	phone := strings.TrimSpace(req.PhoneNumber)
	email := strings.TrimSpace(req.Email)
	payment := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	hasSelection := len(req.SelectedSlots) > 0 || (strings.TrimSpace(req.TimeSlot) != "" && req.Hours != 0)

	if fullName == "" || phone == "" || email == "" || req.GroundType == "" ||
		strings.TrimSpace(req.Date) == "" || !hasSelection || payment == "" {
		return nil, nil, allocation.NewValidationError(ErrMissingFields)
	}
	if !models.IsValidPaymentMethod(payment) {
		return nil, nil, allocation.NewValidationError(fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, allocation.NewValidationError(fmt.Errorf("%w: %q", ErrInvalidEmail, email))
	}

	day, err := s.cal.Parse(req.Date)
	if err != nil {
		return nil, nil, allocation.NewValidationError(err)
	}
	if err := s.cal.CheckWindow(day, s.cfg.MaxAdvanceDays); err != nil {
		return nil, nil, allocation.NewValidationError(err)
	}

	hours, err := allocation.Normalize(allocation.Request{
		GroundType:    req.GroundType,
		SelectedSlots: req.SelectedSlots,
		StartSlot:     req.TimeSlot,
		Hours:         req.Hours,
	})
	if err != nil {
		return nil, nil, err
	}

	return &models.Booking{
		FullName:      fullName,
		PhoneNumber:   phone,
		Email:         email,
		GroundType:    req.GroundType,
		Date:          day,
		PaymentMethod: payment,
		PhotoURL:      strings.TrimSpace(req.PhotoURL),
		Status:        models.StatusConfirmed,
		IsWeekend:     s.cal.IsWeekend(day),
	}, hours, nil
}

func (s *BookingService) lockDate(ctx context.Context, day string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTTL)
	defer cancel()

	release, err := s.coord.Acquire(lockCtx, allocationLockPrefix+day, s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire allocation lock for %s: %w", day, err)
	}
	return release, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// ListBookings returns all bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.ListBookings(ctx)
}

// UpdateStatus moves a booking to status. Moving to cancelled releases its slots.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsValidStatus(status) {
		return nil, allocation.NewValidationError(fmt.Errorf("%w: %q", models.ErrInvalidStatus, status))
	}

	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}

	updated, err := s.repo.UpdateBookingStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) || errors.Is(err, models.ErrInvalidStatus) {
			return nil, allocation.NewValidationError(err)
		}
		return nil, err
	}

	eventType := events.EventBookingStatusChanged
	if status == models.StatusCancelled {
		eventType = events.EventBookingCancelled
		metrics.IncCancellation()
	}

	s.logger.Info().
		Int64("booking_id", id).
		Str("from", current.Status).
		Str("to", status).
		Msg("booking status changed")

	s.publishEvent(eventType, updated, current.Status)
	return updated, nil
}

// CancelBooking is idempotent: cancelling twice returns the cancelled booking.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.UpdateStatus(ctx, id, models.StatusCancelled)
}

// AllowBookingAttempt applies the per-client booking rate limit.
func (s *BookingService) AllowBookingAttempt(ctx context.Context, clientKey string) (bool, error) {
	return s.coord.CheckRateLimit(ctx, "booking:"+clientKey, s.cfg.RateLimitRequests, s.cfg.RateLimitWindow)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, previousStatus string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:      booking.ID,
		GroundType:     booking.GroundType,
		Date:           s.cal.Key(booking.Date),
		Slots:          booking.Slots,
		Status:         booking.Status,
		PreviousStatus: previousStatus,
		TotalPrice:     booking.TotalPrice,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
