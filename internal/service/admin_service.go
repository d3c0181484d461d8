package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"arena/internal/allocation"
	"arena/internal/calendar"
	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/export"
	"arena/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRange       = errors.New("invalid export range")
)

const (
	tokenPrefix   = "admin-"
	maxExportDays = 366
)

// AdminService serves dashboard aggregates and issues admin session tokens.
type AdminService struct {
	repo          domain.Repository
	cal           *calendar.Calendar
	cfg           config.AdminConfig
	maxAdvanceDay int
	logger        *zerolog.Logger

	mu     sync.Mutex
	tokens map[string]time.Time
}

func NewAdminService(repo domain.Repository, cal *calendar.Calendar, cfg config.AdminConfig, maxAdvanceDays int, logger *zerolog.Logger) *AdminService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.MaxAdvanceDays
	}
	return &AdminService{
		repo:          repo,
		cal:           cal,
		cfg:           cfg,
		maxAdvanceDay: maxAdvanceDays,
		logger:        logger,
		tokens:        make(map[string]time.Time),
	}
}

// Login checks the static credentials and returns a fresh session token.
func (s *AdminService) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	if !userOK || !passOK {
		s.logger.Warn().Str("username", username).Msg("admin login rejected")
		return "", ErrInvalidCredentials
	}

	token := tokenPrefix + uuid.NewString()
	now := s.cal.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for t, exp := range s.tokens {
		if now.After(exp) {
			delete(s.tokens, t)
		}
	}
	s.tokens[token] = now.Add(s.cfg.TokenTTL)
	return token, nil
}

func (s *AdminService) ValidateToken(token string) bool {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, tokenPrefix) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.cal.Now().After(exp) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Stats counts confirmed bookings against a year of slot capacity.
func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	booked, err := s.repo.CountBookedSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("count booked slots: %w", err)
	}
	contacts, err := s.repo.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	total := models.HoursPerDay * len(models.GroundUnits) * models.DaysPerYear
	stats := &models.Stats{
		TotalAvailableSlots: total,
		TotalBookedSlots:    booked,
		RemainingSlots:      total - booked,
	}
	for _, b := range bookings {
		if b.Status != models.StatusConfirmed {
			continue
		}
		stats.TotalBookings++
		if b.IsWeekend {
			stats.WeekendBookings++
		} else {
			stats.WeekdayBookings++
		}
		switch b.GroundType {
		case models.GroundFull:
			stats.TotalFullGroundBookings++
		case models.GroundHalf:
			stats.TotalHalfGroundBookings++
		}
	}

	cs := contactStats(contacts)
	stats.TotalContactSubmissions = cs.TotalContacts
	stats.TotalEmails = cs.TotalEmails
	stats.TotalPhones = cs.TotalPhones
	stats.EmailList = cs.EmailList
	stats.PhoneList = cs.PhoneList
	return stats, nil
}

// Revenue sums confirmed booking totals. Period buckets go by creation time.
func (s *AdminService) Revenue(ctx context.Context) (*models.Revenue, error) {
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	now := s.cal.Now()
	todayStart, tomorrow := s.cal.DayRange(now)
	weekStart := s.cal.StartOfWeek(now)
	monthStart := s.cal.StartOfMonth(now)

	rev := &models.Revenue{}
	for _, b := range bookings {
		if b.Status != models.StatusConfirmed {
			continue
		}
		price := b.TotalPrice
		created := b.CreatedAt

		rev.Total += price
		if !created.Before(todayStart) && created.Before(tomorrow) {
			rev.Today += price
		}
		if !created.Before(weekStart) {
			rev.Weekly += price
		}
		if !created.Before(monthStart) {
			rev.Monthly += price
		}
		if b.IsWeekend {
			rev.WeekendOnly += price
		}
		switch b.GroundType {
		case models.GroundFull:
			rev.FullGround += price
		case models.GroundHalf:
			rev.HalfGround += price
		}
	}
	return rev, nil
}

// ExportBookings writes bookings dated within [from, to] as xlsx.
// A blank from means the start of this month; a blank to means the end of the booking window.
func (s *AdminService) ExportBookings(ctx context.Context, rawFrom, rawTo string, w io.Writer) (string, error) {
	today := s.cal.Today()

	from := s.cal.StartOfMonth(today)
	if strings.TrimSpace(rawFrom) != "" {
		var err error
		if from, err = s.cal.Parse(rawFrom); err != nil {
			return "", allocation.NewValidationError(err)
		}
	}
	to := today.AddDate(0, 0, s.maxAdvanceDay)
	if strings.TrimSpace(rawTo) != "" {
		var err error
		if to, err = s.cal.Parse(rawTo); err != nil {
			return "", allocation.NewValidationError(err)
		}
	}
	if to.Before(from) {
		return "", allocation.NewValidationError(fmt.Errorf("%w: %s is after %s", ErrInvalidRange, s.cal.Key(from), s.cal.Key(to)))
	}
	if to.After(from.AddDate(0, 0, maxExportDays)) {
		return "", allocation.NewValidationError(fmt.Errorf("%w: at most %d days", ErrInvalidRange, maxExportDays))
	}

	bookings, err := s.repo.GetBookingsByDateRange(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("load bookings for export: %w", err)
	}

	f, err := export.Workbook(bookings, from, to)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info().
		Str("from", s.cal.Key(from)).
		Str("to", s.cal.Key(to)).
		Int("bookings", len(bookings)).
		Msg("bookings exported")
	return export.FileName(from, to), nil
}
