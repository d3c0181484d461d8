package service

import (
	"context"

	"arena/internal/allocation"
	"arena/internal/calendar"
	"arena/internal/domain"
	"arena/internal/models"

	"github.com/rs/zerolog"
)

type SlotService struct {
	repo       domain.Repository
	cal        *calendar.Calendar
	initOnList bool
	logger     *zerolog.Logger
}

func NewSlotService(repo domain.Repository, cal *calendar.Calendar, initOnList bool, logger *zerolog.Logger) *SlotService {
	return &SlotService{repo: repo, cal: cal, initOnList: initOnList, logger: logger}
}

// InitializeDate creates any missing slots for the day and reports how many were new.
func (s *SlotService) InitializeDate(ctx context.Context, rawDate string) (int, error) {
	day, err := s.cal.Parse(rawDate)
	if err != nil {
		return 0, allocation.NewValidationError(err)
	}

	created, err := s.repo.InitializeDate(ctx, day)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.logger.Info().Str("date", s.cal.Key(day)).Int("created", created).Msg("slots initialized")
	}
	return created, nil
}

// DayGrid renders one row per bookable hour. Units without a stored slot show as free.
func (s *SlotService) DayGrid(ctx context.Context, rawDate string) ([]models.SlotRow, error) {
	day, err := s.cal.Parse(rawDate)
	if err != nil {
		return nil, allocation.NewValidationError(err)
	}

	if s.initOnList {
		if _, err := s.repo.InitializeDate(ctx, day); err != nil {
			return nil, err
		}
	}

	slots, err := s.repo.ListSlotsByDate(ctx, day)
	if err != nil {
		return nil, err
	}

	rows := make([]models.SlotRow, models.HoursPerDay)
	for i := range rows {
		rows[i].Time = calendar.HourLabel(models.FirstHour + i)
	}
	for _, slot := range slots {
		if slot.Hour < models.FirstHour || slot.Hour > models.LastHour {
			continue
		}
		row := &rows[slot.Hour-models.FirstHour]
		state := models.UnitState{Booked: slot.IsBooked, BookingID: slot.BookingID}
		switch slot.GroundType {
		case models.UnitFull:
			row.Full = state
		case models.UnitHalf1:
			row.Half1 = state
		case models.UnitHalf2:
			row.Half2 = state
		}
	}
	return rows, nil
}

func (s *SlotService) UpdateSlot(ctx context.Context, id int64, isBooked bool, bookingID *int64) (*models.Slot, error) {
	slot, err := s.repo.UpdateSlot(ctx, id, isBooked, bookingID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("slot_id", id).Bool("is_booked", slot.IsBooked).Msg("slot updated")
	return slot, nil
}
