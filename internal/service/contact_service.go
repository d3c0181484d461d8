package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"arena/internal/allocation"
	"arena/internal/domain"
	"arena/internal/events"
	"arena/internal/models"

	"github.com/rs/zerolog"
)

var ErrContactIncomplete = errors.New("name and an email or phone number are required")

type ContactService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewContactService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *ContactService {
	return &ContactService{repo: repo, eventBus: eventBus, logger: logger}
}

func (s *ContactService) Submit(ctx context.Context, contact *models.Contact) error {
	if contact == nil {
		return allocation.NewValidationError(ErrContactIncomplete)
	}
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Email = strings.TrimSpace(contact.Email)
	contact.Phone = strings.TrimSpace(contact.Phone)
	contact.Message = strings.TrimSpace(contact.Message)

	if contact.Name == "" || (contact.Email == "" && contact.Phone == "") {
		return allocation.NewValidationError(ErrContactIncomplete)
	}
	if contact.Email != "" {
		if _, err := mail.ParseAddress(contact.Email); err != nil {
			return allocation.NewValidationError(fmt.Errorf("%w: %q", ErrInvalidEmail, contact.Email))
		}
	}

	if err := s.repo.CreateContact(ctx, contact); err != nil {
		return err
	}

	if s.eventBus != nil {
		payload := map[string]any{"contact_id": contact.ID, "name": contact.Name}
		if err := s.eventBus.PublishJSON(events.EventContactSubmitted, payload); err != nil {
			s.logger.Error().Err(err).Int64("contact_id", contact.ID).Msg("publish event error")
		}
	}
	return nil
}

// List returns submissions, newest first.
func (s *ContactService) List(ctx context.Context) ([]*models.Contact, error) {
	return s.repo.ListContacts(ctx)
}

func (s *ContactService) Stats(ctx context.Context) (*models.ContactStats, error) {
	contacts, err := s.repo.ListContacts(ctx)
	if err != nil {
		return nil, err
	}
	return contactStats(contacts), nil
}

func contactStats(contacts []*models.Contact) *models.ContactStats {
	emails := make([]string, 0)
	phones := make([]string, 0)
	for _, c := range contacts {
		emails = append(emails, c.Email)
		phones = append(phones, c.Phone)
	}
	emails = distinct(emails)
	phones = distinct(phones)
	return &models.ContactStats{
		TotalContacts: len(contacts),
		TotalEmails:   len(emails),
		TotalPhones:   len(phones),
		EmailList:     emails,
		PhoneList:     phones,
	}
}

// distinct drops blanks and duplicates and sorts the rest.
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
