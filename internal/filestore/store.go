// Package filestore is the process-local storage backend. All state lives
// in memory behind one lock and is written to a JSON file after every
// mutation, so a restart picks up where the previous process stopped.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"arena/internal/allocation"
	"arena/internal/calendar"
	"arena/internal/domain"
	"arena/internal/models"

	"github.com/rs/zerolog"
)

var errClosed = errors.New("file store is closed")

type document struct {
	SlotCounter    int64             `json:"slotCounter"`
	BookingCounter int64             `json:"bookingCounter"`
	ContactCounter int64             `json:"contactCounter"`
	Slots          []*models.Slot    `json:"slots"`
	Bookings       []*models.Booking `json:"bookings"`
	Contacts       []*models.Contact `json:"contacts"`
}

type slotKey struct {
	date string
	hour int
	unit string
}

type Store struct {
	mu     sync.RWMutex
	path   string
	loc    *time.Location
	logger *zerolog.Logger
	closed bool

	slotCounter    int64
	bookingCounter int64
	contactCounter int64

	slots    map[slotKey]*models.Slot
	slotByID map[int64]*models.Slot
	bookings map[int64]*models.Booking
	contacts []*models.Contact
}

// New loads the store from path. An empty path keeps everything in memory only.
func New(path string, loc *time.Location, logger *zerolog.Logger) (*Store, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Store{
		path:     path,
		loc:      loc,
		logger:   logger,
		slots:    make(map[slotKey]*models.Slot),
		slotByID: make(map[int64]*models.Slot),
		bookings: make(map[int64]*models.Booking),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	logger.Info().
		Str("path", path).
		Int("slots", len(s.slots)).
		Int("bookings", len(s.bookings)).
		Msg("File store initialized")
	return s, nil
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode store file %s: %w", s.path, err)
	}

	s.slotCounter = doc.SlotCounter
	s.bookingCounter = doc.BookingCounter
	s.contactCounter = doc.ContactCounter
	for _, slot := range doc.Slots {
		if slot == nil {
			continue
		}
		slot.Date = s.startOfDay(slot.Date)
		slot.TimeSlot = calendar.HourLabel(slot.Hour)
		s.slots[s.keyOf(slot.Date, slot.Hour, slot.GroundType)] = slot
		s.slotByID[slot.ID] = slot
		s.slotCounter = max(s.slotCounter, slot.ID)
	}
	for _, b := range doc.Bookings {
		if b == nil {
			continue
		}
		b.Date = s.startOfDay(b.Date)
		s.bookings[b.ID] = b
		s.bookingCounter = max(s.bookingCounter, b.ID)
	}
	for _, c := range doc.Contacts {
		if c == nil {
			continue
		}
		s.contacts = append(s.contacts, c)
		s.contactCounter = max(s.contactCounter, c.ID)
	}
	return nil
}

// persist writes the whole document; callers hold the write lock.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	doc := document{
		SlotCounter:    s.slotCounter,
		BookingCounter: s.bookingCounter,
		ContactCounter: s.contactCounter,
		Slots:          make([]*models.Slot, 0, len(s.slotByID)),
		Bookings:       make([]*models.Booking, 0, len(s.bookings)),
		Contacts:       s.contacts,
	}
	for _, slot := range s.slotByID {
		doc.Slots = append(doc.Slots, slot)
	}
	sort.Slice(doc.Slots, func(i, j int) bool { return doc.Slots[i].ID < doc.Slots[j].ID })
	for _, b := range s.bookings {
		doc.Bookings = append(doc.Bookings, b)
	}
	sort.Slice(doc.Bookings, func(i, j int) bool { return doc.Bookings[i].ID < doc.Bookings[j].ID })

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// journal holds the inverse of every in-memory change made by one mutation.
type journal []func()

func (j *journal) record(undo func()) {
	*j = append(*j, undo)
}

func (j journal) revert() {
	for i := len(j) - 1; i >= 0; i-- {
		j[i]()
	}
}

// touchSlot remembers the current state of slot before it is modified.
func (j *journal) touchSlot(slot *models.Slot) {
	prev := *copySlot(slot)
	j.record(func() { *slot = prev })
}

// commit persists the store. On failure the journal is reverted, so memory
// never holds state that is not on disk.
func (s *Store) commit(op string, j journal) error {
	if err := s.persist(); err != nil {
		j.revert()
		s.logger.Error().Err(err).Str("op", op).Int("reverted", len(j)).Msg("Failed to persist file store")
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Store) keyOf(day time.Time, hour int, unit string) slotKey {
	return slotKey{date: day.In(s.loc).Format(models.DateLayout), hour: hour, unit: unit}
}

func (s *Store) newSlot(j *journal, day time.Time, hour int, unit string, now time.Time) *models.Slot {
	counter := s.slotCounter
	s.slotCounter++
	slot := &models.Slot{
		ID:         s.slotCounter,
		Date:       s.startOfDay(day),
		Hour:       hour,
		TimeSlot:   calendar.HourLabel(hour),
		GroundType: unit,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	key := s.keyOf(day, hour, unit)
	s.slots[key] = slot
	s.slotByID[slot.ID] = slot
	j.record(func() {
		delete(s.slots, key)
		delete(s.slotByID, slot.ID)
		s.slotCounter = counter
	})
	return slot
}

func (s *Store) InitializeDate(_ context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed
	}

	var j journal
	now := time.Now()
	created := 0
	for hour := models.FirstHour; hour <= models.LastHour; hour++ {
		for _, unit := range models.GroundUnits {
			if _, ok := s.slots[s.keyOf(day, hour, unit)]; ok {
				continue
			}
			s.newSlot(&j, day, hour, unit, now)
			created++
		}
	}
	if created == 0 {
		return 0, nil
	}
	if err := s.commit("init_date", j); err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Store) ListSlotsByDate(_ context.Context, day time.Time) ([]*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	return s.slotsOf(day), nil
}

// slotsOf returns copies ordered by hour then unit.
func (s *Store) slotsOf(day time.Time) []*models.Slot {
	var out []*models.Slot
	for hour := models.FirstHour; hour <= models.LastHour; hour++ {
		for _, unit := range models.GroundUnits {
			if slot, ok := s.slots[s.keyOf(day, hour, unit)]; ok {
				out = append(out, copySlot(slot))
			}
		}
	}
	return out
}

func (s *Store) GetSlot(_ context.Context, id int64) (*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	slot, ok := s.slotByID[id]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	return copySlot(slot), nil
}

func (s *Store) UpdateSlot(_ context.Context, id int64, isBooked bool, bookingID *int64) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	slot, ok := s.slotByID[id]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	var j journal
	j.touchSlot(slot)
	slot.IsBooked = isBooked
	slot.BookingID = nil
	if isBooked && bookingID != nil {
		ref := *bookingID
		slot.BookingID = &ref
	}
	slot.UpdatedAt = time.Now()
	if err := s.commit("update_slot", j); err != nil {
		return nil, err
	}
	return copySlot(slot), nil
}

func (s *Store) ReserveSlot(_ context.Context, day time.Time, hour int, unit string, bookingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	var j journal
	s.reserve(&j, day, hour, unit, bookingID, time.Now())
	return s.commit("reserve_slot", j)
}

func (s *Store) reserve(j *journal, day time.Time, hour int, unit string, bookingID int64, now time.Time) {
	slot, ok := s.slots[s.keyOf(day, hour, unit)]
	if ok {
		j.touchSlot(slot)
	} else {
		slot = s.newSlot(j, day, hour, unit, now)
	}
	ref := bookingID
	slot.IsBooked = true
	slot.BookingID = &ref
	slot.UpdatedAt = now
}

func (s *Store) ReleaseBookingSlots(_ context.Context, bookingID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed
	}
	var j journal
	released := s.release(&j, bookingID, time.Now())
	if released == 0 {
		return 0, nil
	}
	if err := s.commit("release_slots", j); err != nil {
		return 0, err
	}
	return released, nil
}

func (s *Store) release(j *journal, bookingID int64, now time.Time) int {
	released := 0
	for _, slot := range s.slotByID {
		if slot.BookingID != nil && *slot.BookingID == bookingID {
			j.touchSlot(slot)
			slot.IsBooked = false
			slot.BookingID = nil
			slot.UpdatedAt = now
			released++
		}
	}
	return released
}

func (s *Store) CountBookedSlots(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed
	}
	count := 0
	for _, slot := range s.slotByID {
		if slot.IsBooked {
			count++
		}
	}
	return count, nil
}

// CreateBookingWithSlots runs the allocation under the store lock, so the
// occupancy it checks is the occupancy it writes to.
func (s *Store) CreateBookingWithSlots(_ context.Context, booking *models.Booking, hours []int) (*allocation.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}

	day := s.startOfDay(booking.Date)
	plan, err := allocation.Assign(booking.GroundType, hours, allocation.OccupancyFromSlots(s.slotsOf(day)))
	if err != nil {
		return nil, err
	}

	var j journal
	counter := s.bookingCounter
	now := time.Now()
	s.bookingCounter++
	stored := copyBooking(booking)
	stored.ID = s.bookingCounter
	stored.Date = day
	stored.TimeSlot = plan.StartSlot()
	stored.Hours = plan.Hours()
	stored.Slots = plan.Labels()
	stored.TotalPrice = plan.TotalPrice
	if stored.Status == "" {
		stored.Status = models.StatusConfirmed
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.bookings[stored.ID] = stored
	j.record(func() {
		delete(s.bookings, stored.ID)
		s.bookingCounter = counter
	})

	for _, r := range plan.Reservations {
		s.reserve(&j, day, r.Hour, r.Unit, stored.ID, now)
	}

	if err := s.commit("create_booking", j); err != nil {
		return nil, err
	}
	*booking = *copyBooking(stored)
	return plan, nil
}

func (s *Store) GetBooking(_ context.Context, id int64) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return copyBooking(b), nil
}

// ListBookings returns every booking, newest first.
func (s *Store) ListBookings(context.Context) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	out := make([]*models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, copyBooking(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetBookingsByDateRange(_ context.Context, start, end time.Time) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	from, to := s.startOfDay(start), s.startOfDay(end)
	var out []*models.Booking
	for _, b := range s.bookings {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, copyBooking(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].TimeSlot != out[j].TimeSlot {
			return out[i].TimeSlot < out[j].TimeSlot
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateBookingStatus(_ context.Context, id int64, status string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if err := models.ValidateTransition(b.Status, status); err != nil {
		return nil, err
	}
	if b.Status == status {
		return copyBooking(b), nil
	}

	var j journal
	prev := copyBooking(b)
	j.record(func() { *b = *prev })

	now := time.Now()
	b.Status = status
	b.UpdatedAt = now
	if status == models.StatusCancelled {
		s.release(&j, id, now)
	}
	if err := s.commit("update_status", j); err != nil {
		return nil, err
	}
	return copyBooking(b), nil
}

func (s *Store) CreateContact(_ context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	var j journal
	counter, n := s.contactCounter, len(s.contacts)
	j.record(func() {
		s.contacts = s.contacts[:n]
		s.contactCounter = counter
	})
	s.contactCounter++
	stored := *contact
	stored.ID = s.contactCounter
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.contacts = append(s.contacts, &stored)
	if err := s.commit("create_contact", j); err != nil {
		return err
	}
	*contact = stored
	return nil
}

// ListContacts returns submissions newest first.
func (s *Store) ListContacts(context.Context) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	out := make([]*models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		cp := *c
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func copySlot(s *models.Slot) *models.Slot {
	cp := *s
	if s.BookingID != nil {
		ref := *s.BookingID
		cp.BookingID = &ref
	}
	return &cp
}

func copyBooking(b *models.Booking) *models.Booking {
	cp := *b
	cp.Slots = append([]string(nil), b.Slots...)
	return &cp
}
