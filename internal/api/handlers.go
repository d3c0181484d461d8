package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arena/internal/allocation"
	"arena/internal/models"
	"arena/internal/service"
)

var errInvalidID = errors.New("invalid id")

// flexInt accepts a JSON number or a numeric string. Blank and null decode to 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*f = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fl, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || fl != float64(int(fl)) {
			return fmt.Errorf("hours must be a whole number, got %s", raw)
		}
		n = int(fl)
	}
	*f = flexInt(n)
	return nil
}

type bookingPayload struct {
	FullName      string   `json:"fullName"`
	PhoneNumber   string   `json:"phoneNumber"`
	Email         string   `json:"email"`
	GroundType    string   `json:"groundType"`
	Date          string   `json:"date"`
	TimeSlot      string   `json:"timeSlot"`
	SelectedSlots []string `json:"selectedSlots"`
	Hours         flexInt  `json:"hours"`
	PaymentMethod string   `json:"paymentMethod"`
	PhotoURL      string   `json:"photoUrl"`
}

func (p bookingPayload) request() *models.BookingRequest {
	return &models.BookingRequest{
		FullName:      p.FullName,
		PhoneNumber:   p.PhoneNumber,
		Email:         p.Email,
		GroundType:    p.GroundType,
		Date:          p.Date,
		TimeSlot:      p.TimeSlot,
		SelectedSlots: p.SelectedSlots,
		Hours:         int(p.Hours),
		PaymentMethod: p.PaymentMethod,
		PhotoURL:      p.PhotoURL,
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, allocation.NewValidationError(fmt.Errorf("%w: %q", errInvalidID, r.PathValue("id")))
	}
	return id, nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		if err := s.svc.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *HTTPServer) handleInitSlots(w http.ResponseWriter, r *http.Request) {
	created, err := s.svc.Slots.InitializeDate(r.Context(), r.PathValue("date"))
	if err != nil {
		s.writeServiceError(w, r, "Error initializing slots", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Slots initialized successfully",
		"created": created,
	})
}

func (s *HTTPServer) handleDaySlots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.PathValue("date"))
	rows, err := s.svc.Slots.DayGrid(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, "Error fetching slots", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"date":    date,
		"slots":   rows,
	})
}

func (s *HTTPServer) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, "Error updating slot", err)
		return
	}

	var body struct {
		IsBooked  *bool  `json:"isBooked"`
		BookingID *int64 `json:"bookingId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.IsBooked == nil {
		writeError(w, http.StatusBadRequest, "isBooked is required")
		return
	}

	slot, err := s.svc.Slots.UpdateSlot(r.Context(), id, *body.IsBooked, body.BookingID)
	if err != nil {
		s.writeServiceError(w, r, "Error updating slot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "slot": slot})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	allowed, err := s.svc.Bookings.AllowBookingAttempt(r.Context(), clientKey(r))
	if err != nil {
		s.logger.Warn().Err(err).Msg("booking rate limit check failed")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "Too many booking attempts, please try again later")
		return
	}

	var body bookingPayload
	if !decodeJSON(w, r, &body) {
		return
	}

	booking, err := s.svc.Bookings.CreateBooking(r.Context(), body.request())
	if err != nil {
		s.writeServiceError(w, r, "Error creating booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Booking created successfully!",
		"booking": booking,
	})
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "Error fetching bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(bookings),
		"bookings": bookings,
	})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, "Error fetching booking", err)
		return
	}
	booking, err := s.svc.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "Error fetching booking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "booking": booking})
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, "Error updating booking", err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Status) == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	booking, err := s.svc.Bookings.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		s.writeServiceError(w, r, "Error updating booking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Booking updated successfully",
		"booking": booking,
	})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, "Error cancelling booking", err)
		return
	}
	booking, err := s.svc.Bookings.CancelBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "Error cancelling booking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Booking cancelled successfully",
		"booking": booking,
	})
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	token, err := s.svc.Admin.Login(body.Username, body.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, "Error during login", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
	})
}

func (s *HTTPServer) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Admin.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "Error fetching statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *HTTPServer) handleAdminRevenue(w http.ResponseWriter, r *http.Request) {
	revenue, err := s.svc.Admin.Revenue(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "Error fetching revenue data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "revenue": revenue})
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var buf bytes.Buffer
	name, err := s.svc.Admin.ExportBookings(r.Context(), q.Get("from"), q.Get("to"), &buf)
	if err != nil {
		s.writeServiceError(w, r, "Error exporting bookings", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleSubmitContact(w http.ResponseWriter, r *http.Request) {
	var contact models.Contact
	if !decodeJSON(w, r, &contact) {
		return
	}
	contact.ID = 0
	contact.CreatedAt = time.Time{}

	if err := s.svc.Contacts.Submit(r.Context(), &contact); err != nil {
		s.writeServiceError(w, r, "Error submitting contact form", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Contact form submitted successfully!",
		"contact": contact,
	})
}

func (s *HTTPServer) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.svc.Contacts.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "Error fetching contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(contacts),
		"contacts": contacts,
	})
}

func (s *HTTPServer) handleContactStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Contacts.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "Error fetching contact statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}
