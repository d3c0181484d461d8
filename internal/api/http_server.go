package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"arena/internal/allocation"
	"arena/internal/config"
	"arena/internal/domain"
	"arena/internal/metrics"
	"arena/internal/models"
	"arena/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Bookings domain.BookingService
	Slots    domain.SlotService
	Admin    domain.AdminService
	Contacts domain.ContactService
	// Ready reports whether storage is reachable.
	Ready func(ctx context.Context) error
}

// HTTPServer exposes the booking JSON API.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	auth   *AdminAuth
	server *http.Server
	logger zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, admin config.AdminConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:    cfg,
		svc:    svc,
		auth:   NewAdminAuth(svc.Admin, admin.RequireToken),
		logger: base,
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	limiter := newClientLimiter(cfg.RateLimit)
	handler := srv.loggingMiddleware(limiter.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/slots/init/{date}", s.handleInitSlots)
	mux.HandleFunc("GET /api/slots/{date}", s.handleDaySlots)
	mux.HandleFunc("PUT /api/slots/{id}", s.handleUpdateSlot)

	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.HandleFunc("GET /api/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("PUT /api/bookings/{id}", s.handleUpdateBooking)
	mux.HandleFunc("DELETE /api/bookings/{id}", s.handleCancelBooking)

	mux.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("GET /api/admin/stats", s.auth.Wrap(s.handleAdminStats))
	mux.HandleFunc("GET /api/admin/revenue", s.auth.Wrap(s.handleAdminRevenue))
	mux.HandleFunc("GET /api/admin/export", s.auth.Wrap(s.handleAdminExport))

	mux.HandleFunc("POST /api/contact", s.handleSubmitContact)
	mux.HandleFunc("GET /api/contact", s.handleListContacts)
	mux.HandleFunc("GET /api/contact/stats", s.handleContactStats)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(route, recorder.status, dur.Seconds())

		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", clientKey(r)).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"success": false, "message": message})
}

// writeServiceError maps service errors onto status codes. Unclassified
// errors are storage failures and surface as 500 with their text.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if conflict, ok := allocation.AsConflict(err); ok {
		msg := "One or more selected slots are already booked"
		if conflict.GroundType == models.GroundHalf {
			msg = "No half ground slots available for selected time"
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":          false,
			"message":          msg,
			"unavailableSlots": conflict.Unavailable,
		})
		return
	}

	switch {
	case allocation.IsValidation(err):
		writeError(w, http.StatusBadRequest, capitalize(err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, repository.ErrLockTimeout):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"message": "Booking system is busy, please retry",
			"error":   err.Error(),
		})
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg(message)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": message,
			"error":   err.Error(),
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func capitalize(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
