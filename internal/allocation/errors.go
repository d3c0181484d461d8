package allocation

import (
	"errors"
	"strings"

	"arena/internal/models"
)

var (
	ErrMissingSelection  = errors.New("no time slots selected")
	ErrInvalidGroundType = errors.New("invalid ground type")
	ErrDuplicateSlots    = errors.New("duplicate slots not allowed")
	ErrTooManySlots      = errors.New("at most 6 slots can be booked at once")
	ErrOverflow          = errors.New("selected hours overflow available slot timing (06:00-23:00)")
	ErrNotContiguous     = errors.New("slots must be continuous")
)

// ValidationError marks a request that can never succeed as submitted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps err so callers classify it as a bad request.
func NewValidationError(err error) error {
	return &ValidationError{Err: err}
}

func invalid(err error) error {
	return NewValidationError(err)
}

// ConflictError lists the requested hours that are already taken.
type ConflictError struct {
	GroundType  string
	Unavailable []string
}

func (e *ConflictError) Error() string {
	if e.GroundType == models.GroundHalf {
		return "no half ground slots available for selected time: " + strings.Join(e.Unavailable, ", ")
	}
	return "one or more selected slots are already booked: " + strings.Join(e.Unavailable, ", ")
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AsConflict extracts a ConflictError from err's chain.
func AsConflict(err error) (*ConflictError, bool) {
	var c *ConflictError
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
