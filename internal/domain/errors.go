package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrSlotNotFound    = fmt.Errorf("slot %w", ErrNotFound)
)
