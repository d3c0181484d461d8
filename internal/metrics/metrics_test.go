package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("POST /api/bookings", 201, 0.02)
	})

	before := counterValue(t, bookingAttempts.WithLabelValues("full", OutcomeConflict))
	IncBookingAttempt("full", OutcomeConflict)
	assert.Equal(t, before+1, counterValue(t, bookingAttempts.WithLabelValues("full", OutcomeConflict)))

	hours := counterValue(t, bookedHours.WithLabelValues("half"))
	AddBookedHours("half", 3)
	assert.Equal(t, hours+3, counterValue(t, bookedHours.WithLabelValues("half")))

	cancelled := counterValue(t, cancellations)
	IncCancellation()
	assert.Equal(t, cancelled+1, counterValue(t, cancellations))
}
