package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test")

	m.ObserveOperation("p", "x_to_y", nil, time.Millisecond)
	m.ObserveOperation("p", "x_to_y", errors.New("boom"), time.Millisecond)
	m.ObserveOperation("p", "x_to_y", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("p", "x_to_y", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("p", "x_to_y", "error")))
}

func TestSwapAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test")

	m.AddSwap("p", "y_to_x", 150, 2)
	m.AddSwap("p", "y_to_x", 50, 0)
	m.SetPoolSize("p", 6, 2)

	assert.Equal(t, 200.0, testutil.ToFloat64(m.SwapVolume.WithLabelValues("p", "y_to_x")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TickCrossings.WithLabelValues("p")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.InitializedTicks.WithLabelValues("p")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpenPositions.WithLabelValues("p")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveOperation("p", "op", nil, 0)
		m.AddSwap("p", "x_to_y", 1, 1)
		m.SetPoolSize("p", 1, 1)
		m.CountRecord("applied")
		m.CountRetry("pebble")
	})
}
