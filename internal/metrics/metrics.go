// Package metrics defines the Prometheus collectors exported by pools and
// the replay runner.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	SwapVolume        *prometheus.CounterVec
	TickCrossings     *prometheus.CounterVec
	InitializedTicks  *prometheus.GaugeVec
	OpenPositions     *prometheus.GaugeVec
	OperationsApplied *prometheus.CounterVec
	StoreRetries      *prometheus.CounterVec
}

// New creates and registers all collectors under the given subsystem.
func New(reg prometheus.Registerer, subsystem string) *Metrics {
	return &Metrics{
		OperationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "cfmm_operations_total",
			Help:      "Pool operations by name and outcome.",
		}, []string{"pool", "op", "result"}),

		OperationDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "cfmm_operation_duration_seconds",
			Help:      "Time spent applying a pool operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pool", "op"}),

		SwapVolume: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "cfmm_swap_input_total",
			Help:      "Input token units consumed by swaps, by direction.",
		}, []string{"pool", "direction"}),

		TickCrossings: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "cfmm_tick_crossings_total",
			Help:      "Initialized ticks crossed by swaps.",
		}, []string{"pool"}),

		InitializedTicks: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "cfmm_initialized_ticks",
			Help:      "Initialized ticks including sentinels.",
		}, []string{"pool"}),

		OpenPositions: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "cfmm_open_positions",
			Help:      "Positions with non-zero liquidity.",
		}, []string{"pool"}),

		OperationsApplied: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "replay_operations_total",
			Help:      "Replay input records processed, by status.",
		}, []string{"status"}),

		StoreRetries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "replay_store_retries_total",
			Help:      "Retried snapshot store writes.",
		}, []string{"store"}),
	}
}

// ObserveOperation records the outcome and latency of a pool operation.
func (m *Metrics) ObserveOperation(pool, op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OperationsTotal.WithLabelValues(pool, op, result).Inc()
	m.OperationDuration.WithLabelValues(pool, op).Observe(elapsed.Seconds())
}

// AddSwap records consumed swap input and crossed ticks.
func (m *Metrics) AddSwap(pool, direction string, input float64, crossings int) {
	if m == nil {
		return
	}
	m.SwapVolume.WithLabelValues(pool, direction).Add(input)
	if crossings > 0 {
		m.TickCrossings.WithLabelValues(pool).Add(float64(crossings))
	}
}

// SetPoolSize updates the tick and position gauges.
func (m *Metrics) SetPoolSize(pool string, ticks, positions int) {
	if m == nil {
		return
	}
	m.InitializedTicks.WithLabelValues(pool).Set(float64(ticks))
	m.OpenPositions.WithLabelValues(pool).Set(float64(positions))
}

// CountRecord increments the replay record counter.
func (m *Metrics) CountRecord(status string) {
	if m == nil {
		return
	}
	m.OperationsApplied.WithLabelValues(status).Inc()
}

// CountRetry increments the store retry counter.
func (m *Metrics) CountRetry(store string) {
	if m == nil {
		return
	}
	m.StoreRetries.WithLabelValues(store).Inc()
}
