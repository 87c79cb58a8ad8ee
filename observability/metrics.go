package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FunddMetrics wraps the collectors exported by the fundd service.
type FunddMetrics struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	instances     *prometheus.GaugeVec
	contributed   prometheus.Counter
	withdrawnSats prometheus.Counter
	throttles     *prometheus.CounterVec
	subscribers   prometheus.Gauge
}

var (
	funddMetricsOnce sync.Once
	funddRegistry    *FunddMetrics
)

// Fundd returns the lazily registered fundd metrics.
func Fundd() *FunddMetrics {
	funddMetricsOnce.Do(func() {
		funddRegistry = &FunddMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fundd",
				Name:      "operations_total",
				Help:      "Ledger and stream operations segmented by module, operation and outcome.",
			}, []string{"module", "operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "fundd",
				Name:      "operation_duration_seconds",
				Help:      "Time spent holding an instance lock per operation.",
				Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
			}, []string{"module", "operation"}),
			instances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "fundd",
				Name:      "instances",
				Help:      "Ledgers and streams held in memory.",
			}, []string{"module"}),
			contributed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fundd",
				Subsystem: "crowdfund",
				Name:      "contributed_units_total",
				Help:      "Sum of accepted contributions across every ledger, in goal units.",
			}),
			withdrawnSats: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fundd",
				Subsystem: "stream",
				Name:      "withdrawn_units_total",
				Help:      "Sum of withdrawals across every stream, in smallest units.",
			}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "fundd",
				Name:      "throttles_total",
				Help:      "Requests rejected by the rate limiter segmented by route key.",
			}, []string{"route"}),
			subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "fundd",
				Subsystem: "events",
				Name:      "subscribers",
				Help:      "Connected event feed subscribers.",
			}),
		}
		prometheus.MustRegister(
			funddRegistry.operations,
			funddRegistry.latency,
			funddRegistry.instances,
			funddRegistry.contributed,
			funddRegistry.withdrawnSats,
			funddRegistry.throttles,
			funddRegistry.subscribers,
		)
	})
	return funddRegistry
}

// Observe records the outcome and duration of a single operation.
func (m *FunddMetrics) Observe(module, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	module = label(module)
	operation = label(operation)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(module, operation, outcome).Inc()
	m.latency.WithLabelValues(module, operation).Observe(d.Seconds())
}

// SetInstances records how many instances of module are held.
func (m *FunddMetrics) SetInstances(module string, n int) {
	if m == nil {
		return
	}
	m.instances.WithLabelValues(label(module)).Set(float64(n))
}

// AddContributed adds an accepted contribution to the running sum.
func (m *FunddMetrics) AddContributed(amount *big.Rat) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	f, _ := amount.Float64()
	if !math.IsInf(f, 0) {
		m.contributed.Add(f)
	}
}

// AddWithdrawn adds a withdrawal to the running sum.
func (m *FunddMetrics) AddWithdrawn(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	if !math.IsInf(f, 0) {
		m.withdrawnSats.Add(f)
	}
}

// RecordThrottle counts a rate-limited request.
func (m *FunddMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(label(route)).Inc()
}

// SubscriberConnected adjusts the subscriber gauge by delta.
func (m *FunddMetrics) SubscriberConnected(delta int) {
	if m == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
