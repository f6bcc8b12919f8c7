package optimization

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceMetrics holds the Prometheus collectors for optimization runs.
// A nil *ServiceMetrics is valid and records nothing.
type ServiceMetrics struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fallbacks prometheus.Counter
}

// NewServiceMetrics creates the collectors and registers them with reg.
func NewServiceMetrics(reg prometheus.Registerer) *ServiceMetrics {
	m := &ServiceMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allocator_optimizations_total",
				Help: "Optimization runs by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "allocator_optimization_duration_seconds",
				Help:    "Duration of optimization runs in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "allocator_gmvp_fallbacks_total",
				Help: "Runs where the target return was unreachable and the minimum-variance fallback was used",
			},
		),
	}
	reg.MustRegister(m.runs, m.duration, m.fallbacks)
	return m
}

func (m *ServiceMetrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *ServiceMetrics) fallbackUsed() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}
