package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "smp/pkg/domain-errors"
)

// Metrics tracks publisher operations by outcome.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the operation metrics with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smp_operations_total",
			Help: "Publisher operations by operation and result code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smp_operation_duration_seconds",
			Help:    "Duration of publisher operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// Observe records one finished operation. Success is recorded with code "ok".
func (m *Metrics) Observe(op string, err error, start time.Time) {
	if m == nil {
		return
	}
	code := "ok"
	if err != nil {
		code = string(dErrors.GetCode(err))
	}
	m.Operations.WithLabelValues(op, code).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
