package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks service group lifecycle and the create/delete sagas.
type Metrics struct {
	GroupsCreated        prometheus.Counter
	GroupsDeleted        prometheus.Counter
	CompensationFailures *prometheus.CounterVec
	SagaDuration         *prometheus.HistogramVec
}

// New registers the service group metrics with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		GroupsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "smp_service_groups_created_total",
			Help: "Total number of service groups created",
		}),
		GroupsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "smp_service_groups_deleted_total",
			Help: "Total number of service groups deleted",
		}),
		CompensationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smp_directory_compensation_failures_total",
			Help: "Compensating directory calls that failed, leaving directory and storage diverged",
		}, []string{"operation"}),
		SagaDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smp_service_group_saga_duration_seconds",
			Help:    "Duration of service group create and delete sagas",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.GroupsCreated.Inc()
}

func (m *Metrics) IncrementDeleted() {
	if m == nil {
		return
	}
	m.GroupsDeleted.Inc()
}

func (m *Metrics) IncrementCompensationFailure(op string) {
	if m == nil {
		return
	}
	m.CompensationFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveSaga(op string, start time.Time) {
	if m == nil {
		return
	}
	m.SagaDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
