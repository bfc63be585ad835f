package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the notification engine.
type Metrics struct {
	NotificationsCreated *prometheus.CounterVec
	DuplicatesSkipped    prometheus.Counter
	Deliveries           *prometheus.CounterVec
	Sweeps               prometheus.Counter
	EvaluationErrors     prometheus.Counter
	UsersSkipped         prometheus.Counter
}

// New creates and registers all notification metrics.
func New() *Metrics {
	return &Metrics{
		NotificationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freshkeep_notifications_created_total",
			Help: "Notification records reserved, by transition kind",
		}, []string{"kind"}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "freshkeep_notifications_duplicates_skipped_total",
			Help: "Reservations skipped because the transition was already notified",
		}),
		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freshkeep_deliveries_total",
			Help: "Delivery attempts, by channel and status",
		}, []string{"channel", "status"}),
		Sweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "freshkeep_evaluation_sweeps_total",
			Help: "Completed full evaluation passes",
		}),
		EvaluationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "freshkeep_evaluation_errors_total",
			Help: "Per-user evaluation failures that were isolated and skipped",
		}),
		UsersSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "freshkeep_users_skipped_disabled_total",
			Help: "Users skipped because email notifications are disabled",
		}),
	}
}

func (m *Metrics) IncrementCreated(kind string) {
	if m == nil {
		return
	}
	m.NotificationsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementDuplicateSkipped() {
	if m == nil {
		return
	}
	m.DuplicatesSkipped.Inc()
}

func (m *Metrics) IncrementDelivery(channel, status string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) IncrementSweeps() {
	if m == nil {
		return
	}
	m.Sweeps.Inc()
}

func (m *Metrics) IncrementEvaluationErrors() {
	if m == nil {
		return
	}
	m.EvaluationErrors.Inc()
}

func (m *Metrics) IncrementUsersSkipped() {
	if m == nil {
		return
	}
	m.UsersSkipped.Inc()
}
