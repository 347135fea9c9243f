package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"doccenter/internal/lending/models"
)

// Metrics counts dispatcher outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Dispatched  *prometheus.CounterVec
	Suppressed  *prometheus.CounterVec
	EmailFailed prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Dispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doccenter_notifications_dispatched_total",
			Help: "Notifications written, by event kind",
		}, []string{"event"}),
		Suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doccenter_notifications_suppressed_total",
			Help: "Notifications skipped by the dedup window, by event kind",
		}, []string{"event"}),
		EmailFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "doccenter_notification_emails_failed_total",
			Help: "Best-effort notification emails that could not be sent",
		}),
	}
}

func (m *Metrics) IncDispatched(kind models.EventKind) {
	if m == nil {
		return
	}
	m.Dispatched.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) IncSuppressed(kind models.EventKind) {
	if m == nil {
		return
	}
	m.Suppressed.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) IncEmailFailed() {
	if m == nil {
		return
	}
	m.EmailFailed.Inc()
}
