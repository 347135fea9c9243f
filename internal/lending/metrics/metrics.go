package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lending module: admissions,
// transitions and the overdue sweep. A nil *Metrics records nothing.
type Metrics struct {
	LoansCreated       prometheus.Counter
	Denials            *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	SweepDuration      prometheus.Histogram
	OverdueTransitions prometheus.Counter
	SweepFailures      prometheus.Counter
}

// New registers the lending metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoansCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "doccenter_loans_created_total",
			Help: "Total number of loans admitted",
		}),
		Denials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doccenter_loan_denials_total",
			Help: "Loan requests refused, by error code",
		}, []string{"code"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doccenter_loan_transitions_total",
			Help: "Loan state transitions applied, by verb",
		}, []string{"verb"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "doccenter_lending_operation_duration_seconds",
			Help:    "Duration of lending coordinator operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "doccenter_overdue_sweep_duration_seconds",
			Help:    "Duration of one overdue sweep",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		OverdueTransitions: f.NewCounter(prometheus.CounterOpts{
			Name: "doccenter_overdue_transitions_total",
			Help: "Loans moved to overdue by the sweeper",
		}),
		SweepFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "doccenter_overdue_sweep_failures_total",
			Help: "Loans the sweeper failed to process",
		}),
	}
}

func (m *Metrics) IncLoanCreated() {
	if m == nil {
		return
	}
	m.LoansCreated.Inc()
}

func (m *Metrics) IncDenial(code string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(code).Inc()
}

func (m *Metrics) IncTransition(verb string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(verb).Inc()
}

// ObserveOperation records the duration of a coordinator operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveSweep(start time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncOverdueTransition() {
	if m == nil {
		return
	}
	m.OverdueTransitions.Inc()
}

func (m *Metrics) IncSweepFailure() {
	if m == nil {
		return
	}
	m.SweepFailures.Inc()
}
