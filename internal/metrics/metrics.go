package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkops_ticket_transitions_total",
			Help: "Ticket transitions by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parkops_ticket_transition_duration_seconds",
			Help:    "Latency of a guarded ticket transition",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event"},
	)

	ScanRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkops_overdue_scans_total",
			Help: "Reconciliation scans by result",
		},
		[]string{"result"},
	)

	ScanTickets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkops_overdue_scan_tickets_total",
			Help: "Tickets visited by the reconciliation scan",
		},
		[]string{"outcome"},
	)

	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkops_notify_failures_total",
			Help: "Transition notifications that could not be published",
		},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)
