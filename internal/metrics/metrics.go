// Package metrics exposes Prometheus collectors for the allocation engine:
// pass counters and durations, decision outcomes by status, promotion event
// throughput and per-course waitlist depth.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AllocationPassesTotal counts allocation passes by outcome
	// (committed, aborted).
	AllocationPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registrar_allocation_passes_total",
		Help: "Total allocation passes by outcome",
	}, []string{"outcome"})

	// PassDurationSeconds observes end-to-end pass latency, including
	// snapshot load and commit.
	PassDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "registrar_allocation_pass_duration_seconds",
		Help:    "Allocation pass latency distribution",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// DecisionsTotal counts decisions by status (ASSIGNED, WAITLISTED,
	// REJECTED).
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registrar_allocation_decisions_total",
		Help: "Total allocation decisions by status",
	}, []string{"status"})

	// PromotionEventsTotal counts processed promotion events by outcome.
	PromotionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registrar_promotion_events_total",
		Help: "Total waitlist promotion events by outcome",
	}, []string{"outcome"})

	// PromotionQueueDepth tracks the pending promotion event backlog.
	PromotionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registrar_promotion_queue_depth",
		Help: "Pending promotion events awaiting processing",
	})

	// WaitlistDepth tracks the current waitlist length per course.
	WaitlistDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "registrar_course_waitlist_depth",
		Help: "Current waitlist length per course",
	}, []string{"course"})
)

// Handler returns the HTTP handler exposing the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDecisions records a batch of decisions by status
func ObserveDecisions(statuses map[string]int) {
	for status, count := range statuses {
		DecisionsTotal.WithLabelValues(status).Add(float64(count))
	}
}
