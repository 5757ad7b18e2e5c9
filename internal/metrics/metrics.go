// Package metrics holds the prometheus collectors for refinement runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "listingfix"

var (
	RefineTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refine_total",
			Help:      "Refinements by final state",
		},
		[]string{"state"},
	)

	RefineAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refine_attempts",
			Help:      "Attempts used per refinement",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	RefineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refine_duration_seconds",
			Help:      "Wall time of one refinement",
			Buckets:   []float64{.01, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	GeneratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "calls_total",
			Help:      "Generator calls by generator and outcome",
		},
		[]string{"generator", "status"},
	)

	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations left in final results, by kind",
		},
		[]string{"kind"},
	)

	RepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Violations cleared by deterministic repair, by kind",
		},
		[]string{"kind"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)
)

// Generator call outcomes.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	StatusMalformed   = "malformed"
	// StatusRescue marks the fallback used after no attempt produced a
	// candidate. It is an attempt status only, never a generator call label.
	StatusRescue = "rescue"
)
