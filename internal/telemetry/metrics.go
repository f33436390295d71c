/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshnest_api_requests_total",
			Help: "Total number of HTTP API requests.",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration observes HTTP request latency in seconds.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freshnest_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freshnest_api_active_connections",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	// MaterializerRuns counts materializer ticks by result.
	MaterializerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshnest_materializer_runs_total",
			Help: "Total number of recurring-job materializer runs.",
		},
		[]string{"result"},
	)

	// MaterializedJobs counts job rows created by the materializer.
	MaterializedJobs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freshnest_materialized_jobs_total",
			Help: "Total number of job occurrences created from recurring templates.",
		},
	)

	// ConflictChecks counts conflict evaluations by outcome.
	ConflictChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshnest_conflict_checks_total",
			Help: "Total number of schedule conflict checks.",
		},
		[]string{"outcome"},
	)

	// SlotQueryDuration observes slot suggestion latency in seconds.
	SlotQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freshnest_slot_query_duration_seconds",
			Help:    "Time spent computing open slot suggestions.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// CacheRequests counts schedule cache lookups by result.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshnest_cache_requests_total",
			Help: "Total number of schedule cache lookups.",
		},
		[]string{"result"},
	)
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
