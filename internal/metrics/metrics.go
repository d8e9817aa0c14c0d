// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package metrics provides Prometheus instrumentation for:
//   - survey-data provider requests and circuit breaker state
//   - session load outcomes and timeline synthesis
//   - playback ticks
//   - API endpoint latency and websocket connections
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider Metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of requests to the survey-data provider",
		},
		[]string{"endpoint", "outcome"}, // outcome: success, unavailable, error
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of survey-data provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Session Load Metrics
	SessionLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_loads_total",
			Help: "Total session load attempts by outcome",
		},
		[]string{"outcome"}, // outcome: success, empty, manifest_unavailable, superseded, error
	)

	SessionLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "session_load_duration_seconds",
			Help:    "End-to-end session load duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	TimelineFrames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeline_frames",
			Help: "Number of frames in the current session timeline",
		},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_failures_total",
			Help: "Per-source fetch failures tolerated during session loads",
		},
		[]string{"source"}, // source: gps, telemetry, detections, images, gps_from_metadata
	)

	// Playback Metrics
	PlaybackTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playback_ticks_total",
			Help: "Total playback ticks advanced",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected websocket clients",
		},
	)

	WebSocketMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total websocket messages broadcast by type",
		},
		[]string{"type"},
	)
)

// RecordProviderRequest records one provider request with its duration.
func RecordProviderRequest(endpoint, outcome string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAPIRequest records one API request with its duration.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
