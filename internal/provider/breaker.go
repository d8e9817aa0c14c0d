// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/metrics"
	"github.com/mkarlsen/roadscan/internal/models"
)

// BreakerClient wraps a provider Client with a circuit breaker so a dead or
// slow provider cannot stack up blocked session loads.
//
// The breaker uses real time for its interval and timeout calculations;
// tests should mock the underlying client rather than the breaker.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

var _ Client = (*BreakerClient)(nil)

// NewBreakerClient creates a circuit-breaker protected provider client.
// Settings: max 3 concurrent half-open requests, 1 minute closed-state
// window, 2 minute open period, trips at a 60% failure rate once at least
// 10 requests have been observed.
func NewBreakerClient(cfg *config.ProviderConfig) *BreakerClient {
	return WrapWithBreaker(NewHTTPClient(cfg))
}

// WrapWithBreaker wraps an existing client; split out for tests.
func WrapWithBreaker(client Client) *BreakerClient {
	cbName := "survey-provider"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening provider circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("Provider circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// execute wraps one provider call with the breaker and records metrics.
func (bc *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
			// An open circuit means the provider is unavailable; map to the
			// same sentinel so callers need only one check.
			return nil, fmt.Errorf("provider circuit open: %v: %w", err, ErrUnavailable)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	return result, nil
}

// castResult type-casts a breaker result with error checking.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping verifies connectivity with circuit breaker protection.
func (bc *BreakerClient) Ping(ctx context.Context) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.Ping(ctx)
	})
	return err
}

// Dashboard fetches the dashboard overview with circuit breaker protection.
func (bc *BreakerClient) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	return castResult[*DashboardSummary](bc.execute(func() (interface{}, error) {
		return bc.client.Dashboard(ctx)
	}))
}

// GPSData fetches the GPS track log with circuit breaker protection.
func (bc *BreakerClient) GPSData(ctx context.Context, session string) ([]RawRow, error) {
	return castResult[[]RawRow](bc.execute(func() (interface{}, error) {
		return bc.client.GPSData(ctx, session)
	}))
}

// SystemMetrics fetches telemetry rows with circuit breaker protection.
func (bc *BreakerClient) SystemMetrics(ctx context.Context, session string) ([]RawRow, error) {
	return castResult[[]RawRow](bc.execute(func() (interface{}, error) {
		return bc.client.SystemMetrics(ctx, session)
	}))
}

// MetadataScan fetches the manifest with circuit breaker protection.
func (bc *BreakerClient) MetadataScan(ctx context.Context) ([]models.ManifestEntry, error) {
	return castResult[[]models.ManifestEntry](bc.execute(func() (interface{}, error) {
		return bc.client.MetadataScan(ctx)
	}))
}

// DetectionRows fetches one triple's rows with circuit breaker protection.
func (bc *BreakerClient) DetectionRows(ctx context.Context, triple models.Triple) ([]RawRow, error) {
	return castResult[[]RawRow](bc.execute(func() (interface{}, error) {
		return bc.client.DetectionRows(ctx, triple)
	}))
}

// Images fetches one triple's image listing with circuit breaker protection.
func (bc *BreakerClient) Images(ctx context.Context, triple models.Triple) ([]ImageEntry, error) {
	return castResult[[]ImageEntry](bc.execute(func() (interface{}, error) {
		return bc.client.Images(ctx, triple)
	}))
}

// GPSFromMetadata fetches metadata-derived GPS rows with circuit breaker
// protection.
func (bc *BreakerClient) GPSFromMetadata(ctx context.Context, triple models.Triple) ([]RawRow, error) {
	return castResult[[]RawRow](bc.execute(func() (interface{}, error) {
		return bc.client.GPSFromMetadata(ctx, triple)
	}))
}
