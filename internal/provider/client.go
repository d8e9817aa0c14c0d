// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package provider implements the HTTP client for the external survey-data
// provider: the REST service that scans survey runs on disk and serves GPS
// logs, system telemetry, detection metadata, and image listings.
//
// Contract: any non-2xx status or success:false payload means that one
// source is unavailable. The client surfaces this as an error wrapping
// ErrUnavailable; deciding whether that is fatal (the manifest) or
// tolerable (everything else) is the aggregator's job.
//
// Resilience follows the same pattern as the rest of the codebase's
// outbound clients: per-request timeout, exponential backoff on HTTP 429,
// and an optional circuit breaker wrapper (see breaker.go).
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/metrics"
	"github.com/mkarlsen/roadscan/internal/models"
)

// ErrUnavailable marks a single source as unavailable (non-2xx status,
// success:false payload, or malformed body). Callers test with errors.Is.
var ErrUnavailable = errors.New("source unavailable")

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// Client is the interface to the survey-data provider. It is implemented
// by HTTPClient for production and by mocks in tests, and wrapped by
// BreakerClient for circuit-breaker protection.
//
// All methods accept a context for cancellation and are safe for
// concurrent use.
type Client interface {
	Ping(ctx context.Context) error
	Dashboard(ctx context.Context) (*DashboardSummary, error)
	GPSData(ctx context.Context, session string) ([]RawRow, error)
	SystemMetrics(ctx context.Context, session string) ([]RawRow, error)
	MetadataScan(ctx context.Context) ([]models.ManifestEntry, error)
	DetectionRows(ctx context.Context, triple models.Triple) ([]RawRow, error)
	Images(ctx context.Context, triple models.Triple) ([]ImageEntry, error)
	GPSFromMetadata(ctx context.Context, triple models.Triple) ([]RawRow, error)
}

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	baseURL        string
	client         *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a provider client from configuration. The base URL
// is explicit configuration; there is no ambient global loader state.
func NewHTTPClient(cfg *config.ProviderConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// doRequestWithRateLimit performs a GET with automatic HTTP 429 handling.
// Backoff doubles per attempt from retryBaseDelay, honoring Retry-After.
func (c *HTTPClient) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close() // retrying anyway

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// get fetches one endpoint and decodes the JSON payload into result, which
// must embed baseResponse. Unavailability (non-2xx, success:false, bad
// JSON) is reported wrapping ErrUnavailable.
func (c *HTTPClient) get(ctx context.Context, endpoint string, params url.Values, result interface{}, okFn func() bool) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		metrics.RecordProviderRequest(endpoint, "error", time.Since(start))
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordProviderRequest(endpoint, "unavailable", time.Since(start))
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s returned status %d: %s: %w", endpoint, resp.StatusCode, string(body), ErrUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		metrics.RecordProviderRequest(endpoint, "unavailable", time.Since(start))
		return fmt.Errorf("%s returned malformed payload: %v: %w", endpoint, err, ErrUnavailable)
	}

	if !okFn() {
		metrics.RecordProviderRequest(endpoint, "unavailable", time.Since(start))
		return fmt.Errorf("%s reported success=false: %w", endpoint, ErrUnavailable)
	}

	metrics.RecordProviderRequest(endpoint, "success", time.Since(start))
	return nil
}

// tripleParams builds the query parameters identifying one triple.
func tripleParams(t models.Triple) url.Values {
	params := url.Values{}
	params.Set("session", t.Session)
	params.Set("camera", t.Camera)
	params.Set("anomalyType", t.AnomalyType)
	return params
}

// sessionParams builds query parameters carrying an optional session name.
func sessionParams(session string) url.Values {
	params := url.Values{}
	if session != "" {
		params.Set("session", session)
	}
	return params
}

// Ping verifies connectivity via /health.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var out healthResponse
	return c.get(ctx, "/health", nil, &out, func() bool { return out.Success })
}

// Dashboard fetches the provider's per-camera anomaly count overview.
func (c *HTTPClient) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	var out dashboardResponse
	if err := c.get(ctx, "/api/dashboard", nil, &out, func() bool { return out.Success }); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// GPSData fetches the session's GPS track log as raw rows.
func (c *HTTPClient) GPSData(ctx context.Context, session string) ([]RawRow, error) {
	var out rowsResponse
	if err := c.get(ctx, "/api/gps-data", sessionParams(session), &out, func() bool { return out.Success }); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SystemMetrics fetches the session's embedded-system telemetry rows.
func (c *HTTPClient) SystemMetrics(ctx context.Context, session string) ([]RawRow, error) {
	var out rowsResponse
	if err := c.get(ctx, "/api/system-metrics", sessionParams(session), &out, func() bool { return out.Success }); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// MetadataScan fetches the manifest enumerating every (session, camera,
// anomaly type) triple and its data presence.
func (c *HTTPClient) MetadataScan(ctx context.Context) ([]models.ManifestEntry, error) {
	var out scanResponse
	if err := c.get(ctx, "/api/metadata/scan", nil, &out, func() bool { return out.Success }); err != nil {
		return nil, err
	}
	entries := make([]models.ManifestEntry, 0, len(out.Files))
	for _, f := range out.Files {
		entries = append(entries, f.toModel())
	}
	return entries, nil
}

// DetectionRows fetches the detection metadata rows for one triple.
func (c *HTTPClient) DetectionRows(ctx context.Context, triple models.Triple) ([]RawRow, error) {
	var out rowsResponse
	endpoint := fmt.Sprintf("/api/metadata/%s/%s/%s",
		url.PathEscape(triple.Session), url.PathEscape(triple.Camera), url.PathEscape(triple.AnomalyType))
	if err := c.get(ctx, endpoint, nil, &out, func() bool { return out.Success }); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Images fetches the image listing for one triple.
func (c *HTTPClient) Images(ctx context.Context, triple models.Triple) ([]ImageEntry, error) {
	var out imagesResponse
	endpoint := fmt.Sprintf("/api/images/%s/%s/%s",
		url.PathEscape(triple.Session), url.PathEscape(triple.Camera), url.PathEscape(triple.AnomalyType))
	if err := c.get(ctx, endpoint, nil, &out, func() bool { return out.Success }); err != nil {
		return nil, err
	}
	return out.Images, nil
}

// GPSFromMetadata fetches GPS-like rows derived from one triple's detection
// metadata. Used by the aggregator's fallback chain when the track log is
// unavailable.
func (c *HTTPClient) GPSFromMetadata(ctx context.Context, triple models.Triple) ([]RawRow, error) {
	var out rowsResponse
	if err := c.get(ctx, "/api/gps-from-metadata", tripleParams(triple), &out, func() bool { return out.Success }); err != nil {
		return nil, err
	}
	return out.Data, nil
}
