// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package config holds all application configuration, loaded with Koanf v2
// from three layers with clear precedence: ENV > config file > defaults.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Configuration loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every setting
//  2. Config file: optional YAML file (config.yaml)
//  3. Environment variables: ROADSCAN_* overrides any setting
type Config struct {
	Provider ProviderConfig `koanf:"provider"`
	Timeline TimelineConfig `koanf:"timeline"`
	Playback PlaybackConfig `koanf:"playback"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ProviderConfig configures the external survey-data provider. The base URL
// is explicit configuration passed into every load; there is no ambient
// global data-loader state.
type ProviderConfig struct {
	// BaseURL is the root of the provider's REST API,
	// e.g. "http://localhost:5000".
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Session is the survey session loaded at startup. Empty means no
	// initial load; the first load is then triggered through the API.
	Session string `koanf:"session"`

	// Timeout bounds each provider request.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries limits retries on HTTP 429 responses.
	MaxRetries int `koanf:"max_retries" validate:"min=0,max=10"`

	// RetryBaseDelay is the first backoff delay; it doubles per retry.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
}

// TimelineConfig tunes the timeline synthesizer.
type TimelineConfig struct {
	// MaxFrames caps how many frames are materialized. A GPS trace longer
	// than the cap is subsampled with an even stride spanning the full
	// time range, so the timeline still covers the whole survey.
	MaxFrames int `koanf:"max_frames" validate:"min=1,max=10000"`

	// MatchTolerance is the nearest-timestamp matching window. Observed
	// provider data varies between 5s and 60s windows; 10s is the fixed
	// documented choice.
	MatchTolerance time.Duration `koanf:"match_tolerance"`

	// TimestampDensity is the minimum fraction of detection rows that
	// must carry a timestamp before timestamp matching is preferred over
	// round-robin sampling.
	TimestampDensity float64 `koanf:"timestamp_density" validate:"min=0,max=1"`

	// SyntheticSeed seeds the placeholder GPS trace generator so the
	// fallback is deterministic.
	SyntheticSeed int64 `koanf:"synthetic_seed"`

	// SyntheticLatitude and SyntheticLongitude anchor the placeholder
	// trace's seed region.
	SyntheticLatitude  float64 `koanf:"synthetic_latitude" validate:"min=-90,max=90"`
	SyntheticLongitude float64 `koanf:"synthetic_longitude" validate:"min=-180,max=180"`
}

// PlaybackConfig tunes the playback ticker.
type PlaybackConfig struct {
	// BasePeriod is the tick period at speed 1.0.
	BasePeriod time.Duration `koanf:"base_period"`

	// MinPeriod floors the effective period so high speed multipliers
	// cannot degenerate into a tight loop.
	MinPeriod time.Duration `koanf:"min_period"`

	// DefaultSpeed is the speed multiplier applied to a fresh controller.
	DefaultSpeed float64 `koanf:"default_speed" validate:"gt=0"`
}

// ServerConfig configures the HTTP API exposed to the dashboard frontend.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks invariants that struct tags cannot express.
// Tag-based validation runs separately via the validation package.
func (c *Config) Validate() error {
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive, got %v", c.Provider.Timeout)
	}
	if c.Provider.RetryBaseDelay <= 0 {
		return fmt.Errorf("provider.retry_base_delay must be positive, got %v", c.Provider.RetryBaseDelay)
	}
	if c.Timeline.MatchTolerance <= 0 {
		return fmt.Errorf("timeline.match_tolerance must be positive, got %v", c.Timeline.MatchTolerance)
	}
	if c.Playback.BasePeriod <= 0 {
		return fmt.Errorf("playback.base_period must be positive, got %v", c.Playback.BasePeriod)
	}
	if c.Playback.MinPeriod <= 0 {
		return fmt.Errorf("playback.min_period must be positive, got %v", c.Playback.MinPeriod)
	}
	if c.Playback.MinPeriod > c.Playback.BasePeriod {
		return fmt.Errorf("playback.min_period %v exceeds base_period %v",
			c.Playback.MinPeriod, c.Playback.BasePeriod)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	return nil
}
