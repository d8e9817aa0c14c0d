// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/mkarlsen/roadscan/internal/validation"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/roadscan/config.yaml",
	"/etc/roadscan/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "ROADSCAN_CONFIG_PATH"

// envPrefix is stripped from environment variables before key mapping.
const envPrefix = "ROADSCAN_"

// envKeyMap maps environment variable names (after the prefix) to koanf
// paths. Explicit mapping avoids ambiguity between nesting separators and
// underscores inside leaf keys (BASE_URL vs BASE.URL).
var envKeyMap = map[string]string{
	"PROVIDER_BASE_URL":            "provider.base_url",
	"PROVIDER_SESSION":             "provider.session",
	"PROVIDER_TIMEOUT":             "provider.timeout",
	"PROVIDER_MAX_RETRIES":         "provider.max_retries",
	"PROVIDER_RETRY_BASE_DELAY":    "provider.retry_base_delay",
	"TIMELINE_MAX_FRAMES":          "timeline.max_frames",
	"TIMELINE_MATCH_TOLERANCE":     "timeline.match_tolerance",
	"TIMELINE_TIMESTAMP_DENSITY":   "timeline.timestamp_density",
	"TIMELINE_SYNTHETIC_SEED":      "timeline.synthetic_seed",
	"TIMELINE_SYNTHETIC_LATITUDE":  "timeline.synthetic_latitude",
	"TIMELINE_SYNTHETIC_LONGITUDE": "timeline.synthetic_longitude",
	"PLAYBACK_BASE_PERIOD":         "playback.base_period",
	"PLAYBACK_MIN_PERIOD":          "playback.min_period",
	"PLAYBACK_DEFAULT_SPEED":       "playback.default_speed",
	"SERVER_HOST":                  "server.host",
	"SERVER_PORT":                  "server.port",
	"SERVER_TIMEOUT":               "server.timeout",
	"SERVER_CORS_ORIGINS":          "server.cors_origins",
	"SERVER_RATE_LIMIT_REQS":       "server.rate_limit_reqs",
	"SERVER_RATE_LIMIT_WINDOW":     "server.rate_limit_window",
	"LOG_LEVEL":                    "logging.level",
	"LOG_FORMAT":                   "logging.format",
	"LOG_CALLER":                   "logging.caller",
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:        "http://localhost:5000",
			Session:        "",
			Timeout:        30 * time.Second,
			MaxRetries:     5,
			RetryBaseDelay: 1 * time.Second,
		},
		Timeline: TimelineConfig{
			MaxFrames:        300,
			MatchTolerance:   10 * time.Second,
			TimestampDensity: 0.8,
			SyntheticSeed:    1,
			// Seed region for the placeholder trace: Bengaluru ring road,
			// matching the survey rigs' usual deployment area.
			SyntheticLatitude:  12.9716,
			SyntheticLongitude: 77.5946,
		},
		Playback: PlaybackConfig{
			BasePeriod:   1 * time.Second,
			MinPeriod:    50 * time.Millisecond,
			DefaultSpeed: 1.0,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. defaults (struct provider)
//  2. optional YAML config file
//  3. ROADSCAN_* environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return envKeyMap[strings.TrimPrefix(s, envPrefix)]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// CORS origins arrive from env as a comma-separated string.
	if raw := k.String("server.cors_origins"); raw != "" && strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set("server.cors_origins", parts); err != nil {
			return nil, fmt.Errorf("failed to split cors origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validation.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
