// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/models"
)

func testConfig(baseURL string) *config.ProviderConfig {
	return &config.ProviderConfig{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: 10 * time.Millisecond,
	}
}

func TestNewHTTPClient(t *testing.T) {
	cfg := testConfig("http://localhost:5000")
	client := NewHTTPClient(cfg)

	require.NotNil(t, client)
	assert.Equal(t, cfg.BaseURL, client.baseURL)
	assert.Equal(t, cfg.Timeout, client.client.Timeout)
	assert.Equal(t, 2, client.maxRetries)
}

func TestPing(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        string
		expectError bool
	}{
		{"healthy", http.StatusOK, `{"success":true,"status":"ok"}`, false},
		{"server error", http.StatusInternalServerError, `{}`, true},
		{"success false", http.StatusOK, `{"success":false}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewHTTPClient(testConfig(server.URL))
			err := client.Ping(context.Background())
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGPSDataSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/gps-data", r.URL.Path)
		assert.Equal(t, "run-42", r.URL.Query().Get("session"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"timestamp":"2024-03-15 10:00:00","latitude":12.97,"longitude":77.59},
			{"timestamp":"2024-03-15 10:00:30","latitude":12.98,"longitude":77.60}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	rows, err := client.GPSData(context.Background(), "run-42")

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 12.97, rows[0]["latitude"])
}

func TestSourceUnavailableSentinel(t *testing.T) {
	tests := []struct {
		name string
		fn   http.HandlerFunc
	}{
		{"404", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"success false", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"error":"no gps log"}`))
		}},
		{"malformed payload", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":tru`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.fn)
			defer server.Close()

			client := NewHTTPClient(testConfig(server.URL))
			_, err := client.GPSData(context.Background(), "")

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)
		})
	}
}

func TestMetadataScan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/metadata/scan", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"files":[
			{"session":"run-42","camera":"cam_front","anomalyType":"pothole","imageCount":12,"hasImages":true,"hasMetadata":true},
			{"session":"run-42","camera":"cam_rear","anomalyType":"crack","imageCount":0,"hasImages":false,"hasMetadata":true}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	entries, err := client.MetadataScan(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"}, entries[0].Key())
	assert.Equal(t, 12, entries[0].ImageCount)
	assert.False(t, entries[1].HasImages)
}

func TestDetectionRowsPathEncoding(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	triple := models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"}
	_, err := client.DetectionRows(context.Background(), triple)

	require.NoError(t, err)
	assert.Equal(t, "/api/metadata/run-42/cam_front/pothole", gotPath)
}

func TestImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"images":[
			{"name":"frame_000120.jpg","size":204800,"modified":"2024-03-15 10:00:05","url":"/images/run-42/cam_front/pothole/frame_000120.jpg"}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	images, err := client.Images(context.Background(), models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"})

	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "frame_000120.jpg", images[0].Name)
	assert.Equal(t, "/images/run-42/cam_front/pothole/frame_000120.jpg", images[0].URL)
}

func TestGPSFromMetadataQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/gps-from-metadata", r.URL.Path)
		assert.Equal(t, "run-42", r.URL.Query().Get("session"))
		assert.Equal(t, "cam_front", r.URL.Query().Get("camera"))
		assert.Equal(t, "pothole", r.URL.Query().Get("anomalyType"))
		_, _ = w.Write([]byte(`{"success":true,"data":[{"vehicle_lat":12.9,"vehicle_lon":77.6}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	rows, err := client.GPSFromMetadata(context.Background(), models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"})

	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRateLimitRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"status":"ok"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	err := client.Ping(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(server.URL))
	err := client.Ping(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(testConfig(server.URL))
	err := client.Ping(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
