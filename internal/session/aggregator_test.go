// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/models"
	"github.com/mkarlsen/roadscan/internal/provider"
)

// mockClient is an in-memory provider.Client for assembling test bundles.
type mockClient struct {
	manifest    []models.ManifestEntry
	manifestErr error

	gpsRows []provider.RawRow
	gpsErr  error

	sampleRows []provider.RawRow
	samplesErr error

	detections    map[models.Triple][]provider.RawRow
	detectionsErr map[models.Triple]error

	images map[models.Triple][]provider.ImageEntry

	metadataGPS map[models.Triple][]provider.RawRow

	// scanStarted/scanRelease let a test hold MetadataScan open to overlap
	// two loads.
	scanStarted chan struct{}
	scanRelease chan struct{}
}

var _ provider.Client = (*mockClient)(nil)

func (m *mockClient) Ping(ctx context.Context) error { return nil }

func (m *mockClient) Dashboard(ctx context.Context) (*provider.DashboardSummary, error) {
	return &provider.DashboardSummary{}, nil
}

func (m *mockClient) MetadataScan(ctx context.Context) ([]models.ManifestEntry, error) {
	if m.scanStarted != nil {
		m.scanStarted <- struct{}{}
		<-m.scanRelease
	}
	return m.manifest, m.manifestErr
}

func (m *mockClient) GPSData(ctx context.Context, session string) ([]provider.RawRow, error) {
	return m.gpsRows, m.gpsErr
}

func (m *mockClient) SystemMetrics(ctx context.Context, session string) ([]provider.RawRow, error) {
	return m.sampleRows, m.samplesErr
}

func (m *mockClient) DetectionRows(ctx context.Context, triple models.Triple) ([]provider.RawRow, error) {
	if err := m.detectionsErr[triple]; err != nil {
		return nil, err
	}
	return m.detections[triple], nil
}

func (m *mockClient) Images(ctx context.Context, triple models.Triple) ([]provider.ImageEntry, error) {
	return m.images[triple], nil
}

func (m *mockClient) GPSFromMetadata(ctx context.Context, triple models.Triple) ([]provider.RawRow, error) {
	if rows, ok := m.metadataGPS[triple]; ok {
		return rows, nil
	}
	return nil, provider.ErrUnavailable
}

func testTimelineConfig() config.TimelineConfig {
	return config.TimelineConfig{
		MaxFrames:          300,
		MatchTolerance:     10 * time.Second,
		TimestampDensity:   0.8,
		SyntheticSeed:      1,
		SyntheticLatitude:  12.9716,
		SyntheticLongitude: 77.5946,
	}
}

func testManifest() []models.ManifestEntry {
	return []models.ManifestEntry{
		{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole", HasMetadata: true, HasImages: true, ImageCount: 4, Resolution: "1920x1080"},
		{Session: "run-42", Camera: "cam_rear", AnomalyType: "crack", HasMetadata: true},
	}
}

func TestCollectManifestFatal(t *testing.T) {
	client := &mockClient{manifestErr: errors.New("connection refused")}
	agg := NewAggregator(client, testTimelineConfig())

	_, err := agg.Collect(context.Background(), "run-42")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManifestUnavailable)
}

func TestCollectPartialFailureDegrades(t *testing.T) {
	front := models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"}
	rear := models.Triple{Session: "run-42", Camera: "cam_rear", AnomalyType: "crack"}

	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
		},
		detections: map[models.Triple][]provider.RawRow{
			front: {{"frame_num": 1.0, "class_name": "pothole", "confidence": 0.9}},
		},
		detectionsErr: map[models.Triple]error{rear: provider.ErrUnavailable},
		samplesErr:    provider.ErrUnavailable,
	}

	agg := NewAggregator(client, testTimelineConfig())
	bundle, err := agg.Collect(context.Background(), "run-42")

	require.NoError(t, err)
	assert.Len(t, bundle.Detections[front], 1)
	assert.Empty(t, bundle.Detections[rear])
	assert.Contains(t, bundle.Failures, "detections:"+rear.String())
	assert.Contains(t, bundle.Failures, "telemetry")
	assert.Empty(t, bundle.Samples)

	// The healthy sources are untouched by the failing ones.
	require.Len(t, bundle.GPS, 1)
	assert.Equal(t, models.GPSSourceTrackLog, bundle.GPS[0].Source)
}

func TestCollectGPSFallbackToMetadata(t *testing.T) {
	front := models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"}

	client := &mockClient{
		manifest: testManifest()[:1],
		gpsErr:   provider.ErrUnavailable,
		metadataGPS: map[models.Triple][]provider.RawRow{
			front: {
				{"timestamp": "2024-03-15 10:00:05", "vehicle_lat": 12.98, "vehicle_lon": 77.61},
				{"timestamp": "2024-03-15 10:00:00", "vehicle_lat": 12.97, "vehicle_lon": 77.60},
			},
		},
	}

	agg := NewAggregator(client, testTimelineConfig())
	bundle, err := agg.Collect(context.Background(), "run-42")

	require.NoError(t, err)
	require.Len(t, bundle.GPS, 2)
	for _, fix := range bundle.GPS {
		assert.Equal(t, models.GPSSourceMetadata, fix.Source)
	}
	// Sorted ascending regardless of arrival order.
	assert.Equal(t, "2024-03-15 10:00:00", bundle.GPS[0].Timestamp)
	assert.Contains(t, bundle.Failures, "gps")
}

func TestCollectSyntheticTraceDeterministic(t *testing.T) {
	client := &mockClient{
		manifest: testManifest()[:1],
		gpsErr:   provider.ErrUnavailable,
	}

	agg := NewAggregator(client, testTimelineConfig())
	first, err := agg.Collect(context.Background(), "run-42")
	require.NoError(t, err)
	second, err := agg.Collect(context.Background(), "run-42")
	require.NoError(t, err)

	require.Len(t, first.GPS, syntheticFixCount)
	assert.Equal(t, first.GPS, second.GPS)
	for _, fix := range first.GPS {
		assert.Equal(t, models.GPSSourceSynthetic, fix.Source)
		assert.True(t, fix.HasPosition())
	}
}

func TestCollectEmptyManifestStaysEmpty(t *testing.T) {
	client := &mockClient{gpsErr: provider.ErrUnavailable}

	agg := NewAggregator(client, testTimelineConfig())
	bundle, err := agg.Collect(context.Background(), "run-42")

	require.NoError(t, err)
	assert.Empty(t, bundle.Manifest)
	assert.Empty(t, bundle.GPS)
}

func TestCollectDefaultsToFirstSession(t *testing.T) {
	client := &mockClient{manifest: testManifest()}

	agg := NewAggregator(client, testTimelineConfig())
	bundle, err := agg.Collect(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "run-42", bundle.SessionName)
}

func TestCollectGPSCapableCameras(t *testing.T) {
	front := models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"}
	rear := models.Triple{Session: "run-42", Camera: "cam_rear", AnomalyType: "crack"}

	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
		},
		detections: map[models.Triple][]provider.RawRow{
			front: {{"frame_num": 1.0, "class_name": "pothole", "vehicle_lat": 12.97, "vehicle_lon": 77.59}},
			rear:  {{"frame_num": 2.0, "class_name": "crack"}},
		},
	}

	agg := NewAggregator(client, testTimelineConfig())
	bundle, err := agg.Collect(context.Background(), "run-42")

	require.NoError(t, err)
	assert.True(t, bundle.GPSCapableCameras["cam_front"])
	assert.False(t, bundle.GPSCapableCameras["cam_rear"])
}
