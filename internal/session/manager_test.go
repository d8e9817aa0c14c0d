// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package session

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/roadscan/internal/models"
	"github.com/mkarlsen/roadscan/internal/provider"
)

func TestManagerLoadPublishesSnapshot(t *testing.T) {
	front := models.Triple{Session: "run-42", Camera: "cam_front", AnomalyType: "pothole"}
	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
			{"timestamp": "2024-03-15 10:00:01", "latitude": 12.98, "longitude": 77.60},
		},
		detections: map[models.Triple][]provider.RawRow{
			front: {{"frame_num": 1.0, "class_name": "pothole", "confidence": 0.9}},
		},
	}

	mgr := NewManager(client, testTimelineConfig())
	require.Nil(t, mgr.Current())

	snapshot, err := mgr.Load(context.Background(), "run-42")

	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Same(t, snapshot, mgr.Current())
	assert.Equal(t, "run-42", snapshot.SessionName)
	assert.Equal(t, uint64(1), snapshot.Generation)
	assert.Len(t, snapshot.Timeline, 2)
	require.Len(t, snapshot.Cameras, 2)
	assert.Equal(t, "Cam Front", snapshot.Cameras[0].DisplayName)
	assert.Equal(t, 1, snapshot.Cameras[0].DetectionCount)
	assert.Equal(t, []string{"pothole"}, snapshot.Cameras[0].Classes)
}

func TestManagerFailedLoadKeepsPreviousSnapshot(t *testing.T) {
	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
		},
	}

	mgr := NewManager(client, testTimelineConfig())
	first, err := mgr.Load(context.Background(), "run-42")
	require.NoError(t, err)

	client.manifestErr = provider.ErrUnavailable
	_, err = mgr.Load(context.Background(), "run-42")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManifestUnavailable)
	assert.Same(t, first, mgr.Current())
}

func TestManagerConnectedButEmpty(t *testing.T) {
	client := &mockClient{gpsErr: provider.ErrUnavailable}

	mgr := NewManager(client, testTimelineConfig())
	snapshot, err := mgr.Load(context.Background(), "run-42")

	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 0, snapshot.FrameCount())
	assert.Empty(t, snapshot.Cameras)
	assert.NotNil(t, mgr.Current())
}

func TestManagerOnReplaceCallback(t *testing.T) {
	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
		},
	}

	mgr := NewManager(client, testTimelineConfig())

	var got *models.SessionSnapshot
	mgr.OnReplace(func(s *models.SessionSnapshot) { got = s })

	snapshot, err := mgr.Load(context.Background(), "run-42")

	require.NoError(t, err)
	assert.Same(t, snapshot, got)
}

func TestManagerStaleLoadSuperseded(t *testing.T) {
	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
		},
		scanStarted: make(chan struct{}, 1),
		scanRelease: make(chan struct{}),
	}

	mgr := NewManager(client, testTimelineConfig())

	type result struct {
		snapshot *models.SessionSnapshot
		err      error
	}
	done := make(chan result, 1)
	go func() {
		snapshot, err := mgr.Load(context.Background(), "run-42")
		done <- result{snapshot, err}
	}()

	// Wait until the slow load is inside the manifest fetch, then let a
	// second load run to completion ahead of it.
	<-client.scanStarted
	client.scanStarted = nil
	newest, err := mgr.Load(context.Background(), "run-42")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), newest.Generation)

	close(client.scanRelease)
	stale := <-done

	require.Error(t, stale.err)
	assert.ErrorIs(t, stale.err, ErrLoadSuperseded)
	assert.Nil(t, stale.snapshot)
	assert.Same(t, newest, mgr.Current())
}

func TestManagerCallbackOrderMatchesPublicationOrder(t *testing.T) {
	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
		},
	}

	mgr := NewManager(client, testTimelineConfig())

	var mu stdsync.Mutex
	var seen []uint64
	release := make(chan struct{})
	mgr.OnReplace(func(s *models.SessionSnapshot) {
		mu.Lock()
		seen = append(seen, s.Generation)
		mu.Unlock()
		// Stall the first publication's consumers so a racing load gets
		// every chance to overtake them.
		if s.Generation == 1 {
			<-release
		}
	})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, err := mgr.Load(context.Background(), "run-42")
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, time.Millisecond)

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, err := mgr.Load(context.Background(), "run-42")
		assert.NoError(t, err)
	}()

	close(release)
	<-firstDone
	<-secondDone

	mu.Lock()
	defer mu.Unlock()
	// Consumers must observe snapshots in publication order and end up
	// bound to the snapshot Current() reports.
	assert.Equal(t, []uint64{1, 2}, seen)
	assert.Equal(t, mgr.Current().Generation, seen[len(seen)-1])
}

func TestManagerOnReplaceDuringLoad(t *testing.T) {
	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
		},
		scanStarted: make(chan struct{}, 1),
		scanRelease: make(chan struct{}),
	}

	mgr := NewManager(client, testTimelineConfig())

	done := make(chan *models.SessionSnapshot, 1)
	go func() {
		snapshot, err := mgr.Load(context.Background(), "run-42")
		assert.NoError(t, err)
		done <- snapshot
	}()

	// Register while the load is mid-flight; registration completes before
	// publication takes the lock, so the callback sees this load.
	<-client.scanStarted
	var got *models.SessionSnapshot
	mgr.OnReplace(func(s *models.SessionSnapshot) { got = s })
	close(client.scanRelease)

	snapshot := <-done
	assert.Same(t, snapshot, got)
}

func TestManagerFrameAt(t *testing.T) {
	client := &mockClient{
		manifest: testManifest(),
		gpsRows: []provider.RawRow{
			{"timestamp": "2024-03-15 10:00:00", "latitude": 12.97, "longitude": 77.59},
			{"timestamp": "2024-03-15 10:00:01", "latitude": 12.98, "longitude": 77.60},
		},
	}

	mgr := NewManager(client, testTimelineConfig())
	assert.Nil(t, mgr.FrameAt(0))

	_, err := mgr.Load(context.Background(), "run-42")
	require.NoError(t, err)

	require.NotNil(t, mgr.FrameAt(1))
	assert.Nil(t, mgr.FrameAt(2))
	assert.Nil(t, mgr.FrameAt(-1))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"cam_front", "Cam Front"},
		{"rear-left", "Rear Left"},
		{"überwachung_links", "Überwachung Links"},
		{"front", "Front"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, displayName(tt.name), tt.name)
	}
}

func TestBuildGPSStats(t *testing.T) {
	bundle := &SourceBundle{
		GPS: []models.GPSFix{
			{Timestamp: "2024-03-15 10:00:00", Latitude: 12.97, Longitude: 77.59, Source: models.GPSSourceTrackLog},
			{Timestamp: "2024-03-15 10:00:01", Latitude: 12.99, Longitude: 77.58, Source: models.GPSSourceTrackLog},
			// Null-island placeholder must not drag the bounds to zero.
			{Timestamp: "2024-03-15 10:00:02", Source: models.GPSSourceMetadata},
		},
		GPSCapableCameras: map[string]bool{"cam_front": true},
	}

	stats := buildGPSStats(bundle, 2)

	assert.Equal(t, 3, stats.TotalFixes)
	assert.Equal(t, 2, stats.BySource[models.GPSSourceTrackLog])
	assert.Equal(t, 1, stats.BySource[models.GPSSourceMetadata])
	assert.Equal(t, 12.97, stats.MinLatitude)
	assert.Equal(t, 12.99, stats.MaxLatitude)
	assert.Equal(t, 77.58, stats.MinLongitude)
	assert.Equal(t, 77.59, stats.MaxLongitude)
	assert.Equal(t, 0.5, stats.Coverage)
}
