// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package session assembles survey sessions: it aggregates heterogeneous
// per-source records from the data provider, synthesizes the synchronized
// timeline, and publishes immutable session snapshots.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	stdsync "sync"
	"time"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/metrics"
	"github.com/mkarlsen/roadscan/internal/models"
	"github.com/mkarlsen/roadscan/internal/normalize"
	"github.com/mkarlsen/roadscan/internal/provider"
)

// syntheticFixCount is how many placeholder fixes the synthetic fallback
// generates, spaced syntheticSpacing apart.
const (
	syntheticFixCount   = 60
	syntheticSpacing    = time.Second
	syntheticBaseStamp  = "2024-01-01 00:00:00"
	syntheticWalkStride = 0.0005 // degrees per step, ~50m
)

// SourceBundle is everything the aggregator could collect for one session.
// Each source is independent: a failed fetch leaves its slot empty and adds
// a marker to Failures, it never aborts the other sources.
type SourceBundle struct {
	SessionName string
	Manifest    []models.ManifestEntry

	// GPS is the time backbone, tagged by origin. Sorted ascending by
	// timestamp, ties kept in arrival order.
	GPS []models.GPSFix

	Detections map[models.Triple][]models.Detection
	Images     map[models.Triple][]provider.ImageEntry
	Samples    []models.SystemSample

	// GPSCapableCameras names the cameras with at least one detection
	// source carrying embedded coordinates. Drives the coverage statistic.
	GPSCapableCameras map[string]bool

	// Failures maps a logical source name to the reason it yielded no data.
	Failures map[string]string
}

// Aggregator discovers and fetches all data sources for a session.
type Aggregator struct {
	client provider.Client
	cfg    config.TimelineConfig
}

// NewAggregator creates an aggregator over the given provider client.
func NewAggregator(client provider.Client, cfg config.TimelineConfig) *Aggregator {
	return &Aggregator{client: client, cfg: cfg}
}

// Collect fetches the manifest and every per-source data set for the named
// session. Only a manifest failure is fatal; every other source degrades
// into empty data plus a failure marker.
//
// Independent sources are fetched concurrently; Collect returns once all of
// them have settled.
func (a *Aggregator) Collect(ctx context.Context, session string) (*SourceBundle, error) {
	manifest, err := a.client.MetadataScan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnavailable, err)
	}

	entries := filterManifest(manifest, session)
	if session == "" && len(entries) > 0 {
		session = entries[0].Session
	}

	bundle := &SourceBundle{
		SessionName:       session,
		Manifest:          entries,
		Detections:        make(map[models.Triple][]models.Detection, len(entries)),
		Images:            make(map[models.Triple][]provider.ImageEntry, len(entries)),
		GPSCapableCameras: make(map[string]bool),
		Failures:          make(map[string]string),
	}

	// rawDetections is kept for the GPS fallback chain; coordinates are
	// only visible pre-normalization.
	rawDetections := make(map[models.Triple][]provider.RawRow, len(entries))

	var mu stdsync.Mutex
	var wg stdsync.WaitGroup

	var gpsRows []provider.RawRow
	var gpsErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		gpsRows, gpsErr = a.client.GPSData(ctx, session)
	}()

	var sampleRows []provider.RawRow
	var samplesErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		sampleRows, samplesErr = a.client.SystemMetrics(ctx, session)
	}()

	for _, entry := range entries {
		triple := entry.Key()

		if entry.HasMetadata {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rows, err := a.client.DetectionRows(ctx, triple)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					bundle.Failures["detections:"+triple.String()] = err.Error()
					metrics.SourceFailures.WithLabelValues("detections").Inc()
					return
				}
				rawDetections[triple] = rows
			}()
		}

		if entry.HasImages {
			wg.Add(1)
			go func() {
				defer wg.Done()
				images, err := a.client.Images(ctx, triple)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					bundle.Failures["images:"+triple.String()] = err.Error()
					metrics.SourceFailures.WithLabelValues("images").Inc()
					return
				}
				bundle.Images[triple] = images
			}()
		}
	}

	wg.Wait()

	if samplesErr != nil {
		bundle.Failures["telemetry"] = samplesErr.Error()
		metrics.SourceFailures.WithLabelValues("telemetry").Inc()
	} else {
		bundle.Samples = normalizeSamples(sampleRows)
	}

	for triple, rows := range rawDetections {
		detections := make([]models.Detection, 0, len(rows))
		for _, raw := range rows {
			row := normalize.Row(raw)
			if row.IsEmpty() {
				continue
			}
			detections = append(detections, normalize.Detection(row))
			if row.HasCoordinates() {
				bundle.GPSCapableCameras[triple.Camera] = true
			}
		}
		bundle.Detections[triple] = detections
	}

	bundle.GPS = a.collectGPS(ctx, gpsRows, gpsErr, rawDetections, bundle)
	sortFixes(bundle.GPS)

	logging.Info().
		Str("session", session).
		Int("manifest_entries", len(entries)).
		Int("gps_fixes", len(bundle.GPS)).
		Int("telemetry_samples", len(bundle.Samples)).
		Int("source_failures", len(bundle.Failures)).
		Msg("Source aggregation complete")

	return bundle, nil
}

// collectGPS resolves the GPS backbone through the fallback chain:
// track log, then coordinates embedded in detection metadata, then a
// deterministic synthetic placeholder trace. Each fallback step is tagged
// with its source so synthetic data is never mistaken for real fixes.
func (a *Aggregator) collectGPS(ctx context.Context, gpsRows []provider.RawRow, gpsErr error,
	rawDetections map[models.Triple][]provider.RawRow, bundle *SourceBundle) []models.GPSFix {

	if gpsErr != nil {
		bundle.Failures["gps"] = gpsErr.Error()
		metrics.SourceFailures.WithLabelValues("gps").Inc()
	} else if fixes := normalizeFixes(gpsRows, models.GPSSourceTrackLog); len(fixes) > 0 {
		return fixes
	}

	// Fallback 1: the provider's gps-from-metadata endpoint, then raw
	// detection rows with embedded coordinates.
	var derived []models.GPSFix
	for _, entry := range bundle.Manifest {
		triple := entry.Key()
		rows, err := a.client.GPSFromMetadata(ctx, triple)
		if err != nil {
			rows = rawDetections[triple]
		}
		for _, raw := range rows {
			row := normalize.Row(raw)
			if row.HasCoordinates() {
				derived = append(derived, normalize.GPSFix(row, models.GPSSourceMetadata))
			}
		}
	}
	if len(derived) > 0 {
		logging.Warn().Int("fixes", len(derived)).Msg("GPS track log unavailable, derived trace from detection metadata")
		return derived
	}

	// Fallback 2: deterministic placeholder trace so a session with real
	// detection data never loses its timeline just because GPS is missing.
	// An empty manifest stays empty; the placeholder is not a session.
	if len(bundle.Manifest) == 0 {
		return nil
	}
	logging.Warn().Msg("No GPS source available, generating synthetic placeholder trace")
	return a.syntheticTrace()
}

// syntheticTrace generates the seeded placeholder trace: evenly spaced in
// time, random-walking around the configured seed region.
func (a *Aggregator) syntheticTrace() []models.GPSFix {
	rng := rand.New(rand.NewSource(a.cfg.SyntheticSeed))
	base, _ := time.ParseInLocation(normalize.TimestampLayout, syntheticBaseStamp, time.UTC)

	lat, lon := a.cfg.SyntheticLatitude, a.cfg.SyntheticLongitude
	fixes := make([]models.GPSFix, 0, syntheticFixCount)
	for i := 0; i < syntheticFixCount; i++ {
		stamp := base.Add(time.Duration(i) * syntheticSpacing)
		fixes = append(fixes, models.GPSFix{
			Timestamp: stamp.Format(normalize.TimestampLayout),
			Epoch:     stamp.Unix(),
			Latitude:  lat,
			Longitude: lon,
			Source:    models.GPSSourceSynthetic,
		})
		lat += (rng.Float64() - 0.5) * syntheticWalkStride
		lon += (rng.Float64() - 0.5) * syntheticWalkStride
	}
	return fixes
}

// normalizeFixes converts raw rows to typed fixes, dropping empty rows.
func normalizeFixes(rows []provider.RawRow, source models.GPSSource) []models.GPSFix {
	fixes := make([]models.GPSFix, 0, len(rows))
	for _, raw := range rows {
		row := normalize.Row(raw)
		if row.IsEmpty() {
			continue
		}
		fixes = append(fixes, normalize.GPSFix(row, source))
	}
	return fixes
}

// normalizeSamples converts raw telemetry rows, dropping empty rows and
// sorting by timestamp.
func normalizeSamples(rows []provider.RawRow) []models.SystemSample {
	samples := make([]models.SystemSample, 0, len(rows))
	for _, raw := range rows {
		row := normalize.Row(raw)
		if row.IsEmpty() {
			continue
		}
		samples = append(samples, normalize.SystemSample(row))
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})
	return samples
}

// sortFixes orders fixes ascending by canonical timestamp. The sort is
// stable: equal timestamps keep their GPS arrival order.
func sortFixes(fixes []models.GPSFix) {
	sort.SliceStable(fixes, func(i, j int) bool {
		return fixes[i].Timestamp < fixes[j].Timestamp
	})
}

// filterManifest keeps the entries belonging to the named session, or all
// entries when no session is named.
func filterManifest(entries []models.ManifestEntry, session string) []models.ManifestEntry {
	if session == "" {
		return entries
	}
	filtered := make([]models.ManifestEntry, 0, len(entries))
	for _, e := range entries {
		if e.Session == session {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
