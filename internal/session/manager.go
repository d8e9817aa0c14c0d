// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package session

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/metrics"
	"github.com/mkarlsen/roadscan/internal/models"
	"github.com/mkarlsen/roadscan/internal/provider"
)

// ReplaceFunc is invoked after a new snapshot has been published. Used by
// the playback controller to reset its position and by the realtime hub to
// notify connected clients.
type ReplaceFunc func(*models.SessionSnapshot)

// Manager owns the current session snapshot. Loads replace the snapshot
// wholesale; readers always see either the previous complete snapshot or
// the new one, never a partially assembled state.
type Manager struct {
	aggregator  *Aggregator
	synthesizer *Synthesizer

	// generation increases on every Load call; the snapshot records the
	// generation that produced it so stale loads can be detected.
	generation atomic.Uint64

	mu        stdsync.RWMutex
	current   *models.SessionSnapshot
	onReplace []ReplaceFunc
}

// NewManager creates a session manager over the given provider client.
func NewManager(client provider.Client, cfg config.TimelineConfig) *Manager {
	return &Manager{
		aggregator:  NewAggregator(client, cfg),
		synthesizer: NewSynthesizer(cfg),
	}
}

// OnReplace registers a callback run after each successful snapshot
// publication. Callbacks run under the publication lock, so they observe
// snapshots in publication order and must not call back into the Manager.
func (m *Manager) OnReplace(fn ReplaceFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReplace = append(m.onReplace, fn)
}

// Load assembles and publishes a new snapshot for the named session (empty
// name selects the provider's first session). On failure the previous
// snapshot stays in place.
//
// Concurrent loads race on the generation counter: only the newest load may
// publish. A load that finishes after a newer one has published returns
// ErrLoadSuperseded and discards its result.
func (m *Manager) Load(ctx context.Context, session string) (*models.SessionSnapshot, error) {
	gen := m.generation.Add(1)
	start := time.Now()

	bundle, err := m.aggregator.Collect(ctx, session)
	if err != nil {
		m.recordLoad(err, start)
		return nil, err
	}

	timeline := m.synthesizer.Build(bundle)
	cameras := buildCameras(bundle)

	snapshot := &models.SessionSnapshot{
		SessionName:    bundle.SessionName,
		SessionPath:    "sessions/" + bundle.SessionName,
		LoadedAt:       time.Now().UTC(),
		Generation:     gen,
		Cameras:        cameras,
		Timeline:       timeline,
		GPSTrace:       bundle.GPS,
		SystemSamples:  bundle.Samples,
		GPSStats:       buildGPSStats(bundle, len(cameras)),
		SourceFailures: bundle.Failures,
	}

	m.mu.Lock()
	if m.current != nil && m.current.Generation > gen {
		m.mu.Unlock()
		m.recordLoad(ErrLoadSuperseded, start)
		return nil, ErrLoadSuperseded
	}
	m.current = snapshot
	// Callbacks run while the lock is held: a racing load cannot publish a
	// newer snapshot and notify consumers before this one finishes, so
	// consumers always end up bound to the newest published snapshot.
	for _, fn := range m.onReplace {
		fn(snapshot)
	}
	m.mu.Unlock()

	m.recordLoadSuccess(snapshot, start)
	return snapshot, nil
}

// Current returns the published snapshot, or nil before the first
// successful load.
func (m *Manager) Current() *models.SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// FrameAt returns the current snapshot's frame at i, nil when out of range
// or before the first load.
func (m *Manager) FrameAt(i int) *models.TimelineFrame {
	return m.Current().FrameAt(i)
}

func (m *Manager) recordLoadSuccess(snapshot *models.SessionSnapshot, start time.Time) {
	outcome := "success"
	if len(snapshot.Timeline) == 0 {
		outcome = "empty"
	}
	metrics.SessionLoadsTotal.WithLabelValues(outcome).Inc()
	metrics.SessionLoadDuration.Observe(time.Since(start).Seconds())
	metrics.TimelineFrames.Set(float64(len(snapshot.Timeline)))

	logging.Info().
		Str("session", snapshot.SessionName).
		Uint64("generation", snapshot.Generation).
		Int("frames", len(snapshot.Timeline)).
		Int("cameras", len(snapshot.Cameras)).
		Dur("elapsed", time.Since(start)).
		Msg("Session snapshot published")
}

func (m *Manager) recordLoad(err error, start time.Time) {
	outcome := "error"
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrManifestUnavailable):
		outcome = "manifest_unavailable"
	case errors.Is(err, ErrLoadSuperseded):
		outcome = "superseded"
	}
	metrics.SessionLoadsTotal.WithLabelValues(outcome).Inc()
	metrics.SessionLoadDuration.Observe(time.Since(start).Seconds())

	logging.Error().Err(err).Str("outcome", outcome).Msg("Session load failed")
}
