// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package models

import "time"

// SessionSnapshot is the top-level aggregate produced by a session load.
// It is an immutable value: a new load replaces the whole snapshot, nothing
// patches it in place. Consumers (playback controller, presentation layer)
// hold a reference to one snapshot at a time.
//
// A snapshot with an empty timeline is a valid, distinguished state
// ("connected but empty") — distinct from a failed load, which produces no
// snapshot at all.
type SessionSnapshot struct {
	SessionName string    `json:"session_name"`
	SessionPath string    `json:"session_path"`
	LoadedAt    time.Time `json:"loaded_at"`
	Generation  uint64    `json:"generation"`

	Cameras       []CameraInfo    `json:"cameras"`
	Timeline      []TimelineFrame `json:"timeline"`
	GPSTrace      []GPSFix        `json:"gps_trace"`
	SystemSamples []SystemSample  `json:"system_samples"`
	GPSStats      GPSStats        `json:"gps_stats"`

	// SourceFailures records, per logical source ("gps", "telemetry",
	// "images:<triple>", ...), the reason the fetch was skipped or failed.
	// Partial failure degrades into empty data; it never fails the load.
	SourceFailures map[string]string `json:"source_failures,omitempty"`
}

// FrameAt returns the frame at index i, or nil when i is out of range.
func (s *SessionSnapshot) FrameAt(i int) *TimelineFrame {
	if s == nil || i < 0 || i >= len(s.Timeline) {
		return nil
	}
	return &s.Timeline[i]
}

// FrameCount returns the timeline length.
func (s *SessionSnapshot) FrameCount() int {
	if s == nil {
		return 0
	}
	return len(s.Timeline)
}

// Summary is the lightweight projection of a snapshot returned by the
// session endpoint. The full timeline is paged through the frame endpoint
// instead of being serialized wholesale.
type Summary struct {
	SessionName    string            `json:"session_name"`
	SessionPath    string            `json:"session_path"`
	LoadedAt       time.Time         `json:"loaded_at"`
	Generation     uint64            `json:"generation"`
	FrameCount     int               `json:"frame_count"`
	GPSFixCount    int               `json:"gps_fix_count"`
	SampleCount    int               `json:"sample_count"`
	Cameras        []CameraInfo      `json:"cameras"`
	GPSStats       GPSStats          `json:"gps_stats"`
	SourceFailures map[string]string `json:"source_failures,omitempty"`
}

// Summarize builds the summary projection for API consumers.
func (s *SessionSnapshot) Summarize() Summary {
	return Summary{
		SessionName:    s.SessionName,
		SessionPath:    s.SessionPath,
		LoadedAt:       s.LoadedAt,
		Generation:     s.Generation,
		FrameCount:     len(s.Timeline),
		GPSFixCount:    len(s.GPSTrace),
		SampleCount:    len(s.SystemSamples),
		Cameras:        s.Cameras,
		GPSStats:       s.GPSStats,
		SourceFailures: s.SourceFailures,
	}
}

// PlaybackState is the externally visible state of the playback controller.
// EmptyIndex is the sentinel current index when the timeline is empty.
type PlaybackState struct {
	CurrentIndex   int     `json:"current_index"`
	IsPlaying      bool    `json:"is_playing"`
	Speed          float64 `json:"speed"`
	TimelineLength int     `json:"timeline_length"`
}

// EmptyIndex is the sentinel value of CurrentIndex for an empty timeline.
const EmptyIndex = -1
