// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package models

// GPSSource identifies where a GPS fix originated. Synthetic fixes must
// never be conflated with real ones, so the tag travels with every fix.
type GPSSource string

const (
	// GPSSourceTrackLog marks fixes read from the survey run's GPS track log.
	GPSSourceTrackLog GPSSource = "tracklog"

	// GPSSourceMetadata marks fixes derived from lat/lon columns embedded
	// in detection metadata rows.
	GPSSourceMetadata GPSSource = "metadata"

	// GPSSourceSynthetic marks placeholder fixes generated when no real
	// GPS source is available.
	GPSSourceSynthetic GPSSource = "synthetic"
)

// GPSFix is one positional sample. Timestamp is the canonical combined
// date+time key ("2006-01-02 15:04:05"); its lexicographic order matches
// chronological order. Epoch carries the parsed form for nearest-match
// arithmetic and is not serialized.
type GPSFix struct {
	Timestamp string    `json:"timestamp"`
	Epoch     int64     `json:"-"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
	Source    GPSSource `json:"source"`
}

// HasPosition reports whether the fix carries a usable position.
// (0,0) is the null-island placeholder produced by defaulting and is
// excluded from bounding-box statistics.
func (f *GPSFix) HasPosition() bool {
	return f.Latitude != 0 || f.Longitude != 0
}

// GPSStats holds derived statistics over a session's GPS trace.
type GPSStats struct {
	MinLatitude  float64           `json:"min_latitude"`
	MaxLatitude  float64           `json:"max_latitude"`
	MinLongitude float64           `json:"min_longitude"`
	MaxLongitude float64           `json:"max_longitude"`
	TotalFixes   int               `json:"total_fixes"`
	BySource     map[GPSSource]int `json:"by_source"`

	// Coverage is the fraction of cameras with at least one GPS-capable
	// anomaly source, in [0,1].
	Coverage float64 `json:"coverage"`
}
