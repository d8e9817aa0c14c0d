// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package models

// ImageRefs holds the image identifiers attached to one frame for one
// (camera, anomaly type) slot: short file names plus fully resolved URLs.
type ImageRefs struct {
	Names []string `json:"names"`
	Paths []string `json:"paths"`
}

// TimelineFrame is the atomic unit of the synchronized timeline and of
// playback. Exactly one frame is created per retained GPS fix, anchored at
// that fix's position and timestamp.
//
// Latitude and longitude are always present: they are copied from the
// anchoring fix, or default to (0,0) when the trace itself is positionless.
// A frame is never without a position, even a synthetic one.
//
// Images maps camera name to anomaly type to the image identifiers sampled
// for this frame.
type TimelineFrame struct {
	Index     int     `json:"index"`
	Timestamp string  `json:"timestamp"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    GPSSource `json:"gps_source"`

	Detections []Detection                     `json:"detections"`
	Images     map[string]map[string]ImageRefs `json:"images"`
}
