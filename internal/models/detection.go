// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package models

// BoundingBox is detection geometry in source-image pixel coordinates.
// All fields are non-negative.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one bounding-box observation of a road anomaly. A detection
// belongs to exactly one timeline frame once attached; detections are never
// shared across frames.
//
// StreamID identifies the originating camera lane numerically. The raw
// detection stream does not carry camera names; camera identity is inferred
// from the stream-ID range during timeline synthesis and recorded in Camera.
type Detection struct {
	FrameNum   int         `json:"frame_num"`
	StreamID   int         `json:"stream_id"`
	Camera     string      `json:"camera,omitempty"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
	Timestamp  string      `json:"timestamp,omitempty"`
	Epoch      int64       `json:"-"`
	ImagePath  string      `json:"image_path,omitempty"`
}

// CameraInfo is the descriptive and aggregate record for one camera within
// a session. It is rebuilt wholesale from the detection-metadata manifest on
// every session load and never mutated incrementally.
type CameraInfo struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Resolution     string   `json:"resolution"`
	Color          string   `json:"color"`
	Session        string   `json:"session"`
	DetectionCount int      `json:"detection_count"`
	ImageCount     int      `json:"image_count"`
	Classes        []string `json:"classes"`
}

// Triple identifies one detection/image stream: a (session, camera,
// anomaly type) key from the manifest.
type Triple struct {
	Session     string `json:"session"`
	Camera      string `json:"camera"`
	AnomalyType string `json:"anomaly_type"`
}

// String renders the triple in its path form, as used by the provider URLs.
func (t Triple) String() string {
	return t.Session + "/" + t.Camera + "/" + t.AnomalyType
}

// ManifestEntry describes one triple discovered by the provider's scan
// endpoint, with data-presence flags. The manifest is the single fatal
// dependency of a session load: without it no cameras or timeline can be
// constructed.
type ManifestEntry struct {
	Session     string `json:"session"`
	Camera      string `json:"camera"`
	AnomalyType string `json:"anomaly_type"`
	ImageCount  int    `json:"image_count"`
	HasImages   bool   `json:"has_images"`
	HasMetadata bool   `json:"has_metadata"`
	Resolution  string `json:"resolution,omitempty"`
}

// Key returns the triple key for this manifest entry.
func (e ManifestEntry) Key() Triple {
	return Triple{Session: e.Session, Camera: e.Camera, AnomalyType: e.AnomalyType}
}
