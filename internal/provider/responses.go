// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package provider

import "github.com/mkarlsen/roadscan/internal/models"

// RawRow is one untyped record from a provider payload. Typing happens in
// the normalize package; the provider only moves bytes.
type RawRow = map[string]interface{}

// baseResponse is the common wrapper every provider endpoint returns.
// A payload with success=false means "source unavailable", identical in
// effect to a non-2xx status.
type baseResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// rowsResponse wraps endpoints returning untyped record arrays
// (/api/gps-data, /api/system-metrics, /api/metadata/{...},
// /api/gps-from-metadata).
type rowsResponse struct {
	baseResponse
	Data []RawRow `json:"data"`
}

// scanResponse wraps /api/metadata/scan, the manifest.
type scanResponse struct {
	baseResponse
	Files []scanFile `json:"files"`
}

// scanFile is one manifest entry on the wire.
type scanFile struct {
	Session     string `json:"session"`
	Camera      string `json:"camera"`
	AnomalyType string `json:"anomalyType"`
	ImageCount  int    `json:"imageCount"`
	HasImages   bool   `json:"hasImages"`
	HasMetadata bool   `json:"hasMetadata"`
	Resolution  string `json:"resolution"`
}

func (f scanFile) toModel() models.ManifestEntry {
	return models.ManifestEntry{
		Session:     f.Session,
		Camera:      f.Camera,
		AnomalyType: f.AnomalyType,
		ImageCount:  f.ImageCount,
		HasImages:   f.HasImages,
		HasMetadata: f.HasMetadata,
		Resolution:  f.Resolution,
	}
}

// ImageEntry is one listed image for a triple.
type ImageEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
	URL      string `json:"url"`
}

// imagesResponse wraps /api/images/{session}/{camera}/{anomalyType}.
type imagesResponse struct {
	baseResponse
	Images []ImageEntry `json:"images"`
}

// healthResponse wraps /health.
type healthResponse struct {
	baseResponse
	Status string `json:"status"`
}

// DashboardCamera is one per-camera summary from /api/dashboard.
type DashboardCamera struct {
	Camera        string         `json:"camera"`
	AnomalyCounts map[string]int `json:"anomalyCounts"`
}

// DashboardSummary is the provider's dashboard overview.
type DashboardSummary struct {
	Sessions []string          `json:"sessions"`
	Cameras  []DashboardCamera `json:"cameras"`
}

// dashboardResponse wraps /api/dashboard.
type dashboardResponse struct {
	baseResponse
	Data DashboardSummary `json:"data"`
}
