// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package session

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mkarlsen/roadscan/internal/models"
)

// cameraPalette assigns a stable accent color per camera, cycling in
// manifest order.
var cameraPalette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

// buildCameras aggregates the manifest and normalized detections into one
// CameraInfo per camera, in manifest order. Counts and class sets are
// recomputed wholesale; nothing is carried over from a previous load.
func buildCameras(bundle *SourceBundle) []models.CameraInfo {
	order := camerasInOrder(bundle.Manifest)
	byName := make(map[string]*models.CameraInfo, len(order))

	for i, name := range order {
		byName[name] = &models.CameraInfo{
			Name:        name,
			DisplayName: displayName(name),
			Color:       cameraPalette[i%len(cameraPalette)],
			Session:     bundle.SessionName,
			Classes:     []string{},
		}
	}

	for _, entry := range bundle.Manifest {
		info := byName[entry.Camera]
		info.ImageCount += entry.ImageCount
		if info.Resolution == "" {
			info.Resolution = entry.Resolution
		}
	}

	for triple, detections := range bundle.Detections {
		info, ok := byName[triple.Camera]
		if !ok {
			continue
		}
		info.DetectionCount += len(detections)
		classes := make(map[string]bool, len(info.Classes))
		for _, c := range info.Classes {
			classes[c] = true
		}
		for _, det := range detections {
			if det.ClassName != "" && !classes[det.ClassName] {
				classes[det.ClassName] = true
				info.Classes = append(info.Classes, det.ClassName)
			}
		}
		sort.Strings(info.Classes)
	}

	cameras := make([]models.CameraInfo, 0, len(order))
	for _, name := range order {
		cameras = append(cameras, *byName[name])
	}
	return cameras
}

// buildGPSStats computes the trace bounds and per-source mix. Bounds only
// consider fixes with a real position, so a trace of all-zero fallback
// fixes yields zero bounds rather than a bogus (0,0) bounding box being
// mixed with real coordinates.
func buildGPSStats(bundle *SourceBundle, cameraCount int) models.GPSStats {
	stats := models.GPSStats{
		TotalFixes: len(bundle.GPS),
		BySource:   make(map[models.GPSSource]int),
	}

	first := true
	for _, fix := range bundle.GPS {
		stats.BySource[fix.Source]++
		if !fix.HasPosition() {
			continue
		}
		if first {
			stats.MinLatitude, stats.MaxLatitude = fix.Latitude, fix.Latitude
			stats.MinLongitude, stats.MaxLongitude = fix.Longitude, fix.Longitude
			first = false
			continue
		}
		if fix.Latitude < stats.MinLatitude {
			stats.MinLatitude = fix.Latitude
		}
		if fix.Latitude > stats.MaxLatitude {
			stats.MaxLatitude = fix.Latitude
		}
		if fix.Longitude < stats.MinLongitude {
			stats.MinLongitude = fix.Longitude
		}
		if fix.Longitude > stats.MaxLongitude {
			stats.MaxLongitude = fix.Longitude
		}
	}

	if cameraCount > 0 {
		stats.Coverage = float64(len(bundle.GPSCapableCameras)) / float64(cameraCount)
	}
	return stats
}

// displayName prettifies a raw camera identifier: underscores become
// spaces and each word is capitalized, so "cam_front" renders "Cam Front".
func displayName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
