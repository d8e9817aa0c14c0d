// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package normalize converts raw heterogeneous rows (untyped key/value
// mappings from the provider's JSON payloads) into strongly typed records.
//
// Normalization never fails a batch: a malformed row yields a best-effort
// record with documented deterministic defaults. The single exception is a
// structurally empty row (zero parseable cells), which callers drop via
// IsEmpty. String fields pass through verbatim because class and camera
// names are lookup keys elsewhere.
package normalize

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mkarlsen/roadscan/internal/models"
)

// Row is one raw record as decoded from a provider payload.
type Row map[string]interface{}

// str resolves the first present alias to a non-empty string.
func (r Row) str(aliases ...string) (string, bool) {
	for _, key := range aliases {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if strings.TrimSpace(s) != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), true
		case int:
			return strconv.Itoa(s), true
		case json.Number:
			return s.String(), true
		}
	}
	return "", false
}

// num resolves the first present alias to a float64. Returns (0, false)
// when no alias is present or none parses.
func (r Row) num(aliases ...string) (float64, bool) {
	for _, key := range aliases {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// present reports whether any alias exists in the row, parseable or not.
func (r Row) present(aliases ...string) bool {
	for _, key := range aliases {
		if v, ok := r[key]; ok && v != nil {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// IsEmpty reports whether the row is structurally empty: no cell holds a
// non-blank value. Empty rows are the only input normalization drops.
func (r Row) IsEmpty() bool {
	for _, v := range r {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(t) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// GPSFix normalizes one raw row into a GPS fix tagged with its source.
// Coordinates outside the valid ranges count as malformed and normalize to
// 0, preserving the latitude/longitude invariants.
func GPSFix(row Row, source models.GPSSource) models.GPSFix {
	ts, epoch := ResolveTimestamp(row)

	lat, _ := row.num(aliasLatitude...)
	if lat < -90 || lat > 90 {
		lat = 0
	}
	lon, _ := row.num(aliasLongitude...)
	if lon < -180 || lon > 180 {
		lon = 0
	}

	alt, _ := row.num(aliasAltitude...)
	speed, _ := row.num(aliasSpeed...)
	heading, _ := row.num(aliasHeading...)

	return models.GPSFix{
		Timestamp: ts,
		Epoch:     epoch,
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
		Speed:     speed,
		Heading:   heading,
		Source:    source,
	}
}

// SystemSample normalizes one telemetry row. Every numeric field is
// defaulted independently from the telemetryFields table when absent or
// unparsable.
func SystemSample(row Row) models.SystemSample {
	ts, epoch := ResolveTimestamp(row)

	vals := make(map[string]float64, len(telemetryFields))
	for _, f := range telemetryFields {
		if v, ok := row.num(f.aliases...); ok {
			vals[f.name] = v
		} else {
			vals[f.name] = f.def
		}
	}

	return models.SystemSample{
		Timestamp:     ts,
		Epoch:         epoch,
		CPUPercent:    vals["cpu_percent"],
		CPUTempC:      vals["cpu_temp_c"],
		CPUFreqMHz:    vals["cpu_freq_mhz"],
		GPUPercent:    vals["gpu_percent"],
		GPUTempC:      vals["gpu_temp_c"],
		GPUFreqMHz:    vals["gpu_freq_mhz"],
		MemoryUsedMB:  vals["memory_used_mb"],
		MemoryTotalMB: vals["memory_total_mb"],
		MemoryPercent: vals["memory_percent"],
		SwapUsedMB:    vals["swap_used_mb"],
		SwapTotalMB:   vals["swap_total_mb"],
		DiskUsedGB:    vals["disk_used_gb"],
		DiskTotalGB:   vals["disk_total_gb"],
		DiskPercent:   vals["disk_percent"],
		BoardTempC:    vals["board_temp_c"],
		PowerDrawW:    vals["power_draw_w"],
		PowerVoltage:  vals["power_voltage"],
		FanRPM:        vals["fan_rpm"],
		UptimeSec:     vals["uptime_sec"],
		ProcessCount:  vals["process_count"],
	}
}

// Detection normalizes one detection metadata row. Confidence defaults to
// DefaultConfidence only when the column is literally absent; a present but
// unparsable value normalizes to 0. Box fields are clamped non-negative and
// confidence is clamped into [0,1].
func Detection(row Row) models.Detection {
	// Detection timestamps are optional; only resolve when some time
	// information exists, so frames can tell timestamped rows apart.
	var tsStr string
	var epoch int64
	if row.present(aliasTimestamp...) || (row.present(aliasDate...) && row.present(aliasTime...)) {
		tsStr, epoch = ResolveTimestamp(row)
	}

	frameNum, _ := row.num(aliasFrameNum...)
	streamID, _ := row.num(aliasStreamID...)
	className, _ := row.str(aliasClassName...)

	confidence := DefaultConfidence
	if row.present(aliasConfidence...) {
		confidence, _ = row.num(aliasConfidence...)
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	box := models.BoundingBox{}
	box.Left, _ = row.num(aliasBoxLeft...)
	box.Top, _ = row.num(aliasBoxTop...)
	box.Width, _ = row.num(aliasBoxWidth...)
	box.Height, _ = row.num(aliasBoxHeight...)
	if box.Left < 0 {
		box.Left = 0
	}
	if box.Top < 0 {
		box.Top = 0
	}
	if box.Width < 0 {
		box.Width = 0
	}
	if box.Height < 0 {
		box.Height = 0
	}

	imagePath, _ := row.str(aliasImagePath...)

	return models.Detection{
		FrameNum:   int(frameNum),
		StreamID:   int(streamID),
		ClassName:  className,
		Confidence: confidence,
		Box:        box,
		Timestamp:  tsStr,
		Epoch:      epoch,
		ImagePath:  imagePath,
	}
}

// HasCoordinates reports whether a raw detection row carries parseable,
// in-range, non-zero lat/lon columns. Used by the GPS fallback chain to
// decide whether detection metadata can stand in for a missing track log.
func (r Row) HasCoordinates() bool {
	lat, latOK := r.num(aliasLatitude...)
	lon, lonOK := r.num(aliasLongitude...)
	if !latOK || !lonOK {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return lat != 0 || lon != 0
}
