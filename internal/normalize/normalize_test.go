// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/roadscan/internal/models"
)

func TestGPSFixAliases(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		lat  float64
		lon  float64
	}{
		{"canonical names", Row{"latitude": 12.97, "longitude": 77.59}, 12.97, 77.59},
		{"short names", Row{"lat": 12.97, "lon": 77.59}, 12.97, 77.59},
		{"vehicle prefix", Row{"vehicle_lat": "12.5", "vehicle_lon": "77.5"}, 12.5, 77.5},
		{"alias order prefers canonical", Row{"latitude": 1.0, "lat": 2.0, "longitude": 3.0}, 1.0, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := GPSFix(tt.row, models.GPSSourceTrackLog)
			assert.Equal(t, tt.lat, fix.Latitude)
			assert.Equal(t, tt.lon, fix.Longitude)
			assert.Equal(t, models.GPSSourceTrackLog, fix.Source)
		})
	}
}

func TestGPSFixMalformedCoordinatesDefaultToZero(t *testing.T) {
	tests := []struct {
		name string
		row  Row
	}{
		{"unparsable", Row{"latitude": "not-a-number", "longitude": "nope"}},
		{"latitude out of range", Row{"latitude": 95.0, "longitude": 200.0}},
		{"missing entirely", Row{"speed": 4.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := GPSFix(tt.row, models.GPSSourceTrackLog)
			assert.Zero(t, fix.Latitude)
			assert.Zero(t, fix.Longitude)
		})
	}
}

func TestGPSFixTimestampResolution(t *testing.T) {
	combined := GPSFix(Row{"timestamp": "2024-03-15 10:00:30"}, models.GPSSourceTrackLog)
	assert.Equal(t, "2024-03-15 10:00:30", combined.Timestamp)
	assert.NotZero(t, combined.Epoch)

	split := GPSFix(Row{"date": "2024-03-15", "time": "10:00:30"}, models.GPSSourceTrackLog)
	assert.Equal(t, "2024-03-15 10:00:30", split.Timestamp)
	assert.Equal(t, combined.Epoch, split.Epoch)

	none := GPSFix(Row{"latitude": 1.0}, models.GPSSourceTrackLog)
	assert.Equal(t, EpochSentinel, none.Timestamp)
	assert.Zero(t, none.Epoch)
}

func TestGPSFixISOTimestampCanonicalized(t *testing.T) {
	fix := GPSFix(Row{"timestamp": "2024-03-15T10:00:30Z"}, models.GPSSourceTrackLog)
	assert.Equal(t, "2024-03-15 10:00:30", fix.Timestamp)
}

func TestDeterministicDefaults(t *testing.T) {
	row := Row{"latitude": "garbage", "speed": nil, "heading": "???"}

	a := GPSFix(row, models.GPSSourceMetadata)
	b := GPSFix(row, models.GPSSourceMetadata)
	assert.Equal(t, a, b)

	s1 := SystemSample(Row{"cpu_percent": "bad"})
	s2 := SystemSample(Row{"cpu_percent": "bad"})
	assert.Equal(t, s1, s2)
}

func TestSystemSampleDefaults(t *testing.T) {
	sample := SystemSample(Row{"timestamp": "2024-03-15 10:00:00", "cpu_percent": 42.5})

	assert.Equal(t, 42.5, sample.CPUPercent)
	assert.Equal(t, float64(8192), sample.MemoryTotalMB)
	assert.Equal(t, float64(4096), sample.SwapTotalMB)
	assert.Zero(t, sample.GPUPercent)
	assert.Zero(t, sample.FanRPM)
}

func TestSystemSampleAliases(t *testing.T) {
	sample := SystemSample(Row{
		"cpu_usage": 10.0,
		"gpu_temp":  55.5,
		"ram_total": 16384.0,
	})

	assert.Equal(t, 10.0, sample.CPUPercent)
	assert.Equal(t, 55.5, sample.GPUTempC)
	assert.Equal(t, 16384.0, sample.MemoryTotalMB)
}

func TestDetectionConfidenceDefaulting(t *testing.T) {
	absent := Detection(Row{"class_name": "pothole"})
	assert.Equal(t, DefaultConfidence, absent.Confidence)

	malformed := Detection(Row{"class_name": "pothole", "confidence": "broken"})
	assert.Zero(t, malformed.Confidence)

	present := Detection(Row{"class_name": "pothole", "confidence": 0.93})
	assert.Equal(t, 0.93, present.Confidence)

	clamped := Detection(Row{"class_name": "pothole", "confidence": 1.7})
	assert.Equal(t, 1.0, clamped.Confidence)
}

func TestDetectionBoxClampedNonNegative(t *testing.T) {
	det := Detection(Row{
		"class_name": "crack",
		"left":       -5.0,
		"top":        10.0,
		"width":      -1.0,
		"height":     20.0,
	})

	assert.Zero(t, det.Box.Left)
	assert.Equal(t, 10.0, det.Box.Top)
	assert.Zero(t, det.Box.Width)
	assert.Equal(t, 20.0, det.Box.Height)
}

func TestDetectionStringFieldsVerbatim(t *testing.T) {
	det := Detection(Row{"class_name": "Pole_Defect (rusted)"})
	assert.Equal(t, "Pole_Defect (rusted)", det.ClassName)
}

func TestDetectionNumericCoercion(t *testing.T) {
	det := Detection(Row{
		"frame_number": "120",
		"stream_id":    3.0,
		"class_name":   "pothole",
	})

	assert.Equal(t, 120, det.FrameNum)
	assert.Equal(t, 3, det.StreamID)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Row{}.IsEmpty())
	assert.True(t, Row{"a": "", "b": "   ", "c": nil}.IsEmpty())
	assert.False(t, Row{"a": "", "b": 0.0}.IsEmpty())
	assert.False(t, Row{"class_name": "pothole"}.IsEmpty())
}

func TestHasCoordinates(t *testing.T) {
	assert.True(t, Row{"vehicle_lat": 12.9, "vehicle_lon": 77.6}.HasCoordinates())
	assert.False(t, Row{"vehicle_lat": 0.0, "vehicle_lon": 0.0}.HasCoordinates())
	assert.False(t, Row{"vehicle_lat": 12.9}.HasCoordinates())
	assert.False(t, Row{"vehicle_lat": 99.0, "vehicle_lon": 77.6}.HasCoordinates())
}

func TestCanonicalTimestampLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-03-15 10:00:30", "2024-03-15 10:00:30"},
		{"2024-03-15T10:00:30", "2024-03-15 10:00:30"},
		{"2024-03-15T10:00:30Z", "2024-03-15 10:00:30"},
		{"2024/03/15 10:00:30", "2024-03-15 10:00:30"},
	}

	for _, tt := range tests {
		got, epoch, ok := CanonicalTimestamp(tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, got)
		assert.Positive(t, epoch)
	}

	_, _, ok := CanonicalTimestamp("yesterday at noon")
	assert.False(t, ok)
}

func TestSplitTimestamp(t *testing.T) {
	date, clock := SplitTimestamp("2024-03-15 10:00:30")
	assert.Equal(t, "2024-03-15", date)
	assert.Equal(t, "10:00:30", clock)
}
