// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package normalize

// Per-field alias lists, resolved in order. Upstream survey tooling has
// renamed columns across firmware revisions; the first alias present in a
// row wins. Keep new aliases at the end so older data keeps its meaning.
var (
	aliasTimestamp = []string{"timestamp", "time_stamp", "datetime", "recording_timestamp"}
	aliasDate      = []string{"date", "capture_date"}
	aliasTime      = []string{"time", "capture_time"}

	aliasLatitude  = []string{"latitude", "lat", "gps_lat", "vehicle_lat"}
	aliasLongitude = []string{"longitude", "lon", "lng", "gps_lon", "vehicle_lon"}
	aliasAltitude  = []string{"altitude", "alt", "elevation"}
	aliasSpeed     = []string{"speed", "gps_speed", "velocity"}
	aliasHeading   = []string{"heading", "course", "bearing"}

	aliasFrameNum   = []string{"frame_num", "frame_number", "frame"}
	aliasStreamID   = []string{"stream_id", "stream", "camera_id"}
	aliasClassName  = []string{"class_name", "class", "label", "anomaly_type"}
	aliasConfidence = []string{"confidence", "conf", "score"}
	aliasBoxLeft    = []string{"left", "bbox_left", "x", "x1"}
	aliasBoxTop     = []string{"top", "bbox_top", "y", "y1"}
	aliasBoxWidth   = []string{"width", "bbox_width", "w"}
	aliasBoxHeight  = []string{"height", "bbox_height", "h"}
	aliasImagePath  = []string{"image_path", "image", "img_path", "file_path"}
)

// telemetryFields maps each SystemSample field to its aliases and its
// documented default. Defaults are deterministic: normalizing the same row
// twice yields identical records.
//
// memory_total_mb and swap_total_mb default to the survey rig's nominal
// capacities; everything else defaults to zero.
var telemetryFields = []telemetryField{
	{"cpu_percent", []string{"cpu_percent", "cpu_usage", "cpu"}, 0},
	{"cpu_temp_c", []string{"cpu_temp_c", "cpu_temp", "cpu_temperature"}, 0},
	{"cpu_freq_mhz", []string{"cpu_freq_mhz", "cpu_freq"}, 0},
	{"gpu_percent", []string{"gpu_percent", "gpu_usage", "gpu"}, 0},
	{"gpu_temp_c", []string{"gpu_temp_c", "gpu_temp", "gpu_temperature"}, 0},
	{"gpu_freq_mhz", []string{"gpu_freq_mhz", "gpu_freq"}, 0},
	{"memory_used_mb", []string{"memory_used_mb", "mem_used_mb", "ram_used"}, 0},
	{"memory_total_mb", []string{"memory_total_mb", "mem_total_mb", "ram_total"}, 8192},
	{"memory_percent", []string{"memory_percent", "mem_percent", "ram_percent"}, 0},
	{"swap_used_mb", []string{"swap_used_mb", "swap_used"}, 0},
	{"swap_total_mb", []string{"swap_total_mb", "swap_total"}, 4096},
	{"disk_used_gb", []string{"disk_used_gb", "disk_used"}, 0},
	{"disk_total_gb", []string{"disk_total_gb", "disk_total"}, 0},
	{"disk_percent", []string{"disk_percent", "disk_usage"}, 0},
	{"board_temp_c", []string{"board_temp_c", "board_temp", "soc_temp"}, 0},
	{"power_draw_w", []string{"power_draw_w", "power_draw", "power_w"}, 0},
	{"power_voltage", []string{"power_voltage", "voltage"}, 0},
	{"fan_rpm", []string{"fan_rpm", "fan_speed"}, 0},
	{"uptime_sec", []string{"uptime_sec", "uptime"}, 0},
	{"process_count", []string{"process_count", "num_processes"}, 0},
}

type telemetryField struct {
	name    string
	aliases []string
	def     float64
}

// DefaultConfidence is assigned when a detection row carries no confidence
// column at all. A malformed (present but unparsable) confidence still
// normalizes to 0 like any other numeric field.
const DefaultConfidence = 0.8
