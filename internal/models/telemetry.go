// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package models

// SystemSample is one embedded-system telemetry snapshot captured during a
// survey run. Samples are kept as a flat ordered sequence on the session
// snapshot; they are consumed by the telemetry display independently of the
// timeline and are never merged into frames.
//
// Every numeric field is defaulted independently by the normalizer when the
// raw row omits it, so a partially populated sample is still usable.
type SystemSample struct {
	Timestamp string `json:"timestamp"`
	Epoch     int64  `json:"-"`

	CPUPercent float64 `json:"cpu_percent"`
	CPUTempC   float64 `json:"cpu_temp_c"`
	CPUFreqMHz float64 `json:"cpu_freq_mhz"`

	GPUPercent float64 `json:"gpu_percent"`
	GPUTempC   float64 `json:"gpu_temp_c"`
	GPUFreqMHz float64 `json:"gpu_freq_mhz"`

	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	SwapUsedMB    float64 `json:"swap_used_mb"`
	SwapTotalMB   float64 `json:"swap_total_mb"`

	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskPercent float64 `json:"disk_percent"`

	BoardTempC   float64 `json:"board_temp_c"`
	PowerDrawW   float64 `json:"power_draw_w"`
	PowerVoltage float64 `json:"power_voltage"`
	FanRPM       float64 `json:"fan_rpm"`

	UptimeSec    float64 `json:"uptime_sec"`
	ProcessCount float64 `json:"process_count"`
}
