package models

import "time"

// CPUStats describes system CPU usage.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats describes system memory usage.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	UsedMB      float64 `json:"used_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// ZoneStats describes the authoritative zone.
type ZoneStats struct {
	Records  int    `json:"records"`
	Services int    `json:"services"`
	Hostname string `json:"hostname"`
}

// ServerStatsResponse is the /stats payload.
type ServerStatsResponse struct {
	Uptime        string      `json:"uptime"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     time.Time   `json:"start_time"`
	CPU           CPUStats    `json:"cpu"`
	Memory        MemoryStats `json:"memory"`
	Zone          ZoneStats   `json:"zone"`
}
