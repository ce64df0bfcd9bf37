package model

import "time"

// ServiceStatus reports the current state of a rollctl instance.
type ServiceStatus struct {
	DefaultMode       string    `json:"default_mode"`       // Backend mode used when a request does not specify one
	MetricsConfigured bool      `json:"metrics_configured"` // Whether a metrics client is available for validation
	BreakerOpen       bool      `json:"breaker_open"`       // Whether the metrics circuit breaker is currently open
	PresetCount       int       `json:"preset_count"`       // Number of presets visible on the search path
	StartedAt         time.Time `json:"started_at"`
	UptimeS           float64   `json:"uptime_s"`
}
