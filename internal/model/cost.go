package model

// CostRequest asks for a predicted data-ingest volume for a proposed
// agent configuration.
type CostRequest struct {
	PresetID       string   `json:"preset_id"`
	HostCount      int      `json:"host_count"`
	SampleRate     int      `json:"sample_rate"`
	FilterMode     string   `json:"filter_mode,omitempty"`
	FilterPatterns []string `json:"filter_patterns,omitempty"`
}

// EstimatorResult is a single estimator's prediction with its confidence.
type EstimatorResult struct {
	Estimator  string  `json:"estimator"`
	GiBPerDay  float64 `json:"gib_per_day"`
	Confidence float64 `json:"confidence"`
}

// CostEstimate is the blended prediction across estimators. Confidence
// feeds the validation threshold downstream.
type CostEstimate struct {
	GiBPerDay  float64           `json:"gib_per_day"`
	Confidence float64           `json:"confidence"`
	Breakdown  []EstimatorResult `json:"breakdown,omitempty"`
}
