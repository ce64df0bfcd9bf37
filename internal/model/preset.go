package model

import "fmt"

// FilterMode values accepted by presets.
const (
	FilterModeInclude = "include"
	FilterModeExclude = "exclude"
)

// Preset defines configuration defaults for a monitoring-agent setup:
// sampling rate, process filtering, and the per-sample volume used by the
// cost estimators.
type Preset struct {
	ID                string   `yaml:"id" json:"id"`
	DefaultSampleRate int      `yaml:"default_sample_rate" json:"default_sample_rate"`
	FilterMode        string   `yaml:"filter_mode" json:"filter_mode"`
	Tier1Patterns     []string `yaml:"tier1_patterns" json:"tier1_patterns"`
	ExpectedKeepRatio float64  `yaml:"expected_keep_ratio" json:"expected_keep_ratio"`
	AvgBytesPerSample int      `yaml:"avg_bytes_per_sample" json:"avg_bytes_per_sample"`
	SHA256            string   `yaml:"-" json:"sha256,omitempty"`
}

// Validate checks preset fields after loading.
func (p *Preset) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("preset id is required")
	}
	if p.FilterMode != FilterModeInclude && p.FilterMode != FilterModeExclude {
		return fmt.Errorf("filter_mode must be %q or %q, got %q", FilterModeInclude, FilterModeExclude, p.FilterMode)
	}
	if p.ExpectedKeepRatio < 0 || p.ExpectedKeepRatio > 1 {
		return fmt.Errorf("expected_keep_ratio must be between 0 and 1, got %v", p.ExpectedKeepRatio)
	}
	if p.DefaultSampleRate <= 0 {
		return fmt.Errorf("default_sample_rate must be positive, got %d", p.DefaultSampleRate)
	}
	if p.AvgBytesPerSample <= 0 {
		return fmt.Errorf("avg_bytes_per_sample must be positive, got %d", p.AvgBytesPerSample)
	}
	return nil
}
