package model

import (
	"fmt"
	"math"
)

// ValidationJob describes a post-rollout ingest check for a set of hosts.
// Immutable after construction.
type ValidationJob struct {
	Hosts             []string `json:"hosts"`
	ExpectedGiBPerDay float64  `json:"expected_gib_day"`
	Confidence        float64  `json:"confidence"`
	ThresholdFraction float64  `json:"threshold"`
	TimeframeHours    int      `json:"timeframe_hours"`
}

// DefaultTimeframeHours is the lookback window for ingest queries.
const DefaultTimeframeHours = 24

// DefaultThresholdFraction is the allowed relative deviation from the
// predicted ingest.
const DefaultThresholdFraction = 0.10

// EffectiveThreshold widens the allowed deviation as prediction confidence
// drops: a 10% threshold at 0.5 confidence tolerates 20% deviation. The
// result is clamped to 1.0 (any deviation up to 100%). Confidence outside
// (0, 1) leaves the configured threshold untouched.
func (j *ValidationJob) EffectiveThreshold() float64 {
	if j.Confidence <= 0 || j.Confidence >= 1 {
		return j.ThresholdFraction
	}
	t := j.ThresholdFraction / j.Confidence
	if t > 1 {
		t = 1
	}
	return t
}

// HostValidationResult is the verdict for a single host.
type HostValidationResult struct {
	Hostname          string  `json:"hostname"`
	ExpectedGiBPerDay float64 `json:"expected_gib_day"`
	ActualGiBPerDay   float64 `json:"actual_gib_day"`
	DeviationPercent  float64 `json:"deviation_percent"`
	WithinThreshold   bool    `json:"within_threshold"`
	Message           string  `json:"message"`
}

// DeviationPercent computes |actual-expected|/expected as a percentage.
// When expected is zero it is 100 for any non-zero actual, else 0.
func DeviationPercent(actual, expected float64) float64 {
	if expected == 0 {
		if actual != 0 {
			return 100
		}
		return 0
	}
	return math.Abs(actual-expected) / expected * 100
}

// ValidationResult is the overall verdict for a validation job. It is
// computed once from the per-host results and never mutated afterwards.
type ValidationResult struct {
	HostResults     map[string]HostValidationResult `json:"host_results"`
	PassRate        float64                         `json:"pass_rate"`
	OverallPass     bool                            `json:"overall_pass"`
	QueryDurationMs float64                         `json:"query_duration_ms"`
	Summary         string                          `json:"summary"`
}

// NewValidationResult derives the aggregate verdict from per-host results.
// Overall pass requires every host within threshold; there is no majority
// relaxation.
func NewValidationResult(hostResults map[string]HostValidationResult, queryDurationMs float64) ValidationResult {
	passCount := 0
	for _, r := range hostResults {
		if r.WithinThreshold {
			passCount++
		}
	}

	passRate := 0.0
	if len(hostResults) > 0 {
		passRate = float64(passCount) / float64(len(hostResults))
	}
	overallPass := len(hostResults) > 0 && passCount == len(hostResults)

	status := "FAILED"
	if overallPass {
		status = "PASSED"
	}
	summary := fmt.Sprintf("Validation %s: %d/%d hosts within threshold (%.1f%%)",
		status, passCount, len(hostResults), passRate*100)

	return ValidationResult{
		HostResults:     hostResults,
		PassRate:        passRate,
		OverallPass:     overallPass,
		QueryDurationMs: queryDurationMs,
		Summary:         summary,
	}
}

// TotalActualGiBPerDay sums the measured ingest across all hosts.
func (r *ValidationResult) TotalActualGiBPerDay() float64 {
	total := 0.0
	for _, hr := range r.HostResults {
		total += hr.ActualGiBPerDay
	}
	return total
}
