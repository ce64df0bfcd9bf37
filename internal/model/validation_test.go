package model

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveThreshold(t *testing.T) {
	tests := []struct {
		threshold  float64
		confidence float64
		want       float64
	}{
		{0.10, 1.0, 0.10},
		{0.10, 0.5, 0.20},
		{0.20, 0.1, 1.0}, // clamped
		{0.10, 0.0, 0.10},
		{0.10, -1.0, 0.10},
		{0.10, 1.5, 0.10},
	}
	for _, tt := range tests {
		job := ValidationJob{ThresholdFraction: tt.threshold, Confidence: tt.confidence}
		assert.InDelta(t, tt.want, job.EffectiveThreshold(), 1e-9,
			"threshold=%v confidence=%v", tt.threshold, tt.confidence)
	}
}

func TestDeviationPercent(t *testing.T) {
	assert.InDelta(t, 20.0, DeviationPercent(12.0, 10.0), 1e-9)
	assert.InDelta(t, 20.0, DeviationPercent(8.0, 10.0), 1e-9)
	assert.InDelta(t, 0.0, DeviationPercent(10.0, 10.0), 1e-9)
	assert.InDelta(t, 100.0, DeviationPercent(5.0, 0.0), 1e-9)
	assert.InDelta(t, 0.0, DeviationPercent(0.0, 0.0), 1e-9)
}

func TestNewValidationResult(t *testing.T) {
	results := map[string]HostValidationResult{
		"h1": {Hostname: "h1", WithinThreshold: true},
		"h2": {Hostname: "h2", WithinThreshold: true},
		"h3": {Hostname: "h3", WithinThreshold: false},
	}

	r := NewValidationResult(results, 42.0)

	assert.False(t, r.OverallPass)
	assert.InDelta(t, 2.0/3.0, r.PassRate, 1e-9)
	assert.Equal(t, "Validation FAILED: 2/3 hosts within threshold (66.7%)", r.Summary)
	assert.InDelta(t, 42.0, r.QueryDurationMs, 1e-9)
}

func TestNewValidationResultAllPass(t *testing.T) {
	results := map[string]HostValidationResult{
		"h1": {Hostname: "h1", WithinThreshold: true},
	}

	r := NewValidationResult(results, 1.0)

	assert.True(t, r.OverallPass)
	assert.InDelta(t, 1.0, r.PassRate, 1e-9)
	assert.Equal(t, "Validation PASSED: 1/1 hosts within threshold (100.0%)", r.Summary)
}

func TestNewValidationResultEmptyNeverPasses(t *testing.T) {
	r := NewValidationResult(map[string]HostValidationResult{}, 0)

	assert.False(t, r.OverallPass)
	assert.Zero(t, r.PassRate)
}

func TestTotalActualGiBPerDay(t *testing.T) {
	results := make(map[string]HostValidationResult)
	for i := 1; i <= 3; i++ {
		h := "h" + strconv.Itoa(i)
		results[h] = HostValidationResult{Hostname: h, ActualGiBPerDay: float64(i)}
	}
	r := NewValidationResult(results, 0)

	assert.InDelta(t, 6.0, r.TotalActualGiBPerDay(), 1e-9)
}
