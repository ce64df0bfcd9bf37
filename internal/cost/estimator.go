package cost

import (
	"fmt"

	"github.com/fleetops/rollctl/internal/model"
	"github.com/fleetops/rollctl/internal/preset"
)

const secondsPerDay = 86400

const gib = 1024 * 1024 * 1024

// Estimator predicts the daily ingest a configuration will produce.
// Estimators may fail individually; the coordinator carries on with the
// rest.
type Estimator interface {
	Name() string
	Estimate(req model.CostRequest) (model.EstimatorResult, error)
}

// StaticEstimator derives ingest from the preset's per-sample volume and
// keep ratio: hosts × bytes/sample × samples/day × keep ratio.
type StaticEstimator struct {
	presets *preset.Loader
}

// NewStaticEstimator creates the preset-arithmetic estimator.
func NewStaticEstimator(presets *preset.Loader) *StaticEstimator {
	return &StaticEstimator{presets: presets}
}

// Name identifies the estimator in estimate breakdowns.
func (e *StaticEstimator) Name() string { return "static" }

// Estimate computes the static prediction for the request.
func (e *StaticEstimator) Estimate(req model.CostRequest) (model.EstimatorResult, error) {
	if req.HostCount <= 0 {
		return model.EstimatorResult{}, fmt.Errorf("host count must be positive, got %d", req.HostCount)
	}

	p, err := e.presets.Load(req.PresetID)
	if err != nil {
		return model.EstimatorResult{}, err
	}

	sampleRate := req.SampleRate
	if sampleRate <= 0 {
		sampleRate = p.DefaultSampleRate
	}

	bytesPerDay := float64(req.HostCount) *
		float64(p.AvgBytesPerSample) *
		(secondsPerDay / float64(sampleRate)) *
		p.ExpectedKeepRatio

	return model.EstimatorResult{
		Estimator:  e.Name(),
		GiBPerDay:  bytesPerDay / gib,
		Confidence: 0.8,
	}, nil
}
