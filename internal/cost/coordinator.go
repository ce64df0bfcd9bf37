package cost

import (
	"log/slog"
	"sort"

	"github.com/fleetops/rollctl/internal/bus"
	"github.com/fleetops/rollctl/internal/model"
)

// Coordinator fans a request out to all estimators and blends the highest
// confidence predictions into one estimate, weighted by confidence. The
// blended value and its confidence feed the validation threshold later.
type Coordinator struct {
	estimators []Estimator
	blendCount int
	sink       bus.Sink
	logger     *slog.Logger
}

// NewCoordinator creates a coordinator blending the top blendCount
// estimates.
func NewCoordinator(estimators []Estimator, blendCount int, sink bus.Sink, logger *slog.Logger) *Coordinator {
	if blendCount <= 0 {
		blendCount = 2
	}
	return &Coordinator{
		estimators: estimators,
		blendCount: blendCount,
		sink:       sink,
		logger:     logger,
	}
}

// Estimate produces the blended prediction. A failing estimator is logged
// and skipped; with no estimates at all the result is zero with zero
// confidence.
func (c *Coordinator) Estimate(req model.CostRequest) (*model.CostEstimate, error) {
	results := make([]model.EstimatorResult, 0, len(c.estimators))
	for _, est := range c.estimators {
		result, err := est.Estimate(req)
		if err != nil {
			c.logger.Warn("estimator failed",
				slog.String("estimator", est.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	top := results
	if len(top) > c.blendCount {
		top = top[:c.blendCount]
	}

	estimate := &model.CostEstimate{Breakdown: results}
	if len(top) > 0 {
		totalWeight := 0.0
		for _, r := range top {
			totalWeight += r.Confidence
		}
		if totalWeight > 0 {
			weighted := 0.0
			confidence := 0.0
			for _, r := range top {
				weighted += r.GiBPerDay * r.Confidence
				confidence += r.Confidence
			}
			estimate.GiBPerDay = weighted / totalWeight
			estimate.Confidence = confidence / float64(len(top))
		} else {
			sum := 0.0
			for _, r := range top {
				sum += r.GiBPerDay
			}
			estimate.GiBPerDay = sum / float64(len(top))
		}
	}

	c.sink.Publish(bus.NewEvent(bus.TopicCostEstimated, map[string]any{
		"gib_per_day": estimate.GiBPerDay,
		"confidence":  estimate.Confidence,
	}))

	return estimate, nil
}
