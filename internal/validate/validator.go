package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fleetops/rollctl/internal/bus"
	"github.com/fleetops/rollctl/internal/metrics"
	"github.com/fleetops/rollctl/internal/model"
)

// Validator compares actual per-host ingest from the metrics store against
// a model-predicted value and produces a pass/fail verdict per host and
// overall.
type Validator struct {
	querier metrics.Querier
	sink    bus.Sink
	logger  *slog.Logger
}

// NewValidator creates a validator backed by the given metrics querier.
func NewValidator(querier metrics.Querier, sink bus.Sink, logger *slog.Logger) *Validator {
	return &Validator{querier: querier, sink: sink, logger: logger}
}

// Validate runs one batched ingest query for all hosts of the job and
// scores each host against the effective deviation threshold. A query-level
// failure marks every host failed with the error text; a host simply absent
// from the results is a validation failure with a "no data found" message,
// not an error.
func (v *Validator) Validate(ctx context.Context, job model.ValidationJob) (*model.ValidationResult, error) {
	if len(job.Hosts) == 0 {
		return nil, fmt.Errorf("validation job has no hosts")
	}

	timeframe := job.TimeframeHours
	if timeframe <= 0 {
		timeframe = model.DefaultTimeframeHours
	}

	v.logger.Info("starting validation",
		slog.Int("hosts", len(job.Hosts)),
		slog.Float64("expected_gib_day", job.ExpectedGiBPerDay),
		slog.Float64("threshold", job.EffectiveThreshold()),
		slog.Int("timeframe_hours", timeframe),
	)

	start := time.Now()
	hostResults := make(map[string]model.HostValidationResult, len(job.Hosts))

	queryResult, err := v.querier.Query(ctx, buildIngestQuery(job.Hosts, timeframe))
	if err != nil {
		// A failed query fails every host; partial results would suggest
		// hosts were individually measured when none were.
		for _, host := range job.Hosts {
			hostResults[host] = model.HostValidationResult{
				Hostname:          host,
				ExpectedGiBPerDay: job.ExpectedGiBPerDay,
				ActualGiBPerDay:   0,
				DeviationPercent:  100,
				WithinThreshold:   false,
				Message:           fmt.Sprintf("Error querying metrics store: %v", err),
			}
		}
	} else {
		byHost := indexByHostname(queryResult.Results)
		threshold := job.EffectiveThreshold()

		for _, host := range job.Hosts {
			hostResults[host] = v.scoreHost(host, byHost, job, threshold, timeframe)
		}
	}

	queryDurationMs := float64(time.Since(start).Microseconds()) / 1000.0
	result := model.NewValidationResult(hostResults, queryDurationMs)

	v.logger.Info("validation completed",
		slog.Bool("overall_pass", result.OverallPass),
		slog.Float64("pass_rate", result.PassRate),
		slog.Float64("query_duration_ms", queryDurationMs),
	)

	v.sink.Publish(bus.NewEvent(bus.TopicValidateResult, map[string]any{
		"pass":           result.OverallPass,
		"pass_rate":      result.PassRate,
		"actual_gib_day": result.TotalActualGiBPerDay(),
	}))

	return &result, nil
}

// scoreHost builds the verdict for one host from the indexed query rows.
func (v *Validator) scoreHost(host string, byHost map[string]float64, job model.ValidationJob, threshold float64, timeframe int) model.HostValidationResult {
	ingested, found := byHost[host]
	if !found {
		return model.HostValidationResult{
			Hostname:          host,
			ExpectedGiBPerDay: job.ExpectedGiBPerDay,
			ActualGiBPerDay:   0,
			DeviationPercent:  model.DeviationPercent(0, job.ExpectedGiBPerDay),
			WithinThreshold:   false,
			Message:           "no data found for host in the queried timeframe",
		}
	}

	// Normalize the window total to a daily rate.
	actual := ingested / float64(timeframe) * 24

	deviation := model.DeviationPercent(actual, job.ExpectedGiBPerDay)
	within := deviation <= threshold*100

	return model.HostValidationResult{
		Hostname:          host,
		ExpectedGiBPerDay: job.ExpectedGiBPerDay,
		ActualGiBPerDay:   actual,
		DeviationPercent:  deviation,
		WithinThreshold:   within,
		Message:           verdictMessage(actual, job.ExpectedGiBPerDay, deviation, within),
	}
}

// buildIngestQuery produces the batched NRQL query: one hostname
// disjunction filter, faceted by hostname, over the given window.
func buildIngestQuery(hosts []string, timeframeHours int) string {
	filters := make([]string, 0, len(hosts))
	for _, h := range hosts {
		filters = append(filters, fmt.Sprintf("hostname = '%s'", h))
	}

	return fmt.Sprintf(
		"FROM NrConsumption SELECT sum(bytesIngested)/1024/1024/1024 AS giBIngested "+
			"WHERE metricName = 'ProcessSample' AND (%s) FACET hostname SINCE %d HOURS AGO",
		strings.Join(filters, " OR "), timeframeHours,
	)
}

// indexByHostname extracts the ingest value per hostname from the opaque
// query rows, tolerating missing or oddly typed fields.
func indexByHostname(rows []map[string]any) map[string]float64 {
	byHost := make(map[string]float64, len(rows))
	for _, row := range rows {
		hostname, ok := row["hostname"].(string)
		if !ok || hostname == "" {
			continue
		}
		value, ok := row["giBIngested"].(float64)
		if !ok {
			continue
		}
		byHost[hostname] = value
	}
	return byHost
}

func verdictMessage(actual, expected, deviation float64, within bool) string {
	status := "FAIL"
	if within {
		status = "PASS"
	}
	direction := "lower"
	if actual > expected {
		direction = "higher"
	}
	return fmt.Sprintf("%s: actual ingest is %.2f GiB/day, %.1f%% %s than expected (%.2f GiB/day)",
		status, actual, deviation, direction, expected)
}
