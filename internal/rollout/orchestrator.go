package rollout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetops/rollctl/internal/backend"
	"github.com/fleetops/rollctl/internal/bus"
	"github.com/fleetops/rollctl/internal/concurrent"
	"github.com/fleetops/rollctl/internal/model"
)

// Orchestrator drives a bounded-parallel two-phase apply (transfer, then
// restart) across all hosts of a job. The job is read-only throughout; the
// orchestrator only collects results.
type Orchestrator struct {
	sink   bus.Sink
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator publishing completion events to
// the given sink.
func NewOrchestrator(sink bus.Sink, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{sink: sink, logger: logger}
}

// Execute rolls the job out to every host through the backend. An error is
// returned only for configuration-class problems detected before dispatch;
// per-host failures of any kind land in the report instead. A canceled
// context stops further hosts from starting while in-flight hosts drain.
func (o *Orchestrator) Execute(ctx context.Context, job model.RolloutJob, be backend.Backend) (*model.RolloutReport, error) {
	if len(job.Hosts) == 0 {
		return nil, fmt.Errorf("rollout job has no hosts")
	}
	if job.Parallelism <= 0 {
		return nil, fmt.Errorf("rollout parallelism must be positive, got %d", job.Parallelism)
	}

	o.logger.Info("starting rollout",
		slog.Int("hosts", len(job.Hosts)),
		slog.String("filename", job.Filename),
		slog.String("checksum", job.Checksum),
		slog.Int("parallelism", job.Parallelism),
	)

	start := time.Now()

	outcomes := concurrent.ParallelMapWithLimit(ctx, job.Hosts, func(ctx context.Context, host model.Host) (model.HostResult, error) {
		return o.processHost(ctx, job, host, be), nil
	}, job.Parallelism)

	results := make(map[string]model.HostResult, len(job.Hosts))
	for _, outcome := range outcomes {
		host := job.Hosts[outcome.Index]
		if outcome.Skipped {
			results[host.Hostname] = model.HostResult{
				Hostname: host.Hostname,
				Success:  false,
				Message:  fmt.Sprintf("canceled before dispatch: %v", outcome.Error),
			}
			continue
		}
		results[host.Hostname] = outcome.Value
	}

	duration := time.Since(start)
	report := model.NewRolloutReport(results, duration)

	o.logger.Info("rollout completed",
		slog.Int("success", report.SuccessCount),
		slog.Int("fail", report.FailCount),
		slog.Duration("duration", duration),
	)

	o.sink.Publish(bus.NewEvent(bus.TopicRolloutCompleted, map[string]any{
		"hosts":      len(job.Hosts),
		"success":    report.SuccessCount,
		"fail":       report.FailCount,
		"duration_s": report.DurationS,
	}))

	return &report, nil
}

// processHost runs the two-phase sequence for one host: transfer, then
// restart only if the transfer succeeded. The per-host timeout and panic
// recovery both resolve to a failed result for this host alone; a hung or
// crashing host never stalls the rest of the job.
func (o *Orchestrator) processHost(ctx context.Context, job model.RolloutJob, host model.Host, be backend.Backend) model.HostResult {
	hostCtx := ctx
	var cancel context.CancelFunc = func() {}
	if job.HostTimeout > 0 {
		hostCtx, cancel = context.WithTimeout(ctx, job.HostTimeout)
	}
	defer cancel()

	start := time.Now()
	resultCh := make(chan model.HostResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("panic while processing host",
					slog.String("hostname", host.Hostname),
					slog.Any("panic", r),
				)
				resultCh <- model.HostResult{
					Hostname:   host.Hostname,
					Success:    false,
					Message:    fmt.Sprintf("Error: %v", r),
					DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
				}
			}
		}()

		transferResult := be.Transfer(hostCtx, host, job.ConfigContent, job.Filename)
		if !transferResult.Success {
			resultCh <- transferResult
			return
		}

		restartResult := be.Restart(hostCtx, host)
		restartResult.DurationMs += transferResult.DurationMs
		resultCh <- restartResult
	}()

	select {
	case result := <-resultCh:
		return result
	case <-hostCtx.Done():
		// The backend goroutine is left to drain; its late result goes to
		// the buffered channel and is dropped.
		message := fmt.Sprintf("canceled: %v", hostCtx.Err())
		if hostCtx.Err() == context.DeadlineExceeded {
			message = fmt.Sprintf("timed out after %s", job.HostTimeout)
		}
		return model.HostResult{
			Hostname:   host.Hostname,
			Success:    false,
			Message:    message,
			DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		}
	}
}
