package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fleetops/rollctl/internal/bus"
	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/service"
)

// Watcher periodically re-validates a fixed host set against the expected
// ingest. After the configured number of consecutive failing validations it
// emits a degradation event; a passing validation resets the counter.
type Watcher struct {
	cfg     *config.WatchConfig
	fleet   service.FleetService
	sink    bus.Sink
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	fails   int
	alerted bool
}

// NewWatcher creates a validation watcher.
func NewWatcher(cfg *config.WatchConfig, fleet service.FleetService, sink bus.Sink, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:    cfg,
		fleet:  fleet,
		sink:   sink,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins the watch loop in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	if !w.cfg.Enabled {
		w.logger.Info("validation watcher is disabled")
		return
	}

	w.logger.Info("starting validation watcher",
		slog.Duration("interval", w.cfg.Interval),
		slog.Int("failed_threshold", w.cfg.FailedThreshold),
		slog.Int("hosts", len(w.cfg.Hosts)),
	)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() {
	if !w.cfg.Enabled {
		return
	}

	w.logger.Info("stopping validation watcher")
	close(w.stopCh)
	w.wg.Wait()
	w.logger.Info("validation watcher stopped")
}

// run is the main watch loop.
func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check runs one validation pass and updates the failure counter.
func (w *Watcher) check(ctx context.Context) {
	result, err := w.fleet.Validate(ctx, service.ValidationRequest{
		Hosts:             w.cfg.Hosts,
		ExpectedGiBPerDay: w.cfg.ExpectedGiBPerDay,
	})
	if err != nil {
		w.logger.Error("watch validation failed to run",
			slog.String("error", err.Error()),
		)
		w.recordFailure("validation error: " + err.Error())
		return
	}

	if result.OverallPass {
		w.recordPass()
		return
	}
	w.recordFailure(result.Summary)
}

func (w *Watcher) recordPass() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fails > 0 {
		w.logger.Info("watch validation recovered",
			slog.Int("previous_failures", w.fails),
		)
	}
	w.fails = 0
	w.alerted = false
}

func (w *Watcher) recordFailure(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.fails++
	w.logger.Warn("watch validation failing",
		slog.Int("consecutive", w.fails),
		slog.Int("threshold", w.cfg.FailedThreshold),
		slog.String("reason", reason),
	)

	if w.fails >= w.cfg.FailedThreshold && !w.alerted {
		w.alerted = true
		w.sink.Publish(bus.NewEvent(bus.TopicValidateDegraded, map[string]any{
			"hosts":                len(w.cfg.Hosts),
			"consecutive_failures": w.fails,
			"reason":               reason,
		}))
	}
}
