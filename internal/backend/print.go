package backend

import (
	"context"
	"log/slog"
	"path"

	"github.com/fleetops/rollctl/internal/model"
)

// simulatedDurationMs is reported by dry-run operations so reports carry a
// plausible non-zero timing.
const simulatedDurationMs = 10

// PrintBackend is the dry-run transport: it performs no I/O, logs the
// intended action and always succeeds. Used for planning and in tests.
type PrintBackend struct {
	logger *slog.Logger
}

// NewPrintBackend creates a dry-run backend.
func NewPrintBackend(logger *slog.Logger) *PrintBackend {
	return &PrintBackend{logger: logger}
}

// Transfer logs the would-be file transfer and reports success.
func (b *PrintBackend) Transfer(ctx context.Context, host model.Host, content, filename string) model.HostResult {
	target := path.Join(host.TargetPath, filename)
	b.logger.Info("dry-run: would transfer configuration",
		slog.String("hostname", host.Hostname),
		slog.String("target", target),
		slog.Int("bytes", len(content)),
	)

	return model.HostResult{
		Hostname:   host.Hostname,
		Success:    true,
		Message:    "Dry-run transfer",
		DurationMs: simulatedDurationMs,
	}
}

// Restart logs the would-be agent restart and reports success.
func (b *PrintBackend) Restart(ctx context.Context, host model.Host) model.HostResult {
	b.logger.Info("dry-run: would restart agent",
		slog.String("hostname", host.Hostname),
		slog.Bool("elevated", host.UseElevatedPrivileges),
	)

	return model.HostResult{
		Hostname:   host.Hostname,
		Success:    true,
		Message:    "Dry-run restart",
		DurationMs: simulatedDurationMs,
	}
}
