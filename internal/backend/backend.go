package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/model"
)

// Backend is the transport capability a rollout needs: put the config file
// on a host, then restart the agent. Implementations contain every failure
// as a failed HostResult; errors never escape the backend boundary.
type Backend interface {
	Transfer(ctx context.Context, host model.Host, content, filename string) model.HostResult
	Restart(ctx context.Context, host model.Host) model.HostResult
}

// Supported backend modes.
const (
	ModePrint   = "print"
	ModeSSH     = "ssh"
	ModeAnsible = "ansible"
)

// New selects a backend implementation by mode string. An unrecognized mode
// is a configuration error, reported before any host is touched.
func New(mode string, cfg config.RolloutConfig, logger *slog.Logger) (Backend, error) {
	switch mode {
	case ModePrint:
		return NewPrintBackend(logger), nil
	case ModeSSH:
		return NewSSHBackend(cfg, logger), nil
	case ModeAnsible:
		return NewAnsibleBackend(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend mode: %q (expected %s, %s or %s)",
			mode, ModePrint, ModeSSH, ModeAnsible)
	}
}

// restartCommand builds the service-restart invocation for a host.
func restartCommand(service string, elevated bool) string {
	if elevated {
		return fmt.Sprintf("sudo systemctl restart %s", service)
	}
	return fmt.Sprintf("systemctl restart %s", service)
}
