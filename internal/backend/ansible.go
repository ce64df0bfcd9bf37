package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/model"
)

// AnsibleBackend drives hosts through ansible ad-hoc module invocations:
// the copy module for the file transfer and the service module for the
// agent restart. Semantics match the SSH backend, including the contract
// that no failure escapes as an error.
type AnsibleBackend struct {
	cfg    config.RolloutConfig
	logger *slog.Logger
}

// NewAnsibleBackend creates an ansible transport with the given defaults.
func NewAnsibleBackend(cfg config.RolloutConfig, logger *slog.Logger) *AnsibleBackend {
	return &AnsibleBackend{cfg: cfg, logger: logger}
}

// Transfer writes the content to a temp file and copies it to the host via
// the ansible copy module.
func (b *AnsibleBackend) Transfer(ctx context.Context, host model.Host, content, filename string) model.HostResult {
	start := time.Now()
	target := path.Join(host.TargetPath, filename)

	tmp, err := os.CreateTemp("", "rollctl-*.yaml")
	if err != nil {
		return failed(host, start, fmt.Sprintf("Ansible transfer error: %v", err))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return failed(host, start, fmt.Sprintf("Ansible transfer error: %v", err))
	}
	if err := tmp.Close(); err != nil {
		return failed(host, start, fmt.Sprintf("Ansible transfer error: %v", err))
	}

	args := fmt.Sprintf("src=%s dest=%s mode=0640", tmp.Name(), target)
	if out, err := b.adhoc(ctx, host, "copy", args); err != nil {
		return failed(host, start, fmt.Sprintf("Ansible transfer error: %v: %s", err, strings.TrimSpace(out)))
	}

	b.logger.Info("transferred configuration",
		slog.String("hostname", host.Hostname),
		slog.String("target", target),
		slog.Int("bytes", len(content)),
	)

	return model.HostResult{
		Hostname:   host.Hostname,
		Success:    true,
		Message:    fmt.Sprintf("Configuration transferred to %s", target),
		DurationMs: msSince(start),
	}
}

// Restart restarts the agent via the ansible service module.
func (b *AnsibleBackend) Restart(ctx context.Context, host model.Host) model.HostResult {
	start := time.Now()

	args := fmt.Sprintf("name=%s state=restarted", b.cfg.AgentService)
	if out, err := b.adhoc(ctx, host, "service", args); err != nil {
		return failed(host, start, fmt.Sprintf("Ansible restart error: %v: %s", err, strings.TrimSpace(out)))
	}

	b.logger.Info("restarted agent",
		slog.String("hostname", host.Hostname),
		slog.String("service", b.cfg.AgentService),
	)

	return model.HostResult{
		Hostname:   host.Hostname,
		Success:    true,
		Message:    "Agent restarted",
		DurationMs: msSince(start),
	}
}

// adhoc runs one ansible ad-hoc module invocation against a single host.
// The context bounds the process lifetime.
func (b *AnsibleBackend) adhoc(ctx context.Context, host model.Host, module, moduleArgs string) (string, error) {
	binary := b.cfg.Ansible.Binary
	if binary == "" {
		binary = "ansible"
	}

	argv := []string{host.Hostname, "-m", module, "-a", moduleArgs}
	if b.cfg.Ansible.Inventory != "" {
		argv = append(argv, "-i", b.cfg.Ansible.Inventory)
	} else {
		// Ad-hoc inventory: the bare hostname followed by a comma
		argv = append(argv, "-i", host.Hostname+",")
	}
	if host.UseElevatedPrivileges {
		argv = append(argv, "--become")
	}
	if host.SSHUser != "" {
		argv = append(argv, "-u", host.SSHUser)
	}

	cmd := exec.CommandContext(ctx, binary, argv...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), err
	}
	return string(out), nil
}
