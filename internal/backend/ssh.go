package backend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/model"
)

// SSHBackend connects to each host over SSH, writes the configuration file
// to the target path and restarts the agent service. Per-host transport
// settings override the configured defaults.
type SSHBackend struct {
	cfg    config.RolloutConfig
	logger *slog.Logger
}

// NewSSHBackend creates an SSH transport with the given defaults.
func NewSSHBackend(cfg config.RolloutConfig, logger *slog.Logger) *SSHBackend {
	return &SSHBackend{cfg: cfg, logger: logger}
}

// Transfer writes the configuration content to targetPath/filename on the
// host. Connection, auth and command failures all come back as a failed
// HostResult.
func (b *SSHBackend) Transfer(ctx context.Context, host model.Host, content, filename string) model.HostResult {
	start := time.Now()
	target := path.Join(host.TargetPath, filename)

	client, err := b.connect(ctx, host)
	if err != nil {
		return failed(host, start, fmt.Sprintf("SSH transfer error: %v", err))
	}
	defer client.Close()

	// A pipe through tee keeps the write working for root-owned agent
	// directories; without elevation a plain shell redirect suffices.
	cmd := fmt.Sprintf("cat > %s", shellQuote(target))
	if host.UseElevatedPrivileges {
		cmd = fmt.Sprintf("sudo tee %s > /dev/null", shellQuote(target))
	}

	if out, err := b.run(ctx, client, cmd, content); err != nil {
		return failed(host, start, fmt.Sprintf("SSH transfer error: %v: %s", err, strings.TrimSpace(out)))
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

// Restart issues the service-restart command on the host.
func (b *SSHBackend) Restart(ctx context.Context, host model.Host) model.HostResult {
	start := time.Now()

	client, err := b.connect(ctx, host)
	if err != nil {
		return failed(host, start, fmt.Sprintf("SSH restart error: %v", err))
	}
	defer client.Close()

	cmd := restartCommand(b.cfg.AgentService, host.UseElevatedPrivileges)
	if out, err := b.run(ctx, client, cmd, ""); err != nil {
		return failed(host, start, fmt.Sprintf("SSH restart error: %v: %s", err, strings.TrimSpace(out)))
	}

	b.logger.Info("restarted agent",
		slog.String("hostname", host.Hostname),
		slog.String("command", cmd),
	)

	return model.HostResult{
		Hostname:   host.Hostname,
		Success:    true,
		Message:    "Agent restarted",
		DurationMs: msSince(start),
	}
}

// connect dials the host and completes the SSH handshake, honoring the
// context deadline for the whole setup.
func (b *SSHBackend) connect(ctx context.Context, host model.Host) (*ssh.Client, error) {
	user := host.SSHUser
	if user == "" {
		user = b.cfg.SSH.User
	}
	if user == "" {
		user = "root"
	}

	port := host.SSHPort
	if port == 0 {
		port = b.cfg.SSH.Port
	}
	if port == 0 {
		port = 22
	}

	keyPath := host.SSHKeyPath
	if keyPath == "" {
		keyPath = b.cfg.SSH.KeyPath
	}
	if keyPath == "" {
		return nil, fmt.Errorf("no SSH key path configured for %s", host.Hostname)
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	if deadline, ok := ctx.Deadline(); ok {
		clientCfg.Timeout = time.Until(deadline)
	}

	addr := net.JoinHostPort(host.Hostname, fmt.Sprintf("%d", port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s failed: %w", addr, err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// run executes a command in a fresh session, feeding stdin when non-empty.
// The client connection is torn down if the context ends first, which
// aborts the remote command.
func (b *SSHBackend) run(ctx context.Context, client *ssh.Client, cmd, stdin string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	if stdin != "" {
		session.Stdin = strings.NewReader(stdin)
	}

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case err := <-done:
		return output.String(), err
	case <-ctx.Done():
		client.Close()
		<-done
		return output.String(), ctx.Err()
	}
}

// shellQuote wraps s in single quotes for safe use in a remote shell command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func failed(host model.Host, start time.Time, message string) model.HostResult {
	return model.HostResult{
		Hostname:   host.Hostname,
		Success:    false,
		Message:    message,
		DurationMs: msSince(start),
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
