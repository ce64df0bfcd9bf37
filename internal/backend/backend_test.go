package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/logger"
	"github.com/fleetops/rollctl/internal/model"
)

func TestNewSelectsBackendByMode(t *testing.T) {
	log := logger.New()
	cfg := config.Default().Rollout

	b, err := New(ModePrint, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &PrintBackend{}, b)

	b, err = New(ModeSSH, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &SSHBackend{}, b)

	b, err = New(ModeAnsible, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &AnsibleBackend{}, b)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	_, err := New("teleport", config.Default().Rollout, logger.New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend mode")
	assert.Contains(t, err.Error(), "teleport")
}

func TestPrintBackendAlwaysSucceeds(t *testing.T) {
	b := NewPrintBackend(logger.New())
	host := model.NewHost("h1")

	transfer := b.Transfer(context.Background(), host, "content", "conf.yaml")
	assert.True(t, transfer.Success)
	assert.Equal(t, "h1", transfer.Hostname)
	assert.Equal(t, "Dry-run transfer", transfer.Message)
	assert.NotZero(t, transfer.DurationMs)

	restart := b.Restart(context.Background(), host)
	assert.True(t, restart.Success)
	assert.Equal(t, "Dry-run restart", restart.Message)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'/etc/newrelic-infra/integrations.d/conf.yaml'", shellQuote("/etc/newrelic-infra/integrations.d/conf.yaml"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestRestartCommand(t *testing.T) {
	assert.Equal(t, "sudo systemctl restart newrelic-infra", restartCommand("newrelic-infra", true))
	assert.Equal(t, "systemctl restart newrelic-infra", restartCommand("newrelic-infra", false))
}
