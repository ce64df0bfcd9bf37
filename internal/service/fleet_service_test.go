package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/rollctl/internal/bus"
	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/cost"
	"github.com/fleetops/rollctl/internal/logger"
	"github.com/fleetops/rollctl/internal/metrics"
	"github.com/fleetops/rollctl/internal/model"
	"github.com/fleetops/rollctl/internal/preset"
	"github.com/fleetops/rollctl/internal/rollout"
	"github.com/fleetops/rollctl/internal/template"
	"github.com/fleetops/rollctl/internal/validate"
)

// fakeQuerier serves canned ingest rows to the validator.
type fakeQuerier struct {
	rows []map[string]any
}

func (f *fakeQuerier) Query(ctx context.Context, nrql string) (*metrics.QueryResult, error) {
	return &metrics.QueryResult{Results: f.rows}, nil
}

type fixture struct {
	svc FleetService
	cfg *config.Config
}

func newFixture(t *testing.T, querier metrics.Querier) fixture {
	t.Helper()

	log := logger.New()
	sink := bus.NopSink{}

	presetDir := t.TempDir()
	presetYAML := `id: conservative
default_sample_rate: 60
filter_mode: include
tier1_patterns: [nginx]
expected_keep_ratio: 0.3
avg_bytes_per_sample: 1500
`
	require.NoError(t, os.WriteFile(filepath.Join(presetDir, "conservative.yaml"), []byte(presetYAML), 0o644))

	templateDir := t.TempDir()
	tmpl := "preset: {{ .PresetID }}\ninterval: {{ .SampleRate }}s\n"
	require.NoError(t, os.WriteFile(filepath.Join(templateDir, "agent.yaml.tmpl"), []byte(tmpl), 0o644))

	cfg := config.Default()
	cfg.PresetDirs = []string{presetDir}
	cfg.TemplateDirs = []string{templateDir}

	presets := preset.NewLoader(cfg.PresetDirs, log)
	renderer := template.NewRenderer(cfg.TemplateDirs, sink, log)
	estimates := cost.NewCoordinator([]cost.Estimator{cost.NewStaticEstimator(presets)}, 2, sink, log)
	orchestrator := rollout.NewOrchestrator(sink, log)

	var validator *validate.Validator
	if querier != nil {
		validator = validate.NewValidator(querier, sink, log)
	}

	svc := NewFleetService(cfg, orchestrator, validator, nil, presets, renderer, estimates, log)
	return fixture{svc: svc, cfg: cfg}
}

func TestRolloutWithInlineContent(t *testing.T) {
	f := newFixture(t, nil)

	report, err := f.svc.Rollout(context.Background(), RolloutRequest{
		Hosts:    []string{"h1", "h2"},
		Content:  "integrations: []\n",
		Filename: "empty.yaml",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.SuccessCount)
	assert.Zero(t, report.FailCount)
}

func TestRolloutRendersTemplateFromPreset(t *testing.T) {
	f := newFixture(t, nil)

	report, err := f.svc.Rollout(context.Background(), RolloutRequest{
		Hosts:      []string{"h1"},
		TemplateID: "agent",
		PresetID:   "conservative",
		Filename:   "agent.yaml",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
}

func TestRolloutValidatesRequest(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Rollout(context.Background(), RolloutRequest{Filename: "x.yaml", Content: "x"})
	assert.ErrorContains(t, err, "no hosts")

	_, err = f.svc.Rollout(context.Background(), RolloutRequest{Hosts: []string{"h1"}, Content: "x"})
	assert.ErrorContains(t, err, "filename")

	_, err = f.svc.Rollout(context.Background(), RolloutRequest{Hosts: []string{"h1"}, Filename: "x.yaml"})
	assert.ErrorContains(t, err, "either content or a template")

	_, err = f.svc.Rollout(context.Background(), RolloutRequest{
		Hosts: []string{"h1"}, Filename: "x.yaml", Content: "x", Mode: "osmosis",
	})
	assert.ErrorContains(t, err, "unknown backend mode")
}

func TestValidateAppliesConfigDefaults(t *testing.T) {
	q := &fakeQuerier{rows: []map[string]any{{"hostname": "h1", "giBIngested": 10.0}}}
	f := newFixture(t, q)

	// Config defaults: threshold 0.10, confidence 0.8, timeframe 24h.
	result, err := f.svc.Validate(context.Background(), ValidationRequest{
		Hosts:             []string{"h1"},
		ExpectedGiBPerDay: 9.0,
	})
	require.NoError(t, err)

	// 10 vs 9 expected is 11.1% off; threshold 0.10/0.8 = 12.5% tolerated.
	assert.True(t, result.OverallPass)
}

func TestValidateWithoutMetricsClient(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Validate(context.Background(), ValidationRequest{
		Hosts:             []string{"h1"},
		ExpectedGiBPerDay: 10,
	})
	assert.ErrorContains(t, err, "metrics client is not configured")
}

func TestEstimateCostRequiresPreset(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.EstimateCost(context.Background(), model.CostRequest{HostCount: 10})
	assert.ErrorContains(t, err, "preset ID is required")

	estimate, err := f.svc.EstimateCost(context.Background(), model.CostRequest{
		PresetID:  "conservative",
		HostCount: 10,
	})
	require.NoError(t, err)
	assert.Greater(t, estimate.GiBPerDay, 0.0)
}

func TestPresetLookup(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, []string{"conservative"}, f.svc.ListPresets(context.Background()))

	p, err := f.svc.GetPreset(context.Background(), "conservative")
	require.NoError(t, err)
	assert.Equal(t, 60, p.DefaultSampleRate)

	_, err = f.svc.GetPreset(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)

	status := f.svc.Status(context.Background())

	assert.Equal(t, "print", status.DefaultMode)
	assert.False(t, status.MetricsConfigured)
	assert.False(t, status.BreakerOpen)
	assert.Equal(t, 1, status.PresetCount)
	assert.False(t, status.StartedAt.IsZero())
}
