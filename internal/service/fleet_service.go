package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetops/rollctl/internal/backend"
	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/cost"
	"github.com/fleetops/rollctl/internal/metrics"
	"github.com/fleetops/rollctl/internal/model"
	"github.com/fleetops/rollctl/internal/preset"
	"github.com/fleetops/rollctl/internal/rollout"
	"github.com/fleetops/rollctl/internal/template"
	"github.com/fleetops/rollctl/internal/validate"
)

// RolloutRequest asks for a configuration push to a fleet. Content can be
// given directly, or rendered from a template and preset. Zero-valued
// options fall back to the configured rollout defaults.
type RolloutRequest struct {
	Hosts       []string      `json:"hosts"`
	Content     string        `json:"content,omitempty"`
	TemplateID  string        `json:"template_id,omitempty"`
	PresetID    string        `json:"preset_id,omitempty"`
	Filename    string        `json:"filename"`
	Mode        string        `json:"mode,omitempty"`
	Parallelism int           `json:"parallelism,omitempty"`
	HostTimeout time.Duration `json:"host_timeout,omitempty"`
	Elevated    bool          `json:"elevated,omitempty"`
}

// ValidationRequest asks for a post-rollout ingest check. Zero-valued
// threshold, confidence and timeframe fall back to the configured defaults.
type ValidationRequest struct {
	Hosts             []string `json:"hosts"`
	ExpectedGiBPerDay float64  `json:"expected_gib_day"`
	Confidence        float64  `json:"confidence,omitempty"`
	Threshold         float64  `json:"threshold,omitempty"`
	TimeframeHours    int      `json:"timeframe_hours,omitempty"`
}

// FleetService defines the operations the HTTP API and the CLI drive.
type FleetService interface {
	Rollout(ctx context.Context, req RolloutRequest) (*model.RolloutReport, error)
	Validate(ctx context.Context, req ValidationRequest) (*model.ValidationResult, error)
	EstimateCost(ctx context.Context, req model.CostRequest) (*model.CostEstimate, error)
	ListPresets(ctx context.Context) []string
	GetPreset(ctx context.Context, id string) (*model.Preset, error)
	Status(ctx context.Context) *model.ServiceStatus
}

// fleetService implements FleetService
type fleetService struct {
	cfg           *config.Config
	orchestrator  *rollout.Orchestrator
	validator     *validate.Validator
	metricsClient *metrics.Client
	presets       *preset.Loader
	renderer      *template.Renderer
	estimates     *cost.Coordinator
	logger        *slog.Logger
	startedAt     time.Time
}

// NewFleetService creates the fleet service. validator and metricsClient
// may be nil when no metrics credentials are configured; validation then
// fails as a configuration error while rollout keeps working.
func NewFleetService(
	cfg *config.Config,
	orchestrator *rollout.Orchestrator,
	validator *validate.Validator,
	metricsClient *metrics.Client,
	presets *preset.Loader,
	renderer *template.Renderer,
	estimates *cost.Coordinator,
	logger *slog.Logger,
) FleetService {
	return &fleetService{
		cfg:           cfg,
		orchestrator:  orchestrator,
		validator:     validator,
		metricsClient: metricsClient,
		presets:       presets,
		renderer:      renderer,
		estimates:     estimates,
		logger:        logger,
		startedAt:     time.Now(),
	}
}

// Rollout resolves content and defaults, selects the backend and executes
// the job.
func (s *fleetService) Rollout(ctx context.Context, req RolloutRequest) (*model.RolloutReport, error) {
	if len(req.Hosts) == 0 {
		return nil, fmt.Errorf("rollout request has no hosts")
	}
	if req.Filename == "" {
		return nil, fmt.Errorf("rollout filename is required")
	}

	content := req.Content
	if content == "" {
		if req.TemplateID == "" {
			return nil, fmt.Errorf("rollout request needs either content or a template ID")
		}
		rendered, err := s.renderForPreset(req.TemplateID, req.PresetID)
		if err != nil {
			return nil, err
		}
		content = rendered.Text
	}

	mode := req.Mode
	if mode == "" {
		mode = s.cfg.Rollout.Mode
	}
	be, err := backend.New(mode, s.cfg.Rollout, s.logger)
	if err != nil {
		return nil, err
	}

	hosts := make([]model.Host, 0, len(req.Hosts))
	for _, hostname := range req.Hosts {
		h := model.NewHost(hostname)
		h.TargetPath = s.cfg.Rollout.TargetPath
		h.UseElevatedPrivileges = req.Elevated
		hosts = append(hosts, h)
	}

	job := model.NewRolloutJob(hosts, content, req.Filename)
	if req.Parallelism > 0 {
		job.Parallelism = req.Parallelism
	} else {
		job.Parallelism = s.cfg.Rollout.Parallelism
	}
	if req.HostTimeout > 0 {
		job.HostTimeout = req.HostTimeout
	} else {
		job.HostTimeout = s.cfg.Rollout.HostTimeout
	}

	return s.orchestrator.Execute(ctx, job, be)
}

// renderForPreset renders a template with tokens taken from the preset.
func (s *fleetService) renderForPreset(templateID, presetID string) (*template.Rendered, error) {
	tokens := template.Tokens{}
	if presetID != "" {
		p, err := s.presets.Load(presetID)
		if err != nil {
			return nil, err
		}
		tokens = template.Tokens{
			PresetID:       p.ID,
			SampleRate:     p.DefaultSampleRate,
			FilterMode:     p.FilterMode,
			FilterPatterns: p.Tier1Patterns,
		}
	}
	return s.renderer.Render(templateID, tokens)
}

// Validate fills request defaults and runs the validator.
func (s *fleetService) Validate(ctx context.Context, req ValidationRequest) (*model.ValidationResult, error) {
	if s.validator == nil {
		return nil, fmt.Errorf("metrics client is not configured: set metrics.api_key and metrics.account_id")
	}
	if len(req.Hosts) == 0 {
		return nil, fmt.Errorf("validation request has no hosts")
	}

	job := model.ValidationJob{
		Hosts:             req.Hosts,
		ExpectedGiBPerDay: req.ExpectedGiBPerDay,
		Confidence:        req.Confidence,
		ThresholdFraction: req.Threshold,
		TimeframeHours:    req.TimeframeHours,
	}
	if job.Confidence == 0 {
		job.Confidence = s.cfg.Validation.Confidence
	}
	if job.ThresholdFraction == 0 {
		job.ThresholdFraction = s.cfg.Validation.Threshold
	}
	if job.TimeframeHours == 0 {
		job.TimeframeHours = s.cfg.Validation.TimeframeHours
	}

	return s.validator.Validate(ctx, job)
}

// EstimateCost runs the blended cost estimate.
func (s *fleetService) EstimateCost(ctx context.Context, req model.CostRequest) (*model.CostEstimate, error) {
	if req.PresetID == "" {
		return nil, fmt.Errorf("cost request preset ID is required")
	}
	return s.estimates.Estimate(req)
}

// ListPresets returns the preset IDs on the search path.
func (s *fleetService) ListPresets(ctx context.Context) []string {
	return s.presets.List()
}

// GetPreset loads one preset.
func (s *fleetService) GetPreset(ctx context.Context, id string) (*model.Preset, error) {
	return s.presets.Load(id)
}

// Status reports the instance state.
func (s *fleetService) Status(ctx context.Context) *model.ServiceStatus {
	status := &model.ServiceStatus{
		DefaultMode:       s.cfg.Rollout.Mode,
		MetricsConfigured: s.metricsClient != nil,
		PresetCount:       len(s.presets.List()),
		StartedAt:         s.startedAt,
		UptimeS:           time.Since(s.startedAt).Seconds(),
	}
	if s.metricsClient != nil {
		status.BreakerOpen = s.metricsClient.Breaker().Open()
	}
	return status
}
