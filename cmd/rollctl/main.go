package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetops/rollctl/internal/api"
	"github.com/fleetops/rollctl/internal/bus"
	"github.com/fleetops/rollctl/internal/cache"
	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/cost"
	"github.com/fleetops/rollctl/internal/hostlist"
	"github.com/fleetops/rollctl/internal/logger"
	"github.com/fleetops/rollctl/internal/metrics"
	"github.com/fleetops/rollctl/internal/preset"
	"github.com/fleetops/rollctl/internal/rollout"
	"github.com/fleetops/rollctl/internal/service"
	"github.com/fleetops/rollctl/internal/template"
	"github.com/fleetops/rollctl/internal/validate"
	"github.com/fleetops/rollctl/internal/watch"
	"github.com/fleetops/rollctl/pkg/httpserver"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "rollout":
		runRollout(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: rollctl <command> [flags]

commands:
  serve     run the HTTP API server
  rollout   push a configuration to a fleet of hosts
  validate  compare actual per-host ingest against the expected value`)
}

// loadConfig loads the config file when given, defaults otherwise, and
// falls back to the conventional environment variables for the metrics
// credentials.
func loadConfig(path string, log *slog.Logger) *config.Config {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Error("failed to load configuration",
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		cfg = loaded
	}

	if cfg.Metrics.APIKey == "" {
		cfg.Metrics.APIKey = os.Getenv("NEW_RELIC_API_KEY")
	}
	if cfg.Metrics.AccountID == "" {
		cfg.Metrics.AccountID = os.Getenv("NEW_RELIC_ACCOUNT_ID")
	}

	return cfg
}

// buildService wires the engine components the way the config describes.
func buildService(cfg *config.Config, log *slog.Logger) service.FleetService {
	sink := bus.NewLogSink(log)

	presets := preset.NewLoader(cfg.PresetDirs, log)
	renderer := template.NewRenderer(cfg.TemplateDirs, sink, log)
	estimates := cost.NewCoordinator([]cost.Estimator{
		cost.NewStaticEstimator(presets),
	}, 2, sink, log)

	orchestrator := rollout.NewOrchestrator(sink, log)

	// The metrics client is optional: rollout works without credentials,
	// validation reports a configuration error.
	var metricsClient *metrics.Client
	var validator *validate.Validator
	if cfg.Metrics.APIKey != "" && cfg.Metrics.AccountID != "" {
		client, err := metrics.NewClient(cfg.Metrics, cache.New(cfg.Metrics.CacheTTL), log)
		if err != nil {
			log.Error("failed to create metrics client",
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		metricsClient = client
		validator = validate.NewValidator(client, sink, log)
	}

	return service.NewFleetService(cfg, orchestrator, validator, metricsClient, presets, renderer, estimates, log)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	fs.Parse(args)

	log := logger.New()
	cfg := loadConfig(*configPath, log)
	log = logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))

	fleet := buildService(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := watch.NewWatcher(&cfg.Watch, fleet, bus.NewLogSink(log), log)
	watcher.Start(ctx)

	handler := api.NewHandler(fleet, cfg.Server.BasePath, log)
	srv := httpserver.New(
		cfg.Server.Addr,
		handler.Router(),
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		log,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Run()
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Error("server error",
				slog.String("error", err.Error()),
			)
		}
	case sig := <-quit:
		log.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
		if err := srv.Shutdown(30 * time.Second); err != nil {
			log.Error("shutdown failed",
				slog.String("error", err.Error()),
			)
		}
	}

	cancel()
	watcher.Stop()
	log.Info("shutdown complete")
}

func runRollout(args []string) {
	fs := flag.NewFlagSet("rollout", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	hosts := fs.String("hosts", "", "comma-separated hostnames or @file with one per line")
	source := fs.String("source", "", "path of the configuration file to deploy")
	templateID := fs.String("template", "", "template ID to render when no source file is given")
	presetID := fs.String("preset", "", "preset ID supplying template tokens")
	filename := fs.String("filename", "", "target filename on the hosts")
	mode := fs.String("mode", "", "backend mode: print, ssh or ansible")
	parallel := fs.Int("parallel", 0, "max concurrent host operations")
	elevated := fs.Bool("elevated", false, "use privilege escalation on the hosts")
	fs.Parse(args)

	log := logger.New()
	cfg := loadConfig(*configPath, log)
	fleet := buildService(cfg, log)

	hostnames, err := hostlist.Parse(*hosts)
	if err != nil {
		log.Error("invalid host list",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	req := service.RolloutRequest{
		Hosts:       hostnames,
		TemplateID:  *templateID,
		PresetID:    *presetID,
		Filename:    *filename,
		Mode:        *mode,
		Parallelism: *parallel,
		Elevated:    *elevated,
	}
	if *source != "" {
		content, err := os.ReadFile(*source)
		if err != nil {
			log.Error("failed to read source file",
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		req.Content = string(content)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := fleet.Rollout(ctx, req)
	if err != nil {
		log.Error("rollout failed",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	printJSON(report)
	if report.FailCount > 0 {
		os.Exit(1)
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	hosts := fs.String("hosts", "", "comma-separated hostnames or @file with one per line")
	expected := fs.Float64("expected", 0, "expected ingest in GiB/day")
	confidence := fs.Float64("confidence", 0, "confidence in the expected value (0-1)")
	threshold := fs.Float64("threshold", 0, "allowed relative deviation (0-1)")
	timeframe := fs.Int("timeframe", 0, "lookback window in hours")
	fs.Parse(args)

	log := logger.New()
	cfg := loadConfig(*configPath, log)
	fleet := buildService(cfg, log)

	hostnames, err := hostlist.Parse(*hosts)
	if err != nil {
		log.Error("invalid host list",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := fleet.Validate(ctx, service.ValidationRequest{
		Hosts:             hostnames,
		ExpectedGiBPerDay: *expected,
		Confidence:        *confidence,
		Threshold:         *threshold,
		TimeframeHours:    *timeframe,
	})
	if err != nil {
		log.Error("validation failed",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	printJSON(result)
	if !result.OverallPass {
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
	}
}
