package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	LogLevel     string           `koanf:"log_level"`
	Server       ServerConfig     `koanf:"server"`
	Metrics      MetricsConfig    `koanf:"metrics"`
	Rollout      RolloutConfig    `koanf:"rollout"`
	Validation   ValidationConfig `koanf:"validation"`
	Watch        WatchConfig      `koanf:"watch"`
	PresetDirs   []string         `koanf:"preset_dirs"`
	TemplateDirs []string         `koanf:"template_dirs"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	BasePath     string        `koanf:"base_path"` // Optional base path for reverse proxy (e.g., "/rollctl")
}

// MetricsConfig represents the external metrics store client configuration.
// APIKey and AccountID are required before any validation can run; their
// absence is a configuration error, not a runtime one.
type MetricsConfig struct {
	APIKey             string        `koanf:"api_key"`
	AccountID          string        `koanf:"account_id"`
	Region             string        `koanf:"region"` // us or eu
	Timeout            time.Duration `koanf:"timeout"`
	CacheTTL           time.Duration `koanf:"cache_ttl"`
	BreakerThreshold   int           `koanf:"breaker_threshold"`
	BreakerResetWindow time.Duration `koanf:"breaker_reset_window"`
	TLS                *TLSConfig    `koanf:"tls"`
}

// TLSConfig carries optional client TLS material for the metrics endpoint,
// used when queries go through an inspecting proxy with a private CA.
type TLSConfig struct {
	CA   string `koanf:"ca"`
	Cert string `koanf:"cert"`
	Key  string `koanf:"key"`
}

// RolloutConfig represents rollout defaults applied when a request does not
// override them.
type RolloutConfig struct {
	Mode         string        `koanf:"mode"` // print | ssh | ansible
	Parallelism  int           `koanf:"parallelism"`
	HostTimeout  time.Duration `koanf:"host_timeout"`
	TargetPath   string        `koanf:"target_path"`
	AgentService string        `koanf:"agent_service"`
	SSH          SSHConfig     `koanf:"ssh"`
	Ansible      AnsibleConfig `koanf:"ansible"`
}

// SSHConfig represents default SSH transport settings.
type SSHConfig struct {
	User    string `koanf:"user"`
	KeyPath string `koanf:"key_path"`
	Port    int    `koanf:"port"`
}

// AnsibleConfig represents the ansible ad-hoc transport settings.
type AnsibleConfig struct {
	Inventory string `koanf:"inventory"`
	Binary    string `koanf:"binary"`
}

// ValidationConfig represents validation defaults.
type ValidationConfig struct {
	Threshold      float64 `koanf:"threshold"`
	TimeframeHours int     `koanf:"timeframe_hours"`
	Confidence     float64 `koanf:"confidence"`
}

// WatchConfig represents the continuous validation watcher. When enabled the
// serve mode periodically re-validates the configured hosts and emits a
// degradation event after the failed threshold is reached.
type WatchConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Interval          time.Duration `koanf:"interval"`
	FailedThreshold   int           `koanf:"failed_threshold"`
	Hosts             []string      `koanf:"hosts"`
	ExpectedGiBPerDay float64       `koanf:"expected_gib_day"`
}

// Default returns the configuration used when no config file is given
// (one-shot CLI runs).
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Metrics: MetricsConfig{
			Region:             "us",
			Timeout:            30 * time.Second,
			CacheTTL:           0,
			BreakerThreshold:   3,
			BreakerResetWindow: 60 * time.Second,
		},
		Rollout: RolloutConfig{
			Mode:         "print",
			Parallelism:  10,
			HostTimeout:  30 * time.Second,
			TargetPath:   "/etc/newrelic-infra/integrations.d/",
			AgentService: "newrelic-infra",
			SSH: SSHConfig{
				Port: 22,
			},
			Ansible: AnsibleConfig{
				Binary: "ansible",
			},
		},
		Validation: ValidationConfig{
			Threshold:      0.10,
			TimeframeHours: 24,
			Confidence:     0.8,
		},
		Watch: WatchConfig{
			Interval:        5 * time.Minute,
			FailedThreshold: 3,
		},
	}
}

// Load loads configuration from the specified file, overlaid on defaults
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Load YAML config
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Rollout.Mode {
	case "print", "ssh", "ansible":
	default:
		return fmt.Errorf("rollout.mode must be one of print, ssh, ansible; got %q", c.Rollout.Mode)
	}

	if c.Rollout.Parallelism <= 0 {
		return fmt.Errorf("rollout.parallelism must be positive")
	}
	if c.Rollout.HostTimeout <= 0 {
		return fmt.Errorf("rollout.host_timeout must be positive")
	}

	if c.Metrics.Region != "us" && c.Metrics.Region != "eu" {
		return fmt.Errorf("metrics.region must be us or eu, got %q", c.Metrics.Region)
	}
	if c.Metrics.BreakerThreshold <= 0 {
		return fmt.Errorf("metrics.breaker_threshold must be positive")
	}
	if c.Metrics.BreakerResetWindow <= 0 {
		return fmt.Errorf("metrics.breaker_reset_window must be positive")
	}

	if c.Validation.Threshold < 0 || c.Validation.Threshold > 1 {
		return fmt.Errorf("validation.threshold must be between 0 and 1")
	}
	if c.Validation.Confidence < 0 || c.Validation.Confidence > 1 {
		return fmt.Errorf("validation.confidence must be between 0 and 1")
	}
	if c.Validation.TimeframeHours <= 0 {
		return fmt.Errorf("validation.timeframe_hours must be positive")
	}

	// Validate watcher configuration
	if c.Watch.Enabled {
		if c.Watch.Interval <= 0 {
			return fmt.Errorf("watch.interval must be positive when the watcher is enabled")
		}
		if c.Watch.FailedThreshold <= 0 {
			return fmt.Errorf("watch.failed_threshold must be positive when the watcher is enabled")
		}
		if len(c.Watch.Hosts) == 0 {
			return fmt.Errorf("watch.hosts is required when the watcher is enabled")
		}
	}

	return nil
}
