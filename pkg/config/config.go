package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/tokopt/pkg/estimator"
	"github.com/pario-ai/tokopt/pkg/models"
	"github.com/pario-ai/tokopt/pkg/optimizer"
)

// Config holds all tokopt configuration.
type Config struct {
	DBPath  string                 `yaml:"db_path" toml:"db_path"`
	Pricing []models.ModelPricing  `yaml:"pricing" toml:"pricing"`
	Policy  models.OptimizerPolicy `yaml:"policy" toml:"policy"`
	History HistoryConfig          `yaml:"history" toml:"history"`
	Monitor MonitorConfig          `yaml:"monitor" toml:"monitor"`
	Metrics MetricsConfig          `yaml:"metrics" toml:"metrics"`
}

// HistoryConfig controls persistence of analysis results.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	RetentionDays int    `yaml:"retention_days" toml:"retention_days"`
	PruneSchedule string `yaml:"prune_schedule" toml:"prune_schedule"`
}

// MonitorConfig controls the periodic usage monitor.
// Schedules use cron syntax, including descriptors like "@every 30s".
type MonitorConfig struct {
	UsageFile      string `yaml:"usage_file" toml:"usage_file"`
	CheckSchedule  string `yaml:"check_schedule" toml:"check_schedule"`
	ReportSchedule string `yaml:"report_schedule" toml:"report_schedule"`
	WatchFile      bool   `yaml:"watch_file" toml:"watch_file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Listen    string `yaml:"listen" toml:"listen"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath:  "tokopt.db",
		Pricing: models.DefaultPricing(),
		Policy:  models.DefaultPolicy(),
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 90,
			PruneSchedule: "@daily",
		},
		Monitor: MonitorConfig{
			UsageFile:      "usage.json",
			CheckSchedule:  "@every 30s",
			ReportSchedule: "@every 5m",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Listen:    ":9464",
			Namespace: "tokopt",
		},
	}
}

// Load reads a YAML or TOML config file and expands environment variables.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Sections missing from the file keep their defaults; a pricing list in the
// file replaces the built-in table.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	cfg.Pricing = nil
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.Pricing == nil {
		cfg.Pricing = models.DefaultPricing()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the price table, policy, schedules and retention.
func (c *Config) Validate() error {
	if _, err := estimator.New(c.Pricing); err != nil {
		return fmt.Errorf("invalid pricing: %w", err)
	}
	if err := optimizer.ValidatePolicy(c.Policy); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("invalid history: retention_days must be >= 0, got %d", c.History.RetentionDays)
	}
	schedules := map[string]string{
		"history.prune_schedule":  c.History.PruneSchedule,
		"monitor.check_schedule":  c.Monitor.CheckSchedule,
		"monitor.report_schedule": c.Monitor.ReportSchedule,
	}
	for name, spec := range schedules {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	return nil
}
