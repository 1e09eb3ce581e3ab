package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tachyon/constellation/internal/expand"
	"tachyon/constellation/internal/financing"
	"tachyon/constellation/internal/placement"
)

// Config holds everything the CLI and HTTP surface need. Values come from
// defaults, then the YAML file, then TACHYON_* environment variables.
type Config struct {
	// APIURL is the base URL of the interview and scenario service
	APIURL  string        `yaml:"api_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	// RatePerSecond caps outgoing backend calls; a negative value disables throttling
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`

	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`

	Policy  expand.PlanTypePolicy `yaml:"plan_type_policy"`
	Layout  placement.Layout      `yaml:"layout"`
	Profile financing.Profile     `yaml:"profile"`
	Plans   []financing.Plan      `yaml:"plans"`
}

// Default returns the built-in configuration
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = "http://localhost:8000"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RatePerSecond == 0 {
		c.RatePerSecond = 2
	}
	if c.Burst == 0 {
		c.Burst = 4
	}
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:8088"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.Policy == "" {
		c.Policy = expand.InheritParent
	}
	c.Layout = c.Layout.WithDefaults()
	c.Profile = c.Profile.Merge(financing.DefaultProfile())
	if len(c.Plans) == 0 {
		c.Plans = financing.DefaultPlans()
	}
}

// LoadConfig reads a YAML configuration file. An empty path loads the default
// location when it exists and falls back to built-in defaults otherwise.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	// layout fields absent from the file keep their defaults; ones set to 0 stay 0
	cfg := Config{Layout: placement.DefaultLayout()}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/tachyon/config.yaml, or ~/.config/tachyon/config.yaml
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tachyon", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tachyon", "config.yaml")
	}
	return filepath.Join(home, ".config", "tachyon", "config.yaml")
}

func (c *Config) applyEnv() {
	c.APIURL = getenv("TACHYON_API_URL", c.APIURL)
	c.Token = getenv("TACHYON_TOKEN", c.Token)
	c.DBPath = getenv("TACHYON_DB", c.DBPath)
	c.ListenAddr = getenv("TACHYON_LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getenv("TACHYON_LOG_LEVEL", c.LogLevel)
	c.RatePerSecond = getenvFloat("TACHYON_RATE_LIMIT", c.RatePerSecond)
}

// Validate rejects settings no component can work with
func (c Config) Validate() error {
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("config: api_url %q must start with http:// or https://", c.APIURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: timeout must not be negative")
	}
	if !c.Policy.Valid() {
		return fmt.Errorf("config: plan_type_policy %q must be %s or %s", c.Policy, expand.InheritParent, expand.FromDescriptor)
	}
	if c.Layout.MinSeparation < 0 {
		return fmt.Errorf("config: layout.min_separation must not be negative")
	}
	baselines := 0
	for _, p := range c.Plans {
		if p.TermMonths <= 0 {
			return fmt.Errorf("config: plan %q needs a positive term", p.Name)
		}
		if p.Baseline {
			baselines++
		}
	}
	if baselines > 1 {
		return fmt.Errorf("config: only one plan can be the baseline, found %d", baselines)
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to warn
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return l
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
