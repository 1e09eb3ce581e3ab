package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tachyon/constellation/internal/expand"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TACHYON_API_URL", "TACHYON_TOKEN", "TACHYON_DB", "TACHYON_LISTEN_ADDR", "TACHYON_LOG_LEVEL", "TACHYON_RATE_LIMIT"} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "http://localhost:8000" || cfg.Timeout != time.Minute {
		t.Errorf("api defaults: %q %v", cfg.APIURL, cfg.Timeout)
	}
	if cfg.Policy != expand.InheritParent {
		t.Errorf("policy = %q", cfg.Policy)
	}
	if cfg.Layout.MinSeparation != 45 || cfg.Layout.RootRadius != 120 || cfg.Layout.MaxAttempts != 20 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Profile.CreditScore != "670-739" || cfg.Profile.MonthlyBudget != 400 {
		t.Errorf("profile = %+v", cfg.Profile)
	}
	if len(cfg.Plans) != 5 {
		t.Errorf("plans = %d", len(cfg.Plans))
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("level = %v", cfg.Level())
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api_url: https://scenarios.example.com
timeout: 15s
rate_per_second: 0.5
plan_type_policy: from_descriptor
log_level: debug
layout:
  min_separation: 30
  max_attempts: 5
profile:
  income: 9000
  priorities: [range]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "https://scenarios.example.com" || cfg.Timeout != 15*time.Second || cfg.RatePerSecond != 0.5 {
		t.Errorf("api settings = %+v", cfg)
	}
	if cfg.Policy != expand.FromDescriptor || cfg.Level() != slog.LevelDebug {
		t.Errorf("policy %q level %v", cfg.Policy, cfg.Level())
	}
	if cfg.Layout.MinSeparation != 30 || cfg.Layout.MaxAttempts != 5 || cfg.Layout.ChildRadius != 60 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Profile.Income != 9000 || cfg.Profile.Priorities[0] != "range" || cfg.Profile.LoanTerm != 60 {
		t.Errorf("profile = %+v", cfg.Profile)
	}
}

func TestLoadFile_ZeroJitterKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
layout:
  angle_jitter: 0
  depth_jitter: 0
  radius_jitter: 0
  push_jitter: 0
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	l := cfg.Layout
	if l.AngleJitter != 0 || l.DepthJitter != 0 || l.RadiusJitter != 0 || l.PushJitter != 0 {
		t.Errorf("explicit zero jitter was overridden: %+v", l)
	}
	if l.ChildRadius != 60 || l.MinSeparation != 45 || l.MaxAttempts != 20 {
		t.Errorf("unset layout fields lost their defaults: %+v", l)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "api_url: https://file.example.com\nlisten_addr: :9000\n")
	t.Setenv("TACHYON_API_URL", "https://env.example.com")
	t.Setenv("TACHYON_TOKEN", "secret")
	t.Setenv("TACHYON_DB", "/tmp/x.db")
	t.Setenv("TACHYON_RATE_LIMIT", "7")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "https://env.example.com" || cfg.Token != "secret" || cfg.DBPath != "/tmp/x.db" || cfg.RatePerSecond != 7 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("file value lost: %q", cfg.ListenAddr)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "api_url: [", "parsing config file"},
		{"bad scheme", "api_url: ftp://x", "api_url"},
		{"bad policy", "plan_type_policy: random", "plan_type_policy"},
		{"two baselines", "plans:\n  - {name: A, term_months: 12, baseline: true}\n  - {name: B, term_months: 24, baseline: true}\n", "baseline"},
		{"zero term plan", "plans:\n  - {name: A, term_months: 0}\n", "positive term"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("an explicit missing file should be an error")
	}
}

func TestDefaultPathUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if got := DefaultPath(); got != filepath.Join(dir, "tachyon", "config.yaml") {
		t.Errorf("DefaultPath = %q", got)
	}
}
