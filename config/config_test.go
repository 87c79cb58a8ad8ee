package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fundd.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":7090" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Events.HistoryLimit != cfg.Events.HistoryLimit || again.Crowdfund.DefaultPolicy != "any" {
		t.Fatalf("round trip changed defaults: %+v", again)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fundd.toml")
	contents := `
ListenAddress = "127.0.0.1:9000"
Paused = [" Stream "]

[crowdfund]
DefaultPolicy = "FUNDED"
PayoutPlaces = 2

[auth]
Enabled = true
HMACSecret = "secret"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.Crowdfund.DefaultPolicy != "funded" || cfg.Crowdfund.PayoutPlaces != 2 {
		t.Fatalf("crowdfund section not applied: %+v", cfg.Crowdfund)
	}
	if !cfg.IsPaused("stream") || cfg.IsPaused("crowdfund") {
		t.Fatalf("unexpected paused modules %v", cfg.Paused)
	}
	if cfg.Auth.WriteScope != "fund:write" {
		t.Fatalf("expected default write scope, got %q", cfg.Auth.WriteScope)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fundd.toml")
	if err := os.WriteFile(path, []byte("ListenAddres = \":1\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ListenAddres") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("FUNDD_LISTEN", ":8181")
	t.Setenv("FUNDD_PAUSED", "crowdfund,stream")
	t.Setenv("FUNDD_EVENT_HISTORY", "16")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8181" {
		t.Fatalf("env listen not applied: %q", cfg.ListenAddress)
	}
	if len(cfg.Paused) != 2 {
		t.Fatalf("env paused not applied: %v", cfg.Paused)
	}
	if cfg.Events.HistoryLimit != 16 {
		t.Fatalf("env history not applied: %d", cfg.Events.HistoryLimit)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing listen", mutate: func(c *Config) { c.ListenAddress = "" }, want: "ListenAddress"},
		{name: "unknown paused module", mutate: func(c *Config) { c.Paused = []string{"escrow"} }, want: "unknown module"},
		{name: "auth without secret", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "HMACSecret"},
		{name: "bad policy", mutate: func(c *Config) { c.Crowdfund.DefaultPolicy = "later" }, want: "DefaultPolicy"},
		{name: "negative burst", mutate: func(c *Config) { c.RateLimit.Burst = -1 }, want: "rate_limit"},
		{name: "zero history", mutate: func(c *Config) { c.Events.HistoryLimit = 0 }, want: "HistoryLimit"},
		{name: "zero shutdown", mutate: func(c *Config) { c.HTTP.ShutdownTimeoutSeconds = 0 }, want: "ShutdownTimeoutSeconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
