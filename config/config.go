package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config is the runtime configuration of fundd.
type Config struct {
	ListenAddress string        `toml:"ListenAddress" env:"FUNDD_LISTEN"`
	Environment   string        `toml:"Environment" env:"FUNDD_ENV"`
	LogFile       string        `toml:"LogFile" env:"FUNDD_LOG_FILE"`
	LogLevel      string        `toml:"LogLevel" env:"FUNDD_LOG_LEVEL"`
	Paused        []string      `toml:"Paused" env:"FUNDD_PAUSED"`
	HTTP          HTTP          `toml:"http"`
	Auth          Auth          `toml:"auth"`
	RateLimit     RateLimit     `toml:"rate_limit"`
	Observability Observability `toml:"observability"`
	Crowdfund     Crowdfund     `toml:"crowdfund"`
	Events        Events        `toml:"events"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ListenAddress: ":7090",
		Environment:   "local",
		LogLevel:      "info",
		Paused:        []string{},
		HTTP: HTTP{
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    30,
			IdleTimeoutSeconds:     60,
			ShutdownTimeoutSeconds: 10,
			AllowedOrigins:         []string{"*"},
			Compress:               true,
		},
		Auth: Auth{
			Enabled:    false,
			WriteScope: "fund:write",
		},
		RateLimit: RateLimit{
			RequestsPerMinute: 120,
			Burst:             20,
		},
		Observability: Observability{
			Metrics:      true,
			Tracing:      false,
			LogRequests:  true,
			OTLPEndpoint: "localhost:4318",
			OTLPInsecure: true,
		},
		Crowdfund: Crowdfund{
			DefaultPolicy: "any",
			PayoutPlaces:  8,
		},
		Events: Events{
			HistoryLimit: 2048,
		},
	}
}

// Load reads the TOML file at path, creating it with defaults when it does
// not exist, then applies FUNDD_* environment overrides and validates the
// result. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := persist(path, cfg); err != nil {
				return nil, fmt.Errorf("write default config: %w", err)
			}
		} else if err != nil {
			return nil, err
		} else {
			meta, err := toml.DecodeFile(path, cfg)
			if err != nil {
				return nil, fmt.Errorf("decode config: %w", err)
			}
			if undecoded := meta.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, 0, len(undecoded))
				for _, key := range undecoded {
					keys = append(keys, key.String())
				}
				sort.Strings(keys)
				return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
			}
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) normalise() {
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	cfg.Environment = strings.TrimSpace(cfg.Environment)
	paused := make([]string, 0, len(cfg.Paused))
	for _, module := range cfg.Paused {
		if trimmed := strings.ToLower(strings.TrimSpace(module)); trimmed != "" {
			paused = append(paused, trimmed)
		}
	}
	cfg.Paused = paused
	cfg.Crowdfund.DefaultPolicy = strings.ToLower(strings.TrimSpace(cfg.Crowdfund.DefaultPolicy))
	if strings.TrimSpace(cfg.Auth.WriteScope) == "" {
		cfg.Auth.WriteScope = "fund:write"
	}
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
