package config

import (
	"errors"
	"fmt"
	"strings"
)

// Modules that can be listed under Paused.
var knownModules = map[string]struct{}{
	"crowdfund": {},
	"stream":    {},
}

// ErrAuthSecretMissing is returned when auth is enabled without a signing secret.
var ErrAuthSecretMissing = errors.New("auth.HMACSecret required when auth is enabled")

// Validate checks the configuration for values fundd cannot run with.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.ListenAddress == "" {
		return fmt.Errorf("ListenAddress is required")
	}
	for _, module := range cfg.Paused {
		if _, ok := knownModules[module]; !ok {
			return fmt.Errorf("Paused: unknown module %q", module)
		}
	}
	if cfg.HTTP.ReadTimeoutSeconds < 0 || cfg.HTTP.WriteTimeoutSeconds < 0 || cfg.HTTP.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("http: timeouts must not be negative")
	}
	if cfg.HTTP.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("http: ShutdownTimeoutSeconds must be positive")
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return ErrAuthSecretMissing
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	switch cfg.Crowdfund.DefaultPolicy {
	case "any", "funded":
	default:
		return fmt.Errorf("crowdfund: DefaultPolicy must be \"any\" or \"funded\", got %q", cfg.Crowdfund.DefaultPolicy)
	}
	if cfg.Crowdfund.PayoutPlaces < 0 || cfg.Crowdfund.PayoutPlaces > 36 {
		return fmt.Errorf("crowdfund: PayoutPlaces must be within [0, 36]")
	}
	if cfg.Events.HistoryLimit <= 0 {
		return fmt.Errorf("events: HistoryLimit must be positive")
	}
	return nil
}

// IsPaused reports whether module is listed under Paused.
func (cfg *Config) IsPaused(module string) bool {
	if cfg == nil {
		return false
	}
	module = strings.ToLower(strings.TrimSpace(module))
	for _, paused := range cfg.Paused {
		if paused == module {
			return true
		}
	}
	return false
}
