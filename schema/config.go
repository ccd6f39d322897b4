package schema

import (
	"errors"
	"fmt"
	"time"
)

// ServiceConfig defines defaults and limits for the core service.
type ServiceConfig struct {
	// DefaultProviders are checked when a request names none.
	DefaultProviders []ProviderID
	// CheckTimeout bounds a single provider check; zero leaves only the
	// bounded waits inside each check.
	CheckTimeout time.Duration
}

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if len(cfg.DefaultProviders) == 0 {
		cfg.DefaultProviders = append([]ProviderID(nil), AllProviders...)
	}
	seen := map[ProviderID]bool{}
	out := make([]ProviderID, 0, len(cfg.DefaultProviders))
	for _, p := range cfg.DefaultProviders {
		id, err := NormalizeProviderID(string(p))
		if err != nil {
			return ServiceConfig{}, err
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	cfg.DefaultProviders = out
	if cfg.CheckTimeout < 0 {
		return ServiceConfig{}, errors.New("check timeout must not be negative")
	}
	if cfg.CheckTimeout > 0 && cfg.CheckTimeout < time.Second {
		return ServiceConfig{}, fmt.Errorf("check timeout %s is too short", cfg.CheckTimeout)
	}
	return cfg, nil
}
