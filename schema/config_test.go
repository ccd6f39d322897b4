package schema

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeServiceConfig(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(cfg.DefaultProviders) != len(AllProviders) {
		t.Fatalf("expected all providers by default, got %v", cfg.DefaultProviders)
	}

	cfg, err = NormalizeServiceConfig(ServiceConfig{
		DefaultProviders: []ProviderID{"ZAI", "claude", "zai"},
		CheckTimeout:     2 * time.Minute,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(cfg.DefaultProviders) != 2 || cfg.DefaultProviders[0] != ProviderZai || cfg.DefaultProviders[1] != ProviderClaude {
		t.Fatalf("unexpected providers %v", cfg.DefaultProviders)
	}
}

func TestNormalizeServiceConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServiceConfig
	}{
		{name: "unknown provider", cfg: ServiceConfig{DefaultProviders: []ProviderID{"openai"}}},
		{name: "negative timeout", cfg: ServiceConfig{CheckTimeout: -time.Second}},
		{name: "short timeout", cfg: ServiceConfig{CheckTimeout: 10 * time.Millisecond}},
	}
	for _, tc := range tests {
		if _, err := NormalizeServiceConfig(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	if _, err := NormalizeServiceConfig(ServiceConfig{DefaultProviders: []ProviderID{"openai"}}); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestCheckResponseStatus(t *testing.T) {
	resp := CheckResponse{Statuses: []Status{UnknownStatus(ProviderGemini), SkippedStatus(ProviderZai)}}
	st, ok := resp.Status(ProviderZai)
	if !ok || st.ResetAtHuman != UnknownSkipped {
		t.Fatalf("unexpected status %+v %v", st, ok)
	}
	if _, ok := resp.Status(ProviderClaude); ok {
		t.Fatalf("expected claude to be absent")
	}
}
