package ratelimit

import (
	"testing"
	"time"
)

func TestDefaultConfigs_CoverKnownServices(t *testing.T) {
	configs := DefaultConfigs()

	for _, service := range []string{
		ServiceGemini, ServiceOpenRouter, ServiceOllama,
		ServiceLinkedIn, ServiceHunter, ServiceApollo,
	} {
		cfg, ok := configs[service]
		if !ok {
			t.Errorf("no default config for %s", service)
			continue
		}
		if cfg.RequestsPerMinute <= 0 || cfg.RequestsPerHour <= 0 || cfg.BurstLimit <= 0 {
			t.Errorf("%s has non-positive limits: %+v", service, cfg)
		}
		if cfg.BackoffMultiplier < 1 {
			t.Errorf("%s backoff multiplier %v would shrink", service, cfg.BackoffMultiplier)
		}
	}

	// Scraping has no fixed entry; it falls back to the lazy default.
	if _, ok := configs[ServiceScrape]; ok {
		t.Error("site_scrape should use the default config")
	}
}

func TestDefaultServiceConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS_PER_MINUTE", "7")
	t.Setenv("RATE_LIMIT_COOLDOWN", "250ms")

	cfg := DefaultServiceConfig()
	if cfg.RequestsPerMinute != 7 {
		t.Errorf("RequestsPerMinute = %d, want 7", cfg.RequestsPerMinute)
	}
	if cfg.Cooldown != 250*time.Millisecond {
		t.Errorf("Cooldown = %v, want 250ms", cfg.Cooldown)
	}
}

func TestDefaultServiceConfig_IgnoresInvalidEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS_PER_MINUTE", "not-a-number")

	cfg := DefaultServiceConfig()
	if cfg.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want default 30", cfg.RequestsPerMinute)
	}
}
