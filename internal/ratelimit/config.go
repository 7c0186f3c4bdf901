package ratelimit

import (
	"os"
	"strconv"
	"time"
)

// Well-known service names used across the collaborator packages.
const (
	ServiceGemini     = "gemini"
	ServiceOpenRouter = "openrouter"
	ServiceOllama     = "ollama"
	ServiceLinkedIn   = "linkedin"
	ServiceHunter     = "hunter_io"
	ServiceApollo     = "apollo_io"
	ServiceScrape     = "site_scrape"
)

// DefaultServiceConfig returns the config applied to services without an
// explicit entry, overridable through RATE_LIMIT_* environment variables.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RequestsPerMinute: getEnvInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 30),
		RequestsPerHour:   getEnvInt("RATE_LIMIT_REQUESTS_PER_HOUR", 1000),
		BurstLimit:        getEnvInt("RATE_LIMIT_BURST_LIMIT", 5),
		Cooldown:          getEnvDuration("RATE_LIMIT_COOLDOWN", time.Second),
		BackoffMultiplier: 2.0,
		MaxBackoff:        getEnvDuration("RATE_LIMIT_MAX_BACKOFF", 5*time.Minute),
	}
}

// DefaultConfigs returns the built-in per-service configurations.
// Scraping targets get conservative limits; local models are generous.
func DefaultConfigs() map[string]ServiceConfig {
	return map[string]ServiceConfig{
		ServiceGemini: {
			RequestsPerMinute: 60,
			RequestsPerHour:   1500,
			BurstLimit:        5,
			Cooldown:          500 * time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxBackoff:        5 * time.Minute,
		},
		ServiceLinkedIn: {
			RequestsPerMinute: 10,
			RequestsPerHour:   200,
			BurstLimit:        5,
			Cooldown:          2 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        5 * time.Minute,
		},
		ServiceOpenRouter: {
			RequestsPerMinute: 60,
			RequestsPerHour:   3000,
			BurstLimit:        5,
			Cooldown:          500 * time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxBackoff:        5 * time.Minute,
		},
		ServiceHunter: {
			RequestsPerMinute: 30,
			RequestsPerHour:   1000,
			BurstLimit:        5,
			Cooldown:          time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        5 * time.Minute,
		},
		ServiceApollo: {
			RequestsPerMinute: 20,
			RequestsPerHour:   500,
			BurstLimit:        5,
			Cooldown:          1500 * time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxBackoff:        5 * time.Minute,
		},
		ServiceOllama: {
			RequestsPerMinute: 120,
			RequestsPerHour:   5000,
			BurstLimit:        5,
			Cooldown:          100 * time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxBackoff:        5 * time.Minute,
		},
	}
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
