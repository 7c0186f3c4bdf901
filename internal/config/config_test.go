package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"database_url": "postgres://localhost/jobprep",
		"candidate_name": "Test User",
		"email_template": "casual",
		"max_concurrent_jobs": 5,
		"use_browser": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/jobprep", cfg.DatabaseURL)
	assert.Equal(t, "Test User", cfg.CandidateName)
	assert.Equal(t, "casual", cfg.EmailTemplate)
	assert.Equal(t, 5, cfg.MaxConcurrentJobs)
	assert.True(t, cfg.UseBrowser)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg := &Config{GeminiAPIKey: "file-gemini"}
	cfg.ApplyEnv()

	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	// Config file values take precedence over the environment.
	assert.Equal(t, "file-gemini", cfg.GeminiAPIKey)
}

func TestValidate(t *testing.T) {
	valid := &Config{MaxConcurrentJobs: 3, Port: 8080}
	assert.NoError(t, valid.Validate())

	negative := &Config{MaxConcurrentJobs: -1}
	assert.Error(t, negative.Validate())

	badPort := &Config{Port: 99999}
	assert.Error(t, badPort.Validate())

	missingProfile := &Config{ResumeProfile: "/nonexistent/resume.txt"}
	assert.Error(t, missingProfile.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{EmailTemplate: "direct", MaxConcurrentJobs: 7}
	merged := cfg.MergeWithDefaults(Defaults())

	// Explicit values survive the merge.
	assert.Equal(t, "direct", merged.EmailTemplate)
	assert.Equal(t, 7, merged.MaxConcurrentJobs)

	// Empty values take the defaults.
	assert.Equal(t, []string{"html", "pdf", "markdown"}, merged.DocumentFormats)
	assert.Equal(t, "output", merged.OutputDir)
	assert.Equal(t, 8080, merged.Port)
}
