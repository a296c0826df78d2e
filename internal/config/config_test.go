package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Providers: ProvidersConfig{
			Order:       []string{"ocrspace", "openai"},
			CallTimeout: 30 * time.Second,
			OCRSpace:    OCRSpaceConfig{APIKey: "k1"},
			OpenAI:      OpenAIConfig{APIKey: "k2"},
		},
		Recognition: RecognitionConfig{ReviewThreshold: 0.5},
		Queue:       QueueConfig{Workers: 4, Size: 64, JobTimeout: 3 * time.Minute},
		Log:         LogConfig{Level: "info"},
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("RECOGNIZER_PROVIDERS_ORDER", "ocrspace")
	t.Setenv("RECOGNIZER_PROVIDERS_OCRSPACE_API_KEY", "test-key")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"ocrspace"}, cfg.Providers.Order)
	assert.Equal(t, "test-key", cfg.Providers.OCRSpace.APIKey)

	// everything else falls back to defaults
	assert.Equal(t, 30*time.Second, cfg.Providers.CallTimeout)
	assert.Equal(t, "https://api.ocr.space", cfg.Providers.OCRSpace.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "gemini-1.5-flash", cfg.Providers.Gemini.Model)
	assert.InDelta(t, 0.5, cfg.Recognition.ReviewThreshold, 0.001)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 64, cfg.Queue.Size)
	assert.Equal(t, 3*time.Minute, cfg.Queue.JobTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("RECOGNIZER_PROVIDERS_ORDER", "gemini,openai")
	t.Setenv("RECOGNIZER_PROVIDERS_GEMINI_API_KEY", "gk")
	t.Setenv("RECOGNIZER_PROVIDERS_OPENAI_API_KEY", "ok")
	t.Setenv("RECOGNIZER_RECOGNITION_REVIEW_THRESHOLD", "0.7")
	t.Setenv("RECOGNIZER_QUEUE_WORKERS", "2")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "openai"}, cfg.Providers.Order)
	assert.InDelta(t, 0.7, cfg.Recognition.ReviewThreshold, 0.001)
	assert.Equal(t, 2, cfg.Queue.Workers)
}

func TestLoad_MissingAPIKeyRejected(t *testing.T) {
	t.Setenv("RECOGNIZER_PROVIDERS_ORDER", "openai")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no api key")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(_ *Config) {}, ""},
		{"empty order", func(c *Config) { c.Providers.Order = nil }, "at least one provider"},
		{"unknown provider", func(c *Config) { c.Providers.Order = []string{"tesseract"} }, "unknown provider"},
		{"mixed-case name accepted", func(c *Config) { c.Providers.Order = []string{"OCRSpace"} }, ""},
		{"missing key", func(c *Config) { c.Providers.OpenAI.APIKey = "" }, "no api key"},
		{"zero timeout", func(c *Config) { c.Providers.CallTimeout = 0 }, "call_timeout"},
		{"threshold above one", func(c *Config) { c.Recognition.ReviewThreshold = 1.5 }, "review_threshold"},
		{"negative threshold", func(c *Config) { c.Recognition.ReviewThreshold = -0.1 }, "review_threshold"},
		{"zero workers", func(c *Config) { c.Queue.Workers = 0 }, "queue.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
