package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Scanner: ScannerConfig{
			DefaultInterval: time.Hour,
			AnalysisDelay:   2 * time.Minute,
		},
		Dispatch: DispatchConfig{Schedule: "0,30 * * * *"},
		OpenRouter: OpenRouterConfig{
			ChunkSize:   100,
			MaxMessages: 5000,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Server.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Scanner.DefaultInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Scanner.AnalysisDelay = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Dispatch.Schedule = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OpenRouter.ChunkSize = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Scanner.DefaultInterval)
	assert.Equal(t, 2*time.Minute, cfg.Scanner.AnalysisDelay)
	assert.Equal(t, "0,30 * * * *", cfg.Dispatch.Schedule)
	assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
	assert.Equal(t, 1500*time.Millisecond, cfg.Dispatch.SendDelay)
	assert.Equal(t, 5000, cfg.OpenRouter.MaxMessages)
	assert.Equal(t, 100, cfg.OpenRouter.ChunkSize)
	assert.Equal(t, 30, cfg.OpenRouter.MinConfidence)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.NoError(t, cfg.Validate())
}
