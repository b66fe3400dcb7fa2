package kieai

import (
	"errors"
	"time"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/env"
)

const (
	DefaultBaseURL = "https://api.kie.ai/api/v1"
	DefaultModel   = "nano-banana-pro"
	DefaultTimeout = 30 * time.Second
)

// Config holds the Kie.ai connection settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LoadConfig loads the Kie.ai configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		APIKey:  env.GetEnv("KIE_AI_API_KEY", ""),
		BaseURL: env.GetEnv("KIE_AI_BASE_URL", DefaultBaseURL),
		Model:   env.GetEnv("KIE_AI_MODEL", DefaultModel),
		Timeout: env.GetEnvSeconds("KIE_AI_TIMEOUT_SECONDS", DefaultTimeout),
	}
	if config.APIKey == "" {
		return nil, errors.New("KIE_AI_API_KEY is required")
	}
	return config, nil
}
