package generation

import (
	"github.com/ManuelReschke/PetsSanta/internal/pkg/env"
)

const (
	DefaultCreditsCost  = 20
	DefaultMaxRetries   = 3
	DefaultAspectRatio  = "1:1"
	DefaultResolution   = "1K"
	DefaultOutputFormat = "png"
)

// Config holds the generation pricing and retry policy
type Config struct {
	CreditsCost            int
	MaxRetries             int
	RetryConsumesOnFailure bool
	CallbackURL            string
}

// LoadConfig loads the generation settings from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		CreditsCost:            env.GetEnvInt("GENERATION_CREDITS_COST", DefaultCreditsCost),
		MaxRetries:             env.GetEnvInt("GENERATION_MAX_RETRIES", DefaultMaxRetries),
		RetryConsumesOnFailure: env.GetEnvBool("GENERATION_RETRY_CONSUME_ON_FAILURE", false),
		CallbackURL:            env.GetEnv("GENERATION_CALLBACK_URL", env.PublicBaseURL()+"/api/callback"),
	}
	if cfg.CreditsCost <= 0 {
		cfg.CreditsCost = DefaultCreditsCost
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return cfg
}
