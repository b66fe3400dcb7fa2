package billing

import (
	"strings"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/env"
)

const (
	DefaultCreditsPerPack = 200
	DefaultPackAmount     = 1000
	DefaultCurrency       = "usd"
)

// Config holds Stripe credentials and the credit pack offer
type Config struct {
	SecretKey      string
	WebhookSecret  string
	PriceID        string
	CreditsPerPack int
	PackAmount     int64
	Currency       string
	SuccessURL     string
	CancelURL      string
}

// LoadConfig loads the billing configuration from environment variables
func LoadConfig() *Config {
	base := env.PublicBaseURL()
	cfg := &Config{
		SecretKey:      strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret:  strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		PriceID:        strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", "")),
		CreditsPerPack: env.GetEnvInt("BILLING_CREDITS_PER_PACK", DefaultCreditsPerPack),
		PackAmount:     int64(env.GetEnvInt("BILLING_PACK_AMOUNT", DefaultPackAmount)),
		Currency:       strings.ToLower(env.GetEnv("BILLING_CURRENCY", DefaultCurrency)),
		SuccessURL:     base + "/billing?success=true",
		CancelURL:      base + "/pricing?canceled=true",
	}
	if cfg.CreditsPerPack <= 0 {
		cfg.CreditsPerPack = DefaultCreditsPerPack
	}
	return cfg
}
