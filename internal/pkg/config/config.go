package config

import (
	"strings"

	"github.com/tlcshift/ShiftMarket/internal/pkg/env"
)

// Settings holds the process-wide configuration. It is built once at startup
// from the environment and passed explicitly to every component that needs
// it; nothing mutates it afterwards.
type Settings struct {
	AppHost string
	AppPort string
	AppEnv  string

	// JWT
	SecretKey                string
	AccessTokenExpireMinutes int

	// Stripe
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	StripeListingPriceID string

	// Cloudinary
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryEnv       string

	// Google OAuth
	GoogleClientID string

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPSender   string
	SenderName   string

	// NYC Open Data
	OpenDataAppToken string

	// CORS
	CORSOrigins string

	// Frontend base URL for checkout redirects
	FrontendURL string
}

// Load reads settings from the environment. env.SetupEnvFile must have been
// called first.
func Load() *Settings {
	return &Settings{
		AppHost: env.GetEnv("APP_HOST", "localhost"),
		AppPort: env.GetEnv("APP_PORT", "8000"),
		AppEnv:  env.GetEnv("APP_ENV", "prod"),

		SecretKey:                env.GetEnv("SECRET_KEY", ""),
		AccessTokenExpireMinutes: 60,

		StripeSecretKey:      env.GetEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: env.GetEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeWebhookSecret:  env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeListingPriceID: env.GetEnv("STRIPE_LISTING_PRICE_ID", ""),

		CloudinaryCloudName: env.GetEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    env.GetEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: env.GetEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryEnv:       env.GetEnv("CLOUDINARY_ENV", "dev"),

		GoogleClientID: env.GetEnv("GOOGLE_CLIENT_ID", ""),

		SMTPHost:     env.GetEnv("SMTP_HOST", ""),
		SMTPPort:     env.GetEnv("SMTP_PORT", "587"),
		SMTPUsername: env.GetEnv("SMTP_USERNAME", ""),
		SMTPPassword: env.GetEnv("SMTP_PASSWORD", ""),
		SMTPSender:   env.GetEnv("SMTP_SENDER", ""),
		SenderName:   env.GetEnv("SMTP_SENDER_NAME", "TLC Shift"),

		OpenDataAppToken: env.GetEnv("NYC_OPEN_DATA_APP_TOKEN", ""),

		CORSOrigins: env.GetEnv("CORS_ORIGINS", "http://localhost:3000"),

		FrontendURL: env.GetEnv("FRONTEND_URL", "http://localhost:3000"),
	}
}

// CORSOriginsList splits the comma-separated CORS origins.
func (s *Settings) CORSOriginsList() []string {
	parts := strings.Split(s.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
