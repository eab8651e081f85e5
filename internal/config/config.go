package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Web Server
	WebBind string

	// Discord gateway (optional; gateway disabled when token is empty)
	DiscordToken string

	// Discord OAuth2 for the ops dashboard (optional)
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// Session
	JWTSecret string

	// Engine
	ConfirmationTTL time.Duration
	SweepInterval   time.Duration
	ActivityWindow  time.Duration

	// Outbound callback endpoints for externally-adapted platforms,
	// e.g. PLATFORM_CALLBACKS="whatsapp=https://wa-adapter/send,telegram=https://tg-adapter/send"
	PlatformCallbacks map[string]string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		WebBind:             getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  getEnvDefault("DISCORD_REDIRECT_URI", "http://localhost:3000/api/auth/callback"),
		JWTSecret:           getEnvDefault("JWT_SECRET", "dev-only-change-me"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var err error
	if cfg.ConfirmationTTL, err = getEnvDuration("CONFIRMATION_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ActivityWindow, err = getEnvDuration("ACTIVITY_WINDOW", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.PlatformCallbacks, err = parseCallbacks(os.Getenv("PLATFORM_CALLBACKS"))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like \"5m\": %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

// parseCallbacks turns "whatsapp=url,telegram=url" into a platform→URL map.
func parseCallbacks(raw string) (map[string]string, error) {
	callbacks := make(map[string]string)
	if raw == "" {
		return callbacks, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, found := strings.Cut(pair, "=")
		if !found || name == "" || url == "" {
			return nil, fmt.Errorf("PLATFORM_CALLBACKS entry %q must be platform=url", pair)
		}
		callbacks[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(url)
	}
	return callbacks, nil
}
