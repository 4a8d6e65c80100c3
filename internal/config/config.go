package config

import (
	"fmt"
	"os"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL   string
	Port          string
	AppEnv        string
	AdminUsername string
	AdminPassword string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:          "8080", // default port
		AppEnv:        "development",
		AdminUsername: "admin",
		AdminPassword: "kerventz2025",
	}

	// Load DATABASE_URL (required)
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	// Load PORT (optional, defaults to 8080)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Load APP_ENV (optional; "production" enables the Secure cookie flag)
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.AppEnv = env
	}

	// Default admin bootstrap credentials (optional overrides)
	if u := os.Getenv("ADMIN_USERNAME"); u != "" {
		cfg.AdminUsername = u
	}
	if p := os.Getenv("ADMIN_PASSWORD"); p != "" {
		cfg.AdminPassword = p
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
