package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL     string
	JWTSecret       string
	LogLevel        string
	ExpirySweepRate time.Duration
}

// Load reads configuration from environment variables, with an optional .env
// file for local development. DATABASE_URL and JWT_SECRET are required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("EXPIRY_SWEEP_MINUTES", 60)

	cfg := &Config{
		DatabaseURL:     viper.GetString("DATABASE_URL"),
		JWTSecret:       viper.GetString("JWT_SECRET"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		ExpirySweepRate: time.Duration(viper.GetInt("EXPIRY_SWEEP_MINUTES")) * time.Minute,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	return cfg, nil
}
