package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the process configuration, sourced from the environment
// with an optional .env file.
type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"summitpass.db"`
	SpinDuration time.Duration `env:"LOTTERY_SPIN_DURATION" envDefault:"4s"`
	Verbose      bool          `env:"LOG_VERBOSE" envDefault:"false"`

	// AdminUsername is the fixed login; AdminPassword seeds the mutable
	// password on the global row and is ignored once that row exists.
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"ArrowSMT"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"SMTsec2026"`
}

// Load reads .env if present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
