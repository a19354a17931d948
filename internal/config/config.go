package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/dshills/shopctl/internal/api"
)

// Environment variables consulted by Load.
const (
	EnvBaseURL  = "SHOPCTL_BASE_URL"
	EnvTimeout  = "SHOPCTL_TIMEOUT"
	EnvStateDir = "SHOPCTL_STATE_DIR"
)

// DefaultBaseURL points at a locally running storefront API.
const DefaultBaseURL = "http://localhost:8080/api"

// Config holds client settings resolved from the environment.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	StateDir string
}

// Load resolves configuration. A .env file in the working directory is read
// first when present; real environment variables win over its contents.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is the normal case

	cfg := &Config{
		BaseURL: DefaultBaseURL,
		Timeout: api.DefaultTimeout,
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", EnvTimeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", EnvTimeout, d)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(EnvStateDir); v != "" {
		cfg.StateDir = v
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving state dir: %w", err)
		}
		cfg.StateDir = filepath.Join(dir, "shopctl")
	}

	return cfg, nil
}
