// Package config loads and validates the SDK configuration.
//
// The loading sequence is:
//  1. Load a .env file via godotenv (non-fatal if absent).
//  2. Process CLIX_-prefixed environment variables via envconfig.
//  3. Apply programmatic overrides supplied by the integrator.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/clix-so/clix-go/pkg/types"
)

// envPrefix is the environment variable prefix for all SDK settings.
const envPrefix = "clix"

// Config holds the SDK settings. Integrators may set fields directly or
// rely on the environment.
type Config struct {
	// ProjectID and APIKey identify the Clix project; both are mandatory.
	ProjectID string `envconfig:"PROJECT_ID" validate:"required"`
	APIKey    string `envconfig:"API_KEY" validate:"required"`

	// Endpoint is the Clix API base URL.
	Endpoint string `envconfig:"ENDPOINT" default:"https://api.clix.so" validate:"required,url"`

	// LogLevel controls SDK log verbosity.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// SessionTimeout is the background duration after which a new session
	// is declared. Values under 5s are clamped at use.
	SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"30s" validate:"min=0"`

	// StoragePath is the on-device database location.
	StoragePath string `envconfig:"STORAGE_PATH" default:"clix.db" validate:"required"`

	// AutoHandleLandingURL enables automatic navigation to a tapped
	// notification's landing URL.
	AutoHandleLandingURL bool `envconfig:"AUTO_HANDLE_LANDING_URL" default:"true"`

	// ExtraHeaders are appended to every API request.
	ExtraHeaders map[string]string `envconfig:"EXTRA_HEADERS"`
}

// Load builds a Config from the environment (including an optional .env
// file) and validates it.
func Load() (*Config, error) {
	// Does not override variables already set in the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid, "failed to process environment configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return types.NewAppError(types.ErrCodeConfigInvalid, "invalid SDK configuration", err)
	}
	return nil
}
