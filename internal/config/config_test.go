package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clix-so/clix-go/pkg/types"
)

func validConfig() Config {
	return Config{
		ProjectID:      "proj_1",
		APIKey:         "key_1",
		Endpoint:       "https://api.clix.so",
		LogLevel:       "info",
		SessionTimeout: 30 * time.Second,
		StoragePath:    "clix.db",
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CLIX_PROJECT_ID", "proj_env")
	t.Setenv("CLIX_API_KEY", "key_env")
	t.Setenv("CLIX_SESSION_TIMEOUT", "45s")
	t.Setenv("CLIX_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "proj_env", cfg.ProjectID)
	assert.Equal(t, "key_env", cfg.APIKey)
	assert.Equal(t, "https://api.clix.so", cfg.Endpoint, "default endpoint applies")
	assert.Equal(t, 45*time.Second, cfg.SessionTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.AutoHandleLandingURL)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("CLIX_PROJECT_ID", "")
	t.Setenv("CLIX_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeConfigInvalid, appErr.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing project id", mutate: func(c *Config) { c.ProjectID = "" }, wantErr: true},
		{name: "missing api key", mutate: func(c *Config) { c.APIKey = "" }, wantErr: true},
		{name: "bad endpoint", mutate: func(c *Config) { c.Endpoint = "not a url" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
