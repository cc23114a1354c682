package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func validConfig() Config {
	return Config{
		Port:          8080,
		CORSOrigin:    "*",
		Store:         StoreMemory,
		JWTSecret:     "0123456789abcdef",
		TokenTTL:      time.Hour,
		BcryptCost:    10,
		RetryAttempts: 3,
		LogLevel:      "info",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		errorString string
	}{
		{
			name:   "valid memory store",
			modify: func(*Config) {},
		},
		{
			name: "valid sqlite store creates directory",
			modify: func(c *Config) {
				c.Store = StoreSQLite
				c.DBPath = filepath.Join(t.TempDir(), "nested", "ledger.db")
			},
		},
		{
			name:        "port out of range",
			modify:      func(c *Config) { c.Port = 70000 },
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "unknown store",
			modify:      func(c *Config) { c.Store = "postgres" },
			errorString: "invalid store 'postgres': must be one of [sqlite memory]",
		},
		{
			name: "sqlite without path",
			modify: func(c *Config) {
				c.Store = StoreSQLite
				c.DBPath = ""
			},
			errorString: "database path cannot be empty when using sqlite store",
		},
		{
			name:        "short secret",
			modify:      func(c *Config) { c.JWTSecret = "short" },
			errorString: "JWT secret must be at least 16 characters",
		},
		{
			name:        "tiny token TTL",
			modify:      func(c *Config) { c.TokenTTL = time.Second },
			errorString: "invalid token TTL 1s: must be at least 1 minute",
		},
		{
			name:        "bcrypt cost too low",
			modify:      func(c *Config) { c.BcryptCost = 2 },
			errorString: "invalid bcrypt cost 2: must be between 4 and 31",
		},
		{
			name:        "no retry attempts",
			modify:      func(c *Config) { c.RetryAttempts = 0 },
			errorString: "invalid retry attempts 0: must be between 1 and 10",
		},
		{
			name:        "unknown log level",
			modify:      func(c *Config) { c.LogLevel = "loud" },
			errorString: "invalid log level 'loud'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errorString == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	cfg.JWTSecret = ""
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 0")
	assert.Contains(t, err.Error(), "JWT secret")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestParse(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-the-environment")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := Parse([]string{"--store", "memory", "--port", "9090"})
	assert.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "from-the-environment", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, uint(3), cfg.RetryAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Parse([]string{"--store", "memory"})
	assert.Error(t, err)
}
