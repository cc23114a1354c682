// Package config holds the server configuration, read from flags and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	// HTTP server
	Port       int    `help:"Port to listen on." default:"8080" env:"PORT"`
	CORSOrigin string `help:"Allowed CORS origin." default:"*" env:"CORS_ORIGIN" name:"cors-origin"`

	// Storage
	Store  string `help:"Storage backend (sqlite, memory)." default:"sqlite" env:"STORE"`
	DBPath string `help:"SQLite database path." default:"./data/ledger.db" env:"DB_PATH" name:"db-path"`

	// Auth
	JWTSecret  string        `help:"Secret used to sign session tokens." env:"JWT_SECRET" name:"jwt-secret"`
	TokenTTL   time.Duration `help:"Session token lifetime." default:"24h" env:"TOKEN_TTL" name:"token-ttl"`
	BcryptCost int           `help:"bcrypt cost for password hashes." default:"10" env:"BCRYPT_COST"`

	// Ledger
	RetryAttempts uint `help:"Attempts for a write that hits a storage conflict." default:"3" env:"RETRY_ATTEMPTS"`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info" env:"LOG_LEVEL"`
}

// Parse reads the configuration from args and the environment.
func Parse(args []string) (*Config, error) {
	var cfg Config
	parser, err := kong.New(&cfg,
		kong.Name("splitledger"),
		kong.Description("Shared-expense ledger server."),
	)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and reports every problem at once.
// kong calls it after parsing.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("database path cannot be empty when using sqlite store"))
		} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Errorf("cannot create database directory '%s': %w", dir, err))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store '%s': must be one of [%s %s]", c.Store, StoreSQLite, StoreMemory))
	}

	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT secret must be at least 16 characters"))
	}
	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Errorf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}
	if c.RetryAttempts < 1 || c.RetryAttempts > 10 {
		errs = append(errs, fmt.Errorf("invalid retry attempts %d: must be between 1 and 10", c.RetryAttempts))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
