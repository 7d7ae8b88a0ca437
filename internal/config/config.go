package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/labres-dev/labres/internal/auth"
)

// Token store kinds
const (
	TokenStoreKeyring = "keyring"
	TokenStoreFile    = "file"
	TokenStoreMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// API Configuration
	API APIConfig `envPrefix:"LABRES_"`

	// Credential storage
	Credentials CredentialsConfig `envPrefix:"LABRES_"`

	// Logging Configuration
	Logging LoggingConfig `envPrefix:"LABRES_LOG_"`

	// Web console
	Web WebConfig `envPrefix:"LABRES_WEB_"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	// URL is the backend server; /api/v1 is appended by the client
	URL           string        `env:"API_URL" envDefault:"http://127.0.0.1:8000"`
	Timeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	RedirectDelay time.Duration `env:"REDIRECT_DELAY" envDefault:"1500ms"`
}

// CredentialsConfig selects where the bearer token is persisted
type CredentialsConfig struct {
	Store string `env:"TOKEN_STORE" envDefault:"keyring"`
	// File is only used by the file store; empty means ~/.config/labres/credentials.json
	File string `env:"CREDENTIALS_FILE"`
}

// TokenStore builds the configured credential store for the backend at apiURL
func (c CredentialsConfig) TokenStore(apiURL string) (auth.TokenStore, error) {
	switch c.Store {
	case TokenStoreMemory:
		return auth.NewMemoryStore(), nil
	case TokenStoreFile:
		path := c.File
		if path == "" {
			var err error
			if path, err = auth.DefaultCredentialsPath(); err != nil {
				return nil, err
			}
		}
		return auth.NewFileStore(path, apiURL), nil
	default:
		return auth.NewKeyringStore(apiURL), nil
	}
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"warn"`
	Format string `env:"FORMAT" envDefault:"console"` // json, console
}

// WebConfig holds the local web console settings
type WebConfig struct {
	Addr           string   `env:"ADDR" envDefault:"127.0.0.1:8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return parse()
}

func parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	switch cfg.Credentials.Store {
	case TokenStoreKeyring, TokenStoreFile, TokenStoreMemory:
	default:
		return nil, fmt.Errorf("invalid LABRES_TOKEN_STORE %q, must be one of: keyring, file, memory", cfg.Credentials.Store)
	}

	if cfg.API.URL == "" {
		return nil, fmt.Errorf("LABRES_API_URL must not be empty")
	}

	return &cfg, nil
}
