package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	dmxerrors "dmx-platform/backend/pkg/errors"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreNeo4j  = "neo4j"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string // Overrides the env's default level when set

	// Storage
	Store string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Type system
	TypesFile string // Optional YAML schema applied at startup

	// Metrics
	MetricsNamespace string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", ""),
		Store:            getEnv("STORE", StoreMemory),
		Neo4jURI:         getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:        getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:    getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:    getEnv("NEO4J_DATABASE", ""),
		TypesFile:        getEnv("TYPES_FILE", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "dmx"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreNeo4j:
		if c.Neo4jURI == "" {
			return dmxerrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return dmxerrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return dmxerrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	default:
		return dmxerrors.NewConfigValidationFailed("STORE", fmt.Sprintf("unknown store %q", c.Store))
	}
	if c.MetricsNamespace == "" {
		return dmxerrors.NewConfigMissingRequired("METRICS_NAMESPACE")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
