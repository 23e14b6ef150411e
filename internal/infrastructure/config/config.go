package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	NATS     NATSConfig
	Resolver ResolverConfig
}

// DatabaseConfig represents PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NATSConfig represents event reporting configuration. When disabled, the
// core runs with a no-op reporter.
type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

// ResolverConfig represents relationship resolution defaults
type ResolverConfig struct {
	DefaultThreshold float64 // Fuzzy match threshold when neither field nor entity sets one
	DefaultMaxDepth  int     // Cascade depth when the caller does not specify one
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	// Set config file name based on environment
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot) // Project root

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "entigraph")
	viper.SetDefault("DB_NAME", "entigraph_dev")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("NATS_ENABLED", false)
	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("NATS_SUBJECT_PREFIX", "entigraph.events")

	viper.SetDefault("RESOLVER_DEFAULT_THRESHOLD", 0.7)
	viper.SetDefault("RESOLVER_DEFAULT_MAX_DEPTH", 3)

	return nil
}

// Load loads configuration from viper
func Load() (*Config, error) {
	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: dbPassword,
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		NATS: NATSConfig{
			Enabled:       viper.GetBool("NATS_ENABLED"),
			URL:           viper.GetString("NATS_URL"),
			SubjectPrefix: viper.GetString("NATS_SUBJECT_PREFIX"),
		},
		Resolver: ResolverConfig{
			DefaultThreshold: viper.GetFloat64("RESOLVER_DEFAULT_THRESHOLD"),
			DefaultMaxDepth:  viper.GetInt("RESOLVER_DEFAULT_MAX_DEPTH"),
		},
	}

	return config, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
