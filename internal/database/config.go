package database

import (
	"fmt"
	"time"

	"github.com/lumenauth/authd/internal/config"
)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	// Driver specifies the database driver (postgres, sqlite)
	Driver string

	// PostgreSQL-specific configuration: a full DSN/connection URL
	URL string

	// SQLite-specific configuration
	Path string

	// MaxOpenConns/MaxIdleConns/ConnMaxLifetime configure the pool that
	// configureConnectionPool applies once the connection is established.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// ConnectRetries/ConnectBackoff bound InitDatabase's startup retry loop.
	ConnectRetries int
	ConnectBackoff time.Duration
}

// NewDatabaseConfig derives a DatabaseConfig from the application configuration.
func NewDatabaseConfig(cfg *config.Config) DatabaseConfig {
	return DatabaseConfig{
		Driver: cfg.DBDriver,
		URL:    cfg.DatabaseURL,
		Path:   cfg.DBPath,

		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,

		ConnectRetries: cfg.DBConnectRetries,
		ConnectBackoff: cfg.DBConnectBackoff,
	}
}

// String returns a string representation with sensitive data masked
func (c *DatabaseConfig) String() string {
	return fmt.Sprintf("DatabaseConfig{Driver: %s, Path: %s, URL: [REDACTED]}", c.Driver, c.Path)
}

// DSN builds a Data Source Name string based on the driver
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "postgres", "postgresql":
		return c.URL
	case "sqlite", "":
		if c.Path == "" {
			return "authd.sqlite"
		}
		return c.Path
	default:
		return ""
	}
}
