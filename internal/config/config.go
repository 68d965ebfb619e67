package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// RateLimitRule describes a per-endpoint token bucket: max requests per window.
type RateLimitRule struct {
	Max    int
	Window time.Duration
}

// Config holds the application configuration, loaded from environment variables.
// Defaults mirror spec §6.
type Config struct {
	// Server Configuration
	Port        int    `json:"port"`
	Host        string `json:"host"`
	DatabaseURL string `json:"database_url"`

	// Database configuration
	DBDriver   string `json:"db_driver"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBPath     string `json:"db_path"`

	// DBMaxOpenConns/DBMaxIdleConns/DBConnMaxLifetime size the pool for this
	// service's own traffic shape: every resource request across the
	// deployment calls through the Bearer Guard, so the pool is sized wider
	// than a single-purpose API would need, but connections are recycled
	// often since tokens and codes churn faster than a typical web session.
	DBMaxOpenConns    int           `json:"db_max_open_conns"`
	DBMaxIdleConns    int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `json:"db_conn_max_lifetime"`

	// DBConnectRetries/DBConnectBackoff bound the startup retry loop: a
	// short, aggressive retry suits a service meant to come up behind a
	// container orchestrator that already retries failed health checks,
	// rather than the long multi-minute backoff a batch job would use.
	DBConnectRetries int           `json:"db_connect_retries"`
	DBConnectBackoff time.Duration `json:"db_connect_backoff"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// OAuth protocol configuration
	Prefix                      string        `json:"prefix"`
	AccessTokenLifetime         time.Duration `json:"access_token_lifetime"`
	RefreshTokenLifetime        time.Duration `json:"refresh_token_lifetime"`
	AuthCodeLifetime            time.Duration `json:"auth_code_lifetime"`
	PersonalAccessTokenLifetime time.Duration `json:"personal_access_token_lifetime"`
	PersonalAccessClient        string        `json:"personal_access_client"`
	PruneRevokedAfterDays       int           `json:"prune_revoked_after_days"`
	RateLimitAuthorize          RateLimitRule `json:"rate_limit_authorize"`
	RateLimitToken              RateLimitRule `json:"rate_limit_token"`

	// Scopes is the name->description seed for the Scope Registry (spec
	// §6 "scopes = {}"), read from OAUTH_SCOPES as "name:description"
	// pairs separated by semicolons.
	Scopes map[string]string `json:"scopes"`
	// DefaultScopes substitutes for an empty requested scope list
	// (spec §6 "defaultScopes = []"), read from OAUTH_DEFAULT_SCOPES as a
	// space-separated list.
	DefaultScopes []string `json:"default_scopes"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, DatabaseURL: %s, DBDriver: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], LogLevel: %s, Prefix: %s}",
		c.Port, c.Host, maskDatabaseURL(c.DatabaseURL), c.DBDriver, c.DBName, c.DBUser, c.LogLevel, c.Prefix)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig reads the application configuration from environment variables.
// DATABASE_URL is only required for non-sqlite drivers.
// Returns an error if any required environment variable is missing or invalid.
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, err
	}

	dbDriver := GetEnvWithDefault("DB_DRIVER", "sqlite")
	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbDriver != "sqlite" {
		if dbURL == "" {
			return nil, errors.New("DATABASE_URL environment variable is required for non-sqlite drivers")
		}
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	pruneDays, err := strconv.Atoi(GetEnvWithDefault("OAUTH_PRUNE_REVOKED_AFTER_DAYS", "7"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Port:        port,
		Host:        GetEnvWithDefault("APP_HOST", "localhost"),
		DatabaseURL: dbURL,
		DBDriver:    dbDriver,
		DBName:      GetEnvWithDefault("DB_NAME", "authd"),
		DBUser:      GetEnvWithDefault("DB_USER", "authd"),
		DBPassword:  GetEnvWithDefault("DB_PASSWORD", ""),
		DBPath:      GetEnvWithDefault("DB_PATH", "authd.sqlite"),
		LogLevel:    GetEnvWithDefault("LOG_LEVEL", "info"),

		DBMaxOpenConns:    GetEnvAsType("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:    GetEnvAsType("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: time.Duration(GetEnvAsType("DB_CONN_MAX_LIFETIME_MIN", 15)) * time.Minute,
		DBConnectRetries:  GetEnvAsType("DB_CONNECT_RETRIES", 3),
		DBConnectBackoff:  time.Duration(GetEnvAsType("DB_CONNECT_BACKOFF_MS", 500)) * time.Millisecond,

		Prefix:                      GetEnvWithDefault("OAUTH_PREFIX", "/oauth"),
		AccessTokenLifetime:         time.Duration(GetEnvAsType("OAUTH_ACCESS_TOKEN_LIFETIME_MIN", 60)) * time.Minute,
		RefreshTokenLifetime:        time.Duration(GetEnvAsType("OAUTH_REFRESH_TOKEN_LIFETIME_MIN", 43_200)) * time.Minute,
		AuthCodeLifetime:            time.Duration(GetEnvAsType("OAUTH_AUTH_CODE_LIFETIME_MIN", 10)) * time.Minute,
		PersonalAccessTokenLifetime: time.Duration(GetEnvAsType("OAUTH_PAT_LIFETIME_MIN", 525_600)) * time.Minute,
		PersonalAccessClient:        GetEnvWithDefault("OAUTH_PERSONAL_ACCESS_CLIENT", ""),
		PruneRevokedAfterDays:       pruneDays,
		RateLimitAuthorize:          RateLimitRule{Max: GetEnvAsType("OAUTH_RATE_LIMIT_AUTHORIZE_MAX", 30), Window: 60 * time.Second},
		RateLimitToken:              RateLimitRule{Max: GetEnvAsType("OAUTH_RATE_LIMIT_TOKEN_MAX", 20), Window: 60 * time.Second},
		Scopes:                      parseScopes(GetEnvWithDefault("OAUTH_SCOPES", "")),
		DefaultScopes:               parseDefaultScopes(GetEnvWithDefault("OAUTH_DEFAULT_SCOPES", "")),
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// parseScopes reads "name:description;name:description" pairs into a map.
// An entry with no ":" uses its own name as the description.
func parseScopes(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, desc, found := strings.Cut(pair, ":")
		if !found {
			desc = name
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(desc)
	}
	return out
}

func parseDefaultScopes(raw string) []string {
	return strings.Fields(raw)
}

// GetEnvWithDefault returns the value of an environment variable, or a default when unset.
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Warnf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
