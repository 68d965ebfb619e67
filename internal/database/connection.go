package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lumenauth/authd/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// InitDatabase opens the connection this service runs on for its whole
// lifetime. The retry loop exists for one scenario: the process starts
// before its database is reachable (a container orchestrator bringing both
// up together), not for transient query-time failures, so it retries a
// handful of times over a couple of seconds rather than minutes; anything
// longer belongs to the orchestrator's own restart policy, not here.
func InitDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	driver := strings.ToLower(cfg.Driver)

	log.WithFields(logrus.Fields{
		"db_driver": driver,
		"db_path":   cfg.Path,
	}).Info("Initializing database connection")

	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := cfg.ConnectBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		log.WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": retries,
		}).Info("Attempting database connection")

		db, err := connectOnce(driver, cfg)
		if err == nil {
			log.WithFields(logrus.Fields{
				"db_driver": driver,
				"attempt":   attempt,
			}).Info("Database initialized successfully")
			return db, nil
		}
		lastErr = err

		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Database connection attempt failed")

		if attempt < retries {
			// Doubling backoff off a short base keeps the whole loop well
			// under the orchestrator's own health-check timeout.
			delay := backoff * time.Duration(1<<(attempt-1))
			log.WithField("delay", delay).Info("Retrying database connection")
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", retries, lastErr)
}

// connectOnce opens the driver-specific connection, pings it, and tunes the
// pool. Any failure along the way is reported as a single error so the
// retry loop above has one thing to branch on.
func connectOnce(driver string, cfg DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	switch driver {
	case "postgres", "postgresql":
		log.Debug("Connecting to PostgreSQL")
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	case "sqlite", "":
		log.WithField("db_path", cfg.Path).Debug("Connecting to SQLite")
		db, err = gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	configureConnectionPool(sqlDB, cfg)
	return db, nil
}

// configureConnectionPool sizes the pool for an authorization server's own
// traffic shape: every protected resource call across the deployment routes
// through the Bearer Guard, so the pool is wider than a single endpoint
// would need, and connections are recycled faster than a typical web
// session's lifetime since tokens and codes churn quickly.
func configureConnectionPool(sqlDB *sql.DB, cfg DatabaseConfig) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 50
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	maxLifetime := cfg.ConnMaxLifetime
	if maxLifetime <= 0 {
		maxLifetime = 15 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	log.WithFields(logrus.Fields{
		"max_open_conns":    maxOpen,
		"max_idle_conns":    maxIdle,
		"conn_max_lifetime": maxLifetime.String(),
	}).Debug("Connection pool configured")
}

// Migrate runs the idempotent "create if absent" DDL for the credential
// store's three tables (spec §4.1).
func Migrate(db *gorm.DB) error {
	log.Info("Running auto-migration for credential store schema")
	if err := db.AutoMigrate(&models.Client{}, &models.Token{}, &models.AuthCode{}); err != nil {
		log.WithError(err).Error("Auto-migration failed")
		return fmt.Errorf("database: migrate: %w", err)
	}
	log.Info("Auto-migration complete")
	return nil
}
