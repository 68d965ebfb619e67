package main

import (
	"fmt"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/lumenauth/authd/internal/bearer"
	"github.com/lumenauth/authd/internal/config"
	"github.com/lumenauth/authd/internal/credential"
	"github.com/lumenauth/authd/internal/database"
	"github.com/lumenauth/authd/internal/events"
	"github.com/lumenauth/authd/internal/httpapi"
	"github.com/lumenauth/authd/internal/oauth"
	"github.com/lumenauth/authd/internal/scopes"
)

func main() {
	loadDotenvFile()
	setUpLogger()

	cfg := loadConfig()

	db := setupDatabase(cfg)
	seedScopeRegistry(cfg)

	clients := credential.NewClientStore(db)
	tokens := credential.NewTokenStore(db)
	codes := credential.NewAuthCodeStore(db)
	emitter := events.NewEmitter()

	engine := oauth.NewEngine(clients, tokens, codes, scopes.Global(), cfg, emitter)
	guard := bearer.NewGuard(tokens, clients, httpapi.IdentityResolver{})

	router := httpapi.NewRouter(cfg, engine, guard, clients, tokens)

	log.Infof("Starting authd on %s:%d", cfg.Host, cfg.Port)
	if err := router.Run(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	switch config.GetEnvWithDefault("APP_ENV", "development") {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	return cfg
}

func setupDatabase(cfg *config.Config) *gorm.DB {
	dbCfg := database.NewDatabaseConfig(cfg)
	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	return db
}

// seedScopeRegistry defines the process-wide Scope Registry from the
// OAUTH_SCOPES configuration (spec §4.2, §6).
func seedScopeRegistry(cfg *config.Config) {
	defs := make([]scopes.Definition, 0, len(cfg.Scopes))
	for name, desc := range cfg.Scopes {
		defs = append(defs, scopes.Definition{Name: name, Description: desc})
	}
	scopes.Global().Define(defs...)
}
