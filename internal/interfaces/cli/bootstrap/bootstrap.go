// Package bootstrap loads configuration, logging and the database the same
// way for every command.
package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/taketurn/taketurn/internal/infrastructure/config"
	"github.com/taketurn/taketurn/internal/infrastructure/database"
	sharedConfig "github.com/taketurn/taketurn/internal/shared/config"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

// Environment is a loaded configuration with its logger and, unless the
// memory driver is selected, an open database.
type Environment struct {
	Config *config.Config
	Log    logger.Interface
	DB     *gorm.DB
}

// Load reads the configuration for env and initializes the logger. The
// server mode is derived from env.
func Load(env, configPath string) (*Environment, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = GinMode(env)

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &Environment{Config: cfg, Log: logger.NewLogger()}, nil
}

// OpenDatabase connects to the configured SQL store. It is a no-op for the
// memory driver.
func (e *Environment) OpenDatabase() error {
	if e.Config.Database.GetDriver() == sharedConfig.DriverMemory {
		e.Log.Warnw("using in-memory turn store, turns are lost on restart")
		return nil
	}

	db, err := database.Init(&e.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	e.DB = db
	return nil
}

// Close releases the database connection if one was opened.
func (e *Environment) Close() {
	if e.DB == nil {
		return
	}
	if err := database.Close(); err != nil {
		e.Log.Warnw("failed to close database", "error", err)
	}
}

// GinMode maps a deployment environment name to a gin mode.
func GinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
