package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/taketurn/taketurn/internal/infrastructure/migration"
	"github.com/taketurn/taketurn/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/taketurn/taketurn/internal/interfaces/http"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

const shutdownTimeout = 30 * time.Second

var (
	env         string
	configPath  string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the taketurn HTTP and websocket server with the specified configuration.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending database migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	boot, err := bootstrap.Load(env, configPath)
	if err != nil {
		return err
	}
	cfg := boot.Config
	log := boot.Log

	log.Infow("starting server",
		"environment", env,
		"database_driver", cfg.Database.GetDriver(),
		"auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	if err := boot.OpenDatabase(); err != nil {
		return err
	}
	defer boot.Close()

	if err := handleMigrations(boot, log); err != nil {
		return err
	}

	container, err := httpRouter.NewContainer(cfg, boot.DB, log)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}
	defer container.Shutdown()

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.Turn.StoreTimeout*2)
	err = container.Start(startCtx)
	cancelStart()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      container.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server listening",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode,
			"base_url", cfg.Server.BaseURL)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Infow("shutting down server", "signal", sig.String())
	}

	// Websocket connections are hijacked and not tracked by srv, so the
	// container closes them first.
	container.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func handleMigrations(boot *bootstrap.Environment, log logger.Interface) error {
	if boot.DB == nil {
		return nil
	}

	strategy, err := migration.NewGooseStrategy(boot.Config.Database.GetDriver(), log)
	if err != nil {
		return err
	}

	if autoMigrate {
		if env == "production" {
			log.Warnw("auto-migration is enabled in production environment")
		}
		if err := strategy.Migrate(boot.DB); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		return nil
	}

	version, err := strategy.GetVersion(boot.DB)
	if err != nil {
		log.Warnw("failed to check migration status", "error", err)
		return nil
	}
	if version == 0 {
		log.Warnw("database has no migrations applied, run `taketurn migrate up` or start with --auto-migrate")
	}
	log.Infow("current migration version", "version", version)
	return nil
}
