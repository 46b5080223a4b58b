package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taketurn/taketurn/internal/infrastructure/migration"
	"github.com/taketurn/taketurn/internal/interfaces/cli/bootstrap"
)

// scriptsDir is where new migrations are written, relative to the repo root.
const scriptsDir = "./internal/infrastructure/migration/scripts"

var (
	env        string
	configPath string
	name       string
	steps      int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations including running migrations, checking status, and creating new migration files.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		Long:  `Create a new SQL migration file for the configured database driver.`,
		RunE:  runCreate,
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// initEnv loads config and builds the goose strategy. With connect set the
// database is opened too.
func initEnv(connect bool) (*bootstrap.Environment, *migration.GooseStrategy, error) {
	boot, err := bootstrap.Load(env, configPath)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := migration.NewGooseStrategy(boot.Config.Database.GetDriver(), boot.Log)
	if err != nil {
		return nil, nil, err
	}

	if connect {
		if err := boot.OpenDatabase(); err != nil {
			return nil, nil, err
		}
	}

	return boot, strategy, nil
}

func runUp(cmd *cobra.Command, args []string) error {
	boot, strategy, err := initEnv(true)
	if err != nil {
		return err
	}
	defer boot.Close()

	boot.Log.Infow("running up migrations", "environment", env)

	if err := strategy.Migrate(boot.DB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	if steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}

	boot, strategy, err := initEnv(true)
	if err != nil {
		return err
	}
	defer boot.Close()

	boot.Log.Infow("running down migrations", "environment", env, "steps", steps)

	if err := strategy.MigrateDown(boot.DB, steps); err != nil {
		return fmt.Errorf("down migration failed: %w", err)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	boot, strategy, err := initEnv(true)
	if err != nil {
		return err
	}
	defer boot.Close()

	version, err := strategy.GetVersion(boot.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nMigration Status:\n")
	fmt.Fprintf(out, "  Environment:     %s\n", env)
	fmt.Fprintf(out, "  Driver:          %s\n", boot.Config.Database.GetDriver())
	fmt.Fprintf(out, "  Current Version: %d\n", version)

	return strategy.Status(boot.DB)
}

func runCreate(cmd *cobra.Command, args []string) error {
	_, strategy, err := initEnv(false)
	if err != nil {
		return err
	}

	if err := strategy.Create(scriptsDir, name); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migration '%s' created in %s\n", name, strategy.Dir())
	return nil
}
