// Package reset implements the admin command that clears every turn.
package reset

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/taketurn/taketurn/internal/application/turn/usecases"
	"github.com/taketurn/taketurn/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/taketurn/taketurn/internal/interfaces/http"
)

var (
	env        string
	configPath string
	force      bool
)

// Resetter is the part of the turn service the command drives.
type Resetter interface {
	Reset(ctx context.Context) (*usecases.ResetTurnsResult, error)
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all turns and restart numbering at 1",
		Long: `Delete every turn in the configured store and allocate turn 1.
When redis is enabled, running servers are told to pick up the new turn.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Required confirmation, the reset cannot be undone")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if !force {
		return fmt.Errorf("refusing to reset turns without --force")
	}

	boot, err := bootstrap.Load(env, configPath)
	if err != nil {
		return err
	}
	// Metrics would only live as long as this process.
	boot.Config.Metrics.Enabled = false

	if err := boot.OpenDatabase(); err != nil {
		return err
	}
	defer boot.Close()

	container, err := httpRouter.NewContainer(boot.Config, boot.DB, boot.Log)
	if err != nil {
		return err
	}
	defer container.Shutdown()

	timeout := boot.Config.Turn.StoreTimeout * 3
	return Run(cmd.Context(), container.Service(), timeout, cmd.OutOrStdout())
}

// Run resets the turns through svc and prints the new available turn.
func Run(ctx context.Context, svc Resetter, timeout time.Duration, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := svc.Reset(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset turns: %w", err)
	}

	fmt.Fprintf(out, "turns cleared, next turn is [%s] (number %d)\n", result.Next.ID, result.Next.Number)
	return nil
}
