package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/taketurn/taketurn/internal/interfaces/cli/migrate"
	"github.com/taketurn/taketurn/internal/interfaces/cli/reset"
	"github.com/taketurn/taketurn/internal/interfaces/cli/server"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "taketurn",
		Short:   "taketurn - take-a-number turn dispenser",
		Long:    `taketurn hands out unique, increasing turn numbers and pushes the next available turn to every connected display.`,
		Version: Version,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		reset.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
