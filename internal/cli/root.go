// Package cli implements blcscan, the offline companion of the mod.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/logging"
)

// NewRootCmd builds the blcscan command tree.
func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "blcscan",
		Short: "Inspect game binaries and BuildLimitChanger settings",
		Long: `blcscan runs the same search the mod performs at load time against a
game binary on disk, and manages the dimension override file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	logger := func(component string) zerolog.Logger {
		return logging.NewWithComponent(logging.Config{Level: logLevel, Pretty: true, Output: os.Stderr}, component)
	}

	cmd.AddCommand(NewScanCmd(logger))
	cmd.AddCommand(NewConfigCmd(logger))
	cmd.AddCommand(NewRangeCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
