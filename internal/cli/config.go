package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mcbegamerxx954/BuildLimitChanger/internal/config"
	"github.com/mcbegamerxx954/BuildLimitChanger/internal/platform"
)

func NewConfigCmd(logger func(component string) zerolog.Logger) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or reset the dimension override file",
	}
	cmd.PersistentFlags().StringVarP(&dir, "dir", "d", "", "Data directory (default: BLC_DIR or the platform location)")

	openStore := func() (*config.Store, error) {
		d := dir
		if d == "" {
			settings, err := config.LoadSettings()
			if err != nil {
				return nil, err
			}
			d = settings.Dir
		}
		d, err := platform.DataDir(d, platform.Host{})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		return config.NewStore(d, logger("config")), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the overrides, writing defaults if the file is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			dims, err := store.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", store.Path())
			for _, name := range dims.Names() {
				b := dims[name]
				fmt.Fprintf(out, "%-12s min %6d  max %6d\n", name, b.Min, b.Max)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Overwrite the override file with the vanilla limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Reset(); err != nil {
				return fmt.Errorf("failed to reset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote defaults to %s\n", store.Path())
			return nil
		},
	})

	return cmd
}
