package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "factorsync",
		Short: "Import emission factors from the ADEME Base Carbone feed",
		Long: `factorsync downloads the Base Carbone CSV, keeps the rows matching the
whitelist rules of each sector and upserts them into the factor store.

Settings come from FACTORSYNC_* environment variables, optionally layered
over a YAML file given with --config.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml)")

	root.AddCommand(
		newUpdateCmd(&configFile),
		newDueCmd(&configFile),
		newConfigCmd(&configFile),
		newMigrateCmd(&configFile),
		newExportCmd(&configFile),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "factorsync %s\n", version)
		},
	}
}
