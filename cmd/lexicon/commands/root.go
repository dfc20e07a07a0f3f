package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "lexicon",
		Short:        "English dictionary lookup service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newImportCommand(&configPath),
		newMigrateCommand(&configPath),
		newTokenCommand(&configPath),
	)

	return rootCmd
}
