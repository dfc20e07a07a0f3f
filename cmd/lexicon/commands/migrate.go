package commands

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		Args:    cobra.NoArgs,
		Aliases: []string{"m"},
		Short:   "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening the database applies pending migrations
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("migrations applied")
			return nil
		},
	}
}
