package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehmann314159/lexicon/internal/api"
	"github.com/lehmann314159/lexicon/internal/config"
)

func newTokenCommand(configPath *string) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Args:  cobra.ExactArgs(1),
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			token, err := api.GenerateToken(cfg.Auth.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
