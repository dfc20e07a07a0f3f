package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lehmann314159/lexicon/internal/services"
)

func newImportCommand(configPath *string) *cobra.Command {
	var placeholders bool

	cmd := &cobra.Command{
		Use:   "import",
		Args:  cobra.NoArgs,
		Short: "Import the English word list",
		Long: `Download the configured word list and store every word.

By default each word is enriched from the dictionary API. With --placeholders
the words are stored bare and enriched on their first lookup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			icfg := a.cfg.Importer
			source := services.NewWordListSource(nil, icfg.WordListURL, a.retryPolicy(), a.logger)
			importer := services.NewImporter(a.repo, source, a.dictionary, services.ImporterOptions{
				BatchSize:            icfg.BatchSize,
				PlaceholderBatchSize: icfg.PlaceholderBatchSize,
				BatchDelay:           icfg.BatchDelay,
				Concurrency:          icfg.Concurrency,
				Placeholders:         placeholders,
			}, a.logger)

			summary, err := importer.ImportAll(ctx)
			if summary != nil {
				fmt.Fprintln(cmd.OutOrStdout(), summary.String())
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&placeholders, "placeholders", false, "store words without enrichment")

	return cmd
}
