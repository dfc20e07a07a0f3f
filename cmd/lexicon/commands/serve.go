package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehmann314159/lexicon/internal/api"
	"github.com/lehmann314159/lexicon/internal/services"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret must be set to serve")
			}

			wordCache, err := a.newCache(ctx)
			if err != nil {
				return fmt.Errorf("failed to create cache: %w", err)
			}

			wordSvc := services.NewWordService(a.repo, wordCache, a.dictionary, a.logger)
			router := api.NewRouter(api.NewHandler(wordSvc, a.logger), a.cfg.Auth.JWTSecret, a.logger)

			srv := &http.Server{
				Addr:              a.cfg.Server.Addr(),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.WithField("addr", srv.Addr).Info("server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
