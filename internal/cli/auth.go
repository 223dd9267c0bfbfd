package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/semmidev/bqvault/internal/app"
	"github.com/semmidev/bqvault/internal/infrastructure/logger"
)

func newAuthCommand(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain a BigQuery OAuth refresh token through the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.App.Name, cfg.App.LogLevel, cfg.App.LogFile)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Close()

			svc, err := app.NewGoogleOAuthService(log, cfg.Warehouse.OAuth.ClientSecretFile)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := svc.StartAuthServer(ctx, addr); err != nil {
				return err
			}
			headColor.Fprintf(cmd.OutOrStdout(), "Open http://%s/auth/google/bigquery and paste the refresh token into warehouse.oauth.refresh_token\n", addr)

			<-ctx.Done()

			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return svc.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8085", "listen address of the consent callback server")

	return cmd
}
