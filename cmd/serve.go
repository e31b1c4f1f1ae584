package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/chative-concierge/pkg/config"
	"github.com/tanpawarit/chative-concierge/pkg/httpapi"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpCfg, err := configx.New[httpapi.Config]("HTTP")
			if err != nil {
				return err
			}

			a, err := wireApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := httpapi.New(*httpCfg, a.orchestrator, a.catalog, a.outlets)
			if err != nil {
				return err
			}
			if err := srv.ListenAndServe(ctx); err != nil {
				return err
			}
			log.Info().Msg("concierge has been shut down gracefully")
			return nil
		},
	}
}
