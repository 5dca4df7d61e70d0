package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/config"
	"github.com/mark3labs/apishape/internal/server"
)

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the endpoint explorer web UI and JSON API",
		Example: `  apishape serve --collection api.json --base-url https://api.example.com
  apishape serve -c apishape.yaml --addr :8080 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return serveRunner(cmd.Context(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.String("addr", "", "Listen address (default :5000)")
	flags.Bool("watch", false, "Rebuild the catalog when the collection file changes")
	addAPIFlags(flags)
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Server.Watch {
		go func() {
			err := a.source.Watch(ctx)
			switch {
			case errors.Is(err, collection.ErrRemoteWatch):
				log.Warn().Str("collection", a.source.Input()).Msg("watch ignored for a remote collection")
			case err != nil:
				log.Error().Err(err).Msg("collection watcher stopped")
			}
		}()
	}

	log.Info().Str("addr", cfg.Server.Addr).Str("documentation", cfg.Documentation).Msg("starting server")
	return server.Run(ctx, cfg.Server.Addr, server.NewHandler(a.service))
}
