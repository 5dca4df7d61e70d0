package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apishape/internal/config"
	"github.com/mark3labs/apishape/internal/mcpserver"
)

var mcpRunner = runMCP

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the explorer as MCP tools over stdio",
		Long: "Serve list_endpoints, search_endpoints, get_documentation and test_endpoint as MCP tools over stdio. " +
			"Logs go to stderr; stdout carries the protocol.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return mcpRunner(cmd.Context(), cfg)
		},
	}
	addAPIFlags(cmd.Flags())
	return cmd
}

func runMCP(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info().Str("collection", cfg.Collection).Msg("serving MCP over stdio")
	return mcpserver.Run(ctx, a.service, Version)
}
