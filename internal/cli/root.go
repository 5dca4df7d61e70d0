package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version is reported by "apishape --version" and the MCP handshake.
var Version = "dev"

// Execute runs the apishape CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// ExecuteContext runs the CLI with ctx as every command's context.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apishape",
		Short: "Explore an API from its collection and record the shape of its responses",
		Long: "apishape reads a Postman-style collection, lists its endpoints, calls them against the live API " +
			"and keeps a keys-only record of every response structure it has seen.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(flagError)

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Config file path (YAML)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.String("log-level", "", "Log level (trace|debug|info|warn|error)")
	pf.Bool("log-pretty", false, "Human-readable log output instead of JSON lines")
	pf.String("collection", "", "Path or http(s) URL of the collection JSON")
	pf.String("documentation", "", "Documentation file holding recorded response structures")

	for _, sub := range []*cobra.Command{
		newServeCmd(),
		newMCPCmd(),
		newListCmd(),
		newDocsCmd(),
		newExportCmd(),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}

	return cmd
}

func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
