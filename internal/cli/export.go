package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apishape/internal/config"
	"github.com/mark3labs/apishape/internal/docstore"
	"github.com/mark3labs/apishape/internal/emitter/openapiemitter"
)

// ExportConfig captures the options for the export command.
type ExportConfig struct {
	*config.Config
	OutFile   string
	Format    string
	Title     string
	Version   string
	ServerURL string
	DryRun    bool
	Force     bool
	Out       io.Writer
}

var exportRunner = runExport

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog and recorded responses as an OpenAPI 3 document",
		Long: "Export the catalog as an OpenAPI 3 document. Response schemas come from the structures " +
			"recorded in the documentation file; endpoints never called get an undocumented 200 response.",
		Example: strings.TrimSpace(`  apishape export --collection api.json --out openapi.yaml
  apishape -c apishape.yaml export --format json --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			ec, err := resolveExportConfig(cmd, cfg)
			if err != nil {
				return err
			}
			return exportRunner(cmd.Context(), ec)
		},
	}

	flags := cmd.Flags()
	flags.String("out", "openapi.json", "Output file; .yaml or .yml selects YAML")
	flags.String("format", "", "Output format (json|yaml); defaults from --out")
	flags.String("title", "", "info.title of the document")
	flags.String("api-version", "", "info.version of the document")
	flags.String("server-url", "", "servers[0].url (defaults to api.base_url)")
	flags.Bool("dry-run", false, "Preview the planned output without writing it")
	flags.Bool("force", false, "Overwrite the output file if it exists")
	return cmd
}

func resolveExportConfig(cmd *cobra.Command, cfg *config.Config) (*ExportConfig, error) {
	flags := cmd.Flags()
	ec := &ExportConfig{Config: cfg, Out: cmd.OutOrStdout()}
	var err error
	if ec.OutFile, err = flags.GetString("out"); err != nil {
		return nil, err
	}
	if ec.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if ec.Title, err = flags.GetString("title"); err != nil {
		return nil, err
	}
	if ec.Version, err = flags.GetString("api-version"); err != nil {
		return nil, err
	}
	if ec.ServerURL, err = flags.GetString("server-url"); err != nil {
		return nil, err
	}
	if ec.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return nil, err
	}
	if ec.Force, err = flags.GetBool("force"); err != nil {
		return nil, err
	}

	ec.OutFile = strings.TrimSpace(ec.OutFile)
	ec.Format = strings.ToLower(strings.TrimSpace(ec.Format))
	ec.ServerURL = strings.TrimSpace(ec.ServerURL)
	if ec.ServerURL == "" {
		ec.ServerURL = cfg.API.BaseURL
	}
	if ec.OutFile == "" {
		return nil, newUsageError("export: --out is required")
	}
	switch ec.Format {
	case "", "json", "yaml", "yml":
	default:
		return nil, newUsageError(fmt.Sprintf("export: unsupported --format %q (allowed: json, yaml)", ec.Format))
	}
	return ec, nil
}

func runExport(ctx context.Context, cfg *ExportConfig) error {
	catalog, err := loadCatalog(ctx, cfg.Config)
	if err != nil {
		return err
	}
	doc, status, err := docstore.New(nil, cfg.Documentation).ReadAll()
	if err != nil {
		return err
	}
	if !status.Exists {
		log.Warn().Str("documentation", cfg.Documentation).Msg("no responses recorded; response schemas will be empty")
	}

	absOut := cfg.OutFile
	if ap, err := filepath.Abs(cfg.OutFile); err == nil {
		absOut = ap
	}

	res, err := openapiemitter.Emit(ctx, nil, catalog.Endpoints(), doc, openapiemitter.Options{
		OutFile: cfg.OutFile,
		Format:  openapiemitter.Format(cfg.Format),
		Info: openapiemitter.Info{
			Title:     cfg.Title,
			Version:   cfg.Version,
			ServerURL: cfg.ServerURL,
		},
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	for _, s := range res.Skipped {
		log.Warn().Str("method", s.Endpoint.Method).Str("path", s.Endpoint.RawPath).Str("reason", s.Reason).Msg("endpoint left out of export")
	}

	operations := catalog.Len() - len(res.Skipped)
	if cfg.DryRun {
		fmt.Fprintf(cfg.Out, "Planned write to %s (%s, %d bytes):\n", absOut, res.Format, res.Planned.Size)
		fmt.Fprintf(cfg.Out, "- %d operations, %d with recorded responses, %d skipped\n", operations, res.Documented, len(res.Skipped))
		return nil
	}
	fmt.Fprintf(cfg.Out, "Wrote %s (%d operations, %d with recorded responses, %d skipped)\n", absOut, operations, res.Documented, len(res.Skipped))
	return nil
}

func wrapOutputError(err error, outFile string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "already exists") || strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outFile, msg))
	}
	return err
}
