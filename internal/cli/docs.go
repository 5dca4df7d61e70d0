package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/apishape/internal/config"
	"github.com/mark3labs/apishape/internal/docstore"
)

// DocsConfig captures the options for the docs command.
type DocsConfig struct {
	*config.Config
	Path  string
	Paths bool
	Out   io.Writer
}

var docsRunner = runDocs

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Print the recorded response documentation",
		Example: `  apishape docs
  apishape docs --path siakadcloud/v1/dosen/42
  apishape docs --paths`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			dc := &DocsConfig{Config: cfg, Out: cmd.OutOrStdout()}
			if dc.Path, err = cmd.Flags().GetString("path"); err != nil {
				return err
			}
			if dc.Paths, err = cmd.Flags().GetBool("paths"); err != nil {
				return err
			}
			return docsRunner(cmd.Context(), dc)
		},
	}
	cmd.Flags().String("path", "", "Print only the structure recorded for this invoked path")
	cmd.Flags().Bool("paths", false, "Print only the recorded paths, one per line")
	return cmd
}

func runDocs(ctx context.Context, cfg *DocsConfig) error {
	_ = ctx

	store := docstore.New(nil, cfg.Documentation)
	doc, status, err := store.ReadAll()
	if err != nil {
		return err
	}
	if doc.Len() == 0 && status.Message != "" {
		_, err := fmt.Fprintln(cfg.Out, status.Message)
		return err
	}

	if cfg.Paths {
		for _, p := range doc.Paths() {
			if _, err := fmt.Fprintln(cfg.Out, p); err != nil {
				return err
			}
		}
		return nil
	}

	var payload json.Marshaler = doc
	if p := strings.TrimSpace(cfg.Path); p != "" {
		sk, ok := doc.Get(p)
		if !ok {
			return newUsageError(fmt.Sprintf("docs: no structure recorded for %q (%d paths recorded)", p, doc.Len()))
		}
		payload = sk
	}
	raw, err := payload.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = cfg.Out.Write(buf.Bytes())
	return err
}
