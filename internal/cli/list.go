package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/config"
)

// ListConfig captures the options for the list command.
type ListConfig struct {
	*config.Config
	Filter collection.FilterOptions
	Query  string
	JSON   bool
	Out    io.Writer
}

var listRunner = runList

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the endpoints found in the collection",
		Example: `  apishape list --collection api.json --method GET --category Dosen
  apishape list --path 'siakadcloud/v1/**' --json
  apishape list -q mhs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			lc := &ListConfig{Config: cfg, Out: cmd.OutOrStdout()}
			if lc.Filter.Methods, err = flags.GetStringSlice("method"); err != nil {
				return err
			}
			if lc.Filter.Category, err = flags.GetString("category"); err != nil {
				return err
			}
			if lc.Filter.PathGlob, err = flags.GetString("path"); err != nil {
				return err
			}
			if lc.Query, err = flags.GetString("query"); err != nil {
				return err
			}
			if lc.JSON, err = flags.GetBool("json"); err != nil {
				return err
			}
			return listRunner(cmd.Context(), lc)
		},
	}
	flags := cmd.Flags()
	flags.StringSlice("method", nil, "Only endpoints using these HTTP methods")
	flags.String("category", "", "Only endpoints in this category or below it")
	flags.String("path", "", "Only paths matching this pattern (* = one segment, ** = any)")
	flags.StringP("query", "q", "", "Fuzzy search by name, path or category")
	flags.Bool("json", false, "Print endpoints as JSON")
	return cmd
}

func runList(ctx context.Context, cfg *ListConfig) error {
	catalog, err := loadCatalog(ctx, cfg.Config)
	if err != nil {
		return err
	}
	endpoints, err := catalog.Filter(cfg.Filter)
	if err != nil {
		return newUsageError(fmt.Sprintf("list: %v", err))
	}
	if q := strings.TrimSpace(cfg.Query); q != "" {
		endpoints = intersect(endpoints, catalog.Search(q))
	}

	if cfg.JSON {
		enc := json.NewEncoder(cfg.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(endpoints)
	}

	tw := tabwriter.NewWriter(cfg.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME\tCATEGORY")
	for _, ep := range endpoints {
		category := ep.Category
		if category == "" {
			category = collection.UncategorizedName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ep.Method, ep.DisplayPath, ep.Name, category)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cfg.Out, "\n%d of %d endpoints\n", len(endpoints), catalog.Len())
	return err
}

// intersect keeps the endpoints of a that also appear in b, in a's order.
func intersect(a, b []collection.Endpoint) []collection.Endpoint {
	keep := make(map[string]struct{}, len(b))
	for _, ep := range b {
		keep[ep.Key()] = struct{}{}
	}
	out := make([]collection.Endpoint, 0, len(a))
	for _, ep := range a {
		if _, ok := keep[ep.Key()]; ok {
			out = append(out, ep)
		}
	}
	return out
}
