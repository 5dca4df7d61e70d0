package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mark3labs/apishape/internal/apiclient"
	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/config"
	"github.com/mark3labs/apishape/internal/docstore"
	"github.com/mark3labs/apishape/internal/explorer"
)

// app is the wired explorer plus the collection source behind it.
type app struct {
	source  *collection.Source
	store   *docstore.Store
	service *explorer.Service
}

// newApp loads the catalog once and connects the API client when a base URL
// is configured. A collection that fails to load leaves the catalog empty.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	source := collection.NewSource(nil, cfg.Collection,
		collection.WithHTTPTimeout(cfg.API.Timeout),
		collection.WithMaxRetries(cfg.API.MaxRetries),
	)
	// Rebuild logs its own failure; the catalog then starts empty.
	_, _ = source.Rebuild(ctx)

	var caller explorer.Caller
	if cfg.API.BaseURL != "" {
		client, err := newClient(cfg.API)
		if err != nil {
			return nil, newUsageError(fmt.Sprintf("api: %v", err))
		}
		caller = client
	} else {
		log.Warn().Msg("api.base_url is not set: endpoints can be listed but not called")
	}

	store := docstore.New(nil, cfg.Documentation)
	return &app{
		source:  source,
		store:   store,
		service: explorer.New(source, caller, store),
	}, nil
}

func newClient(api config.APIConfig) (*apiclient.Client, error) {
	opts := []apiclient.Option{
		apiclient.WithTimeout(api.Timeout),
		apiclient.WithMaxRetries(api.MaxRetries),
	}
	for k, v := range api.Headers {
		opts = append(opts, apiclient.WithHeader(k, v))
	}
	return apiclient.New(api.BaseURL, opts...)
}

// loadCatalog loads the collection strictly, for commands whose output is
// meaningless without it.
func loadCatalog(ctx context.Context, cfg *config.Config) (*collection.Catalog, error) {
	c, err := collection.Load(ctx, nil, cfg.Collection,
		collection.WithHTTPTimeout(cfg.API.Timeout),
		collection.WithMaxRetries(cfg.API.MaxRetries),
	)
	if err != nil {
		return nil, collectionError(err)
	}
	return collection.NewCatalog(collection.Parse(c)), nil
}
