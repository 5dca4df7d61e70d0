// Package server exposes the explorer over HTTP: a small HTML catalog and a
// JSON API used by the catalog page to invoke endpoints.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/docstore"
	"github.com/mark3labs/apishape/internal/explorer"
)

//go:embed templates/*.html
var templateFS embed.FS

// Explorer is the part of explorer.Service the handlers use.
type Explorer interface {
	Catalog() *collection.Catalog
	ReloadCatalog(ctx context.Context) (*collection.Catalog, error)
	Documentation() (*docstore.Document, docstore.Status, error)
	TestEndpoint(ctx context.Context, req explorer.TestRequest) (*explorer.TestResult, error)
}

// NewHandler builds the gin engine serving the explorer.
func NewHandler(svc Explorer) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"lower": lower,
	}).ParseFS(templateFS, "templates/*.html")))

	h := &handlers{svc: svc}
	r.GET("/", h.index)
	r.GET("/documentation", h.documentationPage)

	api := r.Group("/api")
	api.GET("/endpoints", h.listEndpoints)
	api.GET("/documentation", h.documentation)
	api.POST("/test", h.testEndpoint)
	api.POST("/catalog/reload", h.reloadCatalog)
	return r
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Str("addr", addr).Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
