package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mark3labs/apishape/internal/apiclient"
	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/explorer"
)

type handlers struct {
	svc Explorer
}

func (h *handlers) index(c *gin.Context) {
	catalog := h.svc.Catalog()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Categories": catalog.Categories(),
		"Total":      catalog.Len(),
	})
}

type docEntry struct {
	Path     string
	Skeleton string
}

func (h *handlers) documentationPage(c *gin.Context) {
	doc, status, err := h.svc.Documentation()
	if err != nil {
		_ = c.Error(err)
		c.HTML(http.StatusInternalServerError, "documentation.html", gin.H{"Error": err.Error()})
		return
	}
	entries := make([]docEntry, 0, doc.Len())
	for _, p := range doc.Paths() {
		sk, _ := doc.Get(p)
		raw, err := sk.MarshalJSON()
		if err != nil {
			continue
		}
		entries = append(entries, docEntry{Path: p, Skeleton: indent(raw)})
	}
	c.HTML(http.StatusOK, "documentation.html", gin.H{
		"Entries": entries,
		"Message": status.Message,
	})
}

// listEndpoints accepts optional q (fuzzy search), method (repeatable or
// comma separated), category and path (glob) filters.
func (h *handlers) listEndpoints(c *gin.Context) {
	catalog := h.svc.Catalog()
	var methods []string
	for _, m := range c.QueryArray("method") {
		methods = append(methods, strings.Split(m, ",")...)
	}
	endpoints, err := catalog.Filter(collection.FilterOptions{
		Methods:  methods,
		Category: c.Query("category"),
		PathGlob: c.Query("path"),
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		endpoints = intersect(endpoints, catalog.Search(q))
	}
	c.JSON(http.StatusOK, endpoints)
}

func (h *handlers) documentation(c *gin.Context) {
	doc, status, err := h.svc.Documentation()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	body := gin.H{"success": true, "documentation": doc}
	if status.Message != "" {
		body["message"] = status.Message
	}
	c.JSON(http.StatusOK, body)
}

type testRequestBody struct {
	Path        string          `json:"path" binding:"required"`
	Method      string          `json:"method"`
	PathParams  map[string]any  `json:"path_params"`
	QueryParams map[string]any  `json:"query_params"`
	Body        json.RawMessage `json:"body"`
}

func (h *handlers) testEndpoint(c *gin.Context) {
	var req testRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	res, err := h.svc.TestEndpoint(c.Request.Context(), explorer.TestRequest{
		Path:        req.Path,
		Method:      req.Method,
		PathParams:  req.PathParams,
		QueryParams: req.QueryParams,
		Body:        req.Body,
	})
	if err != nil {
		_ = c.Error(err)
		status, body := testErrorResponse(err)
		c.JSON(status, body)
		return
	}

	body := gin.H{
		"success":    true,
		"id":         res.ID,
		"response":   res.Response,
		"endpoint":   res.InvokedPath,
		"method":     res.Method,
		"documented": res.Documented,
	}
	if res.DocumentationError != nil {
		body["documentation_error"] = res.DocumentationError.Error()
	}
	c.JSON(http.StatusOK, body)
}

// testErrorResponse maps invocation failures to a status and envelope. A
// remote failure reports the API's own response body when there is one, and
// also decoded under "response" when that body is JSON.
func testErrorResponse(err error) (int, gin.H) {
	var remote *apiclient.RemoteError
	switch {
	case errors.As(err, &remote):
		body := gin.H{"success": false, "error": remote.Message}
		if remote.Body != "" {
			body["error"] = remote.Body
		}
		if raw, ok := remote.BodyJSON(); ok {
			body["response"] = raw
		}
		if remote.StatusCode != 0 {
			body["status_code"] = remote.StatusCode
		}
		return http.StatusBadRequest, body
	case errors.Is(err, explorer.ErrUnsupportedMethod), errors.Is(err, explorer.ErrClientUnavailable):
		return http.StatusBadRequest, gin.H{"success": false, "error": err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()}
	}
}

func (h *handlers) reloadCatalog(c *gin.Context) {
	catalog, err := h.svc.ReloadCatalog(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "endpoints": catalog.Len()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"endpoints": catalog.Len(),
		"built_at":  catalog.BuiltAt().UTC().Format(time.RFC3339),
	})
}

func intersect(list, keep []collection.Endpoint) []collection.Endpoint {
	keys := make(map[string]struct{}, len(keep))
	for _, ep := range keep {
		keys[ep.Key()] = struct{}{}
	}
	out := []collection.Endpoint{}
	for _, ep := range list {
		if _, ok := keys[ep.Key()]; ok {
			out = append(out, ep)
		}
	}
	return out
}

func indent(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func lower(s string) string { return strings.ToLower(s) }
