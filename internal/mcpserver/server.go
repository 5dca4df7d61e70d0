// Package mcpserver exposes the explorer as MCP (Model Context Protocol)
// tools over stdio, so an agent can browse the catalog, call endpoints and
// read the recorded response documentation.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mark3labs/apishape/internal/apiclient"
	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/docstore"
	"github.com/mark3labs/apishape/internal/explorer"
)

const serverInstructions = `apishape MCP server: explores an HTTP API described by a Postman-style collection.

Start with list_endpoints or search_endpoints to find an endpoint. Use its "path" (raw path with :name markers) and "method" with test_endpoint; supply every entry of path_vars in path_params. Each successful call records the key structure of the response, readable with get_documentation. Documentation keys are invoked paths, so parameter values are part of the key.`

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Explorer is the part of explorer.Service the tools use.
type Explorer interface {
	Catalog() *collection.Catalog
	Documentation() (*docstore.Document, docstore.Status, error)
	TestEndpoint(ctx context.Context, req explorer.TestRequest) (*explorer.TestResult, error)
}

// NewServer returns an MCP server with all tools registered.
func NewServer(svc Explorer, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "apishape", Version: version},
		&mcp.ServerOptions{Instructions: serverInstructions},
	)
	registerTools(server, &tools{svc: svc})
	return server
}

// Run serves the tools over stdio until the client disconnects or ctx is
// cancelled.
func Run(ctx context.Context, svc Explorer, version string) error {
	return NewServer(svc, version).Run(ctx, &mcp.StdioTransport{})
}

func registerTools(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_endpoints",
		Description: "List endpoints from the collection in catalog order (category, method, path). Filter by method, category (includes sub-categories) or path pattern (* = one segment, ** = any number of segments). Use offset/limit to paginate.",
	}, t.listEndpoints)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_endpoints",
		Description: "Fuzzy search endpoints by name, path or category. Characters of the query must appear in order, case-insensitively.",
	}, t.searchEndpoints)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_documentation",
		Description: "Read the recorded response documentation: for each invoked path, the key structure of its last response with every leaf value replaced by null. Pass path to read a single entry.",
	}, t.getDocumentation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "test_endpoint",
		Description: "Call an endpoint on the live API. path_params fill :name and {name} markers in path. query_params are sent as the query string; body is sent as JSON for POST and PUT. A non-empty response is recorded in the documentation under the invoked path.",
	}, t.testEndpoint)
}

type tools struct {
	svc Explorer
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

// remoteErrResult reports the API's own response body when there is one.
func remoteErrResult(err error) *mcp.CallToolResult {
	var remote *apiclient.RemoteError
	if errors.As(err, &remote) && remote.Body != "" {
		return errResult(fmt.Errorf("%s\nresponse body: %s", remote.Message, remote.Body))
	}
	return errResult(err)
}

func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end < offset || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
