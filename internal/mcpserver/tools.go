package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/explorer"
)

type endpointInfo struct {
	Name        string   `json:"name"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	DisplayPath string   `json:"display_path"`
	Category    string   `json:"category,omitempty"`
	PathVars    []string `json:"path_vars"`
	QueryParams []string `json:"query_params"`
	Body        any      `json:"body,omitempty"`
	Description string   `json:"description,omitempty"`
}

func toEndpointInfo(ep collection.Endpoint) endpointInfo {
	info := endpointInfo{
		Name:        ep.Name,
		Method:      ep.Method,
		Path:        ep.RawPath,
		DisplayPath: ep.DisplayPath,
		Category:    ep.Category,
		PathVars:    ep.PathVars,
		QueryParams: ep.QueryParams,
		Description: ep.Description,
	}
	if info.PathVars == nil {
		info.PathVars = []string{}
	}
	if info.QueryParams == nil {
		info.QueryParams = []string{}
	}
	if ep.Body != nil {
		info.Body = ep.Body.Value()
	}
	return info
}

type endpointsOutput struct {
	Total     int            `json:"total"`
	Matched   int            `json:"matched"`
	Returned  int            `json:"returned"`
	Endpoints []endpointInfo `json:"endpoints"`
}

func endpointsResult(total int, matched []collection.Endpoint, offset, limit int) endpointsOutput {
	page := paginate(matched, offset, limit)
	out := endpointsOutput{
		Total:     total,
		Matched:   len(matched),
		Returned:  len(page),
		Endpoints: make([]endpointInfo, 0, len(page)),
	}
	for _, ep := range page {
		out.Endpoints = append(out.Endpoints, toEndpointInfo(ep))
	}
	return out
}

type listEndpointsInput struct {
	Method   string `json:"method,omitempty"   jsonschema:"Filter by HTTP method (e.g. GET). Comma separate several methods."`
	Category string `json:"category,omitempty" jsonschema:"Filter by category breadcrumb (e.g. Dosen or Dosen > Nilai). Sub-categories are included."`
	Path     string `json:"path,omitempty"     jsonschema:"Filter by path pattern (* = one segment\\, ** = any number of segments)"`
	Limit    int    `json:"limit,omitempty"    jsonschema:"Maximum number of results to return (default 100)"`
	Offset   int    `json:"offset,omitempty"   jsonschema:"Skip the first N results (for pagination)"`
}

func (t *tools) listEndpoints(_ context.Context, _ *mcp.CallToolRequest, input listEndpointsInput) (*mcp.CallToolResult, any, error) {
	catalog := t.svc.Catalog()
	var methods []string
	if input.Method != "" {
		methods = strings.Split(input.Method, ",")
	}
	matched, err := catalog.Filter(collection.FilterOptions{
		Methods:  methods,
		Category: input.Category,
		PathGlob: input.Path,
	})
	if err != nil {
		return errResult(err), nil, nil
	}
	return nil, endpointsResult(catalog.Len(), matched, input.Offset, input.Limit), nil
}

type searchEndpointsInput struct {
	Query string `json:"query"           jsonschema:"Search text matched against name, path and category"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results to return (default 100)"`
}

func (t *tools) searchEndpoints(_ context.Context, _ *mcp.CallToolRequest, input searchEndpointsInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errResult(fmt.Errorf("query is required")), nil, nil
	}
	catalog := t.svc.Catalog()
	return nil, endpointsResult(catalog.Len(), catalog.Search(input.Query), 0, input.Limit), nil
}

type getDocumentationInput struct {
	Path string `json:"path,omitempty" jsonschema:"Invoked path to read (e.g. siakadcloud/v1/dosen/42). Omit to read everything."`
}

type documentationOutput struct {
	Exists        bool     `json:"exists"`
	Message       string   `json:"message,omitempty"`
	Paths         []string `json:"paths"`
	Documentation any      `json:"documentation"`
}

func (t *tools) getDocumentation(_ context.Context, _ *mcp.CallToolRequest, input getDocumentationInput) (*mcp.CallToolResult, any, error) {
	doc, status, err := t.svc.Documentation()
	if err != nil {
		return errResult(err), nil, nil
	}
	out := documentationOutput{Exists: status.Exists, Message: status.Message, Paths: doc.Paths()}

	var payload json.Marshaler = doc
	if p := strings.TrimSpace(input.Path); p != "" {
		sk, ok := doc.Get(p)
		if !ok {
			return errResult(fmt.Errorf("no documentation recorded for %q", p)), nil, nil
		}
		payload = sk
		out.Paths = []string{p}
	}
	raw, err := payload.MarshalJSON()
	if err != nil {
		return errResult(err), nil, nil
	}
	out.Documentation = json.RawMessage(raw)
	return nil, out, nil
}

type testEndpointInput struct {
	Path        string         `json:"path"                   jsonschema:"Endpoint path as listed (e.g. siakadcloud/v1/dosen/:id)"`
	Method      string         `json:"method,omitempty"       jsonschema:"HTTP method: GET (default), POST, PUT or DELETE"`
	PathParams  map[string]any `json:"path_params,omitempty"  jsonschema:"Values for path markers keyed by name"`
	QueryParams map[string]any `json:"query_params,omitempty" jsonschema:"Query string parameters"`
	Body        any            `json:"body,omitempty"         jsonschema:"JSON request body for POST and PUT"`
}

type testEndpointOutput struct {
	ID                 string `json:"id"`
	Endpoint           string `json:"endpoint"`
	Method             string `json:"method"`
	Documented         bool   `json:"documented"`
	DocumentationError string `json:"documentation_error,omitempty"`
	Response           any    `json:"response"`
}

func (t *tools) testEndpoint(ctx context.Context, _ *mcp.CallToolRequest, input testEndpointInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Path) == "" {
		return errResult(fmt.Errorf("path is required")), nil, nil
	}
	req := explorer.TestRequest{
		Path:        input.Path,
		Method:      input.Method,
		PathParams:  input.PathParams,
		QueryParams: input.QueryParams,
	}
	if input.Body != nil {
		raw, err := json.Marshal(input.Body)
		if err != nil {
			return errResult(fmt.Errorf("encode body: %w", err)), nil, nil
		}
		req.Body = raw
	}

	res, err := t.svc.TestEndpoint(ctx, req)
	if err != nil {
		return remoteErrResult(err), nil, nil
	}
	out := testEndpointOutput{
		ID:         res.ID,
		Endpoint:   res.InvokedPath,
		Method:     res.Method,
		Documented: res.Documented,
		Response:   res.Response,
	}
	if res.DocumentationError != nil {
		out.DocumentationError = res.DocumentationError.Error()
	}
	return nil, out, nil
}
