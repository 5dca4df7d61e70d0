// Package explorer ties the endpoint catalog, the live API client and the
// documentation store together. It is the single entry point used by the
// HTTP, MCP and CLI surfaces.
package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/docstore"
)

var (
	// ErrUnsupportedMethod is returned for methods other than GET, POST, PUT and DELETE.
	ErrUnsupportedMethod = errors.New("unsupported method")
	// ErrClientUnavailable is returned when no API client is configured.
	ErrClientUnavailable = errors.New("api client is not configured: set api.base_url and the credential headers")
)

// CatalogSource provides the current endpoint catalog.
type CatalogSource interface {
	Catalog() *collection.Catalog
	Rebuild(ctx context.Context) (*collection.Catalog, error)
}

// Caller performs calls against the live API.
type Caller interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error)
	Put(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error)
	Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// Recorder persists response skeletons.
type Recorder interface {
	Record(path string, response any) error
	ReadAll() (*docstore.Document, docstore.Status, error)
}

// Service is safe for concurrent use.
type Service struct {
	catalog CatalogSource
	client  Caller
	store   Recorder
}

// New builds a service. client may be nil; TestEndpoint then fails with
// ErrClientUnavailable while listing and documentation keep working.
func New(catalog CatalogSource, client Caller, store Recorder) *Service {
	return &Service{catalog: catalog, client: client, store: store}
}

// Catalog returns the current catalog.
func (s *Service) Catalog() *collection.Catalog { return s.catalog.Catalog() }

// ListEndpoints returns every endpoint in catalog order.
func (s *Service) ListEndpoints() []collection.Endpoint {
	return s.catalog.Catalog().Endpoints()
}

// ReloadCatalog rebuilds the catalog from its source.
func (s *Service) ReloadCatalog(ctx context.Context) (*collection.Catalog, error) {
	return s.catalog.Rebuild(ctx)
}

// Documentation returns the recorded documentation.
func (s *Service) Documentation() (*docstore.Document, docstore.Status, error) {
	return s.store.ReadAll()
}

// TestRequest describes one invocation of a catalog endpoint.
type TestRequest struct {
	Path        string          `json:"path"`
	Method      string          `json:"method"`
	PathParams  map[string]any  `json:"path_params"`
	QueryParams map[string]any  `json:"query_params"`
	Body        json.RawMessage `json:"body"`
}

// TestResult is the outcome of a successful invocation.
type TestResult struct {
	ID          string          `json:"id"`
	Response    json.RawMessage `json:"response"`
	InvokedPath string          `json:"endpoint"`
	Method      string          `json:"method"`
	// Documented reports whether the response skeleton was stored.
	Documented bool `json:"documented"`
	// DocumentationError is set when storing the skeleton failed. The
	// response is still returned.
	DocumentationError error `json:"-"`
}

// TestEndpoint substitutes path parameters, calls the live API and records
// the skeleton of a non-empty response under the invoked path. Remote
// failures are returned as *apiclient.RemoteError and nothing is recorded.
func (s *Service) TestEndpoint(ctx context.Context, req TestRequest) (*TestResult, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	if s.client == nil {
		return nil, ErrClientUnavailable
	}

	invoked := collection.Substitute(req.Path, stringParams(req.PathParams))
	query := queryValues(req.QueryParams)
	body := requestBody(req.Body)

	var (
		resp json.RawMessage
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = s.client.Get(ctx, invoked, query)
	case http.MethodPost:
		resp, err = s.client.Post(ctx, invoked, query, body)
	case http.MethodPut:
		resp, err = s.client.Put(ctx, invoked, query, body)
	case http.MethodDelete:
		resp, err = s.client.Delete(ctx, invoked, query)
	}
	if err != nil {
		return nil, err
	}

	result := &TestResult{
		ID:          uuid.NewString(),
		Response:    resp,
		InvokedPath: invoked,
		Method:      method,
	}
	if isEmpty(resp) {
		log.Debug().Str("id", result.ID).Str("path", invoked).Msg("empty response; documentation unchanged")
		return result, nil
	}
	if err := s.store.Record(invoked, resp); err != nil {
		log.Warn().Err(err).Str("id", result.ID).Str("path", invoked).Msg("recording documentation failed")
		result.DocumentationError = err
		return result, nil
	}
	result.Documented = true
	log.Info().Str("id", result.ID).Str("method", method).Str("path", invoked).Msg("endpoint tested")
	return result, nil
}

// stringParams renders parameter values as they appear in a URL path.
func stringParams(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = formatValue(v)
	}
	return out
}

// queryValues drops null values and expands arrays into repeated keys.
func queryValues(params map[string]any) url.Values {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := url.Values{}
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []any:
			for _, elem := range v {
				q.Add(k, formatValue(elem))
			}
		default:
			q.Add(k, formatValue(v))
		}
	}
	return q
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// requestBody returns nil for an absent or empty body so no payload is sent.
func requestBody(raw json.RawMessage) any {
	if isEmpty(raw) {
		return nil
	}
	return raw
}

// isEmpty reports whether raw is null, an empty object or array, an empty
// string, false or zero.
func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	}
	return false
}
