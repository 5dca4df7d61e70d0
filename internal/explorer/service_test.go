package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/apishape/internal/apiclient"
	"github.com/mark3labs/apishape/internal/collection"
	"github.com/mark3labs/apishape/internal/docstore"
)

type call struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type fakeCaller struct {
	calls    []call
	response json.RawMessage
	err      error
}

func (f *fakeCaller) do(method, path string, q url.Values, body any) (json.RawMessage, error) {
	f.calls = append(f.calls, call{Method: method, Path: path, Query: q, Body: body})
	return f.response, f.err
}

func (f *fakeCaller) Get(_ context.Context, path string, q url.Values) (json.RawMessage, error) {
	return f.do("GET", path, q, nil)
}

func (f *fakeCaller) Post(_ context.Context, path string, q url.Values, body any) (json.RawMessage, error) {
	return f.do("POST", path, q, body)
}

func (f *fakeCaller) Put(_ context.Context, path string, q url.Values, body any) (json.RawMessage, error) {
	return f.do("PUT", path, q, body)
}

func (f *fakeCaller) Delete(_ context.Context, path string, q url.Values) (json.RawMessage, error) {
	return f.do("DELETE", path, q, nil)
}

type staticCatalog struct{ c *collection.Catalog }

func (s staticCatalog) Catalog() *collection.Catalog { return s.c }
func (s staticCatalog) Rebuild(context.Context) (*collection.Catalog, error) {
	return s.c, nil
}

func newService(t *testing.T, caller Caller) (*Service, *docstore.Store, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	store := docstore.New(fsys, "response.json")
	catalog := collection.NewCatalog([]collection.Endpoint{
		{Name: "Get Dosen", Method: "GET", RawPath: "v1/dosen/:id", DisplayPath: "v1/dosen/{id}", Category: "Dosen"},
	})
	return New(staticCatalog{catalog}, caller, store), store, fsys
}

func TestTestEndpoint_SubstitutesAndRecords(t *testing.T) {
	t.Parallel()
	caller := &fakeCaller{response: json.RawMessage(`{"data":{"id":"42","tags":["a","b"]}}`)}
	svc, store, _ := newService(t, caller)

	res, err := svc.TestEndpoint(context.Background(), TestRequest{
		Path:        "v1/dosen/:id",
		Method:      "get",
		PathParams:  map[string]any{"id": float64(42)},
		QueryParams: map[string]any{"limit": "10", "tag": []any{"a", "b"}, "skip": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "v1/dosen/42", res.InvokedPath)
	assert.Equal(t, "GET", res.Method)
	assert.True(t, res.Documented)
	assert.NoError(t, res.DocumentationError)
	assert.NotEmpty(t, res.ID)
	assert.JSONEq(t, `{"data":{"id":"42","tags":["a","b"]}}`, string(res.Response))

	require.Len(t, caller.calls, 1)
	c := caller.calls[0]
	assert.Equal(t, "GET", c.Method)
	assert.Equal(t, "v1/dosen/42", c.Path)
	assert.Equal(t, url.Values{"limit": {"10"}, "tag": {"a", "b"}}, c.Query)

	sk, ok, err := store.Get("v1/dosen/42")
	require.NoError(t, err)
	require.True(t, ok)
	got, err := sk.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"id":null,"tags":[null]}}`, string(got))
}

func TestTestEndpoint_BraceMarkersAndDefaultMethod(t *testing.T) {
	t.Parallel()
	caller := &fakeCaller{response: json.RawMessage(`{"ok":true}`)}
	svc, _, _ := newService(t, caller)

	res, err := svc.TestEndpoint(context.Background(), TestRequest{
		Path:       "prodi/{kode}/dosen/:id",
		PathParams: map[string]any{"kode": "IF", "id": "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "GET", res.Method)
	assert.Equal(t, "prodi/IF/dosen/7", res.InvokedPath)
}

func TestTestEndpoint_PostSendsBody(t *testing.T) {
	t.Parallel()
	caller := &fakeCaller{response: json.RawMessage(`{"id":"1"}`)}
	svc, _, _ := newService(t, caller)

	_, err := svc.TestEndpoint(context.Background(), TestRequest{Path: "mhs", Method: "POST", Body: json.RawMessage(`{"nim":"1"}`)})
	require.NoError(t, err)
	_, err = svc.TestEndpoint(context.Background(), TestRequest{Path: "mhs", Method: "PUT", Body: json.RawMessage(`{}`)})
	require.NoError(t, err)

	require.Len(t, caller.calls, 2)
	assert.Equal(t, json.RawMessage(`{"nim":"1"}`), caller.calls[0].Body)
	assert.Nil(t, caller.calls[1].Body, "empty body is not sent")
}

func TestTestEndpoint_EmptyResponseNotRecorded(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{`null`, `{}`, `[]`, `""`, `false`, `0`} {
		caller := &fakeCaller{response: json.RawMessage(raw)}
		svc, _, fsys := newService(t, caller)
		res, err := svc.TestEndpoint(context.Background(), TestRequest{Path: "x", Method: "DELETE"})
		require.NoError(t, err, raw)
		assert.False(t, res.Documented, raw)
		exists, _ := afero.Exists(fsys, "response.json")
		assert.False(t, exists, raw)
	}
}

func TestTestEndpoint_UnsupportedMethod(t *testing.T) {
	t.Parallel()
	caller := &fakeCaller{}
	svc, _, _ := newService(t, caller)
	_, err := svc.TestEndpoint(context.Background(), TestRequest{Path: "x", Method: "PATCH"})
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Empty(t, caller.calls)
}

func TestTestEndpoint_NoClient(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t, nil)
	_, err := svc.TestEndpoint(context.Background(), TestRequest{Path: "x"})
	assert.ErrorIs(t, err, ErrClientUnavailable)
	assert.Len(t, svc.ListEndpoints(), 1)
}

func TestTestEndpoint_RemoteErrorPropagates(t *testing.T) {
	t.Parallel()
	remote := &apiclient.RemoteError{Message: "GET x: 401", StatusCode: 401, Body: `{"message":"bad key"}`}
	svc, _, fsys := newService(t, &fakeCaller{err: remote})
	_, err := svc.TestEndpoint(context.Background(), TestRequest{Path: "x"})
	var re *apiclient.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 401, re.StatusCode)
	exists, _ := afero.Exists(fsys, "response.json")
	assert.False(t, exists)
}

func TestTestEndpoint_WriteFailureKeepsResponse(t *testing.T) {
	t.Parallel()
	caller := &fakeCaller{response: json.RawMessage(`{"a":1}`)}
	store := docstore.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "response.json")
	svc := New(staticCatalog{collection.NewCatalog(nil)}, caller, store)

	res, err := svc.TestEndpoint(context.Background(), TestRequest{Path: "x"})
	require.NoError(t, err)
	assert.False(t, res.Documented)
	var we *docstore.WriteError
	require.True(t, errors.As(res.DocumentationError, &we))
	assert.JSONEq(t, `{"a":1}`, string(res.Response))
}

func TestDocumentation(t *testing.T) {
	t.Parallel()
	caller := &fakeCaller{response: json.RawMessage(`{"a":1}`)}
	svc, _, _ := newService(t, caller)

	doc, status, err := svc.Documentation()
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
	assert.False(t, status.Exists)
	assert.Equal(t, docstore.NoDocumentationMessage, status.Message)

	_, err = svc.TestEndpoint(context.Background(), TestRequest{Path: "x"})
	require.NoError(t, err)
	doc, status, err = svc.Documentation()
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, []string{"x"}, doc.Paths())
}

func TestReloadCatalog(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t, nil)
	c, err := svc.ReloadCatalog(context.Background())
	require.NoError(t, err)
	assert.Same(t, svc.Catalog(), c)
}
