package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBackoffBase(time.Millisecond)}, opts...)
	c, err := New(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "not a url", "ftp://example.com", "/relative"} {
		_, err := New(in)
		assert.Error(t, err, in)
	}
}

func TestGet_SendsPathQueryAndHeaders(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/siakadcloud/v1/dosen/42", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "key-1", r.Header.Get("X-App-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(` {"data": {"id": "42"}} `))
	}, WithHeader("X-App-Key", "key-1"))

	got, err := c.Get(context.Background(), "/siakadcloud/v1/dosen/42", url.Values{"limit": {"10"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": {"id": "42"}}`, string(got))
}

func TestPostAndPut_SendJSONBody(t *testing.T) {
	t.Parallel()
	jsonHandler := func(method string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, method, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"nim": "123"}`, string(body))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"ok": true}`))
		}
	}

	post := newTestClient(t, jsonHandler(http.MethodPost))
	got, err := post.Post(context.Background(), "mahasiswa", nil, map[string]any{"nim": "123"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(got))

	put := newTestClient(t, jsonHandler(http.MethodPut))
	got, err = put.Put(context.Background(), "mahasiswa", nil, json.RawMessage(`{"nim":"123"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(got))
}

func TestDelete_EmptyBodyIsNull(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	got, err := c.Delete(context.Background(), "x/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(got))
}

func TestDo_ClientErrorCarriesBody(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "invalid key"}`))
	})
	_, err := c.Get(context.Background(), "x", nil)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
	assert.Equal(t, `{"message": "invalid key"}`, re.Body)
	body, ok := re.BodyJSON()
	require.True(t, ok)
	assert.JSONEq(t, `{"message": "invalid key"}`, string(body))
	assert.Equal(t, int32(1), hits.Load(), "4xx is not retried")
}

func TestDo_RetriesGetOnServerError(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[1]`))
	}, WithMaxRetries(3))
	got, err := c.Get(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(got))
	assert.Equal(t, int32(3), hits.Load())
}

func TestDo_DoesNotRetryPost(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}, WithMaxRetries(5))
	_, err := c.Post(context.Background(), "x", nil, map[string]any{})
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Equal(t, "boom", re.Body)
	_, ok := re.BodyJSON()
	assert.False(t, ok)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDo_NonJSONResponse(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	})
	_, err := c.Get(context.Background(), "x", nil)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Message, "not JSON")
	assert.Equal(t, "<html>login</html>", re.Body)
}

func TestDo_TransportError(t *testing.T) {
	t.Parallel()
	c, err := New("http://127.0.0.1:1", WithMaxRetries(1), WithTimeout(200*time.Millisecond))
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "x", nil)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.StatusCode)
	assert.NotNil(t, re.Cause)
}

func TestDo_InvalidRawBody(t *testing.T) {
	t.Parallel()
	c, err := New("http://127.0.0.1:1")
	require.NoError(t, err)
	_, err = c.Post(context.Background(), "x", nil, json.RawMessage(`{bad`))
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Message, "encode request body")
}
