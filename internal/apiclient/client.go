// Package apiclient is a small JSON client for the live API whose endpoints
// are being explored.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// RemoteError reports a failed call. Body holds the raw response body when
// the server answered at all.
type RemoteError struct {
	Message    string
	StatusCode int
	Body       string
	Cause      error
}

func (e *RemoteError) Error() string { return e.Message }
func (e *RemoteError) Unwrap() error { return e.Cause }

// BodyJSON returns Body as JSON when it is valid JSON.
func (e *RemoteError) BodyJSON() (json.RawMessage, bool) {
	b := bytes.TrimSpace([]byte(e.Body))
	if len(b) == 0 || !json.Valid(b) {
		return nil, false
	}
	return json.RawMessage(b), true
}

// Client calls a JSON API rooted at BaseURL with a fixed header set.
type Client struct {
	baseURL     string
	headers     http.Header
	http        *http.Client
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
}

type Option func(*Client)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }
func WithMaxRetries(n int) Option { return func(c *Client) { c.maxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(c *Client) { c.backoffBase = d } }

// New returns a client for baseURL. baseURL must be an absolute http(s) URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:     strings.TrimRight(u.String(), "/"),
		headers:     http.Header{},
		timeout:     30 * time.Second,
		maxRetries:  3,
		backoffBase: 200 * time.Millisecond,
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// BaseURL is the root every request path is joined to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, query, body)
}

func (c *Client) Put(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, query, body)
}

func (c *Client) Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, query, nil)
}

// Do sends one request and returns the decoded JSON response. A 2xx response
// with an empty body yields JSON null. GET requests are retried on transport
// errors, 429 and 5xx.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		b, err := encodeBody(body)
		if err != nil {
			return nil, &RemoteError{Message: fmt.Sprintf("encode request body: %v", err), Cause: err}
		}
		payload = b
	}

	attempts := 1
	if method == http.MethodGet && c.maxRetries > 1 {
		attempts = c.maxRetries
	}
	b := backoff.NewExponentialBackOff()
	if c.backoffBase > 0 {
		b.InitialInterval = c.backoffBase
	}

	start := time.Now()
	result, err := backoff.Retry(ctx, func() (json.RawMessage, error) {
		return c.once(ctx, method, target, payload)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(attempts)))

	ev := log.Debug()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("method", method).Str("url", target).Dur("elapsed", time.Since(start)).Msg("api call")

	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, &RemoteError{Message: fmt.Sprintf("%s %s: %v", method, target, err), Cause: err}
	}
	return result, nil
}

func (c *Client) once(ctx context.Context, method, target string, payload []byte) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, backoff.Permanent(&RemoteError{Message: fmt.Sprintf("build request: %v", err), Cause: err})
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		re := &RemoteError{
			Message:    fmt.Sprintf("%s %s: %s", method, target, resp.Status),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, re
		}
		return nil, backoff.Permanent(re)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		return nil, backoff.Permanent(&RemoteError{
			Message:    fmt.Sprintf("%s %s: response is not JSON", method, target),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		})
	}
	return json.RawMessage(trimmed), nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		if len(b) == 0 {
			return nil, nil
		}
		if !json.Valid(b) {
			return nil, errors.New("body is not valid JSON")
		}
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(body)
	}
}
