package collection

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError   ErrorCode = "InputError"
	NetworkError ErrorCode = "NetworkError"
	ParseError   ErrorCode = "ParseError"
)

// CollectionError is a structured error carrying the source location.
type CollectionError struct {
	Code     ErrorCode
	Message  string
	Location string // file path or URL
	Cause    error
}

func (e *CollectionError) Error() string { return e.Message }
func (e *CollectionError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the initial delay for exponential backoff.
	BackoffBase time.Duration
	// HTTPClient overrides the client used for URL inputs.
	HTTPClient *http.Client
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithHTTPClient(c *http.Client) Option { return func(s *Settings) { s.HTTPClient = c } }

// Load reads and decodes a collection. input may be a path on fsys or an
// http/https URL.
func Load(ctx context.Context, fsys afero.Fs, input string, opts ...Option) (*Collection, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &CollectionError{Code: InputError, Message: "collection: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	var raw []byte
	if u, ok := parseRemote(input); ok {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, &CollectionError{Code: InputError, Message: fmt.Sprintf("collection: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		data, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &CollectionError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		raw = data
	} else {
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		data, err := afero.ReadFile(fsys, input)
		if err != nil {
			return nil, &CollectionError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", input, err), Location: input, Cause: err}
		}
		raw = data
	}

	c, err := Decode(raw)
	if err != nil {
		return nil, &CollectionError{Code: ParseError, Message: err.Error(), Location: input, Cause: err}
	}
	return c, nil
}

// LoadEndpoints loads and parses a collection. Failures are logged and yield
// an empty list; they never reach the caller.
func LoadEndpoints(ctx context.Context, fsys afero.Fs, input string, opts ...Option) []Endpoint {
	c, err := Load(ctx, fsys, input, opts...)
	if err != nil {
		log.Error().Err(err).Str("collection", input).Msg("loading endpoints failed")
		return []Endpoint{}
	}
	endpoints := Parse(c)
	log.Info().Str("collection", input).Int("endpoints", len(endpoints)).Msg("endpoints loaded")
	return endpoints
}

func parseRemote(input string) (*url.URL, bool) {
	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if u.Host == "" && !strings.HasPrefix(input, u.Scheme+"://") {
		return nil, false
	}
	return u, true
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := settings.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: settings.HTTPTimeout}
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	if settings.BackoffBase > 0 {
		b.InitialInterval = settings.BackoffBase
	}

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 300 {
			return io.ReadAll(resp.Body)
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("transient http error %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, backoff.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
	)
}
