package cli

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mark3labs/apishape/internal/config"
)

func captureServe(t *testing.T) **config.Config {
	t.Helper()
	var captured *config.Config
	serveRunner = func(ctx context.Context, cfg *config.Config) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { serveRunner = runServe })
	return &captured
}

func TestServeConfigFromFlags(t *testing.T) {
	noEnv(t)
	captured := captureServe(t)

	_, err := execute(t,
		"--verbose",
		"--collection", "api.json",
		"--documentation", "docs.json",
		"serve",
		"--addr", ":8080",
		"--watch",
		"--base-url", "https://api.example.com",
		"--header", "X-App-Key=k,X-Secret-Key=s",
		"--timeout", "5s",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg == nil {
		t.Fatalf("expected config to be captured")
	}
	if cfg.Collection != "api.json" {
		t.Errorf("collection mismatch: got %q", cfg.Collection)
	}
	if cfg.Documentation != "docs.json" {
		t.Errorf("documentation mismatch: got %q", cfg.Documentation)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr mismatch: got %q", cfg.Server.Addr)
	}
	if !cfg.Server.Watch {
		t.Errorf("expected watch true")
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("base url mismatch: got %q", cfg.API.BaseURL)
	}
	if cfg.API.Headers["X-App-Key"] != "k" || cfg.API.Headers["X-Secret-Key"] != "s" {
		t.Errorf("headers mismatch: got %v", cfg.API.Headers)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("timeout mismatch: got %v", cfg.API.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected --verbose to select debug, got %q", cfg.Log.Level)
	}
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestFile(t, dir, "apishape.yaml", `collection: from-config.json
documentation: from-config-docs.json
api:
  base_url: https://config.example.com
  headers:
    X-App-Key: from-config
server:
  addr: ":7000"
log:
  level: warn
`)
	environ = func() []string {
		return []string{
			"APISHAPE_DOCUMENTATION=from-env-docs.json",
			"APISHAPE_API_BASE_URL=https://env.example.com",
			"APISHAPE_HEADER_X_SECRET_KEY=from-env",
		}
	}
	t.Cleanup(func() { environ = os.Environ })
	captured := captureServe(t)

	_, err := execute(t,
		"--config", configPath,
		"serve",
		"--base-url", "https://flag.example.com",
		"--log-level", "ERROR",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg.Collection != "from-config.json" {
		t.Errorf("collection: want from-config.json got %q", cfg.Collection)
	}
	if cfg.Documentation != "from-env-docs.json" {
		t.Errorf("documentation: want env value got %q", cfg.Documentation)
	}
	if cfg.API.BaseURL != "https://flag.example.com" {
		t.Errorf("base url: want flag value got %q", cfg.API.BaseURL)
	}
	if cfg.API.Headers["X-App-Key"] != "from-config" || cfg.API.Headers["X-Secret-Key"] != "from-env" {
		t.Errorf("headers: got %v", cfg.API.Headers)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr: want :7000 got %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log level: want error got %q", cfg.Log.Level)
	}
}

func TestConfigErrorsAreUsageErrors(t *testing.T) {
	noEnv(t)
	captureServe(t)
	dir := t.TempDir()

	cases := map[string][]string{
		"missing file":  {"--config", dir + "/missing.yaml", "serve"},
		"unknown key":   {"--config", writeTestFile(t, dir, "bad.yaml", "colection: x\n"), "serve"},
		"bad base url":  {"serve", "--base-url", "ftp://example.com"},
		"bad log level": {"serve", "--log-level", "loud"},
		"empty addr":    {"serve", "--addr", " "},
	}
	for name, args := range cases {
		_, err := execute(t, args...)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if _, ok := err.(usageError); !ok {
			t.Fatalf("%s: expected usage error, got %T: %v", name, err, err)
		}
	}
}

func TestEnvErrorIsUsageError(t *testing.T) {
	environ = func() []string { return []string{"APISHAPE_API_TIMEOUT=soon"} }
	t.Cleanup(func() { environ = os.Environ })
	captureServe(t)

	_, err := execute(t, "serve")
	if _, ok := err.(usageError); !ok {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
}
