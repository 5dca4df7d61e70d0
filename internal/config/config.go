// Package config holds the settings shared by every apishape command.
//
// Values are resolved in layers: built-in defaults, then an optional YAML
// file, then APISHAPE_* environment variables. The CLI applies its flags on
// top and calls Validate last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "APISHAPE_"

// headerEnvPrefix marks variables that become static request headers,
// e.g. APISHAPE_HEADER_X_APP_KEY sets X-App-Key.
const headerEnvPrefix = EnvPrefix + "HEADER_"

// Config is the resolved configuration.
type Config struct {
	// Collection is a file path or http(s) URL of the collection JSON.
	Collection string `yaml:"collection" validate:"required"`
	// Documentation is the file holding recorded response skeletons.
	Documentation string       `yaml:"documentation" validate:"required"`
	API           APIConfig    `yaml:"api"`
	Server        ServerConfig `yaml:"server"`
	Log           LogConfig    `yaml:"log"`
}

// APIConfig configures the client for the documented API.
type APIConfig struct {
	// BaseURL is optional; without it endpoints can be browsed but not called.
	BaseURL    string            `yaml:"base_url" validate:"omitempty,http_url"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout" validate:"gt=0"`
	MaxRetries int               `yaml:"max_retries" validate:"gte=0,lte=10"`
}

type ServerConfig struct {
	Addr  string `yaml:"addr" validate:"required"`
	Watch bool   `yaml:"watch"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Collection:    "collection.json",
		Documentation: "response.json",
		API: APIConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Server: ServerConfig{Addr: ":5000"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(fsys afero.Fs, path string) (*Config, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment entries in os.Environ form.
func (c *Config) ApplyEnv(environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if err := c.applyEnvVar(key, value); err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) applyEnvVar(key, value string) error {
	if name, ok := strings.CutPrefix(key, headerEnvPrefix); ok {
		if name == "" {
			return errors.New("missing header name")
		}
		if c.API.Headers == nil {
			c.API.Headers = map[string]string{}
		}
		c.API.Headers[HeaderName(name)] = value
		return nil
	}

	var err error
	switch strings.TrimPrefix(key, EnvPrefix) {
	case "COLLECTION":
		c.Collection = strings.TrimSpace(value)
	case "DOCUMENTATION":
		c.Documentation = strings.TrimSpace(value)
	case "API_BASE_URL":
		c.API.BaseURL = strings.TrimSpace(value)
	case "API_TIMEOUT":
		c.API.Timeout, err = time.ParseDuration(strings.TrimSpace(value))
	case "API_MAX_RETRIES":
		c.API.MaxRetries, err = strconv.Atoi(strings.TrimSpace(value))
	case "SERVER_ADDR":
		c.Server.Addr = strings.TrimSpace(value)
	case "SERVER_WATCH":
		c.Server.Watch, err = parseBool(value)
	case "LOG_LEVEL":
		c.Log.Level = strings.ToLower(strings.TrimSpace(value))
	case "LOG_PRETTY":
		c.Log.Pretty, err = parseBool(value)
	}
	return err
}

// HeaderName turns an env suffix such as X_APP_KEY into X-App-Key.
func HeaderName(envSuffix string) string {
	parts := strings.Split(strings.ToLower(envSuffix), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "1", "yes", "y":
		return true, nil
	case "false", "f", "0", "no", "n", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", v)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL, got %q", name, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", name, fe.Tag(), fe.Param(), fe.Value())
	}
}

// Sample is a commented configuration file written by "apishape init".
const Sample = `# apishape configuration (YAML)
# Environment variables (APISHAPE_*) override this file; flags override both.

# Path or http(s) URL of the collection JSON describing the API.
collection: collection.json

# File holding the recorded response structures, keyed by invoked path.
documentation: response.json

api:
  # Base URL requests are sent to. Leave empty to browse without calling.
  # base_url: https://api.example.com
  # Static headers sent with every request. Credentials can also come from
  # APISHAPE_HEADER_<NAME>, e.g. APISHAPE_HEADER_X_APP_KEY sets X-App-Key.
  # headers:
  #   X-App-Key: your-key
  #   X-Secret-Key: your-secret
  timeout: 30s
  max_retries: 3

server:
  addr: ":5000"
  # Rebuild the catalog when the collection file changes.
  watch: false

log:
  # trace, debug, info, warn or error
  level: info
  pretty: false
`
