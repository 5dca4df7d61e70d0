package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/apishape/internal/config"
	"github.com/mark3labs/apishape/internal/logging"
)

// environ is swapped in tests.
var environ = os.Environ

// resolveConfig merges defaults, the config file, APISHAPE_* variables and
// flags (in that order), validates the result and configures logging.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg := config.Default()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if configPath = strings.TrimSpace(configPath); configPath != "" {
		loaded, err := config.Load(nil, configPath)
		if err != nil {
			return nil, newUsageError(err.Error())
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(environ()); err != nil {
		return nil, newUsageError(err.Error())
	}
	if err := applyFlagOverrides(flags, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, newUsageError(err.Error())
	}
	if err := logging.Setup(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if err := overrideString(flags, "collection", &cfg.Collection); err != nil {
		return err
	}
	if err := overrideString(flags, "documentation", &cfg.Documentation); err != nil {
		return err
	}
	if err := overrideString(flags, "base-url", &cfg.API.BaseURL); err != nil {
		return err
	}
	if err := overrideString(flags, "addr", &cfg.Server.Addr); err != nil {
		return err
	}
	if flags.Changed("header") {
		values, err := flags.GetStringToString("header")
		if err != nil {
			return err
		}
		if cfg.API.Headers == nil {
			cfg.API.Headers = map[string]string{}
		}
		for k, v := range values {
			cfg.API.Headers[strings.TrimSpace(k)] = v
		}
	}
	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.API.Timeout = value
	}
	if flags.Changed("watch") {
		value, err := flags.GetBool("watch")
		if err != nil {
			return err
		}
		cfg.Server.Watch = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		if value {
			cfg.Log.Level = "debug"
		}
	}
	if flags.Changed("log-level") {
		value, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(value))
	}
	if flags.Changed("log-pretty") {
		value, err := flags.GetBool("log-pretty")
		if err != nil {
			return err
		}
		cfg.Log.Pretty = value
	}
	return nil
}

// overrideString copies a changed flag into dst. Flags a command does not
// define are skipped.
func overrideString(flags *pflag.FlagSet, name string, dst *string) error {
	if flags.Lookup(name) == nil || !flags.Changed(name) {
		return nil
	}
	value, err := flags.GetString(name)
	if err != nil {
		return err
	}
	*dst = strings.TrimSpace(value)
	return nil
}

// addAPIFlags registers the flags of commands that call the live API.
func addAPIFlags(flags *pflag.FlagSet) {
	flags.String("base-url", "", "Base URL of the API (enables calling endpoints)")
	flags.StringToString("header", nil, "Static request header, repeatable (e.g. --header X-App-Key=...)")
	flags.Duration("timeout", 0, "Per-request timeout for API calls")
}
