// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads client settings from defaults, an optional YAML file,
// and UNITRAD_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/unitrad/internal/logging"
	"github.com/pdiddy/unitrad/internal/unitrad"
	"github.com/pdiddy/unitrad/pkg/types"
)

// EnvPrefix is prepended to environment overrides, e.g. UNITRAD_HTTP_TIMEOUT.
const EnvPrefix = "UNITRAD"

// Default returns the built-in configuration.
func Default() types.Config {
	return types.Config{
		HTTP: types.HTTPConfig{
			BaseURL:   unitrad.DefaultBaseURL,
			Timeout:   30 * time.Second,
			UserAgent: "unitrad-cli",
		},
		Session: types.DefaultSessionConfig(),
		Retry:   types.DefaultRetryConfig(),
		History: types.HistoryConfig{
			Path: "~/.local/share/unitrad/history.db",
		},
		Cache: types.CacheConfig{
			Path: "~/.cache/unitrad/mapping.db",
			TTL:  24 * time.Hour,
		},
		Batch: types.BatchConfig{Concurrency: 4},
		Serve: types.ServeConfig{
			Addr:        ":8080",
			Region:      "gifu",
			Library:     "100914",
			Source:      "中津川市",
			WaitTimeout: 30 * time.Second,
		},
		Logging: types.LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Load reads configuration. file names an explicit config file; when empty,
// unitrad.yaml is looked up in the working directory and in
// ~/.config/unitrad. A missing file is not an error. The second result is
// the file that was read, or "".
func Load(file string) (types.Config, string, error) {
	v := viper.New()
	setDefaults(v, Default())

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("unitrad")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "unitrad"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return types.Config{}, "", fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, "", fmt.Errorf("parsing config: %w", err)
	}

	for _, p := range []*string{&cfg.History.Path, &cfg.Cache.Path, &cfg.Logging.File} {
		expanded, err := logging.ExpandHome(*p)
		if err != nil {
			return types.Config{}, "", err
		}
		*p = expanded
	}
	return cfg, v.ConfigFileUsed(), nil
}

// setDefaults registers every key so environment variables can override
// settings that no file mentions.
func setDefaults(v *viper.Viper, d types.Config) {
	defaults := map[string]any{
		"http.base_url":            d.HTTP.BaseURL,
		"http.timeout":             d.HTTP.Timeout,
		"http.user_agent":          d.HTTP.UserAgent,
		"session.warmup_delay":     d.Session.WarmupDelay,
		"session.poll_delay":       d.Session.PollDelay,
		"session.empty_poll_delay": d.Session.EmptyPollDelay,
		"session.poll_timeout":     d.Session.PollTimeout,
		"retry.delay":              d.Retry.Delay,
		"retry.max_attempts":       d.Retry.MaxAttempts,
		"retry.max_elapsed":        d.Retry.MaxElapsed,
		"retry.jitter":             d.Retry.Jitter,
		"retry.stall_after":        d.Retry.StallAfter,
		"history.path":             d.History.Path,
		"cache.path":               d.Cache.Path,
		"cache.ttl":                d.Cache.TTL,
		"batch.concurrency":        d.Batch.Concurrency,
		"serve.addr":               d.Serve.Addr,
		"serve.region":             d.Serve.Region,
		"serve.library":            d.Serve.Library,
		"serve.source":             d.Serve.Source,
		"serve.wait_timeout":       d.Serve.WaitTimeout,
		"logging.level":            d.Logging.Level,
		"logging.format":           d.Logging.Format,
		"logging.file":             d.Logging.File,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}
