package types

import "time"

// HTTPConfig holds settings for requests to the Unitrad API.
type HTTPConfig struct {
	// BaseURL is the API root; commands are appended as path segments.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Timeout bounds a single HTTP request. It must exceed
	// SessionConfig.PollTimeout because polls are held open by the server.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// UserAgent is sent with every request (e.g. "unitrad/0.1").
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// SessionConfig holds the polling cadence of a search session.
type SessionConfig struct {
	// WarmupDelay is the poll delay while version is 1 and nothing is found yet (default 20ms).
	WarmupDelay time.Duration `mapstructure:"warmup_delay" yaml:"warmup_delay"`

	// PollDelay is the regular delay between polls (default 500ms).
	PollDelay time.Duration `mapstructure:"poll_delay" yaml:"poll_delay"`

	// EmptyPollDelay is the delay after a poll that returned no change (default 1s).
	EmptyPollDelay time.Duration `mapstructure:"empty_poll_delay" yaml:"empty_poll_delay"`

	// PollTimeout is the number of seconds the server may hold a poll open (default 10).
	PollTimeout int `mapstructure:"poll_timeout" yaml:"poll_timeout"`
}

// RetryConfig describes how failed requests are resent.
type RetryConfig struct {
	// Delay is the fixed wait before resending a failed request (default 1s).
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`

	// MaxAttempts caps consecutive failures of one request. 0 means unbounded.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// MaxElapsed caps the time spent retrying one request. 0 means unbounded.
	MaxElapsed time.Duration `mapstructure:"max_elapsed" yaml:"max_elapsed"`

	// Jitter spreads each delay by up to this fraction (0 to 1).
	Jitter float64 `mapstructure:"jitter" yaml:"jitter"`

	// StallAfter is the number of consecutive failures after which a
	// session reports itself stalled (default 3).
	StallAfter int `mapstructure:"stall_after" yaml:"stall_after"`
}

// HistoryConfig holds settings for the search history database.
type HistoryConfig struct {
	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`
}

// CacheConfig holds settings for the region mapping cache.
type CacheConfig struct {
	// Path is the bbolt database file. Empty keeps the cache in memory.
	Path string `mapstructure:"path" yaml:"path"`

	// TTL is how long a cached mapping stays fresh (default 24h).
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// BatchConfig holds settings for running many sessions at once.
type BatchConfig struct {
	// Concurrency is the number of sessions run in parallel (default 4).
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// ServeConfig holds settings for the local HTTP API.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Region is applied to queries that do not name one.
	Region string `mapstructure:"region" yaml:"region"`

	// Library is the default holding library id used to filter books.
	Library string `mapstructure:"library" yaml:"library"`

	// Source is the name reported in Snapshot.Remains for that library's
	// catalog; the handler answers once it is no longer pending.
	Source string `mapstructure:"source" yaml:"source"`

	// WaitTimeout bounds how long a request waits for results (default 30s).
	WaitTimeout time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (default INFO).
	Level string `mapstructure:"level" yaml:"level"`

	// Format is "text" or "json" (default text).
	Format string `mapstructure:"format" yaml:"format"`

	// File, when set, receives log output instead of stderr.
	File string `mapstructure:"file" yaml:"file"`
}

// Config groups all client settings.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch"`
	Serve   ServeConfig   `mapstructure:"serve" yaml:"serve"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// DefaultSessionConfig returns the standard polling cadence.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		WarmupDelay:    20 * time.Millisecond,
		PollDelay:      500 * time.Millisecond,
		EmptyPollDelay: 1 * time.Second,
		PollTimeout:    10,
	}
}

// DefaultRetryConfig returns a fixed 1s delay with no attempt cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Delay:      1 * time.Second,
		StallAfter: 3,
	}
}
