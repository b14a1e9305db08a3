// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package unitrad talks to the Unitrad federated library search API. It runs
// search sessions that poll for incremental diffs, folds each diff into a
// cumulative snapshot, and hands every new snapshot to the caller.
package unitrad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdiddy/unitrad/internal/httputil"
	"github.com/pdiddy/unitrad/pkg/types"
)

// DefaultBaseURL is the public Unitrad endpoint. Declared as a var so tests
// can substitute an httptest server.
var DefaultBaseURL = "https://unitrad.calil.jp/v1/"

// Command names understood by the API.
const (
	CommandSearch  = "search"
	CommandPolling = "polling"
	CommandMapping = "mapping"
)

// Requester issues one GET per logical operation. A nil RawMessage with a
// nil error means the server answered with an empty body.
type Requester interface {
	Request(ctx context.Context, command string, params []httputil.Param) (json.RawMessage, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, command string, params []httputil.Param) (json.RawMessage, error)

// Request calls f.
func (f RequesterFunc) Request(ctx context.Context, command string, params []httputil.Param) (json.RawMessage, error) {
	return f(ctx, command, params)
}

// Client is the HTTP implementation of Requester.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
	Logger    *slog.Logger
}

var _ Requester = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg types.HTTPConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	}
}

// URL returns the request target for command and params.
func (c *Client) URL(command string, params []httputil.Param) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + command + httputil.EncodeQuery(params)
}

// Request sends GET <base>/<command>?<params> and returns the JSON body.
func (c *Client) Request(ctx context.Context, command string, params []httputil.Param) (json.RawMessage, error) {
	target := c.URL(command, params)
	c.logger().Debug("unitrad request", "url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Command: command, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Command: command, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Command: command, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Command: command, Err: fmt.Errorf("reading body: %w", err)}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, &TransportError{Command: command, Err: ErrMalformedBody}
	}
	return json.RawMessage(body), nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
