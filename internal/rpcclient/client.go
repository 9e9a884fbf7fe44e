// Package rpcclient is the HTTP transport for the ledger's live and query
// RPC surfaces (spec.md §4.A, §6.2). It follows the teacher's
// marshal-request / http.NewRequestWithContext / Do / drain-body /
// check-status / unmarshal discipline from src/chainadapter/rpc/http.go,
// generalized from JSON-RPC envelopes to the ledger's plain-REST surfaces
// and wide-integer JSON bodies.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qubickit/sdk-go/internal/obslog"
)

// Hooks lets callers observe every request without modifying transport
// behavior, matching the onRequest/onResponse/onError triad from spec.md
// §4.A.
type Hooks struct {
	OnRequest  func(method, url string)
	OnResponse func(method, url string, status int, dur time.Duration)
	OnError    func(method, url string, err error)
}

// Client talks to one ledger node's live and query RPC surfaces.
type Client struct {
	liveBaseURL  string
	queryBaseURL string
	httpClient   *http.Client
	hooks        Hooks
	log          *obslog.Logger
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client, e.g. for a custom
// transport or TLS configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the client's http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHooks installs observability hooks.
func WithHooks(h Hooks) Option {
	return func(c *Client) { c.hooks = h }
}

// WithLogger attaches a structured logger.
func WithLogger(l *obslog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// normalizeBaseURL strips a trailing slash and, if the caller accidentally
// included the versioned suffix already, strips that too so joinPath never
// doubles it up (spec.md §4.A: "the SDK must tolerate either form of base
// URL").
func normalizeBaseURL(raw, suffix string) string {
	u := strings.TrimRight(raw, "/")
	u = strings.TrimSuffix(u, suffix)
	u = strings.TrimRight(u, "/")
	return u
}

// New constructs a Client for a single ledger node's base URL (the HTTP
// origin, with or without a trailing /live/v1 or /query/v1).
func New(baseURL string, opts ...Option) *Client {
	origin := normalizeBaseURL(normalizeBaseURL(baseURL, "/live/v1"), "/query/v1")
	c := &Client{
		liveBaseURL:  origin + "/live/v1",
		queryBaseURL: origin + "/query/v1",
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          obslog.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rpcclient: marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("rpcclient: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.hooks.OnRequest != nil {
		c.hooks.OnRequest(method, url)
	}
	c.log.Debugw("rpc request", "method", method, "url", url)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.hooks.OnError != nil {
			c.hooks.OnError(method, url, err)
		}
		return fmt.Errorf("rpcclient: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if c.hooks.OnError != nil {
			c.hooks.OnError(method, url, err)
		}
		return fmt.Errorf("rpcclient: read response body: %w", err)
	}

	dur := time.Since(start)
	if c.hooks.OnResponse != nil {
		c.hooks.OnResponse(method, url, resp.StatusCode, dur)
	}
	c.log.Debugw("rpc response", "method", method, "url", url, "status", resp.StatusCode, "durationMs", dur.Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rpcErr := &RPCError{
			URL:        url,
			Method:     method,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			BodyText:   string(respBody),
		}
		if c.hooks.OnError != nil {
			c.hooks.OnError(method, url, rpcErr)
		}
		return rpcErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		jsonErr := &InvalidJSONError{URL: url, Method: method, Underlying: err}
		if c.hooks.OnError != nil {
			c.hooks.OnError(method, url, jsonErr)
		}
		return jsonErr
	}
	return nil
}

func (c *Client) liveURL(path string) string {
	return c.liveBaseURL + path
}

func (c *Client) queryURL(path string) string {
	return c.queryBaseURL + path
}
