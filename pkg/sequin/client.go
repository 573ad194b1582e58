// Package sequin proxies database, sink and backfill operations to the Sequin management API
// using the base URL and bearer token held in the settings store.
package sequin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/edgeflare/etlm/pkg/httputil"
	"github.com/edgeflare/etlm/pkg/metrics"
	"github.com/edgeflare/etlm/pkg/settings"
	"go.uber.org/zap"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultPingTimeout = 5 * time.Second
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	HTTPClient  *http.Client
	Logger      *zap.Logger
	Timeout     time.Duration
	PingTimeout time.Duration
}

// Client issues authenticated calls against the upstream API. Settings are read from the store
// on every call so that changes take effect without a restart.
type Client struct {
	store       settings.Store
	http        *http.Client
	logger      *zap.Logger
	timeout     time.Duration
	pingTimeout time.Duration
}

func NewClient(store settings.Store, opts Options) *Client {
	c := &Client{
		store:       store,
		http:        opts.HTTPClient,
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		pingTimeout: opts.PingTimeout,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.pingTimeout <= 0 {
		c.pingTimeout = DefaultPingTimeout
	}

	names := []string{ping.Name}
	for _, op := range Operations {
		names = append(names, op.Name)
	}
	metrics.InitUpstream(names...)
	return c
}

// prepare resolves the absolute URL and auth headers for path.
func (c *Client) prepare(ctx context.Context, path string) (string, map[string][]string, error) {
	st, err := c.store.Get(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if st == nil {
		return "", nil, &ConfigurationError{Reason: "System settings not configured"}
	}
	token, ok := st.Token()
	if !ok {
		return "", nil, &ConfigurationError{Reason: "Sequin token not configured"}
	}

	headers := map[string][]string{
		"Authorization": {"Bearer " + token},
		"Content-Type":  {"application/json"},
		"Accept":        {"application/json"},
	}
	return strings.TrimRight(st.SequinURL, "/") + path, headers, nil
}

// Do performs op once. id fills the {id} placeholder and body, when non-nil, is sent as JSON.
// An empty 2xx body yields a nil result.
func (c *Client) Do(ctx context.Context, op Operation, id string, body any) (json.RawMessage, error) {
	return c.do(ctx, op, id, body, c.timeout)
}

func (c *Client) do(ctx context.Context, op Operation, id string, body any, timeout time.Duration) (json.RawMessage, error) {
	url, headers, err := c.prepare(ctx, op.expand(id))
	if err != nil {
		return nil, err
	}
	if raw, ok := body.(json.RawMessage); ok && len(raw) == 0 {
		body = nil
	}

	cfg := httputil.DefaultRequestConfig(op.Method, url)
	cfg.Client = c.http
	cfg.Headers = headers
	cfg.Timeout = timeout

	start := time.Now()
	resp, err := httputil.Request(ctx, cfg, body)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveUpstream(op.Name, "error", elapsed)
		return nil, &TransportError{Operation: op.Name, Err: err}
	}
	metrics.ObserveUpstream(op.Name, strconv.Itoa(resp.StatusCode), elapsed)

	c.logger.Debug("upstream response",
		zap.String("operation", op.Name),
		zap.String("method", op.Method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed),
	)

	if !resp.OK() {
		return nil, &UpstreamError{Operation: op.Name, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	payload := bytes.TrimSpace(resp.Body)
	if len(payload) == 0 {
		return nil, nil
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%s: %w", op.Name, ErrInvalidResponse)
	}
	if op.Unwrap {
		return unwrap(payload), nil
	}
	return json.RawMessage(payload), nil
}

// unwrap returns the value of a top-level "data" key, or payload unchanged.
func unwrap(payload []byte) json.RawMessage {
	if payload[0] != '{' {
		return payload
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return payload
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return payload
}

// Ping reports whether the upstream API accepts the configured credentials. It never fails;
// every error is logged and reported as false.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.do(ctx, ping, "", nil, c.pingTimeout)
	ok := err == nil
	if !ok {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			c.logger.Warn("sequin not configured", zap.Error(err))
		} else {
			c.logger.Warn("sequin connection check failed", zap.Error(err))
		}
	}
	metrics.SetReachable(metrics.TargetSequin, ok)
	return ok
}

func (c *Client) ListDatabases(ctx context.Context) (json.RawMessage, error) {
	return c.Do(ctx, ListDatabases, "", nil)
}

func (c *Client) GetDatabase(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Do(ctx, GetDatabase, id, nil)
}

func (c *Client) CreateDatabase(ctx context.Context, in DatabaseCreate) (json.RawMessage, error) {
	return c.Do(ctx, CreateDatabase, "", in)
}

func (c *Client) UpdateDatabase(ctx context.Context, id string, in DatabaseUpdate) (json.RawMessage, error) {
	return c.Do(ctx, UpdateDatabase, id, in)
}

func (c *Client) DeleteDatabase(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Do(ctx, DeleteDatabase, id, nil)
}

// TestDatabaseConnection asks upstream to verify a database config. A nil config sends {}.
func (c *Client) TestDatabaseConnection(ctx context.Context, in *DatabaseCreate) (json.RawMessage, error) {
	if in == nil {
		return c.Do(ctx, TestDatabaseConnection, "", map[string]any{})
	}
	return c.Do(ctx, TestDatabaseConnection, "", in)
}

func (c *Client) RefreshTables(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Do(ctx, RefreshTables, id, nil)
}

func (c *Client) ListSinks(ctx context.Context) (json.RawMessage, error) {
	return c.Do(ctx, ListSinks, "", nil)
}

func (c *Client) CreateSink(ctx context.Context, sink map[string]any) (json.RawMessage, error) {
	return c.Do(ctx, CreateSink, "", sink)
}

func (c *Client) CreateBackfill(ctx context.Context, sinkID string, backfill map[string]any) (json.RawMessage, error) {
	return c.Do(ctx, CreateBackfill, sinkID, backfill)
}
