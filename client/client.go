// Package client provides a typed Go SDK for the insights backend consumed by
// the dashboard sync pipeline.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultUserAgent is sent when no WithUserAgent option is given.
const DefaultUserAgent = "dashsync-client"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client is the top-level backend API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client

	flight   singleflight.Group
	flightMu sync.Mutex
	flights  map[string]*flightCtx

	Data *DataService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the given base URL, which includes the API prefix
// (e.g. "http://localhost:5000/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		flights:    make(map[string]*flightCtx),
	}
	for _, o := range opts {
		o(c)
	}
	c.Data = &DataService{c: c}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health returns the backend liveness response.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Warmup wakes a sleeping backend. Backends without a warmup endpoint are
// probed through /health instead.
func (c *Client) Warmup(ctx context.Context) error {
	err := c.get(ctx, "/warmup", "", nil)
	if IsNotFound(err) {
		_, err = c.Health(ctx)
	}
	return err
}

// do executes an HTTP request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	u := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("request cancelled: %w", ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	return nil
}

// get is a convenience wrapper for GET requests with a raw query string.
func (c *Client) get(ctx context.Context, path, rawQuery string, result any) error {
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post is a convenience wrapper for POST requests.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// flightCtx is the context a shared request runs on. It is cancelled once
// every caller waiting on the request has gone.
type flightCtx struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// shared runs fn once per key among concurrent callers. Each caller waits on
// its own ctx; leaving early does not fail the request for the others.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	fctx, leave := c.joinFlight(ctx, key)
	defer leave()

	ch := c.flight.DoChan(key, func() (any, error) { return fn(fctx) })

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
	}
}

func (c *Client) joinFlight(ctx context.Context, key string) (context.Context, func()) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flightCtx{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++

	return f.ctx, func() {
		c.flightMu.Lock()
		defer c.flightMu.Unlock()

		f.waiters--
		if f.waiters > 0 {
			return
		}

		f.cancel()
		if c.flights[key] == f {
			delete(c.flights, key)
			c.flight.Forget(key)
		}
	}
}

// forget detaches key from any request in flight, so the next caller starts
// a fresh round trip. Callers already waiting keep their request.
func (c *Client) forget(key string) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	delete(c.flights, key)
	c.flight.Forget(key)
}
