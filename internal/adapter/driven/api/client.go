// Package api implements the backend API ports over HTTP. Every call goes
// through one request pipeline that attaches the stored access credential,
// refreshes it once on 401 and replays the original request at most once.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultRefreshTimeout = 10 * time.Second
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	// RequestTimeout bounds each attempt, including reading the body.
	RequestTimeout time.Duration
	// RefreshTimeout bounds a shared credential renewal.
	RefreshTimeout time.Duration
	// HTTPCache enables ETag revalidation of GET responses.
	HTTPCache bool
	// Breaker enables the circuit breaker when non-nil.
	Breaker *BreakerSettings
	Metrics *Metrics
	Logger  *slog.Logger
	// OnSessionExpired is called after the store has been cleared because the
	// session could not be recovered. It runs on the caller's goroutine.
	OnSessionExpired func(err error)
}

// Client is the authenticated backend client. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	store     driven.CredentialStore
	refresher *Refresher
	opts      Options
	logger    *slog.Logger
	metrics   *Metrics
	cache     *sessionCache // nil when HTTP caching is off
}

// NewClient creates a Client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, optional)
//  2. gobreaker (fail fast while the backend is down, optional)
//  3. net/http default transport
func NewClient(baseURL string, store driven.CredentialStore, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var transport http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if opts.Breaker != nil {
		transport = newBreakerTransport(transport, *opts.Breaker, logger)
	}
	var cache *sessionCache
	if opts.HTTPCache {
		cache = newSessionCache()
		cacheTransport := httpcache.NewTransport(cache)
		cacheTransport.Transport = transport
		transport = cacheTransport
	}

	c, err := NewClientWithHTTPClient(&http.Client{Transport: transport}, baseURL, store, opts)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, store driven.CredentialStore, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL: u,
		http:    httpClient,
		store:   store,
		opts:    opts,
		logger:  logger,
		metrics: opts.Metrics,
	}
	c.refresher = newRefresher(c, store, opts.RefreshTimeout, logger, opts.Metrics)
	return c, nil
}

// Refresher returns the client's refresh coordinator.
func (c *Client) Refresher() *Refresher {
	return c.refresher
}

// purgeCache drops cached responses when the session changes hands.
func (c *Client) purgeCache() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// Store returns the credential store the client reads on every call.
func (c *Client) Store() driven.CredentialStore {
	return c.store
}

// do sends req and decodes a JSON response body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req *Request, out any) error {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return &driven.APIError{
			Kind:       driven.KindServer,
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			Path:       req.Path,
			Err:        err,
		}
	}
	return nil
}
