// Package fabric is a client for the Fabric REST API. It covers
// authenticated requests, continuation-token pagination, long-running
// operation polling and name resolution with a shared cache.
package fabric

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
)

// Client talks to the platform API. It is safe for concurrent use.
type Client struct {
	cfg        Config
	cred       Credential
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clock.Clock
	logger     *slog.Logger
	cache      *ResolveCache
	lookups    singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock sets the clock used by the operation poller.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithResolveCache shares a resolve cache between clients.
func WithResolveCache(cache *ResolveCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// New creates a client. The config is copied and defaults are applied.
func New(cred Credential, cfg Config, opts ...Option) (*Client, error) {
	if cred == nil {
		return nil, errors.New("fabric: credential is required")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fabric: %w", err)
	}

	c := &Client{
		cfg:        cfg,
		cred:       cred,
		httpClient: &http.Client{},
		clock:      clock.RealClock{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cache == nil {
		c.cache = NewResolveCache(cfg.ResolveCacheSize, cfg.ResolveCacheTTL)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Cache returns the resolve cache.
func (c *Client) Cache() *ResolveCache {
	return c.cache
}

// ClearResolveCache drops every memoized resolution.
func (c *Client) ClearResolveCache() {
	c.cache.Clear()
}
