package fabric

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the platform REST API root.
	DefaultBaseURL = "https://api.fabric.microsoft.com/v1"

	// DefaultScope is the token scope for platform API calls.
	DefaultScope = "https://api.fabric.microsoft.com/.default"

	// DefaultPageSize is the maxResults value sent on GET requests.
	DefaultPageSize = 100

	// DefaultRequestTimeout bounds a single HTTP request.
	DefaultRequestTimeout = 120 * time.Second

	// DefaultPollInterval is the wait between status polls of an operation.
	DefaultPollInterval = 2 * time.Second

	// DefaultCreatePollInterval is the poll interval used while creating items.
	DefaultCreatePollInterval = 500 * time.Millisecond

	// DefaultPollTimeout bounds how long an operation is polled.
	DefaultPollTimeout = 300 * time.Second

	// DefaultMaxPages caps the number of pages a single listing may follow.
	DefaultMaxPages = 1000

	// DefaultResolveCacheSize is the number of resolved names kept in memory.
	DefaultResolveCacheSize = 128
)

// Config holds the client configuration. It is copied on New and never
// modified afterwards.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	Scope          string        `yaml:"scope"`
	PageSize       int           `yaml:"page_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxPages       int           `yaml:"max_pages"`

	// RequestsPerSecond limits outgoing requests. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	PollInterval       time.Duration `yaml:"poll_interval"`
	CreatePollInterval time.Duration `yaml:"create_poll_interval"`
	PollTimeout        time.Duration `yaml:"poll_timeout"`

	ResolveCacheSize int `yaml:"resolve_cache_size"`
	// ResolveCacheTTL expires resolved names. Zero keeps them for the
	// lifetime of the process.
	ResolveCacheTTL time.Duration `yaml:"resolve_cache_ttl"`

	// VerifyCanonicalIDs issues a GET for item ids passed in canonical form.
	VerifyCanonicalIDs bool `yaml:"verify_canonical_ids"`

	// DuplicateNames maps an item kind to its duplicate-name policy.
	// Kinds not listed use DefaultDuplicatePolicy.
	DuplicateNames         map[ItemKind]DuplicatePolicy `yaml:"duplicate_names"`
	DefaultDuplicatePolicy DuplicatePolicy              `yaml:"default_duplicate_policy"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.CreatePollInterval == 0 {
		c.CreatePollInterval = DefaultCreatePollInterval
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.ResolveCacheSize == 0 {
		c.ResolveCacheSize = DefaultResolveCacheSize
	}
	if c.DuplicateNames == nil {
		c.DuplicateNames = map[ItemKind]DuplicatePolicy{
			KindLakehouse: DuplicateError,
		}
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base_url: %w", ErrInvalidArgument, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base_url must be http or https, got %q", ErrInvalidArgument, c.BaseURL)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("%w: page_size must not be negative", ErrInvalidArgument)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("%w: max_pages must not be negative", ErrInvalidArgument)
	}
	if c.PollInterval < 0 || c.CreatePollInterval < 0 || c.PollTimeout < 0 {
		return fmt.Errorf("%w: poll durations must not be negative", ErrInvalidArgument)
	}
	return nil
}

// policyFor returns the duplicate-name policy for kind.
func (c *Config) policyFor(kind ItemKind) DuplicatePolicy {
	if p, ok := c.DuplicateNames[kind]; ok {
		return p
	}
	return c.DefaultDuplicatePolicy
}
