// Package redis provides a Redis-backed session context store, for
// deployments running several server replicas behind one endpoint.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/txn2/mcp-fabric/pkg/session"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second

	// DefaultKeyPrefix namespaces keys in a shared Redis.
	DefaultKeyPrefix = "mcp-fabric:ctx:"
)

// Config holds Redis connection configuration.
type Config struct {
	// Addrs is one address for a single node, or sentinel addresses when
	// MasterName is set.
	Addrs      []string `yaml:"addrs"`
	MasterName string   `yaml:"master_name"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	DB         int      `yaml:"db"`
	KeyPrefix  string   `yaml:"key_prefix"`

	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Store implements session.Store on Redis. Each value is its own key with
// a Redis expiry, so values expire individually.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, ttl time.Duration) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis session store: at least one address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		MasterName:   cfg.MasterName,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewWithClient(client, cfg.KeyPrefix, ttl), nil
}

// NewWithClient creates a Store with a pre-configured client.
func NewWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Store{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *Store) key(sessionID string, key session.Key) string {
	return s.keyPrefix + sessionID + ":" + string(key)
}

// Get returns the value for key.
func (s *Store) Get(ctx context.Context, sessionID string, key session.Key) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting session context: %w", err)
	}
	return v, true, nil
}

// Set stores value for key with the store TTL.
func (s *Store) Set(ctx context.Context, sessionID string, key session.Key, value string) error {
	if err := s.client.Set(ctx, s.key(sessionID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("setting session context: %w", err)
	}
	return nil
}

// Snapshot returns every live value of the session.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (map[session.Key]string, error) {
	keys := make([]string, len(session.Keys))
	for i, k := range session.Keys {
		keys[i] = s.key(sessionID, k)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session context: %w", err)
	}

	out := make(map[session.Key]string)
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[session.Keys[i]] = str
		}
	}
	return out, nil
}

// Clear removes every value of the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	keys := make([]string, len(session.Keys))
	for i, k := range session.Keys {
		keys[i] = s.key(sessionID, k)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing session context: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
