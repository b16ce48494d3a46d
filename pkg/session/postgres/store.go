// Package postgres provides PostgreSQL storage for session context, so
// defaults survive restarts and are shared between replicas.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/txn2/mcp-fabric/pkg/session"
)

// DefaultCleanupInterval is how often expired rows are purged.
const DefaultCleanupInterval = time.Minute

// Store implements session.Store using PostgreSQL. Rows live in the
// session_context table created by the embedded migrations.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// Config configures the PostgreSQL session store.
type Config struct {
	TTL time.Duration
}

// New creates a new PostgreSQL session store.
func New(db *sql.DB, cfg Config) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// Get returns the value for key when it has not expired.
func (s *Store) Get(ctx context.Context, sessionID string, key session.Key) (string, bool, error) {
	query := `
		SELECT value FROM session_context
		WHERE session_id = $1 AND key = $2 AND expires_at > NOW()
	`
	var value string
	err := s.db.QueryRowContext(ctx, query, sessionID, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying session context: %w", err)
	}
	return value, true, nil
}

// Set upserts value for key and restarts its expiry.
func (s *Store) Set(ctx context.Context, sessionID string, key session.Key, value string) error {
	query := `
		INSERT INTO session_context (session_id, key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.ExecContext(ctx, query, sessionID, string(key), value, s.now().Add(s.ttl))
	if err != nil {
		return fmt.Errorf("upserting session context: %w", err)
	}
	return nil
}

// Snapshot returns every live value of the session.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (map[session.Key]string, error) {
	query := `
		SELECT key, value FROM session_context
		WHERE session_id = $1 AND expires_at > NOW()
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing session context: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[session.Key]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning session context row: %w", err)
		}
		out[session.Key(key)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session context rows: %w", err)
	}
	return out, nil
}

// Clear removes every value of the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_context WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("clearing session context: %w", err)
	}
	return nil
}

// Cleanup removes expired rows.
func (s *Store) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_context WHERE expires_at <= NOW()`)
	if err != nil {
		return fmt.Errorf("cleaning up session context: %w", err)
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically removes
// expired rows. The goroutine is stopped when Close is called.
func (s *Store) StartCleanupRoutine(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Cleanup(ctx); err != nil {
					slog.Warn("session context cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
// The database handle is owned by the caller.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
