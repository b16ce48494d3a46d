// Package session stores per-session context defaults: the workspace,
// lakehouse, warehouse, table and semantic model a client selected with the
// set_* tools. Entries expire individually after the store's TTL.
package session

import (
	"context"
	"time"
)

// Key names one context default.
type Key string

// Context keys.
const (
	KeyWorkspace     Key = "workspace"
	KeyLakehouse     Key = "lakehouse"
	KeyWarehouse     Key = "warehouse"
	KeyTable         Key = "table"
	KeySemanticModel Key = "semantic_model"
)

// Keys lists every context key in display order.
var Keys = []Key{KeyWorkspace, KeyLakehouse, KeyWarehouse, KeyTable, KeySemanticModel}

const (
	// DefaultTTL is how long a context value lives after it is set.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries bounds the in-memory store.
	DefaultMaxEntries = 100

	// DefaultSessionID is used when the transport has no session, e.g. stdio.
	DefaultSessionID = "default"
)

// Store persists context defaults per session.
type Store interface {
	// Get returns the value for key. ok is false when it is unset or expired.
	Get(ctx context.Context, sessionID string, key Key) (value string, ok bool, err error)

	// Set stores value for key and restarts its TTL.
	Set(ctx context.Context, sessionID string, key Key, value string) error

	// Snapshot returns every live value of the session.
	Snapshot(ctx context.Context, sessionID string) (map[Key]string, error)

	// Clear removes every value of the session.
	Clear(ctx context.Context, sessionID string) error

	// Close releases resources.
	Close() error
}

// entryKey is the flat key used by stores that keep a single namespace.
func entryKey(sessionID string, key Key) string {
	return sessionID + "_" + string(key)
}
