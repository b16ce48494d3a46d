package platform

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/txn2/mcp-fabric/pkg/audit"
	"github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/session"
	fabrickit "github.com/txn2/mcp-fabric/pkg/toolkits/fabric"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// DB is the database connection (optional, opened from config if not provided).
	DB *sql.DB

	// Credential (optional, built from fabric.credential if not provided).
	Credential fabric.Credential

	// HTTPClient is used for API and storage requests (optional).
	HTTPClient *http.Client

	// SessionStore (optional, created from the session section if not provided).
	SessionStore session.Store

	// AuditLogger (optional, created from the audit section if not provided).
	AuditLogger audit.Logger

	// SchemaReader (optional, a Delta log reader if not provided).
	SchemaReader fabrickit.SchemaReader

	// Logger (optional, slog.Default if not provided).
	Logger *slog.Logger
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithCredential sets the credential used for API calls.
func WithCredential(cred fabric.Credential) Option {
	return func(o *Options) {
		o.Credential = cred
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = hc
	}
}

// WithSessionStore sets the session store.
func WithSessionStore(store session.Store) Option {
	return func(o *Options) {
		o.SessionStore = store
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(logger audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = logger
	}
}

// WithSchemaReader sets the Delta schema reader.
func WithSchemaReader(reader fabrickit.SchemaReader) Option {
	return func(o *Options) {
		o.SchemaReader = reader
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
