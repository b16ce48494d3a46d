package platform

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-fabric/pkg/admin"
	"github.com/txn2/mcp-fabric/pkg/audit"
	auditpostgres "github.com/txn2/mcp-fabric/pkg/audit/postgres"
	"github.com/txn2/mcp-fabric/pkg/auth"
	"github.com/txn2/mcp-fabric/pkg/database/migrate"
	"github.com/txn2/mcp-fabric/pkg/delta"
	"github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/health"
	"github.com/txn2/mcp-fabric/pkg/middleware"
	"github.com/txn2/mcp-fabric/pkg/registry"
	"github.com/txn2/mcp-fabric/pkg/session"
	sessionpostgres "github.com/txn2/mcp-fabric/pkg/session/postgres"
	sessionredis "github.com/txn2/mcp-fabric/pkg/session/redis"
	fabrickit "github.com/txn2/mcp-fabric/pkg/toolkits/fabric"
)

// defaultToolkitName names the single fabric toolkit instance.
const defaultToolkitName = "default"

// connectTimeout bounds database and Redis connection checks in New.
const connectTimeout = 10 * time.Second

// Platform is the main platform facade.
type Platform struct {
	config *Config
	logger *slog.Logger

	// Core components
	mcpServer *mcp.Server
	lifecycle *Lifecycle

	// Database, nil when no DSN is configured
	db     *sql.DB
	ownsDB bool

	// API access
	credential fabric.Credential
	client     *fabric.Client
	schemas    fabrickit.SchemaReader

	// Session context and audit
	sessionStore session.Store
	auditLogger  audit.Logger

	toolkitRegistry *registry.Registry
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}

	p := &Platform{
		config:    options.Config,
		logger:    options.Logger,
		lifecycle: NewLifecycle(),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if err := p.initializeComponents(options); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("initializing components: %w", err)
	}

	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initDatabase(opts); err != nil {
		return err
	}
	if err := p.initClient(opts); err != nil {
		return err
	}
	if err := p.initSessionStore(opts); err != nil {
		return err
	}
	p.initAudit(opts)
	if err := p.initToolkits(); err != nil {
		return err
	}
	p.finalizeSetup()
	return nil
}

// initDatabase opens the database and applies migrations when a DSN is
// configured.
func (p *Platform) initDatabase(opts *Options) error {
	if opts.DB != nil {
		p.db = opts.DB
		return nil
	}
	if p.config.Database.DSN == "" {
		return nil
	}

	db, err := sql.Open("postgres", p.config.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	p.db = db
	p.ownsDB = true
	db.SetMaxOpenConns(p.config.Database.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := migrate.Run(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	p.logger.Info("database ready")
	return nil
}

// initClient builds the credential, the API client and the schema reader.
func (p *Platform) initClient(opts *Options) error {
	p.credential = opts.Credential
	if p.credential == nil {
		cred, err := auth.New(p.config.Fabric.Credential)
		if err != nil {
			return fmt.Errorf("creating credential: %w", err)
		}
		p.credential = cred
	}

	clientOpts := []fabric.Option{fabric.WithLogger(p.logger)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, fabric.WithHTTPClient(opts.HTTPClient))
	}
	client, err := fabric.New(p.credential, p.config.Fabric.API, clientOpts...)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	p.client = client

	switch {
	case opts.SchemaReader != nil:
		p.schemas = opts.SchemaReader
	case !p.config.Fabric.Delta.Disabled:
		readerOpts := []delta.Option{delta.WithLogger(p.logger)}
		if opts.HTTPClient != nil {
			readerOpts = append(readerOpts, delta.WithHTTPClient(opts.HTTPClient))
		}
		if p.config.Fabric.Delta.MaxCommits > 0 {
			readerOpts = append(readerOpts, delta.WithMaxCommits(p.config.Fabric.Delta.MaxCommits))
		}
		if p.config.Fabric.Delta.MaxListPages > 0 {
			readerOpts = append(readerOpts, delta.WithMaxListPages(p.config.Fabric.Delta.MaxListPages))
		}
		reader, err := delta.NewReader(p.credential, readerOpts...)
		if err != nil {
			return fmt.Errorf("creating schema reader: %w", err)
		}
		p.schemas = reader
	}
	return nil
}

// initSessionStore creates the session context store.
func (p *Platform) initSessionStore(opts *Options) error {
	if opts.SessionStore != nil {
		p.sessionStore = opts.SessionStore
		return nil
	}

	cfg := p.config.Session
	switch cfg.Store {
	case SessionStoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		store, err := sessionredis.New(ctx, cfg.Redis, cfg.TTL)
		if err != nil {
			return fmt.Errorf("creating redis session store: %w", err)
		}
		p.sessionStore = store
	case SessionStorePostgres:
		if p.db == nil {
			return errors.New("postgres session store requires a database")
		}
		store := sessionpostgres.New(p.db, sessionpostgres.Config{TTL: cfg.TTL})
		p.lifecycle.Append(Hook{
			Name: "session cleanup",
			Start: func(context.Context) error {
				store.StartCleanupRoutine(cfg.CleanupInterval)
				return nil
			},
		})
		p.sessionStore = store
	default:
		p.sessionStore = session.NewMemoryStore(cfg.TTL, cfg.MaxEntries)
	}
	p.logger.Debug("session store ready", "store", cfg.Store, "ttl", cfg.TTL)
	return nil
}

// initAudit creates the audit logger. Events go to PostgreSQL when a
// database is available and to the process log otherwise.
func (p *Platform) initAudit(opts *Options) {
	if opts.AuditLogger != nil {
		p.auditLogger = opts.AuditLogger
		return
	}
	if !p.config.Audit.Enabled {
		return
	}
	if p.db == nil {
		p.auditLogger = audit.NewSlogLogger(p.logger)
		return
	}

	store := auditpostgres.New(p.db, auditpostgres.Config{RetentionDays: p.config.Audit.RetentionDays})
	p.lifecycle.Append(Hook{
		Name: "audit cleanup",
		Start: func(context.Context) error {
			store.StartCleanupRoutine(0)
			return nil
		},
	})
	p.auditLogger = store
}

// initToolkits creates the fabric toolkit and registers it.
func (p *Platform) initToolkits() error {
	toolkit, err := fabrickit.New(defaultToolkitName, p.config.Fabric.Tools, p.client, p.schemas, p.sessionStore)
	if err != nil {
		return fmt.Errorf("creating fabric toolkit: %w", err)
	}

	p.toolkitRegistry = registry.NewRegistry()
	if err := p.toolkitRegistry.Register(toolkit); err != nil {
		return fmt.Errorf("registering fabric toolkit: %w", err)
	}
	return nil
}

// finalizeSetup creates the MCP server and registers tools, prompts and
// resources.
func (p *Platform) finalizeSetup() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: cmp.Or(p.config.Server.Version, defaultServerVersion),
	}, &mcp.ServerOptions{
		Instructions: p.config.Server.Instructions,
	})

	p.mcpServer.AddReceivingMiddleware(p.middlewares()...)

	p.toolkitRegistry.RegisterAllTools(p.mcpServer)
	p.registerPlatformPrompts()
	p.registerResourceTemplates()
	p.registerCustomResources()
}

// middlewares returns the receiving middleware, outermost first. Audit and
// logging read the ToolCallContext the tool call middleware fills in.
func (p *Platform) middlewares() []mcp.Middleware {
	var mws []mcp.Middleware
	if p.auditLogger != nil {
		mws = append(mws, middleware.MCPAuditMiddleware(p.auditLogger))
	}
	mws = append(mws,
		middleware.MCPLoggingMiddleware(p.config.Logging.LoggingConfig, p.logger),
		middleware.MCPToolCallMiddleware(p.toolkitRegistry.GetToolkitForTool, p.config.Server.Transport),
	)
	return mws
}

// Start starts background routines.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop stops background routines.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Client returns the API client.
func (p *Platform) Client() *fabric.Client {
	return p.client
}

// SessionStore returns the session context store.
func (p *Platform) SessionStore() session.Store {
	return p.sessionStore
}

// AuditLogger returns the audit logger, or nil when auditing is disabled.
func (p *Platform) AuditLogger() audit.Logger {
	return p.auditLogger
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.toolkitRegistry
}

// AdminHandler returns the admin REST API, or nil when it is disabled.
// Audit routes are served only when events are stored in PostgreSQL.
func (p *Platform) AdminHandler() http.Handler {
	if !p.config.Admin.Enabled {
		return nil
	}
	deps := admin.Deps{
		Name:            p.config.Server.Name,
		Version:         cmp.Or(p.config.Server.Version, defaultServerVersion),
		Transport:       p.config.Server.Transport,
		SessionStore:    p.config.Session.Store,
		ToolkitRegistry: p.toolkitRegistry,
		ResolveCache:    p.client.Cache(),
	}
	if q, ok := p.auditLogger.(admin.AuditQuerier); ok {
		deps.AuditQuerier = q
	}
	return admin.NewHandler(deps, admin.RequireAdmin(admin.NewAPIKeyAuthenticator(p.config.Admin.APIKeys)))
}

// HealthDependencies returns the dependency checks readiness runs: the database,
// a Redis session store and token acquisition. Passthrough credentials
// have no token outside a request and are not checked.
func (p *Platform) HealthDependencies() map[string]health.Dependency {
	deps := make(map[string]health.Dependency)
	if p.db != nil {
		deps["database"] = p.db.PingContext
	}
	if pinger, ok := p.sessionStore.(interface{ Ping(context.Context) error }); ok {
		deps["session_store"] = pinger.Ping
	}
	if p.config.Fabric.Credential.Type != auth.TypePassthrough {
		scope := cmp.Or(p.config.Fabric.API.Scope, fabric.DefaultScope)
		deps["credential"] = func(ctx context.Context) error {
			_, err := p.credential.GetToken(ctx, scope)
			return err
		}
	}
	return deps
}

// closeResource closes a resource and appends any error.
func closeResource(errs *[]error, closer Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		*errs = append(*errs, err)
	}
}

// Close closes all platform resources. The toolkit registry closes the
// session store.
func (p *Platform) Close() error {
	var errs []error

	if err := p.lifecycle.Stop(context.Background()); err != nil {
		errs = append(errs, err)
	}

	switch {
	case p.toolkitRegistry != nil:
		closeResource(&errs, p.toolkitRegistry)
	case p.sessionStore != nil:
		closeResource(&errs, p.sessionStore)
	}
	if p.auditLogger != nil {
		closeResource(&errs, p.auditLogger)
	}
	if p.ownsDB && p.db != nil {
		closeResource(&errs, p.db)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing platform: %w", errors.Join(errs...))
	}
	return nil
}
