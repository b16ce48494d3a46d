// Package main provides the entry point for the mcp-fabric server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/txn2/mcp-fabric/internal/server"
	"github.com/txn2/mcp-fabric/pkg/admin"
	"github.com/txn2/mcp-fabric/pkg/health"
	httpauth "github.com/txn2/mcp-fabric/pkg/http"
	"github.com/txn2/mcp-fabric/pkg/platform"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool
}

func parseFlags(args []string) (serverOptions, error) {
	opts := serverOptions{}
	fs := flag.NewFlagSet("mcp-fabric", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.transport, "transport", "", "Transport type: stdio, http (overrides config)")
	fs.StringVar(&opts.address, "address", "", "Listen address for the http transport (overrides config)")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing flags: %w", err)
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Printf("mcp-fabric version %s\n", mcpserver.Version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// stdout carries the stdio transport, so logs always go to stderr.
	logger := newLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	mcpServer, p, err := mcpserver.New(cfg, platform.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			logger.Warn("closing platform", "error", closeErr)
		}
	}()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}

	return startServer(ctx, mcpServer, p, logger)
}

// loadConfig reads the config file, or the defaults when none is given,
// and applies command line overrides.
func loadConfig(opts serverOptions) (*platform.Config, error) {
	var (
		cfg *platform.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = platform.LoadConfig(opts.configPath)
	} else {
		cfg, err = platform.ParseConfig(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.address != "" {
		cfg.Server.Address = opts.address
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging config. Unknown
// levels fall back to info.
func newLogger(cfg platform.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func startServer(ctx context.Context, mcpServer *mcp.Server, p *platform.Platform, logger *slog.Logger) error {
	cfg := p.Config().Server
	switch cfg.Transport {
	case platform.TransportStdio:
		logger.Info("serving MCP over stdio", "name", cfg.Name, "version", cfg.Version)
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serving stdio: %w", err)
		}
		return nil
	case platform.TransportHTTP:
		ln, err := net.Listen("tcp", cfg.Address)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.Address, err)
		}
		handler, checker := newHTTPHandler(mcpServer, p)
		return serveHTTP(ctx, ln, handler, checker, cfg, logger)
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Transport)
	}
}

// newHTTPHandler routes health checks, the admin API and the streamable MCP
// endpoint. Only the MCP endpoint reads the caller's platform token.
func newHTTPHandler(mcpServer *mcp.Server, p *platform.Platform) (http.Handler, *health.Checker) {
	checker := health.NewChecker()
	for name, dep := range p.HealthDependencies() {
		checker.AddDependency(name, dep)
	}

	streamHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpServer }, nil)

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", checker.LivenessHandler())
	mux.Handle("GET /readyz", checker.ReadinessHandler())
	if adminHandler := p.AdminHandler(); adminHandler != nil {
		mux.Handle(admin.PathPrefix, adminHandler)
	}
	mux.Handle("/", httpauth.TokenMiddleware(p.Config().Server.RequireToken)(streamHandler))
	return corsMiddleware(mux), checker
}

// serveHTTP serves handler on ln until ctx is done, then drains in-flight
// requests for up to the configured shutdown timeout.
func serveHTTP(ctx context.Context, ln net.Listener, handler http.Handler, checker *health.Checker, cfg platform.ServerConfig, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS.Enabled {
			errCh <- srv.ServeTLS(ln, cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()
	checker.SetReady()
	logger.Info("serving MCP over http", "address", ln.Addr().String(), "tls", cfg.TLS.Enabled)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	checker.SetDraining()
	logger.Info("shutting down http server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// corsMiddleware lets browser-based MCP clients reach the endpoint.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()
		if origin == "" {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Fabric-Token, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
		h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
