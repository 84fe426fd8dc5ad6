package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/assistant"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/resources"
	"github.com/teemow/inboxagent/internal/scenario"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/assistant_tools"
	"github.com/teemow/inboxagent/internal/tools/email_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	transport  string
	httpAddr   string
	yolo       bool
	sessionTTL time.Duration
	metrics    MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server so an AI client can drive the
assistant: process emails with its own tool call proposals, inspect sessions
and answer review requests.

Sessions are kept in memory. Sessions idle for longer than --session-ttl are
dropped; open ones are abandoned first.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport with health and metrics endpoints

By default the server only registers the inspection tools. Use --yolo to
register the tools that process emails and apply review decisions.

Emails sent by write_email are logged and kept in memory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.metrics.Enabled && os.Getenv("METRICS_ENABLED") == "true" {
				opts.metrics.Enabled = true
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.metrics.Addr = addr
				}
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Register the tools that process emails and apply review decisions")
	cmd.Flags().DurationVar(&opts.sessionTTL, "session-ttl", server.DefaultSessionTTL, "Drop sessions idle for longer than this")
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", false, "Serve Prometheus metrics (for streamable-http transport)")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", ":9090", "Metrics server address")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the protocol in stdio mode, logs go to stderr
	configureLogging(slog.LevelInfo)
	stdio := opts.transport == "stdio"

	cfg, err := assistant.LoadConfig(configPath)
	if err != nil {
		return err
	}

	provider, err := newProvider(shutdownCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	aopts := assistant.Options{
		Outbox:  email_tools.NewLoggingOutbox(slog.Default()),
		Logger:  slog.Default(),
		Metrics: provider.Metrics(),
		Audit:   provider.Audit(),
	}
	if cfg.Preferences.File != "" {
		prefs, err := scenario.LoadPreferences(cfg.Preferences.File, cfg.Preferences.Limit)
		if err != nil {
			return err
		}
		aopts.Preferences = prefs
		defer func() {
			if err := scenario.SavePreferences(cfg.Preferences.File, prefs); err != nil {
				slog.Warn("failed to save preferences", "file", cfg.Preferences.File, "error", err)
			}
		}()
	}

	a, err := assistant.New(shutdownCtx, cfg, aopts)
	if err != nil {
		return err
	}

	sessions := server.NewSessionStore(opts.sessionTTL, func(s *agent.Session) {
		if err := a.Abandon(context.Background(), s, "session expired"); err != nil {
			slog.Warn("failed to abandon expired session", "session_id", s.ID, "error", err)
		}
	}, slog.Default())

	serverContext := server.NewServerContext(shutdownCtx, a, sessions)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Warn("error during server context shutdown", "error", err)
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(provider.Audit())
	}

	// Start metrics server if enabled and not in stdio mode
	if !stdio && opts.metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(opts.metrics, provider)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("inboxagent", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	// readOnly is the inverse of yolo
	readOnly := !opts.yolo
	if readOnly {
		slog.Info("starting server in READ-ONLY mode (use --yolo to process emails and apply review decisions)")
	} else {
		slog.Info("starting server with WRITE operations enabled (--yolo flag is set)")
	}

	if err := registerAll(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	switch opts.transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}
}

// newProvider reads the instrumentation settings from the environment and
// tags the telemetry resource with the assistant configuration.
func newProvider(ctx context.Context, cfg assistant.Config) (*instrumentation.Provider, error) {
	instrConfig, err := instrumentation.LoadConfig(nil)
	if err != nil {
		return nil, err
	}
	instrConfig = instrConfig.WithAttributes(cfg.TelemetryAttributes())
	instrConfig.ServiceVersion = version
	return instrumentation.NewProvider(ctx, instrConfig)
}

func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		log.Printf("Metrics server started on %s", metricsServer.ListenAddr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

// registerAll registers the MCP tools and resources.
func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Assistant tools",
			register: func() error {
				return assistant_tools.RegisterAssistantTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Assistant resources",
			register: func() error {
				return resources.RegisterAssistantResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions) error {
	httpServer := server.NewHTTPServer(mcpSrv, sc)

	fmt.Printf("Streamable HTTP server starting on %s\n", opts.httpAddr)
	fmt.Printf("  HTTP endpoint: %s\n", server.MCPEndpointPath)
	fmt.Printf("  Health endpoints: /healthz, /readyz, /healthz/detailed\n")
	if opts.metrics.Enabled {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", opts.metrics.Addr)
	}
	fmt.Printf("  Session TTL: %s\n", sc.Sessions().TTL())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.httpAddr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}
