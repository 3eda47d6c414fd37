package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agentpark/internal/instrumentation"
	"github.com/teemow/agentpark/internal/logging"
	"github.com/teemow/agentpark/internal/server"
	"github.com/teemow/agentpark/internal/tools/briefing_tools"
)

// Transport types
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// MCPEndpointPath is where the HTTP transport serves MCP requests.
const MCPEndpointPath = "/mcp"

// ServeOptions holds the serve command flags.
type ServeOptions struct {
	Transport string
	Addr      string

	// MCPEndpoint also serves the MCP tools over streamable HTTP at /mcp.
	MCPEndpoint bool

	MetricsEnabled bool
	MetricsAddr    string
}

func newServeCmd() *cobra.Command {
	var opts ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the morning briefing",
		Long: `Serve the morning briefing.

Supports two transport types:
  - http: JSON endpoints (default)
      GET /                  service banner
      GET /morning-briefing  {"summary": "..."}
      GET /healthz, /readyz, /healthz/detailed
      POST /mcp              MCP tools over streamable HTTP (disable with --mcp-endpoint=false)
  - stdio: MCP server on standard input/output, for voice assistants

MCP tools: morning_briefing, weather_summary, top_news.

The server never prompts for Google consent; run "agentpark auth" first.

Metrics:
  --metrics starts a Prometheus endpoint on --metrics-addr (or METRICS_ENABLED=true
  and METRICS_ADDR). Exporters are chosen with METRICS_EXPORTER and TRACING_EXPORTER.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics") && os.Getenv("METRICS_ENABLED") == "true" {
				opts.MetricsEnabled = true
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.MetricsAddr = addr
				}
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", TransportHTTP, "Transport type: http or stdio")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address (default: config addr, :8000)")
	cmd.Flags().BoolVar(&opts.MCPEndpoint, "mcp-endpoint", true, "Serve MCP tools at /mcp on the HTTP transport")
	cmd.Flags().BoolVar(&opts.MetricsEnabled, "metrics", false, "Serve Prometheus metrics on a dedicated port")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics listen address")

	return cmd
}

func runServe(ctx context.Context, opts ServeOptions) (err error) {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.Transport != TransportHTTP && opts.Transport != TransportStdio {
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.Transport, TransportHTTP, TransportStdio)
	}

	cfg, logger, err := loadConfig(configPath, debugMode, os.Stderr)
	if err != nil {
		return err
	}
	if opts.Addr == "" {
		opts.Addr = cfg.Addr
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if opts.Transport == TransportStdio {
		// stdout carries the MCP protocol.
		if instrConfig.MetricsExporter == instrumentation.ExporterStdout {
			instrConfig.MetricsExporter = instrumentation.ExporterPrometheus
		}
		if instrConfig.TracingExporter == instrumentation.ExporterStdout {
			instrConfig.TracingExporter = instrumentation.ExporterNone
		}
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		// shutdownCtx is already cancelled on a signal.
		flushCtx, flushCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer flushCancel()
		err = errors.Join(err, provider.Shutdown(flushCtx))
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	composer, err := newComposer(shutdownCtx, cfg, composerDeps{logger: logger, metrics: metrics})
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(shutdownCtx, composer,
		server.WithMetrics(metrics),
		server.WithLogger(logger),
		server.WithSourceReport(sourceReport(cfg, logger)))
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		err = errors.Join(err, serverContext.Shutdown())
	}()

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}

	switch opts.Transport {
	case TransportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runHTTPServer(shutdownCtx, serverContext, mcpSrv, provider, opts, logger)
	}
}

// newMCPServer creates the MCP server with the briefing tools registered.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("agentpark", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := briefing_tools.RegisterBriefingTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register briefing tools: %w", err)
	}
	return mcpSrv, nil
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

func runHTTPServer(ctx context.Context, sc *server.ServerContext, mcpSrv *mcpserver.MCPServer, provider *instrumentation.Provider, opts ServeOptions, logger *slog.Logger) error {
	errCh := make(chan error, 2)

	var metricsServer *server.MetricsServer
	if opts.MetricsEnabled {
		if !provider.Enabled() || !provider.HasPrometheusExporter() {
			logger.Warn("metrics server disabled: requires instrumentation with the prometheus exporter")
		} else {
			var err error
			metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
				Addr:                    opts.MetricsAddr,
				InstrumentationProvider: provider,
				Logger:                  logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create metrics server: %w", err)
			}
			if err := metricsServer.Listen(); err != nil {
				return fmt.Errorf("metrics server failed to start: %w", err)
			}
			go func() {
				if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("metrics server: %w", err)
				}
			}()
		}
	}

	httpServer := server.NewHTTPServer(sc, opts.Addr, version)
	if opts.MCPEndpoint {
		httpServer.Mount(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath(MCPEndpointPath),
			mcpserver.WithDisableStreaming(true),
		))
	}
	if err := httpServer.Listen(); err != nil {
		return errors.Join(err, shutdownServers(httpServer, metricsServer))
	}
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("briefing server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping servers")
	case serveErr = <-errCh:
		logger.Error("server failed", logging.Err(serveErr))
	}

	return errors.Join(serveErr, shutdownServers(httpServer, metricsServer))
}

// shutdownServers drains the briefing server and then the metrics server.
func shutdownServers(httpServer *server.HTTPServer, metricsServer *server.MetricsServer) error {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("briefing server shutdown: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
