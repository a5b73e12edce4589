// Package server exposes converted tools over the Model Context Protocol.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/nirholas/specbridge/internal/config"
	"github.com/nirholas/specbridge/internal/converter"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"github.com/nirholas/specbridge/internal/requester"
	"github.com/nirholas/specbridge/internal/server/handler"
	"github.com/nirholas/specbridge/internal/server/tool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server converts the configured spec at startup and serves the resulting
// tools. It supports SSE, HTTP, and STDIO operation modes.
type Server struct {
	config    *config.Config
	converter *converter.Converter
	adjuster  *converter.Adjuster
	mcp       *mcpserver.MCPServer
	requester *requester.HTTPRequester
	handler   *handler.Handler
	tool      *tool.Handler
}

// NewServer creates a server instance, parses the configured spec file and
// registers one MCP tool per converted tool definition.
func NewServer(cfg *config.Config, conv *converter.Converter, adj *converter.Adjuster, req *requester.HTTPRequester) *Server {
	if cfg == nil {
		logger.Fatal("Config cannot be nil")
	}
	if conv == nil {
		logger.Fatal("Converter cannot be nil")
	}
	if req == nil {
		logger.Fatal("Requester cannot be nil")
	}

	mcpServer := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
	)

	srv := &Server{
		config:    cfg,
		converter: conv,
		adjuster:  adj,
		mcp:       mcpServer,
		requester: req,
	}

	srv.handler = handler.NewHandler(cfg.Server.Name, cfg.Server.Version)
	srv.tool = tool.NewHandler()

	if err := srv.setupTools(); err != nil {
		logger.Fatal("Failed to setup tools", zap.Error(err))
	}

	return srv
}

func (s *Server) setupTools() error {
	if err := s.adjuster.Load(s.config.AdjustmentsFile); err != nil {
		return fmt.Errorf("failed to load adjustments: %w", err)
	}

	input, err := os.ReadFile(s.config.SpecFile)
	if err != nil {
		return fmt.Errorf("failed to read spec file: %w", err)
	}

	result, err := s.converter.ParseSpec(input, converter.OptionsFromConfig(s.config.Convert))
	if err != nil {
		return fmt.Errorf("failed to convert spec: %w", err)
	}
	for _, warning := range result.Warnings {
		logger.Warn("Conversion warning", zap.String("message", warning.Message))
	}

	for _, def := range result.Tools {
		executor, err := s.requester.BuildToolExecutor(def)
		if err != nil {
			logger.Error("Failed to build tool executor", zap.String("tool", def.Name), zap.Error(err))
			continue
		}

		mcpTool, err := toMCPTool(def)
		if err != nil {
			logger.Error("Failed to build tool schema", zap.String("tool", def.Name), zap.Error(err))
			continue
		}
		logger.Info("Registering tool", zap.String("name", def.Name))
		s.mcp.AddTool(mcpTool, s.tool.CreateHandler(def.Name, executor))
	}
	return nil
}

// toMCPTool carries the tool's flattened input schema over as a raw JSON
// schema so nested bodies survive unchanged.
func toMCPTool(def ir.ToolDefinition) (mcp.Tool, error) {
	schema, err := json.Marshal(def.InputSchema.ToMap())
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	return mcp.NewToolWithRawSchema(def.Name, def.Description, schema), nil
}

func (s *Server) ServeSSE(ctx context.Context) error {
	logger.Info("Starting SSE server")

	sseServer := mcpserver.NewSSEServer(
		s.mcp,
		mcpserver.WithBaseURL(fmt.Sprintf("http://%s:%d", s.config.Server.Host, s.config.Server.Port)),
	)

	return s.serveHTTP(ctx, sseServer, "SSE")
}

func (s *Server) ServeHTTP(ctx context.Context) error {
	logger.Info("Starting HTTP server")
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	return s.serveHTTP(ctx, httpServer, "HTTP")
}

func (s *Server) serveHTTP(ctx context.Context, mcpHandler http.Handler, mode string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: s.handler.CreateHTTPHandler(mcpHandler),
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("mode", mode),
			zap.String("address", addr),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server",
			zap.String("mode", mode),
			zap.Duration("timeout", shutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

func (s *Server) ServeSTDIO(ctx context.Context) error {
	logger.Info("Starting STDIO server")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// Start starts the server in the configured mode (SSE, HTTP, or STDIO).
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting server",
		zap.String("mode", string(s.config.Server.Mode)),
		zap.String("version", s.config.Server.Version),
	)

	switch s.config.Server.Mode {
	case config.ServerModeSSE:
		return s.ServeSSE(ctx)
	case config.ServerModeHTTP:
		return s.ServeHTTP(ctx)
	case config.ServerModeSTDIO:
		return s.ServeSTDIO(ctx)
	default:
		return fmt.Errorf("unsupported server mode: %s", s.config.Server.Mode)
	}
}

// Module provides the MCP server dependencies
var Module = fx.Module("mcp_server",
	fx.Provide(
		NewServer,
	),
)
