// Package server provides the MCP tool surface and its transports.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/xmcrm/wealth-mcp/internal/config"
	"github.com/xmcrm/wealth-mcp/internal/database"
)

// Config holds server configuration
type Config struct {
	Log    zerolog.Logger
	Cfg    *config.Config
	BankDB *database.DB
	MCP    *mcpserver.MCPServer
}

// Server hosts the MCP server on the selected transport. The HTTP-based
// transports (SSE, streamable HTTP) run behind a chi router that also
// serves health and status endpoints; the stdio transport bypasses HTTP
// entirely.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	mcp            *mcpserver.MCPServer
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers
}

// New creates a new server for the configured transport
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		mcp:            cfg.MCP,
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Cfg,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.BankDB),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Cfg.Host, cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.systemHandlers.HandleHealth)
	s.router.Get("/api/status", s.systemHandlers.HandleSystemStatus)

	switch s.cfg.Transport {
	case config.TransportSSE:
		sse := mcpserver.NewSSEServer(s.mcp,
			mcpserver.WithSSEContextFunc(WithRequestHeaders),
		)
		s.router.Handle("/sse", sse.SSEHandler())
		s.router.Handle("/message", sse.MessageHandler())

	case config.TransportHTTP:
		streamable := mcpserver.NewStreamableHTTPServer(s.mcp,
			mcpserver.WithHTTPContextFunc(WithRequestHeaders),
		)
		s.router.Handle("/mcp", streamable)
	}
}

// Serve runs the server on the configured transport and blocks until the
// transport ends (stdio EOF or HTTP listener close).
func (s *Server) Serve() error {
	if s.cfg.Transport == config.TransportStdio {
		s.log.Info().Msg("Serving on stdio transport")
		return mcpserver.ServeStdio(s.mcp)
	}

	s.log.Info().
		Str("transport", s.cfg.Transport).
		Str("addr", s.server.Addr).
		Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server. No-op on stdio.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.Transport == config.TransportStdio {
		return nil
	}
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
