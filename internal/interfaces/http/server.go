// Package http exposes the approval workflow over a JSON API.
// Handlers translate requests into application service calls and map domain
// errors onto status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/groupware-approval/internal/application/service"
	"github.com/garyjia/groupware-approval/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Mode            string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mode:            gin.ReleaseMode,
	}
}

// Services are the application entry points the API exposes
type Services struct {
	Documents service.DocumentService
	Engine    workflow.ApprovalEngine
	Leave     service.LeaveService
	// Health reports whether backing stores are reachable; nil means always healthy
	Health func(ctx context.Context) error
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	auth       AuthConfig
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, auth AuthConfig, services Services, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		auth:     auth,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1")
	api.Use(authMiddleware(s.auth, s.logger))
	{
		docs := api.Group("/documents")
		docs.POST("", h.CreateDraft)
		docs.GET("", h.ListMyDocuments)
		docs.GET("/:id", h.GetDocument)
		docs.DELETE("/:id", h.DeleteDocument)
		docs.PUT("/:id/lines", h.ReplaceLines)
		docs.POST("/:id/submit", h.Submit)
		docs.POST("/:id/cancel", h.Cancel)
		docs.POST("/:id/lines/:lineId/decision", h.Decide)
		docs.POST("/:id/lines/:lineId/delegation", h.Delegate)
		docs.GET("/:id/history", h.History)
		docs.GET("/:id/export", h.Export)

		approvals := api.Group("/approvals")
		approvals.GET("/pending", h.PendingApprovals)
		approvals.GET("/pending/count", h.PendingCount)

		leave := api.Group("/leave")
		leave.GET("/balance", h.LeaveBalance)
		leave.GET("/entries", h.LeaveEntries)
		leave.POST("/grants", requireRole(s.auth.AdminRole), h.GrantLeave)
		leave.GET("/report", requireRole(s.auth.AdminRole), h.LeaveReport)
	}
}

// Start serves until ctx is canceled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
