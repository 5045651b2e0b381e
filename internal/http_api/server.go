package http_api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/internal/reactdrop"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 10 * time.Second
)

// Reactdrops is the part of the reactdrop manager the API drives.
type Reactdrops interface {
	Start(ctx context.Context, req *reactdrop.Request) (*reactdrop.SessionInfo, error)
	Cancel(ctx context.Context, id string) error
	List(ctx context.Context) ([]*reactdrop.SessionInfo, error)
}

// HTTPServer is the internal API used by the command front-end and the deposit watcher.
type HTTPServer struct {
	logger *logger.Logger

	router *gin.Engine
	port   int
	server *http.Server

	tipbot     models.TipBotI
	reactdrops Reactdrops
}

// authMiddleware requires "Authorization: Bearer <token>" when a token is configured.
func authMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		given := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized",
			})
			return
		}
		c.Next()
	}
}

func NewHTTPServer(tipbot models.TipBotI, reactdrops Reactdrops, port int, token string, logger *logger.Logger) *HTTPServer {
	router := gin.Default()

	server := &HTTPServer{
		router:     router,
		port:       port,
		tipbot:     tipbot,
		reactdrops: reactdrops,
		logger:     logger,
		server: &http.Server{
			Addr:    fmt.Sprintf("0.0.0.0:%v", port),
			Handler: router,
		},
	}

	server.routes(authMiddleware(token))

	return server
}

// Start starts the HTTP server
func (s *HTTPServer) Start() {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Fatal("Failed to start the HTTP server", "error", err)
	}
}

// Shutdown gracefully shuts down the HTTP server. It is safe to call before Start.
func (s *HTTPServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}
