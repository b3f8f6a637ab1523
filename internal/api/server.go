// Package api serves the quantizer over HTTP.
package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tinyq/internal/logger"
	"github.com/samcharles93/tinyq/internal/version"
	"github.com/samcharles93/tinyq/pkg/tensor"
)

// Server holds the dependencies shared by all handlers. Every request
// allocates its tensors from the shared Allocator, so its budget bounds the
// memory held by in-flight requests.
type Server struct {
	alloc *tensor.Allocator
	log   logger.Logger
	newID func() string
}

// NewServer creates a Server. A nil allocator means no budget and a nil
// logger discards output.
func NewServer(alloc *tensor.Allocator, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		alloc: alloc,
		log:   log,
		newID: newRequestID,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/health", s.handleHealth)
	e.POST("/v1/quantize", s.handleQuantize)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Resolve(),
	})
}
