package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/audit"
	"github.com/nulzo/model-registry/internal/config"
	"github.com/nulzo/model-registry/internal/gateway"
	"github.com/nulzo/model-registry/internal/server/middleware"
	v1 "github.com/nulzo/model-registry/internal/server/v1"
	"github.com/nulzo/model-registry/internal/server/validator"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  *zap.Logger
	service gateway.Service
	audit   audit.Service
	checks  map[string]v1.Check
	limiter *middleware.RateLimiter
}

// Option customizes a Server.
type Option func(*Server)

// WithAudit exposes the audit trail under /api/audit.
func WithAudit(svc audit.Service) Option {
	return func(s *Server) {
		s.audit = svc
	}
}

// WithReadinessCheck adds a dependency to /ready.
func WithReadinessCheck(name string, check v1.Check) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

func New(cfg *config.Config, logger *zap.Logger, service gateway.Service, opts ...Option) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.InitValidator()

	engine := gin.New()
	// registration ids are opaque and may contain an escaped "/"
	engine.UseRawPath = true
	engine.UnescapePathValues = true

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router:  engine,
		service: service,
		logger:  logger,
		config:  cfg,
		checks:  map[string]v1.Check{},
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SweepLimiters periodically forgets idle rate limit clients until ctx is done.
func (s *Server) SweepLimiters(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Sweep(every); n > 0 {
				s.logger.Debug("Swept idle rate limit clients", zap.Int("count", n))
			}
		}
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderUser, middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}
