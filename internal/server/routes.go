package server

import (
	"github.com/gin-contrib/cors"
	"github.com/nulzo/model-registry/internal/server/middleware"
	v1 "github.com/nulzo/model-registry/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(cors.New(corsConfig(s.config.Server.AllowedOrigins)))
	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing(s.config.Tracing.ServiceName))
	}
	s.router.Use(middleware.ErrorHandler(s.logger))

	// Health Check (Public)
	healthHandler := v1.NewHealthHandler(s.checks)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/ready", healthHandler.Ready)

	api := s.router.Group("/api")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	api.Use(s.limiter.Middleware())
	api.Use(middleware.Identity())
	{
		models := v1.NewModelHandler(s.service)
		api.GET("/models", models.ListModels)
		api.POST("/models", models.CreateModel)
		api.DELETE("/models/:id", models.DeleteModel)
		api.GET("/providers", models.ListProviders)

		if s.audit != nil {
			auditHandler := v1.NewAuditHandler(s.audit)
			api.GET("/audit", auditHandler.ListEvents)
		}
	}
}
