package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler is a custom error handling middleware that handles all errors returned by handlers
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *api.Problem
		if errors.As(err, &problem) {
			// if there is an internal log attached, log it
			if problem.Log != nil {
				logger.Warn("Request failed",
					zap.Int("status", problem.Status),
					zap.String("path", c.Request.URL.Path),
					zap.Error(problem.Log))
			}
			if problem.Instance == "" {
				problem.Instance = c.Request.URL.Path
			}

			// RFC 9457 dictates the json is at the root
			c.Header("Content-Type", "application/problem+json")
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		// at this point it's an unknown error, answer with a catch-all 500
		logger.Error("Unhandled error", zap.String("path", c.Request.URL.Path), zap.Error(err))

		c.Header("Content-Type", "application/problem+json")
		c.JSON(http.StatusInternalServerError, api.New(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
