package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/store"
	"github.com/nulzo/model-registry/pkg/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// healthPaths are polled by orchestrators and logged at debug when they succeed.
var healthPaths = map[string]bool{"/health": true, "/ready": true}

// Logger writes one line per request. It runs before the identity middleware, so the
// actor is read from the request context after the handler chain returns.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.EscapedPath()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("ip", c.ClientIP()),
		}
		if id := c.GetString("request_id"); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if user := store.UserFromContext(c.Request.Context()); user != "" {
			fields = append(fields, zap.String("user", user))
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("registration_id", id))
		}
		if last := c.Errors.Last(); last != nil {
			var problem *api.Problem
			if errors.As(last.Err, &problem) && problem.Type != "" {
				fields = append(fields, zap.String("problem", problem.Type))
			} else {
				fields = append(fields, zap.String("error", last.Error()))
			}
		}

		logger.Log(requestLevel(status, route), "Request handled", fields...)
	}
}

func requestLevel(status int, route string) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	case healthPaths[route]:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
