package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := gin.New()
	r.UseRawPath = true
	r.Use(RequestID(), Logger(logger), ErrorHandler(logger))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	g := r.Group("/api", Identity())
	g.DELETE("/models/:id", func(c *gin.Context) {
		if c.Param("id") == "broken" {
			_ = c.Error(api.UnreachableError("the model inventory could not be reached", errors.New("dial tcp: refused")))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r, logs
}

func TestLogger_RecordsActorAndRegistration(t *testing.T) {
	r, logs := newLoggedEngine(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/models/team%2Fa", nil)
	req.Header.Set(HeaderUser, "ops@example.com")
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	entries := logs.FilterMessage("Request handled").All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zapcore.InfoLevel, e.Level)

	fields := e.ContextMap()
	assert.Equal(t, "/api/models/:id", fields["route"])
	assert.Equal(t, "ops@example.com", fields["user"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "team/a", fields["registration_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestLogger_ProblemAndLevels(t *testing.T) {
	r, logs := newLoggedEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/models/broken", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	entries := logs.FilterMessage("Request handled").All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "urn:model-registry:problem:unreachable", entries[0].ContextMap()["problem"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "unmatched", entries[2].ContextMap()["route"])
}
