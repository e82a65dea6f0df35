package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nulzo/model-registry/internal/store"
)

const (
	HeaderUser      = "X-User"
	HeaderRequestID = "X-Request-ID"
)

// Identity copies the caller identity and address into the request context so audit
// events can name the actor.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if user := strings.TrimSpace(c.GetHeader(HeaderUser)); user != "" {
			ctx = context.WithValue(ctx, store.ContextKeyUser, user)
		}
		ctx = context.WithValue(ctx, store.ContextKeyClientIP, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestID propagates the caller's request id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), store.ContextKeyRequestID, id))
		c.Next()
	}
}
