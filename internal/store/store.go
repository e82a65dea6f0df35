package store

import (
	"context"

	"github.com/nulzo/model-registry/internal/store/model"
)

type contextKey string

const (
	ContextKeyUser      contextKey = "user"
	ContextKeyClientIP  contextKey = "client_ip"
	ContextKeyRequestID contextKey = "request_id"
)

// Repository is the main contract for the data layer.
type Repository interface {
	Audit() AuditRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type AuditRepository interface {
	// Log records an audit event.
	Log(ctx context.Context, event *model.AuditEvent) error
	// Recent returns the newest events first, at most limit of them.
	Recent(ctx context.Context, limit int) ([]model.AuditEvent, error)
	// ListByTarget returns the history of a single registration, oldest first.
	ListByTarget(ctx context.Context, targetID string) ([]model.AuditEvent, error)
}

// UserFromContext returns the opaque identity attached by the identity middleware.
func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUser).(string); ok {
		return v
	}
	return ""
}

// ClientIPFromContext returns the caller address attached by the identity middleware.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return v
	}
	return ""
}
