package audit

import (
	"context"

	"github.com/nulzo/model-registry/internal/store"
	"github.com/nulzo/model-registry/internal/store/model"
)

const maxRecent = 500

type Service interface {
	Recent(ctx context.Context, limit int) ([]model.AuditEvent, error)
	History(ctx context.Context, targetID string) ([]model.AuditEvent, error)
}

type service struct {
	repo store.Repository
}

func NewService(repo store.Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) Recent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxRecent {
		limit = maxRecent
	}
	return s.repo.Audit().Recent(ctx, limit)
}

func (s *service) History(ctx context.Context, targetID string) ([]model.AuditEvent, error) {
	return s.repo.Audit().ListByTarget(ctx, targetID)
}
