package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/store/cache"
	"go.uber.org/zap"
)

// MaxTTL bounds how long a catalog snapshot may be served from cache.
const MaxTTL = time.Hour

const cacheKey = "catalog:providers"

// Source fetches the raw provider groupings from the inventory service.
type Source interface {
	ListProviderGroups(ctx context.Context) ([]Group, error)
}

// Service serves the normalized provider catalog, caching it for a bounded interval.
type Service struct {
	source Source
	cache  cache.CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewService clamps ttl to (0, MaxTTL]. A nil cache disables caching.
func NewService(source Source, c cache.CacheService, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 || ttl > MaxTTL {
		ttl = MaxTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// TTL returns the effective cache interval.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Get returns the cached catalog or fetches and normalizes a fresh one.
func (s *Service) Get(ctx context.Context) (registry.Catalog, error) {
	if s.cache != nil {
		var cached registry.Catalog
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Catalog cache read failed", zap.Error(err))
		}
	}

	groups, err := s.source.ListProviderGroups(ctx)
	if err != nil {
		return nil, err
	}

	normalized, dropped := Normalize(groups, s.logger)
	if len(dropped) > 0 {
		s.logger.Warn("Catalog contained unknown providers", zap.Strings("dropped", dropped))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, normalized, s.ttl); err != nil {
			s.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}

	return normalized, nil
}

// Invalidate forces the next Get to hit the inventory service.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cacheKey)
}
