package pipeline

import (
	"context"
	"fmt"

	"storefront/internal/caching"
	"storefront/internal/metrics"

	"go.uber.org/zap"
)

// Invalidator drops every cached catalog snapshot: the shared cache entries
// and each live session's memoized facets.
type Invalidator struct {
	cache    caching.CacheService
	registry *Registry
	logger   *zap.Logger
}

// NewInvalidator accepts a nil registry when sessions are disabled.
func NewInvalidator(cache caching.CacheService, registry *Registry, logger *zap.Logger) *Invalidator {
	return &Invalidator{cache: cache, registry: registry, logger: logger}
}

// Invalidate records source ("admin", "amqp") in the invalidation metric.
func (i *Invalidator) Invalidate(ctx context.Context, source string) error {
	if i.registry != nil {
		i.registry.ForgetAll()
	}
	if err := i.cache.InvalidateCatalog(ctx); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	metrics.CacheInvalidations.WithLabelValues(source).Inc()
	i.logger.Info("catalog snapshot invalidated", zap.String("source", source))
	return nil
}
