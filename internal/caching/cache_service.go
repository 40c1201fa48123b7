package caching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "storefront:"
	generationKey = keyPrefix + "generation"
)

// CacheService holds the eventually-fresh catalog snapshot: resolved category
// children and facet values computed for a scope. A miss is reported with
// found == false; an empty cached list is a hit.
type CacheService interface {
	// Category hierarchy
	GetCategoryChildren(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, bool, error)
	SetCategoryChildren(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID, nodes []*models.CategoryNode, ttl time.Duration) error

	// Facet values are stored under the catalog generation current when
	// they were read, so a write racing an invalidation is never served.
	Generation(ctx context.Context) (uint64, error)
	GetFacetValues(ctx context.Context, generation uint64, attributeID uuid.UUID, scopeKey string) ([]string, bool, error)
	SetFacetValues(ctx context.Context, generation uint64, attributeID uuid.UUID, scopeKey string, values []string, ttl time.Duration) error

	// InvalidateCatalog drops every cached catalog entry and starts a new
	// generation.
	InvalidateCatalog(ctx context.Context) error
	Ping(ctx context.Context) error
}

func childrenKey(level models.CategoryLevel, parentID *uuid.UUID) string {
	parent := "root"
	if parentID != nil {
		parent = parentID.String()
	}
	return fmt.Sprintf("%schildren:%d:%s", keyPrefix, int(level), parent)
}

func facetKey(generation uint64, attributeID uuid.UUID, scopeKey string) string {
	return fmt.Sprintf("%sfacet:%d:%s:%s", keyPrefix, generation, attributeID.String(), scopeKey)
}

// Sweeper is implemented by caches that keep expired entries in process
// until they are purged.
type Sweeper interface {
	PurgeExpired() int
}

type redisCacheService struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	// Accept redis://host:port as well as host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	} else {
		logger.Debug("redis connection established", zap.String("addr", parsedAddr))
	}

	return &redisCacheService{client: client, logger: logger}
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next set.
		r.logger.Warn("dropping unreadable cache entry", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) GetCategoryChildren(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, bool, error) {
	var nodes []*models.CategoryNode
	found, err := r.getJSON(ctx, childrenKey(level, parentID), &nodes)
	if err != nil || !found {
		return nil, false, err
	}
	if nodes == nil {
		nodes = []*models.CategoryNode{}
	}
	return nodes, true, nil
}

func (r *redisCacheService) SetCategoryChildren(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID, nodes []*models.CategoryNode, ttl time.Duration) error {
	if nodes == nil {
		nodes = []*models.CategoryNode{}
	}
	return r.setJSON(ctx, childrenKey(level, parentID), nodes, ttl)
}

func (r *redisCacheService) Generation(ctx context.Context) (uint64, error) {
	generation, err := r.client.Get(ctx, generationKey).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return generation, err
}

func (r *redisCacheService) GetFacetValues(ctx context.Context, generation uint64, attributeID uuid.UUID, scopeKey string) ([]string, bool, error) {
	var values []string
	found, err := r.getJSON(ctx, facetKey(generation, attributeID, scopeKey), &values)
	if err != nil || !found {
		return nil, false, err
	}
	if values == nil {
		values = []string{}
	}
	return values, true, nil
}

func (r *redisCacheService) SetFacetValues(ctx context.Context, generation uint64, attributeID uuid.UUID, scopeKey string, values []string, ttl time.Duration) error {
	if values == nil {
		values = []string{}
	}
	return r.setJSON(ctx, facetKey(generation, attributeID, scopeKey), values, ttl)
}

func (r *redisCacheService) InvalidateCatalog(ctx context.Context) error {
	generation, err := r.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return err
	}
	deleted := 0
	for _, pattern := range []string{keyPrefix + "facet:*", keyPrefix + "children:*"} {
		n, err := r.deleteMatching(ctx, pattern)
		deleted += n
		if err != nil {
			return err
		}
	}
	r.logger.Info("catalog cache invalidated", zap.Int64("generation", generation), zap.Int("keys", deleted))
	return nil
}

func (r *redisCacheService) deleteMatching(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
