package caching

import (
	"context"
	"slices"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

// memoryCacheService is the in-process fallback used when Redis is not
// configured. Expired entries are dropped when read and by PurgeExpired.
type memoryCacheService struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	generation uint64
	now        func() time.Time
}

func NewMemoryCacheService() CacheService {
	return &memoryCacheService{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *memoryCacheService) get(key string) (interface{}, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.expired(e) {
		m.mu.Lock()
		if current, ok := m.entries[key]; ok && m.expired(current) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *memoryCacheService) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

func (m *memoryCacheService) set(key string, v interface{}, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.entry(v, ttl)
}

func (m *memoryCacheService) entry(v interface{}, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: v}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	return e
}

// PurgeExpired removes every expired entry and reports how many went.
func (m *memoryCacheService) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

func (m *memoryCacheService) GetCategoryChildren(_ context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, bool, error) {
	v, ok := m.get(childrenKey(level, parentID))
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v.([]*models.CategoryNode)), true, nil
}

func (m *memoryCacheService) SetCategoryChildren(_ context.Context, level models.CategoryLevel, parentID *uuid.UUID, nodes []*models.CategoryNode, ttl time.Duration) error {
	stored := slices.Clone(nodes)
	if stored == nil {
		stored = []*models.CategoryNode{}
	}
	m.set(childrenKey(level, parentID), stored, ttl)
	return nil
}

func (m *memoryCacheService) Generation(context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation, nil
}

func (m *memoryCacheService) GetFacetValues(_ context.Context, generation uint64, attributeID uuid.UUID, scopeKey string) ([]string, bool, error) {
	v, ok := m.get(facetKey(generation, attributeID, scopeKey))
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v.([]string)), true, nil
}

func (m *memoryCacheService) SetFacetValues(_ context.Context, generation uint64, attributeID uuid.UUID, scopeKey string, values []string, ttl time.Duration) error {
	stored := slices.Clone(values)
	if stored == nil {
		stored = []string{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Values read before an invalidation are dropped.
	if generation != m.generation {
		return nil
	}
	m.entries[facetKey(generation, attributeID, scopeKey)] = m.entry(stored, ttl)
	return nil
}

func (m *memoryCacheService) InvalidateCatalog(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.generation++
	m.mu.Unlock()
	return nil
}

func (m *memoryCacheService) Ping(context.Context) error { return nil }
