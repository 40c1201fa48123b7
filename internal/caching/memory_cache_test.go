package caching

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_ChildrenHitAndMiss(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCacheService()
	parent := uuid.New()

	_, found, err := cache.GetCategoryChildren(ctx, models.LevelSubcategory, &parent)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.SetCategoryChildren(ctx, models.LevelSubcategory, &parent, nil, time.Minute))
	nodes, found, err := cache.GetCategoryChildren(ctx, models.LevelSubcategory, &parent)
	require.NoError(t, err)
	assert.True(t, found, "an empty child list is still a hit")
	assert.Empty(t, nodes)

	_, found, _ = cache.GetCategoryChildren(ctx, models.LevelSubcategory, nil)
	assert.False(t, found, "roots and children of a parent are separate entries")
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := &memoryCacheService{entries: make(map[string]memoryEntry), now: func() time.Time { return now }}
	attr := uuid.New()

	require.NoError(t, cache.SetFacetValues(ctx, 0, attr, "k", []string{"S", "M"}, time.Minute))
	values, found, _ := cache.GetFacetValues(ctx, 0, attr, "k")
	assert.True(t, found)
	assert.Equal(t, []string{"S", "M"}, values)

	now = now.Add(time.Minute)
	_, found, _ = cache.GetFacetValues(ctx, 0, attr, "k")
	assert.False(t, found)
	assert.Empty(t, cache.entries, "an expired entry is removed when read")
}

func TestMemoryCache_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := &memoryCacheService{entries: make(map[string]memoryEntry), now: func() time.Time { return now }}

	for i := 0; i < 50; i++ {
		require.NoError(t, cache.SetFacetValues(ctx, 0, uuid.New(), "k", []string{"S"}, time.Minute))
	}
	require.NoError(t, cache.SetFacetValues(ctx, 0, uuid.New(), "k", []string{"S"}, time.Hour))
	require.NoError(t, cache.SetCategoryChildren(ctx, models.LevelCategory, nil, nil, 0))

	assert.Zero(t, cache.PurgeExpired())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 50, cache.PurgeExpired())
	assert.Len(t, cache.entries, 2)

	var _ Sweeper = cache
}

func TestMemoryCache_WriteFromBeforeInvalidateIsDropped(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCacheService()
	attr := uuid.New()

	// A computation reads the generation, then the catalog changes before
	// it stores its result.
	generation, err := cache.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateCatalog(ctx))
	require.NoError(t, cache.SetFacetValues(ctx, generation, attr, "k", []string{"stale"}, time.Minute))

	current, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, generation+1, current)
	_, found, _ := cache.GetFacetValues(ctx, current, attr, "k")
	assert.False(t, found)
	_, found, _ = cache.GetFacetValues(ctx, generation, attr, "k")
	assert.False(t, found)

	require.NoError(t, cache.SetFacetValues(ctx, current, attr, "k", []string{"fresh"}, time.Minute))
	values, found, _ := cache.GetFacetValues(ctx, current, attr, "k")
	assert.True(t, found)
	assert.Equal(t, []string{"fresh"}, values)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCacheService()
	attr := uuid.New()

	require.NoError(t, cache.SetFacetValues(ctx, 0, attr, "k", []string{"S"}, 0))
	values, _, _ := cache.GetFacetValues(ctx, 0, attr, "k")
	values[0] = "XL"

	again, _, _ := cache.GetFacetValues(ctx, 0, attr, "k")
	assert.Equal(t, []string{"S"}, again)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCacheService()
	attr := uuid.New()

	require.NoError(t, cache.SetFacetValues(ctx, 0, attr, "k", []string{"S"}, 0))
	require.NoError(t, cache.SetCategoryChildren(ctx, models.LevelCategory, nil, []*models.CategoryNode{{Slug: "shoes"}}, 0))
	require.NoError(t, cache.InvalidateCatalog(ctx))

	_, found, _ := cache.GetFacetValues(ctx, 0, attr, "k")
	assert.False(t, found)
	_, found, _ = cache.GetCategoryChildren(ctx, models.LevelCategory, nil)
	assert.False(t, found)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c2a4e-0000-4000-8000-000000000001")
	assert.Equal(t, "storefront:children:1:root", childrenKey(models.LevelCategory, nil))
	assert.Equal(t, "storefront:children:2:"+id.String(), childrenKey(models.LevelSubcategory, &id))
	assert.Equal(t, "storefront:facet:3:"+id.String()+":abc", facetKey(3, id, "abc"))
}
