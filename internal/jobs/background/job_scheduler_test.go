package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/caching"
	"storefront/internal/models"
	"storefront/internal/pipeline"
	"storefront/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockHierarchyService struct {
	mock.Mock
}

func (m *MockHierarchyService) Resolve(ctx context.Context, slugs []string) (*services.ResolvedPath, error) {
	args := m.Called(ctx, slugs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResolvedPath), args.Error(1)
}

func (m *MockHierarchyService) Children(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, error) {
	args := m.Called(ctx, level, parentID)
	return args.Get(0).([]*models.CategoryNode), args.Error(1)
}

func (m *MockHierarchyService) CategoryFacet(ctx context.Context, path *services.ResolvedPath) ([]*models.CategoryNode, error) {
	args := m.Called(ctx, path)
	return args.Get(0).([]*models.CategoryNode), args.Error(1)
}

func (m *MockHierarchyService) LowestActiveIDs(ctx context.Context, path *services.ResolvedPath) ([]uuid.UUID, error) {
	args := m.Called(ctx, path)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockHierarchyService) Grid(ctx context.Context, path *services.ResolvedPath) ([]models.GridTile, error) {
	args := m.Called(ctx, path)
	return args.Get(0).([]models.GridTile), args.Error(1)
}

func (m *MockHierarchyService) Warm(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestJobScheduler_RegistersJobs(t *testing.T) {
	hierarchy := &MockHierarchyService{}
	registry := pipeline.NewRegistry(nil, time.Minute, 0)

	js, err := NewJobScheduler(hierarchy, registry, caching.NewMemoryCacheService(), Intervals{Warmup: time.Hour, SessionSweep: time.Minute, CacheSweep: time.Minute}, zap.NewNop())
	require.NoError(t, err)

	status := js.GetJobStatus()
	assert.Equal(t, 3, status["total_jobs"])
	assert.Equal(t, []string{"cache-sweep", "category-warmup", "session-sweep"}, status["jobs"])
}

func TestJobScheduler_DisabledIntervals(t *testing.T) {
	js, err := NewJobScheduler(&MockHierarchyService{}, nil, nil, Intervals{SessionSweep: time.Minute, CacheSweep: time.Minute}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 0, js.GetJobStatus()["total_jobs"])
}

func TestWarmCategories(t *testing.T) {
	hierarchy := &MockHierarchyService{}
	hierarchy.On("Warm", mock.Anything).Return(12, nil).Once()
	hierarchy.On("Warm", mock.Anything).Return(3, errors.New("connection reset")).Once()

	js, err := NewJobScheduler(hierarchy, nil, nil, Intervals{}, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, js.WarmCategories(context.Background()))
	assert.EqualError(t, js.WarmCategories(context.Background()), "connection reset")
	hierarchy.AssertExpectations(t)
}

func TestSweepSessions(t *testing.T) {
	registry := pipeline.NewRegistry(nil, 0, 0)
	registry.Get("shopper-1")
	time.Sleep(time.Millisecond)

	js, err := NewJobScheduler(&MockHierarchyService{}, registry, nil, Intervals{}, zap.NewNop())
	require.NoError(t, err)

	js.SweepSessions()
	assert.Equal(t, 0, registry.Len())
}

type countingSweeper struct {
	caching.CacheService
	calls int
}

func (s *countingSweeper) PurgeExpired() int {
	s.calls++
	return 4
}

func TestSweepCache(t *testing.T) {
	cache := &countingSweeper{CacheService: caching.NewMemoryCacheService()}
	js, err := NewJobScheduler(&MockHierarchyService{}, nil, cache, Intervals{}, zap.NewNop())
	require.NoError(t, err)

	js.SweepCache()
	assert.Equal(t, 1, cache.calls)
}
