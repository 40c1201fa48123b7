package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/caching"
	"storefront/internal/models"
	"storefront/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) GetPresignedURL(ctx context.Context, objectName string) (string, error) {
	args := m.Called(ctx, objectName)
	return args.String(0), args.Error(1)
}

func (m *MockImageService) BucketExists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type HierarchyServiceTestSuite struct {
	suite.Suite
	catalog *testhelpers.Catalog
	images  *MockImageService
	service HierarchyService
	context context.Context

	shoes, running, trail, spikes, apparel *models.CategoryNode
}

func (suite *HierarchyServiceTestSuite) SetupTest() {
	suite.catalog = testhelpers.NewCatalog()
	suite.shoes = suite.catalog.AddNode("Shoes", nil, "Footwear")
	suite.running = suite.catalog.AddNode("Running", suite.shoes)
	suite.trail = suite.catalog.AddNode("Trail", suite.running)
	suite.spikes = suite.catalog.AddNode("Spikes", suite.trail)
	suite.apparel = suite.catalog.AddNode("Apparel", nil)
	suite.images = &MockImageService{}
	suite.service = NewHierarchyService(suite.catalog, caching.NewMemoryCacheService(), suite.images, time.Minute, zap.NewNop())
	suite.context = context.Background()
}

func (suite *HierarchyServiceTestSuite) TearDownTest() {
	suite.images.AssertExpectations(suite.T())
}

func TestHierarchyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(HierarchyServiceTestSuite))
}

func (suite *HierarchyServiceTestSuite) TestResolve_FullPath() {
	path, err := suite.service.Resolve(suite.context, []string{"Shoes", "running", " TRAIL ", "spikes"})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.LevelSubSubSubcategory, path.LowestLevel())
	assert.Equal(suite.T(), suite.spikes.ID, path.Deepest().ID)
	id, ok := path.IDAt(models.LevelSubcategory)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), suite.running.ID, id)
	assert.Equal(suite.T(), []string{"shoes", "running", "trail", "spikes"}, path.Slugs())
	assert.Equal(suite.T(), &models.CategoryRef{Level: models.LevelSubSubSubcategory, ID: suite.spikes.ID}, path.Ref())
}

func (suite *HierarchyServiceTestSuite) TestResolve_EmptyPathIsUnscoped() {
	path, err := suite.service.Resolve(suite.context, nil)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.LevelNone, path.LowestLevel())
	assert.Nil(suite.T(), path.Ref())
}

func (suite *HierarchyServiceTestSuite) TestResolve_NoPartialMatch() {
	_, err := suite.service.Resolve(suite.context, []string{"shoes", "walking"})
	assert.True(suite.T(), errors.Is(err, ErrCategoryNotFound))

	// A real slug under the wrong parent does not resolve either.
	_, err = suite.service.Resolve(suite.context, []string{"apparel", "running"})
	assert.True(suite.T(), errors.Is(err, ErrCategoryNotFound))
}

func (suite *HierarchyServiceTestSuite) TestResolve_TooDeep() {
	_, err := suite.service.Resolve(suite.context, []string{"shoes", "running", "trail", "spikes", "more"})
	assert.True(suite.T(), errors.Is(err, ErrCategoryNotFound))
}

func (suite *HierarchyServiceTestSuite) TestResolve_InactiveNode() {
	suite.running.IsActive = false
	_, err := suite.service.Resolve(suite.context, []string{"shoes", "running"})
	assert.True(suite.T(), errors.Is(err, ErrCategoryNotFound))
}

func (suite *HierarchyServiceTestSuite) TestResolve_UsesCachedChildren() {
	_, err := suite.service.Resolve(suite.context, []string{"footwear", "running"})
	require.NoError(suite.T(), err)
	calls := suite.catalog.Calls("ListActiveChildren")

	_, err = suite.service.Resolve(suite.context, []string{"shoes", "running"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), calls, suite.catalog.Calls("ListActiveChildren"))
}

func (suite *HierarchyServiceTestSuite) TestCategoryFacet() {
	roots, err := suite.service.LowestActiveIDs(suite.context, &ResolvedPath{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uuid.UUID{suite.shoes.ID, suite.apparel.ID}, roots)

	path, err := suite.service.Resolve(suite.context, []string{"shoes"})
	require.NoError(suite.T(), err)
	children, err := suite.service.LowestActiveIDs(suite.context, path)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uuid.UUID{suite.running.ID}, children)

	leaf, err := suite.service.Resolve(suite.context, []string{"shoes", "running", "trail", "spikes"})
	require.NoError(suite.T(), err)
	self, err := suite.service.LowestActiveIDs(suite.context, leaf)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uuid.UUID{suite.spikes.ID}, self)
}

func (suite *HierarchyServiceTestSuite) TestGrid_OnlyOnCategoryPages() {
	key := "grid/running.jpg"
	suite.running.GridImageKey = &key
	suite.images.On("GetPresignedURL", mock.Anything, key).Return("https://cdn.example/running.jpg?sig=1", nil).Once()

	path, err := suite.service.Resolve(suite.context, []string{"shoes"})
	require.NoError(suite.T(), err)
	tiles, err := suite.service.Grid(suite.context, path)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), tiles, 1)
	assert.Equal(suite.T(), suite.running.ID, tiles[0].Node.ID)
	assert.Equal(suite.T(), "https://cdn.example/running.jpg?sig=1", tiles[0].ImageURL)

	deeper, err := suite.service.Resolve(suite.context, []string{"shoes", "running"})
	require.NoError(suite.T(), err)
	tiles, err = suite.service.Grid(suite.context, deeper)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), tiles)
}

func (suite *HierarchyServiceTestSuite) TestGrid_PresignFailureKeepsTile() {
	key := "grid/running.jpg"
	suite.running.GridImageKey = &key
	suite.images.On("GetPresignedURL", mock.Anything, key).Return("", errors.New("storage offline")).Once()

	path, err := suite.service.Resolve(suite.context, []string{"shoes"})
	require.NoError(suite.T(), err)
	tiles, err := suite.service.Grid(suite.context, path)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), tiles, 1)
	assert.Empty(suite.T(), tiles[0].ImageURL)
}

func (suite *HierarchyServiceTestSuite) TestWarm() {
	total, err := suite.service.Warm(suite.context)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 5, total)

	calls := suite.catalog.Calls("ListActiveChildren")
	_, err = suite.service.Resolve(suite.context, []string{"shoes", "running", "trail", "spikes"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), calls, suite.catalog.Calls("ListActiveChildren"))
}
