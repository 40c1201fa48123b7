package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/common"
	"storefront/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type CatalogRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	context context.Context
	now     time.Time
}

func (suite *CatalogRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.context = context.Background()
	suite.now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func (suite *CatalogRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestCatalogRepoTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogRepoTestSuite))
}

var categoryRowColumns = []string{"id", "name", "slug", "level", "parent_id", "is_active", "synonyms", "grid_image_key", "display_order", "created_at", "updated_at"}

func (suite *CatalogRepoTestSuite) TestListActiveChildren_Roots() {
	repo := NewCategoryRepo(suite.mock)
	id := uuid.New()

	suite.mock.ExpectQuery(`FROM category_nodes\s+WHERE level = \$1 AND parent_id IS NULL AND is_active = TRUE`).
		WithArgs(int(models.LevelCategory)).
		WillReturnRows(pgxmock.NewRows(categoryRowColumns).
			AddRow(id, "Shoes", "shoes", models.LevelCategory, (*uuid.UUID)(nil), true, []string{"footwear"}, stringPtr("grid/shoes.jpg"), 1, suite.now, suite.now))

	nodes, err := repo.ListActiveChildren(suite.context, models.LevelCategory, nil)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), nodes, 1)
	assert.Equal(suite.T(), "shoes", nodes[0].Slug)
	assert.Equal(suite.T(), []string{"footwear"}, nodes[0].Synonyms)
	assert.Nil(suite.T(), nodes[0].ParentID)
}

func (suite *CatalogRepoTestSuite) TestListActiveChildren_UnderParent() {
	repo := NewCategoryRepo(suite.mock)
	parent := uuid.New()
	child := uuid.New()

	suite.mock.ExpectQuery(`FROM category_nodes\s+WHERE level = \$1 AND parent_id = \$2 AND is_active = TRUE`).
		WithArgs(int(models.LevelSubcategory), parent).
		WillReturnRows(pgxmock.NewRows(categoryRowColumns).
			AddRow(child, "Running", "running", models.LevelSubcategory, &parent, true, []string{}, (*string)(nil), 0, suite.now, suite.now))

	nodes, err := repo.ListActiveChildren(suite.context, models.LevelSubcategory, &parent)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), nodes, 1)
	assert.Equal(suite.T(), parent, *nodes[0].ParentID)
}

func (suite *CatalogRepoTestSuite) TestGetActiveByID_NotFound() {
	repo := NewCategoryRepo(suite.mock)
	id := uuid.New()

	suite.mock.ExpectQuery(`FROM category_nodes\s+WHERE id = \$1 AND is_active = TRUE`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	node, err := repo.GetActiveByID(suite.context, id)
	assert.Nil(suite.T(), node)
	assert.True(suite.T(), common.IsNotFound(err))
	var se *common.StoreError
	assert.True(suite.T(), errors.As(err, &se))
	assert.Equal(suite.T(), "categories.get", se.Op)
}

func (suite *CatalogRepoTestSuite) TestListScoped_BindsScopeInOrder() {
	repo := NewProductRepo(suite.mock)
	category := uuid.New()
	level := uuid.New()
	brand := uuid.New()
	candidate := uuid.New()
	bucket, _ := models.LookupPriceBucket("25-50")
	scope := models.Scope{
		Category:   &models.CategoryRef{Level: models.LevelCategory, ID: category},
		Levels:     []uuid.UUID{level},
		BrandIDs:   []uuid.UUID{brand},
		Price:      bucket,
		Candidates: models.NewIDSet(candidate),
	}
	productID := uuid.New()
	seller := uuid.New()

	suite.mock.ExpectQuery(`JOIN sellers s ON s.id = p.seller_id AND s.is_suspended = FALSE\s+WHERE p.status = 'published' AND p.category_id = \$1 AND \(p.category_id = ANY\(\$2\) OR p.subcategory_id = ANY\(\$2\).*AND p.brand_id = ANY\(\$3\) AND p.price >= \$4 AND p.price < \$5 AND p.id = ANY\(\$6\)\s+ORDER BY p.price DESC, p.id ASC\s+LIMIT \$7 OFFSET \$8`).
		WithArgs(category, []uuid.UUID{level}, []uuid.UUID{brand}, 25.0, 50.0, []uuid.UUID{candidate}, 32, 64).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "category_id", "subcategory_id", "sub_subcategory_id", "sub_sub_subcategory_id",
			"brand_id", "seller_id", "status", "price", "compare_at_price", "weight", "is_featured", "created_at"}).
			AddRow(productID, "Trail Runner", "trail-runner", &category, (*uuid.UUID)(nil), (*uuid.UUID)(nil), (*uuid.UUID)(nil),
				&brand, seller, models.StatusPublished, 39.0, (*float64)(nil), (*float64)(nil), false, suite.now))

	products, err := repo.ListScoped(suite.context, scope, models.SortPriceDesc, 32, 64)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), products, 1)
	assert.Equal(suite.T(), productID, products[0].ID)
	assert.Equal(suite.T(), models.StatusPublished, products[0].Status)
}

func (suite *CatalogRepoTestSuite) TestListScoped_UnknownSortUsesFeatured() {
	repo := NewProductRepo(suite.mock)

	suite.mock.ExpectQuery(`WHERE p.status = 'published'\s+ORDER BY p.is_featured DESC, p.created_at DESC, p.id ASC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(32, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	products, err := repo.ListScoped(suite.context, models.Scope{}, models.SortKey("bestselling"), 32, 0)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), products)
}

func (suite *CatalogRepoTestSuite) TestCountScoped() {
	repo := NewProductRepo(suite.mock)
	seller := uuid.New()

	suite.mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM products p.*AND p.seller_id = ANY\(\$1\)`).
		WithArgs([]uuid.UUID{seller}).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(40))

	total, err := repo.CountScoped(suite.context, models.Scope{SellerIDs: []uuid.UUID{seller}})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 40, total)
}

func (suite *CatalogRepoTestSuite) TestCountScoped_DatabaseError() {
	repo := NewProductRepo(suite.mock)

	suite.mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnError(errors.New("database connection failed"))

	_, err := repo.CountScoped(suite.context, models.Scope{})
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "products.count_scoped")
	assert.Contains(suite.T(), err.Error(), "database connection failed")
}

func (suite *CatalogRepoTestSuite) TestDistinctBrands() {
	repo := NewProductRepo(suite.mock)
	a, b := uuid.New(), uuid.New()

	suite.mock.ExpectQuery(`SELECT DISTINCT p.brand_id.*AND p.brand_id IS NOT NULL`).
		WillReturnRows(pgxmock.NewRows([]string{"brand_id"}).AddRow(a).AddRow(b))

	brands, err := repo.DistinctBrands(suite.context, models.Scope{})
	assert.NoError(suite.T(), err)
	assert.ElementsMatch(suite.T(), []uuid.UUID{a, b}, brands)
}

func (suite *CatalogRepoTestSuite) TestListValues_AttributeIsFirstArgument() {
	repo := NewAttributeValueRepo(suite.mock)
	attr := uuid.New()
	brand := uuid.New()
	productID := uuid.New()

	suite.mock.ExpectQuery(`FROM product_attribute_values pav.*WHERE pav.attribute_id = \$1 AND p.status = 'published' AND p.brand_id = ANY\(\$2\)\s+ORDER BY pav.product_id`).
		WithArgs(attr, []uuid.UUID{brand}).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "attribute_id", "value_text", "value_number", "value_boolean", "value_date"}).
			AddRow(productID, attr, stringPtr(`["S","M"]`), (*float64)(nil), (*bool)(nil), (*time.Time)(nil)))

	values, err := repo.ListValues(suite.context, attr, models.Scope{BrandIDs: []uuid.UUID{brand}})
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), values, 1)
	assert.Equal(suite.T(), `["S","M"]`, *values[0].ValueText)
}

func (suite *CatalogRepoTestSuite) TestGetByNames_LowerCasesLookup() {
	repo := NewAttributeRepo(suite.mock)
	id := uuid.New()

	suite.mock.ExpectQuery(`FROM attributes\s+WHERE LOWER\(name\) = ANY\(\$1\)`).
		WithArgs([]string{"color", "size"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "label", "data_type", "display_order", "visibility"}).
			AddRow(id, "Color", "Colour", models.AttributeText, 1, models.VisibilityTopLine))

	attrs, err := repo.GetByNames(suite.context, []string{" Color", "SIZE"})
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), attrs, 1)
	assert.Equal(suite.T(), id, attrs["color"].ID)
}

func (suite *CatalogRepoTestSuite) TestListScopedTo() {
	repo := NewAttributeRepo(suite.mock)
	node := uuid.New()

	suite.mock.ExpectQuery(`JOIN attribute_scopes sc ON sc.attribute_id = a.id\s+WHERE sc.level = \$1 AND sc.node_id = \$2`).
		WithArgs(int(models.LevelSubcategory), node).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "label", "data_type", "display_order", "visibility"}))

	attrs, err := repo.ListScopedTo(suite.context, models.LevelSubcategory, node)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), attrs)
}

func (suite *CatalogRepoTestSuite) TestFilterSettings_NotFound() {
	repo := NewFilterSettingsRepo(suite.mock)
	id := uuid.New()

	suite.mock.ExpectQuery(`FROM category_filter_settings\s+WHERE category_id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	settings, err := repo.GetForCategory(suite.context, id)
	assert.Nil(suite.T(), settings)
	assert.True(suite.T(), common.IsNotFound(err))
}

func stringPtr(s string) *string {
	return &s
}
