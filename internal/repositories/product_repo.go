package repositories

import (
	"context"
	"fmt"

	"storefront/internal/common"
	"storefront/internal/models"

	"github.com/google/uuid"
)

type ProductRepository interface {
	// ListScoped returns one sorted window of the visible products in scope.
	ListScoped(ctx context.Context, scope models.Scope, sort models.SortKey, limit, offset int) ([]*models.Product, error)
	CountScoped(ctx context.Context, scope models.Scope) (int, error)
	// DistinctBrands returns the brands carried by visible products in scope.
	DistinctBrands(ctx context.Context, scope models.Scope) ([]uuid.UUID, error)
}

type productRepo struct {
	db Querier
}

func NewProductRepo(db Querier) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) ListScoped(ctx context.Context, scope models.Scope, sort models.SortKey, limit, offset int) ([]*models.Product, error) {
	filter := buildScope(scope)
	limitArg := filter.arg(limit)
	offsetArg := filter.arg(offset)

	query := `
		SELECT p.id, p.name, p.slug, p.category_id, p.subcategory_id, p.sub_subcategory_id, p.sub_sub_subcategory_id,
		       p.brand_id, p.seller_id, p.status, p.price, p.compare_at_price, p.weight, p.is_featured, p.created_at` +
		visibleProducts + filter.String() +
		fmt.Sprintf(`
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, orderBy(sort), limitArg, offsetArg)

	rows, err := r.db.Query(ctx, query, filter.args...)
	if err != nil {
		return nil, common.WrapStoreError("products.list_scoped", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.CategoryID, &p.SubcategoryID, &p.SubSubcategoryID, &p.SubSubSubcategoryID,
			&p.BrandID, &p.SellerID, &p.Status, &p.Price, &p.CompareAtPrice, &p.Weight, &p.IsFeatured, &p.CreatedAt); err != nil {
			return nil, common.WrapStoreError("products.list_scoped", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStoreError("products.list_scoped", err)
	}
	return products, nil
}

func (r *productRepo) CountScoped(ctx context.Context, scope models.Scope) (int, error) {
	filter := buildScope(scope)
	query := `
		SELECT COUNT(*)` + visibleProducts + filter.String()

	var total int
	if err := r.db.QueryRow(ctx, query, filter.args...).Scan(&total); err != nil {
		return 0, common.WrapStoreError("products.count_scoped", err)
	}
	return total, nil
}

func (r *productRepo) DistinctBrands(ctx context.Context, scope models.Scope) ([]uuid.UUID, error) {
	filter := buildScope(scope)
	query := `
		SELECT DISTINCT p.brand_id` + visibleProducts + `
		AND p.brand_id IS NOT NULL` + filter.String()

	rows, err := r.db.Query(ctx, query, filter.args...)
	if err != nil {
		return nil, common.WrapStoreError("products.distinct_brands", err)
	}
	defer rows.Close()

	var brands []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, common.WrapStoreError("products.distinct_brands", err)
		}
		brands = append(brands, id)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStoreError("products.distinct_brands", err)
	}
	return brands, nil
}
