package repositories

import (
	"context"

	"storefront/internal/common"
	"storefront/internal/models"

	"github.com/google/uuid"
)

type AttributeValueRepository interface {
	// ListValues returns the raw value rows of one attribute for every visible
	// product inside scope.
	ListValues(ctx context.Context, attributeID uuid.UUID, scope models.Scope) ([]*models.ProductAttributeValue, error)
}

type attributeValueRepo struct {
	db Querier
}

func NewAttributeValueRepo(db Querier) AttributeValueRepository {
	return &attributeValueRepo{db: db}
}

func (r *attributeValueRepo) ListValues(ctx context.Context, attributeID uuid.UUID, scope models.Scope) ([]*models.ProductAttributeValue, error) {
	filter := buildScope(scope, attributeID)
	query := `
		SELECT pav.product_id, pav.attribute_id, pav.value_text, pav.value_number, pav.value_boolean, pav.value_date
		FROM product_attribute_values pav
		JOIN products p ON p.id = pav.product_id
		JOIN sellers s ON s.id = p.seller_id AND s.is_suspended = FALSE
		WHERE pav.attribute_id = $1 AND p.status = 'published'` + filter.String() + `
		ORDER BY pav.product_id`

	rows, err := r.db.Query(ctx, query, filter.args...)
	if err != nil {
		return nil, common.WrapStoreError("attribute_values.list", err)
	}
	defer rows.Close()

	var values []*models.ProductAttributeValue
	for rows.Next() {
		v := &models.ProductAttributeValue{}
		if err := rows.Scan(&v.ProductID, &v.AttributeID, &v.ValueText, &v.ValueNumber, &v.ValueBoolean, &v.ValueDate); err != nil {
			return nil, common.WrapStoreError("attribute_values.list", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStoreError("attribute_values.list", err)
	}
	return values, nil
}
