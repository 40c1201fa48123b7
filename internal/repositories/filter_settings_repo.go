package repositories

import (
	"context"

	"storefront/internal/common"
	"storefront/internal/models"

	"github.com/google/uuid"
)

type FilterSettingsRepository interface {
	GetForCategory(ctx context.Context, categoryID uuid.UUID) (*models.FilterSettings, error)
}

type filterSettingsRepo struct {
	db Querier
}

func NewFilterSettingsRepo(db Querier) FilterSettingsRepository {
	return &filterSettingsRepo{db: db}
}

func (r *filterSettingsRepo) GetForCategory(ctx context.Context, categoryID uuid.UUID) (*models.FilterSettings, error) {
	query := `
		SELECT category_id, COALESCE(top_line_ids, '{}'), COALESCE(hidden_ids, '{}'), show_price, show_brands
		FROM category_filter_settings
		WHERE category_id = $1
	`
	settings := &models.FilterSettings{}
	err := r.db.QueryRow(ctx, query, categoryID).Scan(&settings.CategoryID, &settings.TopLineIDs, &settings.HiddenIDs,
		&settings.ShowPrice, &settings.ShowBrands)
	if err != nil {
		return nil, common.WrapStoreError("filter_settings.get", err)
	}
	return settings, nil
}
