package repositories

import (
	"context"

	"storefront/internal/common"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CategoryRepository interface {
	// ListActiveChildren returns the active nodes at level under parentID;
	// parentID is nil for level 1.
	ListActiveChildren(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*models.CategoryNode, error)
}

type categoryRepo struct {
	db Querier
}

func NewCategoryRepo(db Querier) CategoryRepository {
	return &categoryRepo{db: db}
}

const categoryColumns = `id, name, slug, level, parent_id, is_active, COALESCE(synonyms, '{}'), grid_image_key, display_order, created_at, updated_at`

func scanCategory(row pgx.Row) (*models.CategoryNode, error) {
	node := &models.CategoryNode{}
	err := row.Scan(&node.ID, &node.Name, &node.Slug, &node.Level, &node.ParentID, &node.IsActive,
		&node.Synonyms, &node.GridImageKey, &node.DisplayOrder, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (r *categoryRepo) ListActiveChildren(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, error) {
	var rows pgx.Rows
	var err error
	if parentID == nil {
		query := `
			SELECT ` + categoryColumns + `
			FROM category_nodes
			WHERE level = $1 AND parent_id IS NULL AND is_active = TRUE
			ORDER BY display_order ASC, name ASC
		`
		rows, err = r.db.Query(ctx, query, int(level))
	} else {
		query := `
			SELECT ` + categoryColumns + `
			FROM category_nodes
			WHERE level = $1 AND parent_id = $2 AND is_active = TRUE
			ORDER BY display_order ASC, name ASC
		`
		rows, err = r.db.Query(ctx, query, int(level), *parentID)
	}
	if err != nil {
		return nil, common.WrapStoreError("categories.list_children", err)
	}
	defer rows.Close()

	var nodes []*models.CategoryNode
	for rows.Next() {
		node, err := scanCategory(rows)
		if err != nil {
			return nil, common.WrapStoreError("categories.list_children", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStoreError("categories.list_children", err)
	}
	return nodes, nil
}

func (r *categoryRepo) GetActiveByID(ctx context.Context, id uuid.UUID) (*models.CategoryNode, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM category_nodes
		WHERE id = $1 AND is_active = TRUE
	`
	node, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, common.WrapStoreError("categories.get", err)
	}
	return node, nil
}
