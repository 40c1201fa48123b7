package repositories

import (
	"context"
	"strings"

	"storefront/internal/common"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AttributeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Attribute, error)
	// GetByNames maps lower-cased attribute names to their definitions.
	GetByNames(ctx context.Context, names []string) (map[string]*models.Attribute, error)
	// ListScopedTo returns the attributes linked to one node at one level.
	ListScopedTo(ctx context.Context, level models.CategoryLevel, nodeID uuid.UUID) ([]*models.Attribute, error)
	ListOptions(ctx context.Context, attributeID uuid.UUID) ([]*models.AttributeOption, error)
}

type attributeRepo struct {
	db Querier
}

func NewAttributeRepo(db Querier) AttributeRepository {
	return &attributeRepo{db: db}
}

func scanAttribute(row pgx.Row) (*models.Attribute, error) {
	attr := &models.Attribute{}
	if err := row.Scan(&attr.ID, &attr.Name, &attr.Label, &attr.DataType, &attr.DisplayOrder, &attr.Visibility); err != nil {
		return nil, err
	}
	return attr, nil
}

func (r *attributeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Attribute, error) {
	query := `
		SELECT id, name, label, data_type, display_order, visibility
		FROM attributes
		WHERE id = $1
	`
	attr, err := scanAttribute(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, common.WrapStoreError("attributes.get", err)
	}
	return attr, nil
}

func (r *attributeRepo) GetByNames(ctx context.Context, names []string) (map[string]*models.Attribute, error) {
	query := `
		SELECT id, name, label, data_type, display_order, visibility
		FROM attributes
		WHERE LOWER(name) = ANY($1)
	`
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = normalizeName(n)
	}
	rows, err := r.db.Query(ctx, query, lowered)
	if err != nil {
		return nil, common.WrapStoreError("attributes.by_names", err)
	}
	defer rows.Close()

	out := make(map[string]*models.Attribute)
	for rows.Next() {
		attr, err := scanAttribute(rows)
		if err != nil {
			return nil, common.WrapStoreError("attributes.by_names", err)
		}
		out[normalizeName(attr.Name)] = attr
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStoreError("attributes.by_names", err)
	}
	return out, nil
}

func (r *attributeRepo) ListScopedTo(ctx context.Context, level models.CategoryLevel, nodeID uuid.UUID) ([]*models.Attribute, error) {
	query := `
		SELECT a.id, a.name, a.label, a.data_type, a.display_order, a.visibility
		FROM attributes a
		JOIN attribute_scopes sc ON sc.attribute_id = a.id
		WHERE sc.level = $1 AND sc.node_id = $2
		ORDER BY a.display_order ASC, a.name ASC
	`
	rows, err := r.db.Query(ctx, query, int(level), nodeID)
	if err != nil {
		return nil, common.WrapStoreError("attributes.scoped", err)
	}
	defer rows.Close()

	var attrs []*models.Attribute
	for rows.Next() {
		attr, err := scanAttribute(rows)
		if err != nil {
			return nil, common.WrapStoreError("attributes.scoped", err)
		}
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStoreError("attributes.scoped", err)
	}
	return attrs, nil
}

func (r *attributeRepo) ListOptions(ctx context.Context, attributeID uuid.UUID) ([]*models.AttributeOption, error) {
	query := `
		SELECT id, attribute_id, value, display_order, is_active
		FROM attribute_options
		WHERE attribute_id = $1 AND is_active = TRUE
		ORDER BY display_order ASC, value ASC
	`
	rows, err := r.db.Query(ctx, query, attributeID)
	if err != nil {
		return nil, common.WrapStoreError("attributes.options", err)
	}
	defer rows.Close()

	var options []*models.AttributeOption
	for rows.Next() {
		opt := &models.AttributeOption{}
		if err := rows.Scan(&opt.ID, &opt.AttributeID, &opt.Value, &opt.DisplayOrder, &opt.IsActive); err != nil {
			return nil, common.WrapStoreError("attributes.options", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStoreError("attributes.options", err)
	}
	return options, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
