// Package testhelpers provides an in-memory catalog that satisfies the
// repository interfaces with the same visibility and scope rules as the SQL.
package testhelpers

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"storefront/internal/common"
	"storefront/internal/models"

	"github.com/google/uuid"
)

// Catalog is a mutable fixture. Build it before handing it to services;
// reads are safe for concurrent use.
type Catalog struct {
	mu sync.Mutex

	Nodes      []*models.CategoryNode
	Attributes []*models.Attribute
	Scopes     []models.AttributeScope
	Values     []*models.ProductAttributeValue
	Products   []*models.Product
	Settings   map[uuid.UUID]*models.FilterSettings
	Suspended  map[uuid.UUID]bool

	calls map[string]int
	clock time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{
		Settings:  make(map[uuid.UUID]*models.FilterSettings),
		Suspended: make(map[uuid.UUID]bool),
		calls:     make(map[string]int),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Calls reports how many times a repository method ran, e.g. "ListScoped".
func (c *Catalog) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *Catalog) record(method string) {
	c.calls[method]++
}

// AddNode adds an active node under parent (nil for level 1).
func (c *Catalog) AddNode(name string, parent *models.CategoryNode, synonyms ...string) *models.CategoryNode {
	node := &models.CategoryNode{
		ID:       uuid.New(),
		Name:     name,
		Slug:     strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Level:    models.LevelCategory,
		IsActive: true,
		Synonyms: synonyms,
	}
	if parent != nil {
		node.Level = parent.Level + 1
		id := parent.ID
		node.ParentID = &id
	}
	node.DisplayOrder = len(c.Nodes)
	c.Nodes = append(c.Nodes, node)
	return node
}

func (c *Catalog) AddAttribute(name string, dataType models.AttributeDataType) *models.Attribute {
	attr := &models.Attribute{
		ID:           uuid.New(),
		Name:         name,
		Label:        name,
		DataType:     dataType,
		DisplayOrder: len(c.Attributes),
		Visibility:   models.VisibilityMoreFilters,
	}
	c.Attributes = append(c.Attributes, attr)
	return attr
}

func (c *Catalog) LinkAttribute(attr *models.Attribute, node *models.CategoryNode) {
	c.Scopes = append(c.Scopes, models.AttributeScope{AttributeID: attr.ID, Level: node.Level, NodeID: node.ID})
}

// AddProduct adds a published product placed at node. Each call is one
// second newer than the previous one.
func (c *Catalog) AddProduct(name string, node *models.CategoryNode, price float64) *models.Product {
	c.clock = c.clock.Add(time.Second)
	p := &models.Product{
		ID:        uuid.New(),
		Name:      name,
		Slug:      strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		SellerID:  uuid.Nil,
		Status:    models.StatusPublished,
		Price:     price,
		CreatedAt: c.clock,
	}
	for n := node; n != nil; n = c.nodeByID(n.ParentID) {
		id := n.ID
		switch n.Level {
		case models.LevelCategory:
			p.CategoryID = &id
		case models.LevelSubcategory:
			p.SubcategoryID = &id
		case models.LevelSubSubcategory:
			p.SubSubcategoryID = &id
		case models.LevelSubSubSubcategory:
			p.SubSubSubcategoryID = &id
		}
	}
	c.Products = append(c.Products, p)
	return p
}

// SetText stores a raw text payload for the product's attribute.
func (c *Catalog) SetText(p *models.Product, attr *models.Attribute, raw string) {
	c.Values = append(c.Values, &models.ProductAttributeValue{ProductID: p.ID, AttributeID: attr.ID, ValueText: &raw})
}

func (c *Catalog) SetNumber(p *models.Product, attr *models.Attribute, v float64) {
	c.Values = append(c.Values, &models.ProductAttributeValue{ProductID: p.ID, AttributeID: attr.ID, ValueNumber: &v})
}

func (c *Catalog) nodeByID(id *uuid.UUID) *models.CategoryNode {
	if id == nil {
		return nil
	}
	for _, n := range c.Nodes {
		if n.ID == *id {
			return n
		}
	}
	return nil
}

// visible mirrors the published-and-seller-not-suspended join.
func (c *Catalog) visible(p *models.Product) bool {
	return p.Status == models.StatusPublished && !c.Suspended[p.SellerID]
}

// InScope mirrors the WHERE clause built for a scope.
func (c *Catalog) InScope(p *models.Product, scope models.Scope) bool {
	if !c.visible(p) {
		return false
	}
	if scope.Category != nil && scope.Category.Level.Valid() {
		id := p.CategoryIDAt(scope.Category.Level)
		if id == nil || *id != scope.Category.ID {
			return false
		}
	}
	if len(scope.Levels) > 0 {
		hit := false
		for level := models.LevelCategory; level.Valid(); level++ {
			if id := p.CategoryIDAt(level); id != nil && slices.Contains(scope.Levels, *id) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(scope.BrandIDs) > 0 && (p.BrandID == nil || !slices.Contains(scope.BrandIDs, *p.BrandID)) {
		return false
	}
	if len(scope.SellerIDs) > 0 && !slices.Contains(scope.SellerIDs, p.SellerID) {
		return false
	}
	if !scope.Price.Contains(p.Price) {
		return false
	}
	if scope.Candidates != nil && !scope.Candidates.Has(p.ID) {
		return false
	}
	return true
}

func (c *Catalog) ListActiveChildren(_ context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ListActiveChildren")
	out := []*models.CategoryNode{}
	for _, n := range c.Nodes {
		if n.Level != level || !n.IsActive {
			continue
		}
		if (parentID == nil) != (n.ParentID == nil) {
			continue
		}
		if parentID != nil && *parentID != *n.ParentID {
			continue
		}
		out = append(out, n)
	}
	slices.SortStableFunc(out, func(a, b *models.CategoryNode) int {
		return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), strings.Compare(a.Name, b.Name))
	})
	return out, nil
}

func (c *Catalog) GetActiveByID(_ context.Context, id uuid.UUID) (*models.CategoryNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.Nodes {
		if n.ID == id && n.IsActive {
			return n, nil
		}
	}
	return nil, common.WrapStoreError("categories.get", common.ErrNotFound)
}

func (c *Catalog) GetByID(_ context.Context, id uuid.UUID) (*models.Attribute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.Attributes {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, common.WrapStoreError("attributes.get", common.ErrNotFound)
}

func (c *Catalog) GetByNames(_ context.Context, names []string) (map[string]*models.Attribute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*models.Attribute)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		for _, a := range c.Attributes {
			if strings.ToLower(a.Name) == key {
				copied := *a
				out[key] = &copied
			}
		}
	}
	return out, nil
}

func (c *Catalog) ListScopedTo(_ context.Context, level models.CategoryLevel, nodeID uuid.UUID) ([]*models.Attribute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*models.Attribute
	for _, sc := range c.Scopes {
		if sc.Level != level || sc.NodeID != nodeID {
			continue
		}
		for _, a := range c.Attributes {
			if a.ID == sc.AttributeID {
				copied := *a
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (c *Catalog) ListOptions(_ context.Context, attributeID uuid.UUID) ([]*models.AttributeOption, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*models.AttributeOption
	for _, a := range c.Attributes {
		if a.ID != attributeID {
			continue
		}
		for _, o := range a.Options {
			if o.IsActive {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func (c *Catalog) ListValues(_ context.Context, attributeID uuid.UUID, scope models.Scope) ([]*models.ProductAttributeValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ListValues")
	var out []*models.ProductAttributeValue
	for _, v := range c.Values {
		if v.AttributeID != attributeID {
			continue
		}
		if p := c.product(v.ProductID); p != nil && c.InScope(p, scope) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *Catalog) product(id uuid.UUID) *models.Product {
	for _, p := range c.Products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (c *Catalog) scoped(scope models.Scope) []*models.Product {
	var out []*models.Product
	for _, p := range c.Products {
		if c.InScope(p, scope) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) ListScoped(_ context.Context, scope models.Scope, sort models.SortKey, limit, offset int) ([]*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ListScoped")
	items := c.scoped(scope)
	slices.SortStableFunc(items, func(a, b *models.Product) int {
		var primary int
		switch models.ParseSortKey(string(sort)) {
		case models.SortNewest:
			primary = b.CreatedAt.Compare(a.CreatedAt)
		case models.SortPriceAsc:
			primary = cmp.Compare(a.Price, b.Price)
		case models.SortPriceDesc:
			primary = cmp.Compare(b.Price, a.Price)
		default:
			primary = cmp.Or(boolRank(b.IsFeatured)-boolRank(a.IsFeatured), b.CreatedAt.Compare(a.CreatedAt))
		}
		return cmp.Or(primary, strings.Compare(a.ID.String(), b.ID.String()))
	})
	if offset >= len(items) {
		return []*models.Product{}, nil
	}
	return items[offset:min(offset+limit, len(items))], nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *Catalog) CountScoped(_ context.Context, scope models.Scope) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("CountScoped")
	return len(c.scoped(scope)), nil
}

func (c *Catalog) DistinctBrands(_ context.Context, scope models.Scope) ([]uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := models.NewIDSet()
	for _, p := range c.scoped(scope) {
		if p.BrandID != nil {
			seen.Add(*p.BrandID)
		}
	}
	return seen.Slice(), nil
}

func (c *Catalog) GetForCategory(_ context.Context, categoryID uuid.UUID) (*models.FilterSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.Settings[categoryID]; ok {
		return s, nil
	}
	return nil, common.WrapStoreError("filter_settings.get", common.ErrNotFound)
}
