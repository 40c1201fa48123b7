// Package pipeline runs a catalog selection through the candidate, fetch and
// facet phases concurrently. The product fetch waits on every candidate set;
// each facet is computed against the other dimensions' candidates only.
package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"

	"storefront/internal/filterstate"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var brandDimension = filterstate.Dimension{Kind: filterstate.DimBrand}

// Facet is one node of the dependency graph. Its result is a function of the
// page and the projection of the selection onto Dependencies.
type Facet struct {
	Dimension    filterstate.Dimension
	Attribute    *models.Attribute
	TopLine      bool
	Dependencies []filterstate.Dimension
}

// Key identifies the facet's result for a page and selection.
func (f Facet) Key(state filterstate.FilterState, pageCtx services.PageContext) string {
	return pageKey(pageCtx) + "|" + f.Dimension.String() + "|" + filterstate.Encode(state.Only(f.Dependencies...))
}

func pageKey(pageCtx services.PageContext) string {
	sellers := make([]string, len(pageCtx.SellerIDs))
	for i, id := range pageCtx.SellerIDs {
		sellers[i] = id.String()
	}
	slices.Sort(sellers)
	return strings.Join(pageCtx.Path.Slugs(), "/") + "@" + strings.Join(sellers, ",")
}

// FacetResult is what the filter panel renders for one facet.
type FacetResult struct {
	Dimension   string                 `json:"dimension"`
	AttributeID *uuid.UUID             `json:"attribute_id,omitempty"`
	Label       string                 `json:"label,omitempty"`
	TopLine     bool                   `json:"top_line"`
	Values      []string               `json:"values,omitempty"`
	Brands      []uuid.UUID            `json:"brands,omitempty"`
	Categories  []*models.CategoryNode `json:"categories,omitempty"`
	Prices      []models.PriceBucket   `json:"prices,omitempty"`
}

type Result struct {
	State  string         `json:"state"`
	Page   *models.Page   `json:"page"`
	Facets []*FacetResult `json:"facets"`
}

type Graph struct {
	catalog    services.CatalogService
	facets     services.FacetService
	attributes services.AttributeService
	hierarchy  services.HierarchyService
	logger     *zap.Logger
}

func NewGraph(catalog services.CatalogService, facets services.FacetService, attributes services.AttributeService, hierarchy services.HierarchyService, logger *zap.Logger) *Graph {
	return &Graph{
		catalog:    catalog,
		facets:     facets,
		attributes: attributes,
		hierarchy:  hierarchy,
		logger:     logger,
	}
}

// dependencies is every selection dimension except the excluded ones. Sort
// never changes availability so it is never a dependency.
func dependencies(state filterstate.FilterState, exclude ...filterstate.Dimension) []filterstate.Dimension {
	all := []filterstate.Dimension{
		{Kind: filterstate.DimCategory},
		{Kind: filterstate.DimBrand},
		{Kind: filterstate.DimColor},
		{Kind: filterstate.DimSize},
		{Kind: filterstate.DimPrice},
	}
	for _, id := range state.ActiveAttributeIDs() {
		all = append(all, filterstate.AttributeDimension(id))
	}
	return slices.DeleteFunc(all, func(d filterstate.Dimension) bool {
		return slices.Contains(exclude, d)
	})
}

// Facets lists the graph nodes for a page: category, price and brand, then
// color and size when the catalog defines them, then the page's attributes.
func (g *Graph) Facets(ctx context.Context, state filterstate.FilterState, pageCtx services.PageContext) ([]Facet, error) {
	listing, err := g.attributes.Listing(ctx, pageCtx.Path)
	if err != nil {
		return nil, err
	}
	color, size, err := g.attributes.ColorAndSize(ctx)
	if err != nil {
		return nil, err
	}

	facets := []Facet{{Dimension: filterstate.Dimension{Kind: filterstate.DimCategory}, TopLine: true}}
	if listing.ShowPrice {
		facets = append(facets, Facet{Dimension: filterstate.Dimension{Kind: filterstate.DimPrice}, TopLine: true})
	}
	if listing.ShowBrands {
		facets = append(facets, Facet{
			Dimension:    brandDimension,
			TopLine:      true,
			Dependencies: dependencies(state, brandDimension),
		})
	}

	builtIn := make(map[uuid.UUID]bool)
	for _, named := range []struct {
		kind filterstate.DimensionKind
		attr *models.Attribute
	}{{filterstate.DimColor, color}, {filterstate.DimSize, size}} {
		if named.attr == nil {
			continue
		}
		builtIn[named.attr.ID] = true
		dim := filterstate.Dimension{Kind: named.kind}
		facets = append(facets, Facet{
			Dimension:    dim,
			Attribute:    named.attr,
			TopLine:      true,
			Dependencies: dependencies(state, dim),
		})
	}

	for _, attr := range listing.Attributes {
		if builtIn[attr.ID] {
			continue
		}
		dim := filterstate.AttributeDimension(attr.ID)
		facets = append(facets, Facet{
			Dimension:    dim,
			Attribute:    attr.Attribute,
			TopLine:      attr.TopLine,
			Dependencies: dependencies(state, dim),
		})
	}
	return facets, nil
}

// Run assembles one page and its facets. memo may be nil.
func (g *Graph) Run(ctx context.Context, state filterstate.FilterState, pageCtx services.PageContext, offset, limit int, memo *Memo) (*Result, error) {
	limit = services.ClampLimit(limit)
	offset = max(offset, 0)

	candidates, err := g.catalog.Candidates(ctx, state, pageCtx)
	if err != nil {
		return nil, err
	}

	facets, err := g.Facets(ctx, state, pageCtx)
	if err != nil {
		return nil, err
	}

	result := &Result{State: filterstate.Encode(state), Facets: make([]*FacetResult, len(facets))}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		page, err := g.catalog.PageFor(egCtx, state, pageCtx, candidates, offset, limit)
		if err != nil {
			return err
		}
		result.Page = page
		return nil
	})
	for i, facet := range facets {
		eg.Go(func() error {
			key := facet.Key(state, pageCtx)
			if cached, ok := memo.get(key); ok {
				result.Facets[i] = cached
				return nil
			}
			fr, err := g.compute(egCtx, facet, state, pageCtx, candidates)
			if err != nil {
				return err
			}
			memo.put(key, fr)
			result.Facets[i] = fr
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// ErrUnknownFacet is returned by Facet for an attribute the page does not
// offer as a filter.
var ErrUnknownFacet = errors.New("pipeline: attribute is not a facet of this page")

// Facet computes a single attribute facet without fetching products.
func (g *Graph) Facet(ctx context.Context, state filterstate.FilterState, pageCtx services.PageContext, attributeID uuid.UUID) (*FacetResult, error) {
	facets, err := g.Facets(ctx, state, pageCtx)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(facets, func(f Facet) bool {
		return f.Attribute != nil && f.Attribute.ID == attributeID
	})
	if idx < 0 {
		return nil, ErrUnknownFacet
	}
	candidates, err := g.catalog.Candidates(ctx, state, pageCtx)
	if err != nil {
		return nil, err
	}
	return g.compute(ctx, facets[idx], state, pageCtx, candidates)
}

// otherCandidates intersects every candidate set except the facet's own. nil
// means no other dimension is active.
func otherCandidates(candidates map[filterstate.Dimension]models.IDSet, self filterstate.Dimension) models.IDSet {
	var out models.IDSet
	for dim, ids := range candidates {
		if dim == self {
			continue
		}
		out = out.Intersect(ids)
	}
	return out
}

func (g *Graph) compute(ctx context.Context, facet Facet, state filterstate.FilterState, pageCtx services.PageContext, candidates *services.CandidateSets) (*FacetResult, error) {
	fr := &FacetResult{Dimension: facet.Dimension.Kind.String(), TopLine: facet.TopLine}
	if facet.Attribute != nil {
		id := facet.Attribute.ID
		fr.AttributeID = &id
		fr.Label = facet.Attribute.Label
	}

	switch facet.Dimension.Kind {
	case filterstate.DimCategory:
		nodes, err := g.hierarchy.CategoryFacet(ctx, pageCtx.Path)
		if err != nil {
			return nil, err
		}
		fr.Categories = nodes
	case filterstate.DimPrice:
		fr.Prices = models.PriceBuckets()
	case filterstate.DimBrand:
		// Candidate sets were narrowed to the selected brands; the brand
		// facet needs them without that narrowing.
		unbranded := candidates
		if state.Active(brandDimension) && len(candidates.ByDimension) > 0 {
			var err error
			unbranded, err = g.catalog.Candidates(ctx, state.Without(brandDimension), pageCtx)
			if err != nil {
				return nil, err
			}
		}
		scope := g.catalog.BaseScope(state.Without(brandDimension), pageCtx).
			WithCandidates(otherCandidates(unbranded.ByDimension, facet.Dimension))
		brands, err := g.facets.AvailableBrands(ctx, scope)
		if err != nil {
			return nil, err
		}
		fr.Brands = brands
	default:
		scope := g.catalog.BaseScope(state, pageCtx).
			WithCandidates(otherCandidates(candidates.ByDimension, facet.Dimension))
		values, err := g.facets.AvailableValues(ctx, facet.Attribute.ID, scope)
		if err != nil {
			return nil, err
		}
		fr.Values = values
	}
	return fr, nil
}
