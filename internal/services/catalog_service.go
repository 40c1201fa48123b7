package services

import (
	"context"
	"time"

	"storefront/internal/filterstate"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageSize is the fixed size of a catalog page.
const PageSize = 32

// ClampLimit maps any requested page size onto PageSize.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > PageSize {
		return PageSize
	}
	return limit
}

// PageContext is what the URL path and the storefront fix for a page,
// independent of the shopper's selection.
type PageContext struct {
	// Path is empty on the unscoped "all products" page.
	Path *ResolvedPath
	// SellerIDs optionally restricts the page to these sellers.
	SellerIDs []uuid.UUID
}

// DimensionFilter is an active value dimension resolved to its attribute.
// AttributeID is uuid.Nil when the catalog defines no attribute for it.
type DimensionFilter struct {
	Dimension   filterstate.Dimension
	AttributeID uuid.UUID
	Selected    []string
}

// CandidateSets is the result of the candidate phase: each active value
// dimension's matching ids under the base scope, and their intersection.
// Matched is nil when no value dimension is active.
type CandidateSets struct {
	ByDimension map[filterstate.Dimension]models.IDSet
	Matched     models.IDSet
}

// Empty reports whether the selection already rules out every product.
func (c *CandidateSets) Empty() bool {
	return c != nil && c.Matched != nil && len(c.Matched) == 0
}

type CatalogService interface {
	// BaseScope is the page context plus the selection's scope-level
	// dimensions: category levels, brands and price.
	BaseScope(state filterstate.FilterState, pageCtx PageContext) models.Scope
	// Candidates runs every active value dimension's candidate query
	// concurrently under BaseScope(state, pageCtx).
	Candidates(ctx context.Context, state filterstate.FilterState, pageCtx PageContext) (*CandidateSets, error)
	// PageFor fetches one sorted page narrowed to the candidates. Empty
	// candidates answer Total=0 without a count or fetch.
	PageFor(ctx context.Context, state filterstate.FilterState, pageCtx PageContext, candidates *CandidateSets, offset, limit int) (*models.Page, error)
	// Assemble is Candidates followed by PageFor.
	Assemble(ctx context.Context, state filterstate.FilterState, pageCtx PageContext, offset, limit int) (*models.Page, error)
}

type catalogService struct {
	productRepo      repositories.ProductRepository
	attributeService AttributeService
	facetService     FacetService
	logger           *zap.Logger
}

func NewCatalogService(productRepo repositories.ProductRepository, attributeService AttributeService, facetService FacetService, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo:      productRepo,
		attributeService: attributeService,
		facetService:     facetService,
		logger:           logger,
	}
}

func EmptyPage(offset, limit int) *models.Page {
	return &models.Page{Items: []*models.Product{}, Offset: offset, Limit: limit}
}

func (s *catalogService) BaseScope(state filterstate.FilterState, pageCtx PageContext) models.Scope {
	return models.Scope{
		Category:  pageCtx.Path.Ref(),
		Levels:    state.Levels,
		BrandIDs:  state.Brands,
		SellerIDs: pageCtx.SellerIDs,
		Price:     state.PriceBucket(),
	}
}

// activeDimensions lists the value dimensions the selection narrows:
// colors, sizes, then attributes in id order.
func (s *catalogService) activeDimensions(ctx context.Context, state filterstate.FilterState) ([]DimensionFilter, error) {
	var dims []DimensionFilter
	if len(state.Colors) > 0 || len(state.Sizes) > 0 {
		color, size, err := s.attributeService.ColorAndSize(ctx)
		if err != nil {
			return nil, err
		}
		if len(state.Colors) > 0 {
			dims = append(dims, DimensionFilter{
				Dimension:   filterstate.Dimension{Kind: filterstate.DimColor},
				AttributeID: attributeIDOf(color),
				Selected:    state.Colors,
			})
		}
		if len(state.Sizes) > 0 {
			dims = append(dims, DimensionFilter{
				Dimension:   filterstate.Dimension{Kind: filterstate.DimSize},
				AttributeID: attributeIDOf(size),
				Selected:    state.Sizes,
			})
		}
	}
	for _, id := range state.ActiveAttributeIDs() {
		dims = append(dims, DimensionFilter{
			Dimension:   filterstate.AttributeDimension(id),
			AttributeID: id,
			Selected:    state.Attributes[id],
		})
	}
	return dims, nil
}

func attributeIDOf(attr *models.Attribute) uuid.UUID {
	if attr == nil {
		return uuid.Nil
	}
	return attr.ID
}

func (s *catalogService) candidatesFor(ctx context.Context, dim DimensionFilter, scope models.Scope) (models.IDSet, error) {
	if dim.AttributeID == uuid.Nil {
		return models.NewIDSet(), nil
	}
	return s.facetService.ProductIDsMatching(ctx, dim.AttributeID, dim.Selected, scope)
}

func (s *catalogService) Candidates(ctx context.Context, state filterstate.FilterState, pageCtx PageContext) (*CandidateSets, error) {
	dims, err := s.activeDimensions(ctx, state)
	if err != nil {
		return nil, err
	}

	scope := s.BaseScope(state, pageCtx)
	results := make([]models.IDSet, len(dims))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, dim := range dims {
		eg.Go(func() error {
			ids, err := s.candidatesFor(egCtx, dim, scope)
			if err != nil {
				return err
			}
			results[i] = ids
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sets := &CandidateSets{ByDimension: make(map[filterstate.Dimension]models.IDSet, len(dims))}
	for i, dim := range dims {
		sets.ByDimension[dim.Dimension] = results[i]
		sets.Matched = sets.Matched.Intersect(results[i])
		if len(results[i]) == 0 {
			s.logger.Debug("selection dimension matches nothing", zap.Stringer("dimension", dim.Dimension))
		}
	}
	return sets, nil
}

func (s *catalogService) PageFor(ctx context.Context, state filterstate.FilterState, pageCtx PageContext, candidates *CandidateSets, offset, limit int) (*models.Page, error) {
	limit = ClampLimit(limit)
	offset = max(offset, 0)
	if candidates.Empty() {
		metrics.ShortCircuits.Inc()
		metrics.CatalogPages.WithLabelValues("empty").Inc()
		return EmptyPage(offset, limit), nil
	}

	var matched models.IDSet
	if candidates != nil {
		matched = candidates.Matched
	}
	page, err := s.fetchPage(ctx, s.BaseScope(state, pageCtx).WithCandidates(matched), state.Sort, offset, limit)
	if err != nil {
		metrics.CatalogPages.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CatalogPages.WithLabelValues("ok").Inc()
	return page, nil
}

func (s *catalogService) Assemble(ctx context.Context, state filterstate.FilterState, pageCtx PageContext, offset, limit int) (*models.Page, error) {
	start := time.Now()
	defer func() { metrics.AssembleSeconds.Observe(time.Since(start).Seconds()) }()

	candidates, err := s.Candidates(ctx, state, pageCtx)
	if err != nil {
		metrics.CatalogPages.WithLabelValues("error").Inc()
		return nil, err
	}
	return s.PageFor(ctx, state, pageCtx, candidates, offset, limit)
}

func (s *catalogService) fetchPage(ctx context.Context, scope models.Scope, sort models.SortKey, offset, limit int) (*models.Page, error) {
	limit = ClampLimit(limit)
	offset = max(offset, 0)
	if scope.Unsatisfiable() {
		return EmptyPage(offset, limit), nil
	}

	total, err := s.productRepo.CountScoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	page := EmptyPage(offset, limit)
	page.Total = total
	page.HasMore = offset+limit < total
	if offset >= total {
		return page, nil
	}

	items, err := s.productRepo.ListScoped(ctx, scope, models.ParseSortKey(string(sort)), limit, offset)
	if err != nil {
		return nil, err
	}
	if items != nil {
		page.Items = items
	}
	return page, nil
}
