package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/common"
	"storefront/internal/filterstate"
	"storefront/internal/models"
	"storefront/internal/pipeline"
	"storefront/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionHeader opts a client into a browse session: selections submitted
// under the same id share memoized facets and only the latest one answers.
const SessionHeader = "X-Browse-Session"

// CatalogInvalidator is implemented by *pipeline.Invalidator.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, source string) error
}

// CatalogHandlers serves the storefront browse surface.
type CatalogHandlers struct {
	graph       *pipeline.Graph
	registry    *pipeline.Registry
	hierarchy   services.HierarchyService
	attributes  services.AttributeService
	invalidator CatalogInvalidator
	logger      *zap.Logger
}

// NewCatalogHandlers accepts a nil registry, in which case the session header
// is ignored.
func NewCatalogHandlers(graph *pipeline.Graph, registry *pipeline.Registry, hierarchy services.HierarchyService, attributes services.AttributeService, invalidator CatalogInvalidator, logger *zap.Logger) *CatalogHandlers {
	return &CatalogHandlers{
		graph:       graph,
		registry:    registry,
		hierarchy:   hierarchy,
		attributes:  attributes,
		invalidator: invalidator,
		logger:      logger,
	}
}

// pageParams are the request parameters outside the filter selection.
type pageParams struct {
	Page    int    `schema:"page"`
	Limit   int    `schema:"limit"`
	Sellers string `schema:"sellers"`
	Path    string `schema:"path"`
}

var pageDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// CatalogResponse is one listing page with its filter panel.
type CatalogResponse struct {
	Path    []string                `json:"path"`
	Items   []*models.Product       `json:"items"`
	Total   int                     `json:"total"`
	HasMore bool                    `json:"has_more"`
	Page    int                     `json:"page"`
	Limit   int                     `json:"limit"`
	Facets  []*pipeline.FacetResult `json:"facets"`
	State   string                  `json:"state"`
}

func (h *CatalogHandlers) decodeParams(c echo.Context) (*pageParams, error) {
	var p pageParams
	if err := pageDecoder.Decode(&p, c.QueryParams()); err != nil {
		return nil, common.SendValidationError(c, "query", "Invalid query parameters")
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return &p, nil
}

// pageContext resolves the slug path and seller allowlist. It writes the
// error response itself and returns ok=false when the request cannot proceed.
func (h *CatalogHandlers) pageContext(c echo.Context, slugPath string, p *pageParams) (services.PageContext, bool, error) {
	var sellers []uuid.UUID
	for _, raw := range strings.Split(p.Sellers, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := common.ValidateUUID(raw, "sellers")
		if err != nil {
			return services.PageContext{}, false, common.SendValidationError(c, "sellers", err.Error())
		}
		sellers = append(sellers, id)
	}

	path, err := h.hierarchy.Resolve(c.Request().Context(), common.SplitSlugPath(slugPath))
	if err != nil {
		return services.PageContext{}, false, h.sendError(c, "Category", err)
	}
	return services.PageContext{Path: path, SellerIDs: sellers}, true, nil
}

func (h *CatalogHandlers) sendError(c echo.Context, resource string, err error) error {
	switch {
	case errors.Is(err, services.ErrCategoryNotFound):
		return common.SendNotFoundError(c, resource)
	case errors.Is(err, pipeline.ErrUnknownFacet):
		return common.SendNotFoundError(c, "Facet")
	case errors.Is(err, pipeline.ErrStale):
		return c.JSON(http.StatusConflict, common.CreateErrorResponse("STALE_SELECTION", "A newer selection replaced this request", nil))
	}
	h.logger.Error("catalog request failed",
		zap.String("path", c.Request().URL.Path),
		zap.String("resource", resource),
		zap.Error(err))
	return common.SendStoreError(c, resource, err)
}

// ListProducts handles GET /catalog/products and GET /catalog/c/*.
func (h *CatalogHandlers) ListProducts(c echo.Context) error {
	p, err := h.decodeParams(c)
	if p == nil {
		return err
	}
	limit, offset, err := common.ValidatePaginationParams(p.Limit, (p.Page-1)*services.ClampLimit(p.Limit), services.PageSize)
	if err != nil {
		return common.SendValidationError(c, "page", err.Error())
	}
	pageCtx, ok, err := h.pageContext(c, c.Param("*"), p)
	if !ok {
		return err
	}

	state := filterstate.FromValues(c.QueryParams())
	ctx := c.Request().Context()

	var result *pipeline.Result
	if id := strings.TrimSpace(c.Request().Header.Get(SessionHeader)); id != "" && h.registry != nil {
		result, err = h.registry.Get(id).Submit(ctx, state, pageCtx, offset, limit)
	} else {
		result, err = h.graph.Run(ctx, state, pageCtx, offset, limit, nil)
	}
	if err != nil {
		return h.sendError(c, "Products", err)
	}

	items := result.Page.Items
	if items == nil {
		items = []*models.Product{}
	}
	return c.JSON(http.StatusOK, &CatalogResponse{
		Path:    pageCtx.Path.Slugs(),
		Items:   items,
		Total:   result.Page.Total,
		HasMore: result.Page.HasMore,
		Page:    p.Page,
		Limit:   limit,
		Facets:  result.Facets,
		State:   result.State,
	})
}

// GetFacet handles GET /catalog/facets/:attributeId. The page is named by the
// path query parameter.
func (h *CatalogHandlers) GetFacet(c echo.Context) error {
	attributeID, err := common.ValidateUUID(c.Param("attributeId"), "attributeId")
	if err != nil {
		return common.SendValidationError(c, "attributeId", err.Error())
	}
	p, err := h.decodeParams(c)
	if p == nil {
		return err
	}
	pageCtx, ok, err := h.pageContext(c, p.Path, p)
	if !ok {
		return err
	}

	facet, err := h.graph.Facet(c.Request().Context(), filterstate.FromValues(c.QueryParams()), pageCtx, attributeID)
	if err != nil {
		return h.sendError(c, "Facet", err)
	}
	return c.JSON(http.StatusOK, facet)
}

// GetCategories handles GET /catalog/categories/*.
func (h *CatalogHandlers) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()
	path, err := h.hierarchy.Resolve(ctx, common.SplitSlugPath(c.Param("*")))
	if err != nil {
		return h.sendError(c, "Category", err)
	}
	facet, err := h.hierarchy.CategoryFacet(ctx, path)
	if err != nil {
		return h.sendError(c, "Categories", err)
	}
	grid, err := h.hierarchy.Grid(ctx, path)
	if err != nil {
		return h.sendError(c, "Categories", err)
	}

	nodes := []*models.CategoryNode{}
	if path != nil {
		nodes = append(nodes, path.Nodes...)
	}
	if facet == nil {
		facet = []*models.CategoryNode{}
	}
	if grid == nil {
		grid = []models.GridTile{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"path":       nodes,
		"categories": facet,
		"grid":       grid,
	})
}

// GetAttributes handles GET /catalog/attributes/*.
func (h *CatalogHandlers) GetAttributes(c echo.Context) error {
	ctx := c.Request().Context()
	path, err := h.hierarchy.Resolve(ctx, common.SplitSlugPath(c.Param("*")))
	if err != nil {
		return h.sendError(c, "Category", err)
	}
	listing, err := h.attributes.Listing(ctx, path)
	if err != nil {
		return h.sendError(c, "Attributes", err)
	}
	return c.JSON(http.StatusOK, listing)
}

// InvalidateCache handles POST /admin/catalog/cache/invalidate.
func (h *CatalogHandlers) InvalidateCache(c echo.Context) error {
	ctx := c.Request().Context()
	subject, _ := common.GetAdminSubjectFromContext(ctx)
	if err := h.invalidator.Invalidate(ctx, "admin"); err != nil {
		h.logger.Error("cache invalidation failed", zap.String("subject", subject), zap.Error(err))
		return common.SendServerError(c, "Failed to invalidate catalog cache")
	}
	h.logger.Info("catalog cache invalidated by admin", zap.String("subject", subject))
	return c.JSON(http.StatusOK, map[string]string{"status": "invalidated"})
}

// RegisterRoutes mounts the public routes on v1 and the maintenance route
// behind admin.
func (h *CatalogHandlers) RegisterRoutes(v1 *echo.Group, admin ...echo.MiddlewareFunc) {
	catalog := v1.Group("/catalog")
	catalog.GET("/products", h.ListProducts)
	catalog.GET("/c/*", h.ListProducts)
	catalog.GET("/facets/:attributeId", h.GetFacet)
	catalog.GET("/categories", h.GetCategories)
	catalog.GET("/categories/*", h.GetCategories)
	catalog.GET("/attributes", h.GetAttributes)
	catalog.GET("/attributes/*", h.GetAttributes)

	v1.POST("/admin/catalog/cache/invalidate", h.InvalidateCache, admin...)
}
