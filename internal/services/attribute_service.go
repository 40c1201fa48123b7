package services

import (
	"context"
	"slices"

	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// Well-known attribute names backing the color and size dimensions.
const (
	ColorAttributeName = "color"
	SizeAttributeName  = "size"
)

// maxScopedLevel is the deepest level attributes can be linked at.
const maxScopedLevel = models.LevelSubSubcategory

// VisibleAttribute is an attribute as the filter panel renders it.
type VisibleAttribute struct {
	*models.Attribute
	TopLine bool `json:"top_line"`
}

// AttributeListing is the filter panel definition for one page.
type AttributeListing struct {
	Attributes   []*VisibleAttribute  `json:"attributes"`
	ShowPrice    bool                 `json:"show_price"`
	ShowBrands   bool                 `json:"show_brands"`
	PriceBuckets []models.PriceBucket `json:"price_buckets"`
	SortKeys     []models.SortKey     `json:"sort_keys"`
}

type AttributeService interface {
	// ForPath returns the attributes linked to the most specific level of the
	// path that has any, trying level 3, then 2, then 1. Levels never merge.
	ForPath(ctx context.Context, path *ResolvedPath) ([]*models.Attribute, error)
	// FilterSettings never fails; a missing or unreadable row shows everything.
	FilterSettings(ctx context.Context, path *ResolvedPath) *models.FilterSettings
	Listing(ctx context.Context, path *ResolvedPath) (*AttributeListing, error)
	// ColorAndSize returns the attributes behind the color and size
	// dimensions; either is nil when the catalog does not define it.
	ColorAndSize(ctx context.Context) (color, size *models.Attribute, err error)
}

type attributeService struct {
	attributeRepo      repositories.AttributeRepository
	filterSettingsRepo repositories.FilterSettingsRepository
	logger             *zap.Logger
}

func NewAttributeService(attributeRepo repositories.AttributeRepository, filterSettingsRepo repositories.FilterSettingsRepository, logger *zap.Logger) AttributeService {
	return &attributeService{
		attributeRepo:      attributeRepo,
		filterSettingsRepo: filterSettingsRepo,
		logger:             logger,
	}
}

func (s *attributeService) ForPath(ctx context.Context, path *ResolvedPath) ([]*models.Attribute, error) {
	start := min(path.LowestLevel(), maxScopedLevel)
	for level := start; level >= models.LevelCategory; level-- {
		nodeID, ok := path.IDAt(level)
		if !ok {
			continue
		}
		attrs, err := s.attributeRepo.ListScopedTo(ctx, level, nodeID)
		if err != nil {
			return nil, err
		}
		if len(attrs) == 0 {
			continue
		}
		for _, attr := range attrs {
			options, err := s.attributeRepo.ListOptions(ctx, attr.ID)
			if err != nil {
				return nil, err
			}
			attr.Options = options
		}
		slices.SortStableFunc(attrs, func(a, b *models.Attribute) int {
			return a.DisplayOrder - b.DisplayOrder
		})
		return attrs, nil
	}
	return []*models.Attribute{}, nil
}

func (s *attributeService) FilterSettings(ctx context.Context, path *ResolvedPath) *models.FilterSettings {
	categoryID, ok := path.IDAt(models.LevelCategory)
	if !ok {
		return models.DefaultFilterSettings()
	}
	settings, err := s.filterSettingsRepo.GetForCategory(ctx, categoryID)
	if err != nil {
		if !common.IsNotFound(err) {
			s.logger.Warn("filter settings unavailable, showing all filters",
				zap.String("category_id", categoryID.String()), zap.Error(err))
		}
		return models.DefaultFilterSettings()
	}
	return settings
}

func (s *attributeService) Listing(ctx context.Context, path *ResolvedPath) (*AttributeListing, error) {
	attrs, err := s.ForPath(ctx, path)
	if err != nil {
		return nil, err
	}
	settings := s.FilterSettings(ctx, path)

	listing := &AttributeListing{
		Attributes:   make([]*VisibleAttribute, 0, len(attrs)),
		ShowPrice:    settings.ShowPrice,
		ShowBrands:   settings.ShowBrands,
		PriceBuckets: models.PriceBuckets(),
		SortKeys:     models.SortKeys(),
	}
	for _, attr := range attrs {
		if !settings.AllAvailable && slices.Contains(settings.HiddenIDs, attr.ID) {
			continue
		}
		topLine := attr.Visibility == models.VisibilityTopLine
		if !settings.AllAvailable {
			topLine = slices.Contains(settings.TopLineIDs, attr.ID)
		}
		listing.Attributes = append(listing.Attributes, &VisibleAttribute{Attribute: attr, TopLine: topLine})
	}
	return listing, nil
}

func (s *attributeService) ColorAndSize(ctx context.Context) (*models.Attribute, *models.Attribute, error) {
	byName, err := s.attributeRepo.GetByNames(ctx, []string{ColorAttributeName, SizeAttributeName})
	if err != nil {
		return nil, nil, err
	}
	return byName[ColorAttributeName], byName[SizeAttributeName], nil
}
