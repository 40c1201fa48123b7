package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"storefront/internal/caching"
	"storefront/internal/codec"
	"storefront/internal/common"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FacetService answers which filter values remain selectable in a scope.
// Narrowing the scope never adds values.
type FacetService interface {
	// AvailableValues returns the distinct parsed values of one attribute on
	// visible products in scope, sorted for display.
	AvailableValues(ctx context.Context, attributeID uuid.UUID, scope models.Scope) ([]string, error)
	// ProductIDsMatching returns products carrying any of the selected values.
	ProductIDsMatching(ctx context.Context, attributeID uuid.UUID, selected []string, scope models.Scope) (models.IDSet, error)
	AvailableBrands(ctx context.Context, scope models.Scope) ([]uuid.UUID, error)
}

type facetService struct {
	attributeRepo repositories.AttributeRepository
	valueRepo     repositories.AttributeValueRepository
	productRepo   repositories.ProductRepository
	cacheService  caching.CacheService
	cacheTTL      time.Duration
	logger        *zap.Logger
}

func NewFacetService(attributeRepo repositories.AttributeRepository, valueRepo repositories.AttributeValueRepository, productRepo repositories.ProductRepository, cacheService caching.CacheService, cacheTTL time.Duration, logger *zap.Logger) FacetService {
	return &facetService{
		attributeRepo: attributeRepo,
		valueRepo:     valueRepo,
		productRepo:   productRepo,
		cacheService:  cacheService,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// decodedRows fetches the attribute's rows in scope and decodes each with the
// attribute's declared data type.
func (s *facetService) decodedRows(ctx context.Context, attr *models.Attribute, scope models.Scope) ([]*models.ProductAttributeValue, []codec.Value, error) {
	rows, err := s.valueRepo.ListValues(ctx, attr.ID, scope)
	if err != nil {
		return nil, nil, err
	}
	values := make([]codec.Value, len(rows))
	for i, row := range rows {
		values[i] = codec.Decode(row, attr.DataType)
	}
	return rows, values, nil
}

func (s *facetService) AvailableValues(ctx context.Context, attributeID uuid.UUID, scope models.Scope) ([]string, error) {
	if scope.Unsatisfiable() {
		return []string{}, nil
	}
	attr, err := s.attributeRepo.GetByID(ctx, attributeID)
	if err != nil {
		return nil, err
	}

	scopeKey := scope.Key()
	cacheService := s.cacheService
	var generation uint64
	if cacheService != nil {
		generation, err = cacheService.Generation(ctx)
		if err != nil {
			s.logger.Warn("facet cache generation read failed", zap.Error(err))
			cacheService = nil
		}
	}
	if cacheService != nil {
		cached, found, err := cacheService.GetFacetValues(ctx, generation, attributeID, scopeKey)
		if err != nil {
			s.logger.Warn("facet cache read failed", zap.String("attribute_id", attributeID.String()), zap.Error(err))
		} else if found {
			metrics.FacetComputations.WithLabelValues("hit").Inc()
			return cached, nil
		}
	}
	metrics.FacetComputations.WithLabelValues("miss").Inc()

	_, decoded, err := s.decodedRows(ctx, attr, scope)
	if err != nil {
		return nil, err
	}

	// Spellings that differ only in case or padding collapse to one. The
	// byte-wise greatest spelling wins, which prefers lower case and does not
	// depend on row order.
	spellings := make(map[string]string)
	for _, v := range decoded {
		for _, value := range v.Strings() {
			key := codec.NormalizeKey(value)
			if key == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if current, dup := spellings[key]; dup && current >= value {
				continue
			}
			spellings[key] = value
		}
	}
	out := make([]string, 0, len(spellings))
	for _, value := range spellings {
		out = append(out, value)
	}
	slices.Sort(out)
	codec.SortValues(out)

	if cacheService != nil {
		if err := cacheService.SetFacetValues(ctx, generation, attributeID, scopeKey, out, s.cacheTTL); err != nil {
			s.logger.Warn("facet cache write failed", zap.String("attribute_id", attributeID.String()), zap.Error(err))
		}
	}
	return out, nil
}

func (s *facetService) ProductIDsMatching(ctx context.Context, attributeID uuid.UUID, selected []string, scope models.Scope) (models.IDSet, error) {
	wanted := make(map[string]struct{}, len(selected))
	for _, v := range selected {
		if key := codec.NormalizeKey(v); key != "" {
			wanted[key] = struct{}{}
		}
	}
	if len(wanted) == 0 || scope.Unsatisfiable() {
		return models.NewIDSet(), nil
	}

	attr, err := s.attributeRepo.GetByID(ctx, attributeID)
	if err != nil {
		if common.IsNotFound(err) {
			// Nothing carries an attribute that does not exist.
			return models.NewIDSet(), nil
		}
		return nil, err
	}

	rows, decoded, err := s.decodedRows(ctx, attr, scope)
	if err != nil {
		return nil, err
	}

	out := models.NewIDSet()
	for i, v := range decoded {
		if out.Has(rows[i].ProductID) {
			continue
		}
		for _, value := range v.Strings() {
			if _, ok := wanted[codec.NormalizeKey(value)]; ok {
				out.Add(rows[i].ProductID)
				break
			}
		}
	}
	return out, nil
}

func (s *facetService) AvailableBrands(ctx context.Context, scope models.Scope) ([]uuid.UUID, error) {
	if scope.Unsatisfiable() {
		return []uuid.UUID{}, nil
	}
	brands, err := s.productRepo.DistinctBrands(ctx, scope)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(brands, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return slices.Compact(brands), nil
}
