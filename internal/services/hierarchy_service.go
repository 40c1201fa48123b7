package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/caching"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrCategoryNotFound = errors.New("category not found")

// ResolvedPath is a chain of active nodes from level 1 downwards. The empty
// path is the unscoped "all products" page.
type ResolvedPath struct {
	Nodes []*models.CategoryNode `json:"nodes"`
}

func (p *ResolvedPath) LowestLevel() models.CategoryLevel {
	if p == nil {
		return models.LevelNone
	}
	return models.CategoryLevel(len(p.Nodes))
}

// Deepest returns the most specific node, or nil for the unscoped page.
func (p *ResolvedPath) Deepest() *models.CategoryNode {
	if p == nil || len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[len(p.Nodes)-1]
}

func (p *ResolvedPath) IDAt(level models.CategoryLevel) (uuid.UUID, bool) {
	if p == nil || !level.Valid() || int(level) > len(p.Nodes) {
		return uuid.Nil, false
	}
	return p.Nodes[level-1].ID, true
}

// Ref is the page context used to scope catalog reads; nil when unscoped.
func (p *ResolvedPath) Ref() *models.CategoryRef {
	node := p.Deepest()
	if node == nil {
		return nil
	}
	return &models.CategoryRef{Level: p.LowestLevel(), ID: node.ID}
}

func (p *ResolvedPath) Slugs() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.Slug
	}
	return out
}

type HierarchyService interface {
	// Resolve walks up to four slugs down the active tree. Any slug that does
	// not match an active child of the previous level fails the whole path.
	Resolve(ctx context.Context, slugs []string) (*ResolvedPath, error)
	Children(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, error)
	// CategoryFacet lists the nodes a shopper can narrow to from this page.
	CategoryFacet(ctx context.Context, path *ResolvedPath) ([]*models.CategoryNode, error)
	LowestActiveIDs(ctx context.Context, path *ResolvedPath) ([]uuid.UUID, error)
	Grid(ctx context.Context, path *ResolvedPath) ([]models.GridTile, error)
	// Warm loads every active level into the cache and returns the node count.
	Warm(ctx context.Context) (int, error)
}

type hierarchyService struct {
	categoryRepo repositories.CategoryRepository
	cacheService caching.CacheService
	imageService ImageService
	cacheTTL     time.Duration
	logger       *zap.Logger
}

func NewHierarchyService(categoryRepo repositories.CategoryRepository, cacheService caching.CacheService, imageService ImageService, cacheTTL time.Duration, logger *zap.Logger) HierarchyService {
	return &hierarchyService{
		categoryRepo: categoryRepo,
		cacheService: cacheService,
		imageService: imageService,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

func (s *hierarchyService) Children(ctx context.Context, level models.CategoryLevel, parentID *uuid.UUID) ([]*models.CategoryNode, error) {
	if !level.Valid() {
		return nil, nil
	}
	if s.cacheService != nil {
		nodes, found, err := s.cacheService.GetCategoryChildren(ctx, level, parentID)
		if err != nil {
			s.logger.Warn("category cache read failed", zap.Stringer("level", level), zap.Error(err))
		} else if found {
			return nodes, nil
		}
	}

	nodes, err := s.categoryRepo.ListActiveChildren(ctx, level, parentID)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.SetCategoryChildren(ctx, level, parentID, nodes, s.cacheTTL); err != nil {
			s.logger.Warn("category cache write failed", zap.Stringer("level", level), zap.Error(err))
		}
	}
	return nodes, nil
}

func matchesSlug(node *models.CategoryNode, slug string) bool {
	if strings.ToLower(strings.TrimSpace(node.Slug)) == slug {
		return true
	}
	for _, syn := range node.Synonyms {
		if strings.ToLower(strings.TrimSpace(syn)) == slug {
			return true
		}
	}
	return false
}

func (s *hierarchyService) Resolve(ctx context.Context, slugs []string) (*ResolvedPath, error) {
	if len(slugs) > models.MaxCategoryDepth {
		return nil, fmt.Errorf("%w: path has %d segments", ErrCategoryNotFound, len(slugs))
	}

	path := &ResolvedPath{}
	var parentID *uuid.UUID
	for i, raw := range slugs {
		slug := strings.ToLower(strings.TrimSpace(raw))
		level := models.CategoryLevel(i + 1)

		children, err := s.Children(ctx, level, parentID)
		if err != nil {
			return nil, err
		}

		var match *models.CategoryNode
		// Exact slugs take precedence over synonyms.
		for _, c := range children {
			if strings.ToLower(c.Slug) == slug {
				match = c
				break
			}
		}
		if match == nil {
			for _, c := range children {
				if matchesSlug(c, slug) {
					match = c
					break
				}
			}
		}
		if match == nil {
			return nil, fmt.Errorf("%w: %q at %s", ErrCategoryNotFound, raw, level)
		}

		path.Nodes = append(path.Nodes, match)
		id := match.ID
		parentID = &id
	}
	return path, nil
}

func (s *hierarchyService) CategoryFacet(ctx context.Context, path *ResolvedPath) ([]*models.CategoryNode, error) {
	deepest := path.Deepest()
	if deepest == nil {
		return s.Children(ctx, models.LevelCategory, nil)
	}
	if path.LowestLevel() == models.LevelSubSubSubcategory {
		return []*models.CategoryNode{deepest}, nil
	}
	id := deepest.ID
	return s.Children(ctx, path.LowestLevel()+1, &id)
}

func (s *hierarchyService) LowestActiveIDs(ctx context.Context, path *ResolvedPath) ([]uuid.UUID, error) {
	nodes, err := s.CategoryFacet(ctx, path)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids, nil
}

func (s *hierarchyService) Grid(ctx context.Context, path *ResolvedPath) ([]models.GridTile, error) {
	if path.LowestLevel() != models.LevelCategory {
		return nil, nil
	}
	children, err := s.CategoryFacet(ctx, path)
	if err != nil {
		return nil, err
	}

	tiles := make([]models.GridTile, 0, len(children))
	for _, child := range children {
		tile := models.GridTile{Node: child}
		if child.GridImageKey != nil && *child.GridImageKey != "" && s.imageService != nil {
			url, err := s.imageService.GetPresignedURL(ctx, *child.GridImageKey)
			if err != nil {
				s.logger.Warn("grid image presign failed", zap.String("key", *child.GridImageKey), zap.Error(err))
			} else {
				tile.ImageURL = url
			}
		}
		tiles = append(tiles, tile)
	}
	return tiles, nil
}

func (s *hierarchyService) Warm(ctx context.Context) (int, error) {
	total := 0
	frontier := []*uuid.UUID{nil}
	for level := models.LevelCategory; level.Valid() && len(frontier) > 0; level++ {
		var next []*uuid.UUID
		for _, parent := range frontier {
			// Read through to the store so stale entries are replaced.
			nodes, err := s.categoryRepo.ListActiveChildren(ctx, level, parent)
			if err != nil {
				return total, err
			}
			if s.cacheService != nil {
				if err := s.cacheService.SetCategoryChildren(ctx, level, parent, nodes, s.cacheTTL); err != nil {
					return total, err
				}
			}
			total += len(nodes)
			for _, n := range nodes {
				id := n.ID
				next = append(next, &id)
			}
		}
		frontier = next
	}
	return total, nil
}
