package services

import (
	"context"
	"errors"
	"time"

	"shopcatalog/internal/caching"
	"shopcatalog/internal/common"
	"shopcatalog/internal/models"
	"shopcatalog/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const viewCacheTTL = 5 * time.Minute

// CatalogViewService composes the read-side views: all categories annotated
// with their subtree product totals, and products joined with their
// category chain. Results are cached in redis; correctness never depends on
// the cache being reachable.
type CatalogViewService interface {
	CategoriesWithCounts(ctx context.Context) ([]*models.CategoryWithCount, error)
	// RefreshCategoryCounts recomputes the counts view from the store and
	// writes it through the cache.
	RefreshCategoryCounts(ctx context.Context) ([]*models.CategoryWithCount, error)
	ProductDetail(ctx context.Context, id uuid.UUID) (*models.ProductDetail, error)
	ProductDetails(ctx context.Context) ([]*models.ProductDetail, error)
}

type catalogViewService struct {
	categoryRepo repositories.CategoryRepository
	productRepo  repositories.ProductRepository
	cache        caching.CacheService
	logger       zerolog.Logger
}

func NewCatalogViewService(categoryRepo repositories.CategoryRepository, productRepo repositories.ProductRepository, cache caching.CacheService, logger zerolog.Logger) CatalogViewService {
	return &catalogViewService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
		logger:       logger.With().Str("component", "catalog-views").Logger(),
	}
}

func (s *catalogViewService) CategoriesWithCounts(ctx context.Context) ([]*models.CategoryWithCount, error) {
	if cached, err := s.cache.GetCategoryCounts(ctx); cached != nil {
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("category counts cache read failed")
	}

	return s.RefreshCategoryCounts(ctx)
}

func (s *catalogViewService) RefreshCategoryCounts(ctx context.Context) ([]*models.CategoryWithCount, error) {
	// Two round trips total: the full category set and one GROUP BY over
	// products. The subtree sums are computed in memory, so deep trees cost
	// no extra queries and concurrent mutations see a single snapshot per
	// table.
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	direct, err := s.productRepo.CountsByCategory(ctx)
	if err != nil {
		return nil, err
	}

	totals := subtreeTotals(categories, direct)

	result := make([]*models.CategoryWithCount, 0, len(categories))
	for _, category := range categories {
		result = append(result, &models.CategoryWithCount{
			Category:     *category,
			ProductCount: totals[category.ID],
		})
	}

	if err := s.cache.SetCategoryCounts(ctx, result, viewCacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("category counts cache write failed")
	}
	return result, nil
}

func (s *catalogViewService) ProductDetail(ctx context.Context, id uuid.UUID) (*models.ProductDetail, error) {
	if cached, err := s.cache.GetProductDetail(ctx, id); cached != nil {
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("product detail cache read failed")
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail, err := s.assemble(ctx, product, nil)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProductDetail(ctx, detail, viewCacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("product detail cache write failed")
	}
	return detail, nil
}

func (s *catalogViewService) ProductDetails(ctx context.Context) ([]*models.ProductDetail, error) {
	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	// One category snapshot serves every join instead of a lookup per row.
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]*models.Category, len(categories))
	for _, category := range categories {
		index[category.ID] = category
	}

	details := make([]*models.ProductDetail, 0, len(products))
	for _, product := range products {
		detail, err := s.assemble(ctx, product, index)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// assemble joins a product with its category and the category's parent.
// When index is nil the categories are fetched individually.
func (s *catalogViewService) assemble(ctx context.Context, product *models.Product, index map[uuid.UUID]*models.Category) (*models.ProductDetail, error) {
	detail := &models.ProductDetail{Product: *product}

	category, err := s.lookupCategory(ctx, product.CategoryID, index)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return detail, nil
	}

	ref := &models.CategoryDetailRef{Category: *category}
	if category.ParentID != nil {
		parent, err := s.lookupCategory(ctx, *category.ParentID, index)
		if err != nil {
			return nil, err
		}
		ref.Parent = parent
	}
	detail.Category = ref
	return detail, nil
}

func (s *catalogViewService) lookupCategory(ctx context.Context, id uuid.UUID, index map[uuid.UUID]*models.Category) (*models.Category, error) {
	if index != nil {
		return index[id], nil
	}
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return category, nil
}

// subtreeTotals computes, for every category, its direct product count plus
// the counts of all descendants. The walk uses an explicit stack, so tree
// depth is limited by memory rather than goroutine stack growth.
func subtreeTotals(categories []*models.Category, direct map[uuid.UUID]int) map[uuid.UUID]int {
	present := make(map[uuid.UUID]bool, len(categories))
	for _, c := range categories {
		present[c.ID] = true
	}

	children := make(map[uuid.UUID][]uuid.UUID, len(categories))
	var roots []uuid.UUID
	for _, c := range categories {
		// A dangling parent reference is treated as a root rather than
		// dropping the subtree from the view.
		if c.ParentID != nil && present[*c.ParentID] {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		} else {
			roots = append(roots, c.ID)
		}
	}

	totals := make(map[uuid.UUID]int, len(categories))

	type frame struct {
		id       uuid.UUID
		expanded bool
	}
	for _, root := range roots {
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if !top.expanded {
				top.expanded = true
				for _, child := range children[top.id] {
					stack = append(stack, frame{id: child})
				}
				continue
			}
			stack = stack[:len(stack)-1]
			total := direct[top.id]
			for _, child := range children[top.id] {
				total += totals[child]
			}
			totals[top.id] = total
		}
	}
	return totals
}
