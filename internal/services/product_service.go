package services

import (
	"context"
	"errors"
	"fmt"

	"shopcatalog/internal/caching"
	"shopcatalog/internal/common"
	"shopcatalog/internal/models"
	"shopcatalog/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProductService owns product CRUD, the category-existence referential
// check, and image replacement on update.
type ProductService interface {
	Create(ctx context.Context, name string, categoryID uuid.UUID, upload *ImageUpload) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ProductDetail, error)
	Update(ctx context.Context, id uuid.UUID, name string, categoryID uuid.UUID, upload *ImageUpload) (*models.Product, models.Warnings, error)
	Delete(ctx context.Context, id uuid.UUID) (models.Warnings, error)
}

type productService struct {
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	assets       AssetService
	cache        caching.CacheService
	logger       zerolog.Logger
}

func NewProductService(productRepo repositories.ProductRepository, categoryRepo repositories.CategoryRepository, assets AssetService, cache caching.CacheService, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		assets:       assets,
		cache:        cache,
		logger:       logger.With().Str("component", "products").Logger(),
	}
}

func (s *productService) Create(ctx context.Context, name string, categoryID uuid.UUID, upload *ImageUpload) (*models.Product, error) {
	if err := common.ValidateRequiredString(name, "name"); err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, common.NewValidationError("picture", "image is required")
	}

	// The category must resolve before the asset is persisted, so a bad
	// reference never leaves an orphaned upload behind.
	if err := s.resolveCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	ref, err := s.assets.Save(ctx, assetName("product", upload.Filename), upload.Reader)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Picture:    ref,
		CategoryID: categoryID,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, product.ID)
	return product, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*models.ProductDetail, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, product)
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, name string, categoryID uuid.UUID, upload *ImageUpload) (*models.Product, models.Warnings, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := common.ValidateRequiredString(name, "name"); err != nil {
		return nil, nil, err
	}
	if err := s.resolveCategory(ctx, categoryID); err != nil {
		return nil, nil, err
	}

	product.Name = name
	product.CategoryID = categoryID

	var warnings models.Warnings
	if upload != nil {
		oldRef := product.Picture
		if err := s.assets.Delete(ctx, oldRef); err != nil {
			s.logger.Warn().Err(err).Str("ref", oldRef).Msg("failed to delete replaced image")
			warnings = warnings.Add(fmt.Sprintf("previous image %s could not be deleted", oldRef))
		}
		ref, err := s.assets.Save(ctx, assetName("product", upload.Filename), upload.Reader)
		if err != nil {
			return nil, warnings, err
		}
		product.Picture = ref
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, warnings, err
	}

	s.invalidateViews(ctx, id)
	return product, warnings, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) (models.Warnings, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Products have no dependents, so deletion is unconditional once found.
	var warnings models.Warnings
	if err := s.assets.Delete(ctx, product.Picture); err != nil {
		s.logger.Warn().Err(err).Str("ref", product.Picture).Msg("failed to delete product image")
		warnings = warnings.Add(fmt.Sprintf("image %s could not be deleted", product.Picture))
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return warnings, err
	}

	s.invalidateViews(ctx, id)
	return warnings, nil
}

func (s *productService) resolveCategory(ctx context.Context, categoryID uuid.UUID) error {
	if categoryID == uuid.Nil {
		return common.NewValidationError("category_id", "category is required")
	}
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewValidationError("category_id", "selected category does not exist")
		}
		return err
	}
	return nil
}

func (s *productService) buildDetail(ctx context.Context, product *models.Product) (*models.ProductDetail, error) {
	detail := &models.ProductDetail{Product: *product}

	category, err := s.categoryRepo.GetByID(ctx, product.CategoryID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return detail, nil
		}
		return nil, err
	}

	ref := &models.CategoryDetailRef{Category: *category}
	if category.ParentID != nil {
		parent, err := s.categoryRepo.GetByID(ctx, *category.ParentID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		ref.Parent = parent
	}
	detail.Category = ref
	return detail, nil
}

func (s *productService) invalidateViews(ctx context.Context, id uuid.UUID) {
	if err := s.cache.DeleteProductDetail(ctx, id); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate product cache")
	}
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}
