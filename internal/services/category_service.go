package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"shopcatalog/internal/caching"
	"shopcatalog/internal/common"
	"shopcatalog/internal/models"
	"shopcatalog/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImageUpload is a pending image received from a client.
type ImageUpload struct {
	Filename string
	Reader   io.Reader
}

// CategoryUpdate carries a partial category mutation. ParentSet
// distinguishes "leave the parent alone" from "re-parent to ParentID"
// (nil ParentID with ParentSet moves the category to the root).
type CategoryUpdate struct {
	Name      *string
	ParentID  *uuid.UUID
	ParentSet bool
	Upload    *ImageUpload
}

// CategoryService owns the category tree: CRUD, parent/child linkage, the
// no-orphan delete guard, and the picture lifecycle of every node.
type CategoryService interface {
	Create(ctx context.Context, name string, parentID *uuid.UUID, upload *ImageUpload) (*models.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CategoryDetail, error)
	Update(ctx context.Context, id uuid.UUID, upd CategoryUpdate) (*models.Category, models.Warnings, error)
	Delete(ctx context.Context, id uuid.UUID) (models.Warnings, error)
}

type categoryService struct {
	categoryRepo repositories.CategoryRepository
	productRepo  repositories.ProductRepository
	assets       AssetService
	cache        caching.CacheService
	logger       zerolog.Logger
}

func NewCategoryService(categoryRepo repositories.CategoryRepository, productRepo repositories.ProductRepository, assets AssetService, cache caching.CacheService, logger zerolog.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		assets:       assets,
		cache:        cache,
		logger:       logger.With().Str("component", "categories").Logger(),
	}
}

func (s *categoryService) Create(ctx context.Context, name string, parentID *uuid.UUID, upload *ImageUpload) (*models.Category, error) {
	if err := common.ValidateRequiredString(name, "name"); err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, common.NewValidationError("picture", "image is required")
	}

	// The parent must resolve before anything durable happens.
	if parentID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *parentID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.NewValidationError("parent_id", "parent category does not exist")
			}
			return nil, err
		}
	}

	ref, err := s.assets.Save(ctx, assetName("category", upload.Filename), upload.Reader)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:       uuid.New(),
		Name:     name,
		Picture:  ref,
		ParentID: parentID,
	}
	// Record creation is the last step: on failure nothing references the
	// stored asset and the upload is an accepted orphan, never a dangling
	// reference.
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.invalidateViews(ctx)
	return category, nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*models.CategoryDetail, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.CategoryDetail{Category: *category}

	if category.ParentID != nil {
		parent, err := s.categoryRepo.GetByID(ctx, *category.ParentID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		detail.Parent = parent
	}

	if detail.Children, err = s.categoryRepo.ListByParent(ctx, id); err != nil {
		return nil, err
	}
	if detail.Products, err = s.productRepo.ListByCategory(ctx, id); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, upd CategoryUpdate) (*models.Category, models.Warnings, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if upd.Name != nil {
		if err := common.ValidateRequiredString(*upd.Name, "name"); err != nil {
			return nil, nil, err
		}
		category.Name = *upd.Name
	}

	if upd.ParentSet {
		if err := s.validateParent(ctx, id, upd.ParentID); err != nil {
			return nil, nil, err
		}
		category.ParentID = upd.ParentID
	}

	var warnings models.Warnings
	if upd.Upload != nil {
		// Replace the picture: old delete is best-effort, new save must
		// succeed before the row is committed.
		oldRef := category.Picture
		if err := s.assets.Delete(ctx, oldRef); err != nil {
			s.logger.Warn().Err(err).Str("ref", oldRef).Msg("failed to delete replaced image")
			warnings = warnings.Add(fmt.Sprintf("previous image %s could not be deleted", oldRef))
		}
		ref, err := s.assets.Save(ctx, assetName("category", upd.Upload.Filename), upd.Upload.Reader)
		if err != nil {
			return nil, warnings, err
		}
		category.Picture = ref
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, warnings, err
	}

	s.invalidateViews(ctx)
	return category, warnings, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) (models.Warnings, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Deletion is never cascading: any direct child or product blocks it.
	childCount, err := s.categoryRepo.DirectChildCount(ctx, id)
	if err != nil {
		return nil, err
	}
	productCount, err := s.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if childCount > 0 || productCount > 0 {
		return nil, fmt.Errorf("category has %d children and %d products: %w", childCount, productCount, common.ErrConflict)
	}

	var warnings models.Warnings
	if err := s.assets.Delete(ctx, category.Picture); err != nil {
		s.logger.Warn().Err(err).Str("ref", category.Picture).Msg("failed to delete category image")
		warnings = warnings.Add(fmt.Sprintf("image %s could not be deleted", category.Picture))
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return warnings, err
	}

	s.invalidateViews(ctx)
	return warnings, nil
}

// validateParent rejects a re-parent that would break the forest: the
// parent must exist, and must not be the category itself or any of its
// descendants.
func (s *categoryService) validateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return common.NewValidationError("parent_id", "category cannot be its own parent")
	}

	parent, err := s.categoryRepo.GetByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewValidationError("parent_id", "parent category does not exist")
		}
		return err
	}

	// Walk ancestors of the proposed parent; meeting the category means the
	// parent sits inside the category's own subtree.
	seen := map[uuid.UUID]bool{*parentID: true}
	for parent.ParentID != nil {
		ancestorID := *parent.ParentID
		if ancestorID == id {
			return common.NewValidationError("parent_id", "cannot move a category under one of its descendants")
		}
		if seen[ancestorID] {
			break
		}
		seen[ancestorID] = true

		if parent, err = s.categoryRepo.GetByID(ctx, ancestorID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				break
			}
			return err
		}
	}
	return nil
}

func (s *categoryService) invalidateViews(ctx context.Context) {
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}

// assetName builds a unique, timestamp-qualified object name so concurrent
// uploads of identically named files never collide.
func assetName(entity, filename string) string {
	return fmt.Sprintf("%s-%d-%s", entity, time.Now().UnixNano(), filename)
}
