package handlers

import (
	"net/http"

	"shopcatalog/internal/common"
	"shopcatalog/internal/models"
	"shopcatalog/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CategoryHandlers handles category-related HTTP requests.
type CategoryHandlers struct {
	categoryService services.CategoryService
	views           services.CatalogViewService
}

// NewCategoryHandlers creates a new category handlers instance.
func NewCategoryHandlers(categoryService services.CategoryService, views services.CatalogViewService) *CategoryHandlers {
	return &CategoryHandlers{
		categoryService: categoryService,
		views:           views,
	}
}

// ListCategories handles GET /categories: every category annotated with its
// subtree product count.
func (h *CategoryHandlers) ListCategories(c echo.Context) error {
	categories, err := h.views.CategoriesWithCounts(c.Request().Context())
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"categories": categories,
	})
}

// CreateCategory handles POST /categories (multipart form: name, optional
// parent_id, picture).
func (h *CategoryHandlers) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.FormValue("name")

	var parentID *uuid.UUID
	if raw := c.FormValue("parent_id"); raw != "" {
		id, err := common.ValidateUUID(raw, "parent_id")
		if err != nil {
			return common.RespondError(c, err)
		}
		parentID = &id
	}

	upload, closer, err := imageUpload(c)
	if err != nil {
		return common.RespondError(c, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	category, err := h.categoryService.Create(ctx, name, parentID, upload)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

// GetCategory handles GET /categories/:id with parent, children, and
// products populated.
func (h *CategoryHandlers) GetCategory(c echo.Context) error {
	categoryID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.RespondError(c, err)
	}

	detail, err := h.categoryService.Get(c.Request().Context(), categoryID)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateCategory handles PUT /categories/:id. All fields are optional; a
// parent_id field with an empty value moves the category to the root.
func (h *CategoryHandlers) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.RespondError(c, err)
	}

	var upd services.CategoryUpdate

	if formFieldProvided(c, "name") {
		name := c.FormValue("name")
		upd.Name = &name
	}
	if formFieldProvided(c, "parent_id") {
		upd.ParentSet = true
		if raw := c.FormValue("parent_id"); raw != "" {
			id, err := common.ValidateUUID(raw, "parent_id")
			if err != nil {
				return common.RespondError(c, err)
			}
			upd.ParentID = &id
		}
	}

	upload, closer, err := imageUpload(c)
	if err != nil {
		return common.RespondError(c, err)
	}
	if closer != nil {
		defer closer.Close()
	}
	upd.Upload = upload

	category, warnings, err := h.categoryService.Update(ctx, categoryID, upd)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, updateResponse{Category: category, Warnings: warnings})
}

// DeleteCategory handles DELETE /categories/:id. Categories with direct
// children or products are never deleted.
func (h *CategoryHandlers) DeleteCategory(c echo.Context) error {
	categoryID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.RespondError(c, err)
	}

	warnings, err := h.categoryService.Delete(c.Request().Context(), categoryID)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, deleteResponse{Message: "category deleted", Warnings: warnings})
}

type updateResponse struct {
	Category any             `json:"category,omitempty"`
	Product  any             `json:"product,omitempty"`
	Warnings models.Warnings `json:"warnings,omitempty"`
}

type deleteResponse struct {
	Message  string          `json:"message"`
	Warnings models.Warnings `json:"warnings,omitempty"`
}
