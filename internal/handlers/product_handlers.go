package handlers

import (
	"net/http"

	"shopcatalog/internal/common"
	"shopcatalog/internal/services"

	"github.com/labstack/echo/v4"
)

// ProductHandlers handles product-related HTTP requests.
type ProductHandlers struct {
	productService services.ProductService
	views          services.CatalogViewService
}

// NewProductHandlers creates a new product handlers instance.
func NewProductHandlers(productService services.ProductService, views services.CatalogViewService) *ProductHandlers {
	return &ProductHandlers{
		productService: productService,
		views:          views,
	}
}

// ListProducts handles GET /products with category context populated.
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	products, err := h.views.ProductDetails(c.Request().Context())
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"products": products,
	})
}

// CreateProduct handles POST /products (multipart form: name, category_id,
// picture).
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.FormValue("name")

	categoryID, err := common.ValidateUUID(c.FormValue("category_id"), "category_id")
	if err != nil {
		return common.RespondError(c, err)
	}

	upload, closer, err := imageUpload(c)
	if err != nil {
		return common.RespondError(c, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	product, err := h.productService.Create(ctx, name, categoryID, upload)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

// GetProduct handles GET /products/:id with the category and its parent
// populated.
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.RespondError(c, err)
	}

	detail, err := h.views.ProductDetail(c.Request().Context(), productID)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateProduct handles PUT /products/:id. Name and category are required;
// the picture is replaced only when a new one is uploaded.
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.RespondError(c, err)
	}

	name := c.FormValue("name")

	categoryID, err := common.ValidateUUID(c.FormValue("category_id"), "category_id")
	if err != nil {
		return common.RespondError(c, err)
	}

	upload, closer, err := imageUpload(c)
	if err != nil {
		return common.RespondError(c, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	product, warnings, err := h.productService.Update(ctx, productID, name, categoryID, upload)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, updateResponse{Product: product, Warnings: warnings})
}

// DeleteProduct handles DELETE /products/:id.
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.RespondError(c, err)
	}

	warnings, err := h.productService.Delete(c.Request().Context(), productID)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, deleteResponse{Message: "product deleted", Warnings: warnings})
}
