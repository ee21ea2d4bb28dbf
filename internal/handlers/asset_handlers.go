package handlers

import (
	"mime"
	"net/http"
	"path"
	"time"

	"shopcatalog/internal/common"
	"shopcatalog/internal/services"

	"github.com/labstack/echo/v4"
)

// AssetHandlers serves stored images back to clients.
type AssetHandlers struct {
	assets services.AssetService
}

func NewAssetHandlers(assets services.AssetService) *AssetHandlers {
	return &AssetHandlers{assets: assets}
}

// GetAsset handles GET /assets/* and streams the stored object.
func (h *AssetHandlers) GetAsset(c echo.Context) error {
	ref := c.Param("*")
	if ref == "" {
		return common.RespondError(c, common.NewValidationError("ref", "asset reference is required"))
	}

	obj, err := h.assets.Load(c.Request().Context(), ref)
	if err != nil {
		return common.RespondError(c, err)
	}
	defer obj.Close()

	contentType := mime.TypeByExtension(path.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, contentType, obj)
}

// GetAssetURL handles GET /asset-url?ref=... and returns a time-limited
// download URL.
func (h *AssetHandlers) GetAssetURL(c echo.Context) error {
	ref := c.QueryParam("ref")
	if ref == "" {
		return common.RespondError(c, common.NewValidationError("ref", "asset reference is required"))
	}

	url, err := h.assets.PresignedURL(c.Request().Context(), ref, 15*time.Minute)
	if err != nil {
		return common.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
