package handlers

import (
	"io"
	"net/http"

	"shopcatalog/internal/common"
	"shopcatalog/internal/services"

	"github.com/labstack/echo/v4"
)

// Uploads above this size are rejected before any processing.
const maxUploadSize = 5 * 1024 * 1024 // 5MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// imageUpload extracts and validates the "picture" form file. It returns
// (nil, nil, nil) when the field is absent so callers can decide whether the
// image is required. The returned closer must be closed by the caller.
func imageUpload(c echo.Context) (*services.ImageUpload, io.Closer, error) {
	file, err := c.FormFile("picture")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil, nil
		}
		return nil, nil, common.NewValidationError("picture", "image upload is malformed")
	}

	if file.Size > maxUploadSize {
		return nil, nil, common.NewValidationError("picture", "file size exceeds the 5MB limit")
	}

	src, err := file.Open()
	if err != nil {
		return nil, nil, common.NewValidationError("picture", "image upload could not be read")
	}

	// Sniff the real content type instead of trusting the client header.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		src.Close()
		return nil, nil, common.NewValidationError("picture", "image upload could not be read")
	}
	if !allowedImageTypes[http.DetectContentType(buffer[:n])] {
		src.Close()
		return nil, nil, common.NewValidationError("picture", "only JPEG, PNG, and GIF images are allowed")
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		src.Close()
		return nil, nil, common.NewValidationError("picture", "image upload could not be read")
	}

	return &services.ImageUpload{Filename: file.Filename, Reader: src}, src, nil
}

// formFieldProvided reports whether the multipart form carried the field at
// all, which is distinct from carrying it with an empty value.
func formFieldProvided(c echo.Context, field string) bool {
	params, err := c.FormParams()
	if err != nil {
		return false
	}
	_, ok := params[field]
	return ok
}
