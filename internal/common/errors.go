package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Sentinel errors for the catalog's failure taxonomy. Services wrap these
// with context via %w; handlers map them to HTTP status codes.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a delete blocked by dependent records.
	ErrConflict = errors.New("conflict")
	// ErrProcessing indicates an asset decode, resize, or storage failure.
	ErrProcessing = errors.New("processing failed")
	// ErrTimeout indicates a bounded operation exceeded its deadline.
	ErrTimeout = errors.New("timed out")
)

// ValidationError reports a missing or malformed input, or a referenced
// entity that does not exist at validation time. It is always raised before
// any durable side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ErrorResponse is the standardized error envelope returned to clients.
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// NewErrorResponse creates a standardized error response.
func NewErrorResponse(code, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// RespondError maps a service error onto the HTTP taxonomy and writes the
// response envelope.
func RespondError(c echo.Context, err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		details := map[string]string{}
		if ve.Field != "" {
			details[ve.Field] = ve.Message
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("VALIDATION_ERROR", ve.Message, details))
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("NOT_FOUND", err.Error(), nil))
	case errors.Is(err, ErrConflict):
		return c.JSON(http.StatusConflict, NewErrorResponse("CONFLICT", err.Error(), nil))
	case errors.Is(err, ErrTimeout):
		return c.JSON(http.StatusGatewayTimeout, NewErrorResponse("TIMEOUT", err.Error(), nil))
	case errors.Is(err, ErrProcessing):
		return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("PROCESSING_ERROR", err.Error(), nil))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("SERVER_ERROR", "operation could not be completed", nil))
	}
}
