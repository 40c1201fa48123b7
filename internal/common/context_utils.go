package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	AdminSubjectKey contextKey = "admin_subject"
)

// MaxOffset bounds how deep a listing may be paged.
const MaxOffset = 100000

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendStoreError maps a data access failure onto the error envelope.
func SendStoreError(c echo.Context, resource string, err error) error {
	if IsNotFound(err) {
		return SendNotFoundError(c, resource)
	}
	return SendServerError(c, fmt.Sprintf("Failed to load %s", resource))
}

// ValidateUUID parses a path or query id.
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}
	if len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("%s must be exactly 36 characters (including hyphens)", fieldName)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s contains invalid characters: %v", fieldName, err)
	}
	return id, nil
}

// ValidatePaginationParams clamps limit to (0, maxLimit] and rejects deep offsets.
func ValidatePaginationParams(limit, offset, maxLimit int) (int, int, error) {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > MaxOffset {
		return 0, 0, fmt.Errorf("offset cannot exceed %d", MaxOffset)
	}
	return limit, offset, nil
}

// SplitSlugPath turns "shoes/running/" into its non-empty, lower-cased segments.
func SplitSlugPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetAdminSubjectFromContext returns the authenticated admin subject, if any.
func GetAdminSubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(AdminSubjectKey).(string)
	return sub, ok && sub != ""
}
