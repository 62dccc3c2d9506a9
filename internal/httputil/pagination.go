package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// Pagination defaults.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParsePagination parses the offset and limit query parameters. Offset defaults to
// 0 and limit to DefaultLimit; limit cannot exceed MaxLimit.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, apperrors.NewValidationError("invalid offset parameter: must be a non-negative integer", err)
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 || limit > MaxLimit {
		return 0, 0, apperrors.NewValidationError("invalid limit parameter: must be between 1 and 100", err)
	}

	return offset, limit, nil
}

// Page returns the [offset, offset+limit) window of items, clamped to its bounds.
func Page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
