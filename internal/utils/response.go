package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// PaginationParams holds pagination-related query parameters
type PaginationParams struct {
	Page  int
	Limit int
}

// ParsePaginationParams parses page and limit from the query string.
// A limit of zero means "everything" and is kept as is.
func ParsePaginationParams(c *gin.Context, maxLimit int) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	if page < 1 {
		page = 1
	}
	if limit < 0 {
		limit = 0
	} else if limit > maxLimit {
		limit = maxLimit
	}

	return PaginationParams{Page: page, Limit: limit}
}

// Bounds returns the slice bounds of the requested page within total items
func (p PaginationParams) Bounds(total int) (int, int) {
	if p.Limit == 0 {
		return 0, total
	}
	start := min((p.Page-1)*p.Limit, total)
	end := min(start+p.Limit, total)
	return start, end
}

// SendErrorResponse sends a standardized error response
func SendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}
