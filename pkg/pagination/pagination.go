// Package pagination turns ?page=&limit= into bounded page windows.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page request. Offset is derived from Page and Limit.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// New clamps page and limit into range: page below 1 becomes the first page,
// limit below 1 the default and limit above MaxLimit the maximum.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// Parse reads page and limit from the query string. Malformed values are treated as absent.
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return New(page, limit)
}

// Window returns the [start, end) bounds of page within total items.
// A non-positive limit selects everything from start.
func Window(total, page, limit int) (int, int) {
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if limit <= 0 || end > total {
		end = total
	}
	return start, end
}
