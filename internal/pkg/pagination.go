package pkg

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	// maxPage bounds the page number so that page arithmetic stays in range.
	maxPage = math.MaxInt32
)

// ParsePageRequest extracts page and limit from the query string.
// A missing, non-numeric or non-positive page becomes 1 and the same for limit
// becomes 20. page is capped at maxPage and limit at maxLimit; maxLimit 0
// leaves limit unbounded.
func ParsePageRequest(c *gin.Context, maxLimit int) domain.PageRequest {
	return domain.PageRequest{
		Page:  QueryInt(c, "page", defaultPage, maxPage),
		Limit: QueryInt(c, "limit", defaultLimit, maxLimit),
	}
}

// QueryInt reads a positive integer query parameter. Missing, non-numeric and
// non-positive values yield def; values above ceiling (when ceiling > 0)
// yield ceiling.
func QueryInt(c *gin.Context, key string, def, ceiling int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		v = def
	}
	if ceiling > 0 && v > ceiling {
		v = ceiling
	}
	return v
}

// NewPagination computes the paging block for a page of returned items out of
// total matching documents.
func NewPagination(req domain.PageRequest, total int64, returned int) domain.Pagination {
	var totalPages int64
	if total > 0 && req.Limit > 0 {
		totalPages = (total-1)/int64(req.Limit) + 1
	}

	skip := req.Skip()
	var from int64
	if total > 0 {
		from = addSat(skip, 1)
	}

	return domain.Pagination{
		CurrentPage: req.Page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNext:     int64(req.Page) < totalPages,
		HasPrev:     req.Page > 1,
		Limit:       req.Limit,
		ShowingFrom: from,
		ShowingTo:   min(addSat(skip, int64(returned)), total),
	}
}

// addSat adds two non-negative values, saturating at math.MaxInt64.
func addSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
