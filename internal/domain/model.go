package domain

import "math"

// PageRequest holds the skip/limit paging parameters of a listing request.
// Page is 1-based.
type PageRequest struct {
	Page  int
	Limit int
}

// Skip returns the number of matching documents before the requested page.
// It saturates at math.MaxInt64 and is never negative.
func (r PageRequest) Skip() int64 {
	if r.Page < 1 || r.Limit < 1 {
		return 0
	}
	pages, limit := int64(r.Page-1), int64(r.Limit)
	if pages > math.MaxInt64/limit {
		return math.MaxInt64
	}
	return pages * limit
}

// Pagination is the paging block returned with every listing.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int64 `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
	Limit       int   `json:"limit"`
	ShowingFrom int64 `json:"showing_from"`
	ShowingTo   int64 `json:"showing_to"`
}
