package utils

import (
	"math"
	"strconv"
)

// MaxPage bounds page numbers so offsets stay within int32 at page sizes up to 100.
const MaxPage = math.MaxInt32 / 100

// Pagination describes one page of a collection.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination computes page metadata for total items.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    int64(page)*int64(limit) < total,
		HasPrev:    page > 1,
	}
}

// ParsePage reads a 1-based page number. Anything invalid is page 1 and large values are capped at MaxPage.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return ClampPage(n)
}

// ClampPage keeps page within [1, MaxPage].
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// ParseLimit reads a page size, falling back to def and capping at max.
func ParseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Offset returns the row offset of page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}
