package domain

import "time"

// BaseModel replaces gorm.Model so deleted rows are removed rather than
// soft-deleted; claims and their logs are never hidden by a DeletedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageRequest is a normalized list query: 1-based page, page size, a
// "field:dir" sort, a free-text keyword and exact-match filters.
type PageRequest struct {
	Page     int
	PageSize int
	Sort     string
	Keyword  string
	Filter   map[string]string
}

// Offset is the number of rows skipped before the requested page.
func (r PageRequest) Offset() int {
	if r.Page < 1 || r.PageSize < 1 {
		return 0
	}
	return (r.Page - 1) * r.PageSize
}

// PageInfo is the pagination metadata attached to every list response.
type PageInfo struct {
	PageNum    int   `json:"pageNum"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPageInfo derives TotalPages from total and pageSize. A non-positive
// page size yields zero pages.
func NewPageInfo(pageNum, pageSize int, total int64) PageInfo {
	pages := 0
	if pageSize > 0 && total > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PageInfo{PageNum: pageNum, PageSize: pageSize, TotalItems: total, TotalPages: pages}
}

// HasNext reports whether a page follows PageNum.
func (p PageInfo) HasNext() bool {
	return p.PageNum < p.TotalPages
}

// PageResult is a single page of items plus total-count metadata.
type PageResult[T any] struct {
	Items    []T      `json:"pageData"`
	PageInfo PageInfo `json:"pageInfo"`
}
