package client

import (
	"maps"

	"github.com/simp-lee/claimdesk/internal/pkg"
)

// Query is the keyword, filters and page cursor sent to a search endpoint.
type Query struct {
	Keyword  string
	Filters  map[string]string
	PageNum  int
	PageSize int
	// Sort is "field:asc" or "field:desc"; empty uses the server default.
	Sort string
}

func (q Query) clone() Query {
	q.Filters = maps.Clone(q.Filters)
	return q
}

// request renders q as the body every search endpoint accepts.
func (q Query) request() pkg.SearchRequest {
	cond := make(map[string]any, len(q.Filters)+1)
	for k, v := range q.Filters {
		cond[k] = v
	}
	if q.Keyword != "" {
		cond["keyword"] = q.Keyword
	}
	return pkg.SearchRequest{
		SearchCondition: cond,
		PageInfo:        pkg.SearchPageInfo{PageNum: q.PageNum, PageSize: q.PageSize},
		Sort:            q.Sort,
	}
}
