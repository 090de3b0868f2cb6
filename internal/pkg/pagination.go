package pkg

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/claimdesk/internal/domain"
	"gorm.io/gorm"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	defaultSort     = "id:desc"
)

// reservedParams lists query parameter names used for pagination/sorting, not for filtering.
var reservedParams = map[string]bool{
	"page":      true,
	"page_size": true,
	"sort":      true,
	"keyword":   true,
}

// filterSuffixes maps a filter key suffix to its SQL comparison.
var filterSuffixes = []struct {
	suffix string
	op     string
}{
	{"__like", "LIKE"},
	{"__gte", ">="},
	{"__lte", "<="},
}

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParsePageRequest extracts pagination, sorting, and filtering parameters from query params.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	sort := c.DefaultQuery("sort", defaultSort)
	keyword := strings.TrimSpace(c.Query("keyword"))

	filter := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] {
			continue
		}
		if len(values) > 0 && values[0] != "" {
			filter[key] = values[0]
		}
	}

	return domain.PageRequest{
		Page:     page,
		PageSize: pageSize,
		Sort:     sort,
		Keyword:  keyword,
		Filter:   filter,
	}
}

// SearchPageInfo is the page cursor of a search request body.
type SearchPageInfo struct {
	PageNum  int `json:"pageNum"`
	PageSize int `json:"pageSize"`
}

// SearchRequest is the body accepted by every POST .../search endpoint:
//
//	{"searchCondition": {"keyword": "...", "claim_status": "..."}, "pageInfo": {"pageNum": 1, "pageSize": 10}}
//
// The keyword condition becomes PageRequest.Keyword; every other non-empty
// scalar condition becomes a filter.
type SearchRequest struct {
	SearchCondition map[string]any `json:"searchCondition"`
	PageInfo        SearchPageInfo `json:"pageInfo"`
	Sort            string         `json:"sort"`
}

// PageRequest normalizes the search body into a domain.PageRequest using the
// same defaults and clamping as ParsePageRequest.
func (r SearchRequest) PageRequest() domain.PageRequest {
	page := r.PageInfo.PageNum
	if page < 1 {
		page = defaultPage
	}
	pageSize := r.PageInfo.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	sort := strings.TrimSpace(r.Sort)
	if sort == "" {
		sort = defaultSort
	}

	req := domain.PageRequest{
		Page:     page,
		PageSize: pageSize,
		Sort:     sort,
		Filter:   make(map[string]string),
	}
	for key, raw := range r.SearchCondition {
		value := conditionString(raw)
		if value == "" {
			continue
		}
		if key == "keyword" {
			req.Keyword = value
			continue
		}
		req.Filter[key] = value
	}
	return req
}

// BindSearchRequest binds a SearchRequest body. An empty body is treated as
// the first page with no conditions. On malformed JSON it sends a 400 response
// and returns false.
func BindSearchRequest(c *gin.Context) (domain.PageRequest, bool) {
	var body SearchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			validationErrorWithType(c, err, &body)
			return domain.PageRequest{}, false
		}
	}
	return body.PageRequest(), true
}

// conditionString renders a decoded JSON scalar as a filter value. Booleans,
// objects, and arrays are not filterable and yield "".
func conditionString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET based on the page request.
func Paginate(req domain.PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}

// Sort returns a GORM scope that applies ORDER BY based on the page request.
// Only field names present in the allowed list are accepted; others are silently ignored.
// Field names are validated against a strict pattern to prevent SQL injection.
func Sort(req domain.PageRequest, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		parts := strings.SplitN(req.Sort, ":", 2)
		if len(parts) != 2 {
			return db
		}

		field := strings.TrimSpace(parts[0])
		direction := strings.TrimSpace(strings.ToLower(parts[1]))

		if direction != "asc" && direction != "desc" {
			return db
		}

		if !validFieldName.MatchString(field) {
			return db
		}

		if !isAllowed(field, allowed) {
			return db
		}

		return db.Order(field + " " + direction)
	}
}

// Filter returns a GORM scope that applies WHERE conditions based on the page request filters.
// Only filter keys present in the allowed list are applied; others are silently ignored.
// Keys ending with "__like" produce a LIKE '%value%' condition, "__gte" and "__lte"
// produce range bounds; others use exact match.
func Filter(req domain.PageRequest, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for key, value := range req.Filter {
			field, op := key, "="
			for _, fs := range filterSuffixes {
				if strings.HasSuffix(key, fs.suffix) {
					field, op = strings.TrimSuffix(key, fs.suffix), fs.op
					break
				}
			}
			if !validFieldName.MatchString(field) {
				continue
			}
			if !isAllowed(field, allowed) {
				continue
			}
			if op == "LIKE" {
				value = "%" + value + "%"
			}
			db = db.Where(field+" "+op+" ?", value)
		}
		return db
	}
}

// Keyword returns a GORM scope that matches req.Keyword with LIKE against any
// of the given columns. Column names come from code, never from the request.
func Keyword(req domain.PageRequest, columns []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if req.Keyword == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + req.Keyword + "%"
		cond := db.Session(&gorm.Session{NewDB: true})
		for i, col := range columns {
			if i == 0 {
				cond = cond.Where(col+" LIKE ?", pattern)
				continue
			}
			cond = cond.Or(col+" LIKE ?", pattern)
		}
		return db.Where(cond)
	}
}

// BuildPage wraps items in a PageResult with computed TotalPages.
func BuildPage[T any](items []T, total int64, req domain.PageRequest) *domain.PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return &domain.PageResult[T]{
		Items:    items,
		PageInfo: domain.NewPageInfo(req.Page, req.PageSize, total),
	}
}

// isAllowed checks if a field name is in the allowed list.
func isAllowed(field string, allowed []string) bool {
	return slices.Contains(allowed, field)
}
