package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// ListQueryKey is the gin context key holding the repository.ListQuery built
// by Paginate, OrderBy, Filter and Search.
const ListQueryKey = "list_query"

// DefaultMaxPerPage applies when Paginate is given no positive maximum.
const DefaultMaxPerPage = 1000

// FilterKind is the type a filter query parameter is parsed as.
type FilterKind int

const (
	FilterString FilterKind = iota
	FilterNumber
	FilterBool
	FilterUUID
)

// FilterSpec maps a query parameter to a trusted column expression.
type FilterSpec struct {
	Param  string
	Column string
	Kind   FilterKind
}

// Columns maps public orderColumn values to trusted column expressions.
type Columns map[string]string

// ListQuery returns the query accumulated by the list middlewares.
func ListQuery(c *gin.Context) repository.ListQuery {
	if v, ok := c.Get(ListQueryKey); ok {
		if q, ok := v.(repository.ListQuery); ok {
			return q
		}
	}
	return repository.ListQuery{Page: 1}
}

func update(c *gin.Context, fn func(q *repository.ListQuery)) {
	q := ListQuery(c)
	fn(&q)
	c.Set(ListQueryKey, q)
}

// Paginate reads page (default 1) and limit (default and cap max).
func Paginate(max int) gin.HandlerFunc {
	if max <= 0 {
		max = DefaultMaxPerPage
	}
	return func(c *gin.Context) {
		page := 1
		if raw := c.Query("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid page."})
				return
			}
			page = n
		}
		limit := max
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit."})
				return
			}
			if n < max {
				limit = n
			}
		}
		update(c, func(q *repository.ListQuery) {
			q.Page = page
			q.Limit = limit
		})
		c.Next()
	}
}

// OrderBy reads orderColumn, restricted to allowed and defaulting to
// defaultColumn, and order (asc|desc, default desc).
func OrderBy(defaultColumn string, allowed Columns) gin.HandlerFunc {
	return func(c *gin.Context) {
		column := defaultColumn
		if col, ok := allowed[c.Query("orderColumn")]; ok {
			column = col
		}
		desc := !strings.EqualFold(c.Query("order"), "asc")
		update(c, func(q *repository.ListQuery) {
			q.OrderColumn = column
			q.OrderDesc = desc
		})
		c.Next()
	}
}

// Filter turns typed query parameters into equality predicates. Absent
// parameters are ignored; malformed ones answer 400.
func Filter(specs ...FilterSpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		var conds []repository.Condition
		for _, spec := range specs {
			raw, ok := c.GetQuery(spec.Param)
			if !ok || raw == "" {
				continue
			}
			value, err := parseFilter(spec.Kind, raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + spec.Param + "."})
				return
			}
			conds = append(conds, repository.Condition{Column: spec.Column, Value: value})
		}
		update(c, func(q *repository.ListQuery) {
			q.Filters = append(q.Filters, conds...)
		})
		c.Next()
	}
}

func parseFilter(kind FilterKind, raw string) (interface{}, error) {
	switch kind {
	case FilterNumber:
		return strconv.ParseInt(raw, 10, 64)
	case FilterBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case FilterUUID:
		return uuid.Parse(raw)
	default:
		return raw, nil
	}
}

// Search matches the search parameter case-insensitively against columns.
func Search(columns ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		term := strings.TrimSpace(c.Query("search"))
		if term != "" {
			update(c, func(q *repository.ListQuery) {
				q.Search = term
				q.SearchColumns = columns
			})
		}
		c.Next()
	}
}
