package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

// Condition is an equality predicate on a trusted column expression.
type Condition struct {
	Column string
	Value  interface{}
}

// ListQuery carries pagination, ordering, filtering and search for list
// endpoints. Column names always come from server-side allowlists.
type ListQuery struct {
	Page          int
	Limit         int
	OrderColumn   string
	OrderDesc     bool
	Filters       []Condition
	Search        string
	SearchColumns []string
}

// Offset is the number of rows skipped before the current page.
func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Where appends an equality filter.
func (q *ListQuery) Where(column string, value interface{}) {
	q.Filters = append(q.Filters, Condition{Column: column, Value: value})
}

// Apply adds the query's predicates, ordering and paging to db. One extra
// row past the page is fetched so NewPage can tell whether a next page exists.
func (q ListQuery) Apply(db *gorm.DB) *gorm.DB {
	for _, f := range q.Filters {
		db = db.Where(f.Column+" = ?", f.Value)
	}

	if q.Search != "" && len(q.SearchColumns) > 0 {
		parts := make([]string, len(q.SearchColumns))
		args := make([]interface{}, len(q.SearchColumns))
		pattern := "%" + escapeLike(q.Search) + "%"
		for i, col := range q.SearchColumns {
			parts[i] = col + " ILIKE ?"
			args[i] = pattern
		}
		db = db.Where("("+strings.Join(parts, " OR ")+")", args...)
	}

	if q.OrderColumn != "" {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderColumn, Raw: true}, Desc: q.OrderDesc})
	}

	if q.Limit > 0 {
		db = db.Offset(q.Offset()).Limit(q.Limit + 1)
	}
	return db
}

// NewPage wraps rows fetched with Apply into the response envelope.
func NewPage[T any](rows []T, q ListQuery) models.Page[T] {
	page := q.Page
	if page < 1 {
		page = 1
	}
	next := q.Limit > 0 && len(rows) > q.Limit
	if next {
		rows = rows[:q.Limit]
	}
	if rows == nil {
		rows = []T{}
	}
	return models.Page[T]{
		Data:     rows,
		Page:     page,
		Elements: len(rows),
		Next:     next,
		Previous: page > 1,
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// deleteByID deletes the row of model's table with the given primary key,
// reporting gorm.ErrRecordNotFound when nothing matched.
func deleteByID(db *gorm.DB, model interface{}, id uuid.UUID) error {
	res := db.Delete(model, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
