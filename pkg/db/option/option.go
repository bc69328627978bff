package option

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bantudesa/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QueryOption func(db *gorm.DB) *gorm.DB

var ErrInvalidCursor = errors.New("invalid cursor")

type Operator string

const (
	EQ   Operator = "="
	NEQ  Operator = "<>"
	GT   Operator = ">"
	GTE  Operator = ">="
	LT   Operator = "<"
	LTE  Operator = "<="
	IN   Operator = "IN"
	LIKE Operator = "LIKE"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// Apply runs every option against db in order.
func Apply(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt(db)
		}
	}
	return db
}

// WithSortBy orders by SortBy when it is allowed, falling back to created_at.
// Ties are broken on id so cursor pages stay stable.
func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := "created_at"
		if s.SortBy != "" && s.Allow[s.SortBy] {
			column = s.SortBy
		}

		desc := strings.EqualFold(s.OrderBy, "desc")
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
}

func ApplyOperator(c Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		switch c.Operator {
		case IN:
			return db.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
		case LIKE:
			return db.Where(fmt.Sprintf("LOWER(%s) LIKE ?", c.Field), strings.ToLower(fmt.Sprint(c.Value)))
		case EQ, NEQ, GT, GTE, LT, LTE:
			return db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		default:
			db.AddError(fmt.Errorf("unsupported operator %q", c.Operator))
			return db
		}
	}
}

// WithSearch matches term case-insensitively against any of the fields.
func WithSearch(term string, fields ...string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(fields) == 0 {
			return db
		}

		pattern := "%" + strings.ToLower(term) + "%"
		clauses := make([]string, 0, len(fields))
		args := make([]any, 0, len(fields))
		for _, f := range fields {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ?", f))
			args = append(args, pattern)
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// ApplyPagination pages newest-first on (created_at, id). One extra row is
// fetched so the caller can tell whether another page exists.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		limit := p.Normalize().Limit

		if p.Cursor != "" {
			cursor, err := pagination.DecodeCursor(p.Cursor)
			if err != nil {
				db.AddError(fmt.Errorf("%w: %v", ErrInvalidCursor, err))
				return db
			}

			createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
			if err != nil {
				db.AddError(fmt.Errorf("%w: %v", ErrInvalidCursor, err))
				return db
			}

			db = db.Where("((created_at < ?) OR (created_at = ? AND id < ?))", createdAt, createdAt, cursor.ID)
		}

		return db.Limit(limit + 1)
	}
}

// LockingUpdate adds SELECT ... FOR UPDATE. SQLite ignores it.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
