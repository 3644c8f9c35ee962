package duckdb

import (
	"fmt"
	"strings"
	"time"
)

// Builder constructs SELECT queries with a fluent API.
type Builder struct {
	table   string
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   int
	offset  int
}

type whereClause struct {
	expr string
	args []any
}

type orderClause struct {
	column string
	desc   bool
}

// NewQueryBuilder creates a new query builder for the specified table.
func NewQueryBuilder(table string) *Builder {
	return &Builder{table: table}
}

// Select specifies the columns to retrieve.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds a custom WHERE clause. Multiple calls are combined with AND.
//
//	Where("file_size BETWEEN ? AND ?", 0, 4096)
func (b *Builder) Where(expr string, args ...any) *Builder {
	b.where = append(b.where, whereClause{expr: expr, args: args})
	return b
}

// Eq adds an equality filter. An empty string value skips the filter.
func (b *Builder) Eq(column string, value any) *Builder {
	if str, ok := value.(string); ok && str == "" {
		return b
	}
	return b.Where(fmt.Sprintf("%s = ?", column), value)
}

// Prefix adds a LIKE 'value%' filter. An empty value skips the filter.
func (b *Builder) Prefix(column, value string) *Builder {
	if value == "" {
		return b
	}
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(value)
	return b.Where(fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, column), escaped+"%")
}

// Since adds a column >= t filter. A zero time skips the filter.
func (b *Builder) Since(column string, t time.Time) *Builder {
	if t.IsZero() {
		return b
	}
	return b.Where(fmt.Sprintf("%s >= ?", column), t)
}

// OrderBy adds ORDER BY clauses. A "-" prefix sorts descending.
//
//	OrderBy("name", "-created_at") // name ASC, created_at DESC
func (b *Builder) OrderBy(columns ...string) *Builder {
	for _, col := range columns {
		desc := strings.HasPrefix(col, "-")
		b.orderBy = append(b.orderBy, orderClause{
			column: strings.TrimPrefix(col, "-"),
			desc:   desc,
		})
	}
	return b
}

// Limit sets the maximum number of rows to return. Zero means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// Build returns the SQL text and its positional arguments. It does not
// modify the builder, so it may be called more than once.
func (b *Builder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}

	var query strings.Builder
	args := make([]any, 0)

	query.WriteString("SELECT ")
	if len(b.columns) == 0 {
		query.WriteString("*")
	} else {
		query.WriteString(strings.Join(b.columns, ", "))
	}

	query.WriteString(" FROM ")
	query.WriteString(b.table)

	if len(b.where) > 0 {
		query.WriteString(" WHERE ")
		exprs := make([]string, len(b.where))
		for i, w := range b.where {
			exprs[i] = w.expr
			args = append(args, w.args...)
		}
		query.WriteString(strings.Join(exprs, " AND "))
	}

	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			parts[i] = o.column
			if o.desc {
				parts[i] += " DESC"
			}
		}
		query.WriteString(strings.Join(parts, ", "))
	}

	if b.limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	if b.offset > 0 {
		query.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}

	return query.String(), args, nil
}
