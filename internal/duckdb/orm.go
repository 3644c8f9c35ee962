package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Execer is an interface that matches both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table maps struct type T onto a table through `duckdb` field tags.
// A tag is the column name optionally followed by ",pk".
type Table[T any] struct {
	db        Execer
	tableName string
	columns   []string
	pkColumns []string
	fieldMap  map[string]int
	retry     retryPolicy
}

// NewTable creates a Table for T. It panics if T is not a struct.
func NewTable[T any](db Execer, tableName string) *Table[T] {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		panic("Table generic type T must be a struct")
	}

	table := &Table[T]{
		db:        db,
		tableName: tableName,
		fieldMap:  make(map[string]int),
		retry:     defaultRetry,
	}

	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("duckdb")
		if tag == "" || tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		name = strings.TrimSpace(name)
		table.columns = append(table.columns, name)
		table.fieldMap[name] = i
		if strings.TrimSpace(opts) == "pk" {
			table.pkColumns = append(table.pkColumns, name)
		}
	}

	return table
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.tableName
}

// Columns returns the mapped column names in field order.
func (t *Table[T]) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Insert adds item with a plain INSERT, retrying on transaction conflicts.
// A duplicate primary key fails.
func (t *Table[T]) Insert(ctx context.Context, item *T) error {
	placeholders := make([]string, len(t.columns))
	values := make([]any, len(t.columns))

	val := reflect.ValueOf(item).Elem()
	for i, col := range t.columns {
		placeholders[i] = "?"
		values[i] = val.Field(t.fieldMap[col]).Interface()
	}

	// #nosec G201 - table and column names come from struct tags
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.tableName,
		strings.Join(t.columns, ", "),
		strings.Join(placeholders, ", "),
	)

	return t.retry.do(ctx, func() error {
		_, err := t.db.ExecContext(ctx, query, values...)
		return err
	})
}

// Get retrieves a single item by its first primary key column. It returns
// sql.ErrNoRows when nothing matches.
func (t *Table[T]) Get(ctx context.Context, id any) (*T, error) {
	if len(t.pkColumns) == 0 {
		return nil, errors.New("no primary key defined for table")
	}

	// #nosec G201 - table and column names come from struct tags
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		strings.Join(t.columns, ", "),
		t.tableName,
		t.pkColumns[0],
	)

	var item T
	if err := t.db.QueryRowContext(ctx, query, id).Scan(t.dest(&item)...); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes an item by its first primary key column and reports
// whether a row was removed.
func (t *Table[T]) Delete(ctx context.Context, id any) (bool, error) {
	if len(t.pkColumns) == 0 {
		return false, errors.New("no primary key defined for table")
	}

	// #nosec G201 - table and column names come from struct tags
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.tableName, t.pkColumns[0])

	var removed int64
	err := t.retry.do(ctx, func() error {
		res, err := t.db.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed > 0, err
}

// Select runs b against the table. Any columns already selected on b are
// replaced by the mapped columns so rows scan into T.
func (t *Table[T]) Select(ctx context.Context, b *Builder) ([]*T, error) {
	b.table = t.tableName
	b.columns = t.Columns()

	query, args, err := b.Build()
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []*T{}
	for rows.Next() {
		var item T
		if err := rows.Scan(t.dest(&item)...); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// Count returns the number of rows matching b's filters.
func (t *Table[T]) Count(ctx context.Context, b *Builder) (int64, error) {
	b.table = t.tableName
	b.columns = []string{"count(*)"}
	b.orderBy = nil
	b.limit = 0
	b.offset = 0

	query, args, err := b.Build()
	if err != nil {
		return 0, err
	}

	var n int64
	err = t.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (t *Table[T]) dest(item *T) []any {
	val := reflect.ValueOf(item).Elem()
	dest := make([]any, len(t.columns))
	for i, col := range t.columns {
		dest[i] = val.Field(t.fieldMap[col]).Addr().Interface()
	}
	return dest
}
