package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net/url"
	"strings"

	duckdbDriver "github.com/marcboeker/go-duckdb"
)

// sessionSettings run on every new connection. Failures are ignored so an
// older engine that lacks a setting still opens.
var sessionSettings = []string{
	"SET enable_progress_bar = false",
}

// OpenDB opens a DuckDB database through a connector that applies the
// session settings on each pooled connection.
func OpenDB(dsn string) (*sql.DB, error) {
	connector, err := duckdbDriver.NewConnector(dsn, func(execer driver.ExecerContext) error {
		ctx := context.Background()
		for _, query := range sessionSettings {
			if _, err := execer.ExecContext(ctx, query, nil); err != nil {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(connector), nil
}

// ReadOnly returns dsn with access_mode=READ_ONLY, keeping any other
// parameters. In-memory databases cannot be opened read-only and are
// returned unchanged.
func ReadOnly(dsn string) string {
	return withParam(dsn, "access_mode", "READ_ONLY")
}

func withParam(dsn, key, value string) string {
	if dsn == "" || dsn == ":memory:" {
		return dsn
	}

	path, query, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return dsn
	}
	if !params.Has(key) {
		params.Set(key, value)
	}

	return path + "?" + params.Encode()
}
