// Package duckdb holds the small DuckDB layer used by the report store: a
// connector that applies session settings to every pooled connection, a
// tag-driven table wrapper and a fluent SELECT builder.
//
//	type Row struct {
//	    ID   string `duckdb:"id,pk"`
//	    Name string `duckdb:"name"`
//	}
//
//	rows := duckdb.NewTable[Row](db, "rows")
//	err := rows.Insert(ctx, &Row{ID: "a", Name: "boot.bin"})
//
//	q := duckdb.NewQueryBuilder("rows").Eq("name", "boot.bin").OrderBy("-id").Limit(10)
//	items, err := rows.Select(ctx, q)
//
// The builder only generates SQL; Table.Select fills in the column list.
package duckdb
