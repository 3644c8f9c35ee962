package duckdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleSelect(t *testing.T) {
	q, args, err := NewQueryBuilder("analyses").Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM analyses", q)
	assert.Empty(t, args)
}

func TestBuilder_SelectColumns(t *testing.T) {
	q, _, err := NewQueryBuilder("analyses").Select("id", "file_name").Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT id, file_name FROM analyses", q)
}

func TestBuilder_Filters(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	q, args, err := NewQueryBuilder("analyses").
		Eq("file_name", "boot.bin").
		Prefix("file_hash", "ab").
		Since("created_at", since).
		Where("file_size > ?", 16).
		Build()

	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM analyses WHERE file_name = ? AND file_hash LIKE ? ESCAPE '\' AND created_at >= ? AND file_size > ?`, q)
	assert.Equal(t, []any{"boot.bin", "ab%", since, 16}, args)
}

func TestBuilder_EmptyFiltersSkipped(t *testing.T) {
	q, args, err := NewQueryBuilder("analyses").
		Eq("file_name", "").
		Prefix("file_hash", "").
		Since("created_at", time.Time{}).
		Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM analyses", q)
	assert.Empty(t, args)
}

func TestBuilder_PrefixEscapesWildcards(t *testing.T) {
	_, args, err := NewQueryBuilder("analyses").Prefix("file_name", `50%_a\b`).Build()

	require.NoError(t, err)
	assert.Equal(t, []any{`50\%\_a\\b%`}, args)
}

func TestBuilder_OrderBy(t *testing.T) {
	q, _, err := NewQueryBuilder("analyses").OrderBy("file_name", "-created_at").Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM analyses ORDER BY file_name, created_at DESC", q)
}

func TestBuilder_LimitOffset(t *testing.T) {
	q, args, err := NewQueryBuilder("analyses").Limit(20).Offset(40).Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM analyses LIMIT ? OFFSET ?", q)
	assert.Equal(t, []any{20, 40}, args)
}

func TestBuilder_BuildIsRepeatable(t *testing.T) {
	b := NewQueryBuilder("analyses").Eq("architecture", "ARM").Limit(5)

	q1, args1, err := b.Build()
	require.NoError(t, err)
	q2, args2, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
	assert.Equal(t, args1, args2)
	assert.Len(t, args2, 2)
}

func TestBuilder_ErrorNoTable(t *testing.T) {
	_, _, err := NewQueryBuilder("").Build()
	assert.Error(t, err)
}
