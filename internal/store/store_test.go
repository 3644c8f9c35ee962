package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/report"
	"github.com/coral-mesh/firmscope/internal/testutil"
)

func sampleReport(name string) *report.Report {
	entry := report.Hex(0x8000)
	return &report.Report{
		FileName:     name,
		FileSize:     1024,
		MagicBytes:   "7f454c46",
		Architecture: "ARM",
		Endianness:   "little",
		EntryPoint:   &entry,
		Container:    &detect.Descriptor{Kind: detect.KindELF, Architecture: "ARM", Endianness: detect.Little},
		Strings:      report.Ok([]string{"hello"}),
	}
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, testutil.Logger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

// clock returns a now func that advances one minute per call.
func clock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func TestSaveGet(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	id, err := s.Save(ctx, sampleReport("boot.elf"), "00112233aabbccdd")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	entry, r, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "boot.elf", entry.FileName)
	assert.Equal(t, "00112233aabbccdd", entry.FileHash)
	assert.Equal(t, int64(1024), entry.FileSize)
	assert.Equal(t, "ELF", entry.Container)
	assert.Equal(t, "ARM", entry.Architecture)
	assert.False(t, entry.CreatedAt.IsZero())

	require.NotNil(t, r.EntryPoint)
	assert.Equal(t, report.Hex(0x8000), *r.EntryPoint)
	require.NotNil(t, r.Strings)
	assert.Equal(t, []string{"hello"}, r.Strings.Value)
}

func TestGetMissing(t *testing.T) {
	s, _ := openStore(t)

	_, _, err := s.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	s.now = clock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	var ids []string
	for _, name := range []string{"a.bin", "b.bin", "a.bin"} {
		id, err := s.Save(ctx, sampleReport(name), "ff"+name)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	entries, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ids[2], entries[0].ID)
	assert.Equal(t, ids[0], entries[2].ID)

	entries, err = s.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ids[2], entries[0].ID)

	entries, err = s.List(ctx, Filter{FileName: "a.bin"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.List(ctx, Filter{HashPrefix: "ffb"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.bin", entries[0].FileName)

	entries, err = s.List(ctx, Filter{Since: time.Date(2024, 6, 1, 0, 2, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	n, err := s.Count(ctx, Filter{FileName: "a.bin", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestListEmpty(t *testing.T) {
	s, _ := openStore(t)

	entries, err := s.List(context.Background(), Filter{Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	id, err := s.Save(ctx, sampleReport("a.bin"), "aa")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, testutil.Logger(t))
	require.NoError(t, err)
	id, err := s.Save(ctx, sampleReport("a.bin"), "aa")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ro, err := OpenReadOnly(dir, testutil.Logger(t))
	require.NoError(t, err)
	defer func() { _ = ro.Close() }()

	entry, _, err := ro.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a.bin", entry.FileName)

	_, err = ro.Save(ctx, sampleReport("b.bin"), "bb")
	assert.Error(t, err)
	assert.Error(t, ro.Delete(ctx, id))
}

func TestOpenReadOnlyMissing(t *testing.T) {
	_, err := OpenReadOnly(t.TempDir(), testutil.Logger(t))
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestSaveWithoutContainer(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	r := &report.Report{FileName: "blob", FileSize: 3, MagicBytes: "010203"}
	id, err := s.Save(ctx, r, "01")
	require.NoError(t, err)

	entry, got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, entry.Container)
	assert.Empty(t, entry.Architecture)
	assert.Nil(t, got.EntryPoint)
}
