package report

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/firmscope/internal/detect"
	ferrors "github.com/coral-mesh/firmscope/internal/errors"
	"github.com/coral-mesh/firmscope/internal/structure"
)

func elfDescriptor() detect.Descriptor {
	return detect.Descriptor{
		Kind:         detect.KindELF,
		Architecture: "x86-64",
		Endianness:   detect.Little,
		BitWidth:     detect.Width64,
	}
}

func TestBuilderStructure(t *testing.T) {
	info := &structure.Info{
		Architecture: "x86-64",
		Endianness:   detect.Little,
		EntryPoint:   0x401000,
		Segments:     []structure.Segment{{Type: "LOAD", Offset: 0, VAddr: 0x400000, FileSize: 0x100, MemSize: 0x100, Flags: 5}},
		Sections: []structure.Section{
			{Name: ".text", Type: 1, Address: 0x401000, Offset: 0x1000, Size: 0x20},
			{Name: ".dup", Size: 1},
			{Name: ".dup", Size: 2},
		},
		Warnings: []string{"string table truncated"},
	}

	b := NewBuilder("fw.bin", 4096, "7f454c46")
	b.SetContainer(elfDescriptor())
	b.SetStructure(info, nil, true)
	r := b.Build()

	assert.Equal(t, "x86-64", r.Architecture)
	assert.Equal(t, "LSB", r.Endianness)
	require.NotNil(t, r.EntryPoint)
	assert.Equal(t, "0x401000", r.EntryPoint.String())
	assert.Nil(t, r.StructureError)
	assert.Equal(t, []string{"string table truncated"}, r.Warnings)

	require.NotNil(t, r.Segments)
	assert.Equal(t, Hex(0x400000), r.Segments.Value[0].VAddr)
	require.NotNil(t, r.Sections)
	assert.Len(t, r.Sections.Value, 2)
	assert.Equal(t, uint64(2), r.Sections.Value[".dup"].Size, "later duplicate wins")
}

func TestBuilderStructureFailure(t *testing.T) {
	parseErr := ferrors.Malformed("elf", "section name table index 9 out of range")

	t.Run("tables requested", func(t *testing.T) {
		b := NewBuilder("fw.bin", 64, "7f454c46")
		b.SetContainer(elfDescriptor())
		b.SetStructure(nil, parseErr, true)
		r := b.Build()

		assert.Equal(t, "unknown", r.Architecture)
		assert.Equal(t, "unknown", r.Endianness)
		assert.Nil(t, r.EntryPoint)
		require.NotNil(t, r.StructureError)
		assert.Equal(t, ferrors.KindMalformed, r.StructureError.Kind)
		assert.True(t, r.Segments.Failed())
		assert.True(t, r.Sections.Failed())
	})

	t.Run("tables not requested", func(t *testing.T) {
		b := NewBuilder("fw.bin", 64, "7f454c46")
		b.SetStructure(nil, parseErr, false)
		r := b.Build()

		require.NotNil(t, r.StructureError)
		assert.Nil(t, r.Segments)
		assert.Nil(t, r.Sections)
	})
}

func TestBuilderConcurrentSetters(t *testing.T) {
	b := NewBuilder("fw.bin", 10, "00000000")

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); b.SetStrings(Ok([]string{"abcd"})) }()
	go func() { defer wg.Done(); b.SetEntropy(Ok([]EntropyWindow{}), Ok([]CompressionMatch{})) }()
	go func() { defer wg.Done(); b.SetFileType(Ok("data")) }()
	go func() { defer wg.Done(); b.AddWarning("binwalk skipped") }()
	wg.Wait()

	r := b.Build()
	assert.Equal(t, []string{"abcd"}, r.Strings.Value)
	assert.NotNil(t, r.Entropy)
	assert.NotNil(t, r.Compression)
	assert.Equal(t, "data", r.FileType.Value)
	assert.Equal(t, []string{"binwalk skipped"}, r.Warnings)
}
