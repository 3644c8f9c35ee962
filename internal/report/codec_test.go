package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/collab/compiler"
	"github.com/coral-mesh/firmscope/internal/collab/disasm"
	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/entropy"
	ferrors "github.com/coral-mesh/firmscope/internal/errors"
)

func fullReport() *Report {
	b := NewBuilder("router.bin", 2048, "7f454c46")
	b.SetContainer(detect.Descriptor{
		Kind:         detect.KindELF,
		Architecture: "ARMv7",
		Endianness:   detect.Little,
		BitWidth:     detect.Width32,
		ELF:          &detect.ELFIdent{Type: 2, Machine: 0x28, Flags: 0x05000000},
	})
	b.SetStructure(nil, ferrors.Truncated("elf: section headers", "need 40 bytes at 0x900"), true)
	b.SetStrings(Ok([]string{"BusyBox v1.36", "/bin/sh"}))
	b.SetEntropy(
		Ok([]EntropyWindow{{Offset: 0, Entropy: 3.25, Compressed: false}, {Offset: 256, Entropy: 7.91, Compressed: true}}),
		Ok([]CompressionMatch{{Type: entropy.GZIP, Offset: 0x200}}),
	)
	b.SetCompiler(Ok(compiler.Result{Detected: true, Compiler: "gcc", Signatures: []string{"GCC: (GNU) 9.3.0"}}))
	b.SetBinwalk(Failed[[]binwalk.Record](binwalk.ErrNotFound))
	b.SetFunctions(Ok(FromFunctions(map[uint64][]disasm.Instruction{
		0x8000: {{Address: 0x8000, Mnemonic: "push", OpStr: "{r4, lr}"}},
	})))
	b.SetFileType(Ok("ELF 32-bit LSB executable, ARMv7"))
	b.AddWarning("section table truncated")
	return b.Build()
}

func TestMarshalRoundTrip(t *testing.T) {
	in := fullReport()

	data, err := Marshal(in, FormatJSON)
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMarshalShape(t *testing.T) {
	data, err := Marshal(fullReport(), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))

	assert.Equal(t, "router.bin", generic["file_name"])
	assert.Equal(t, "7f454c46", generic["magic_bytes"])
	assert.Nil(t, generic["entry_point"])
	assert.Contains(t, generic, "entry_point")
	assert.Equal(t, "unknown", generic["architecture"])
	assert.Equal(t, map[string]any{"error": binwalk.ErrNotFound.Error(), "kind": "internal"}, generic["binwalk"])

	sections := generic["sections"].(map[string]any)
	assert.Equal(t, "truncated_data", sections["kind"])

	functions := generic["functions"].(map[string]any)
	assert.Contains(t, functions, "0x8000")

	compression := generic["compression"].([]any)
	assert.Equal(t, map[string]any{"type": "GZIP", "offset": "0x200"}, compression[0])
}

func TestMarshalOmitsUnrequested(t *testing.T) {
	b := NewBuilder("blob", 3, "010203")
	data, err := Marshal(b.Build(), FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file_name":"blob","file_size":3,"magic_bytes":"010203","entry_point":null}`, string(data))
}

func TestMarshalYAML(t *testing.T) {
	data, err := Marshal(fullReport(), FormatYAML)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "router.bin", doc["file_name"])
	assert.Equal(t, []any{"BusyBox v1.36", "/bin/sh"}, doc["strings"])
}

func TestMarshalUnknownFormat(t *testing.T) {
	_, err := Marshal(fullReport(), Format("xml"))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "firmscope analysis report", schema["title"])

	props := schema["properties"].(map[string]any)
	for _, key := range []string{"file_name", "file_size", "magic_bytes", "sections", "strings", "entropy", "functions"} {
		assert.Contains(t, props, key)
	}
}
