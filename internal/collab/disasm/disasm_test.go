package disasm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/coral-mesh/firmscope/internal/errors"
)

func words(ws ...uint32) []byte {
	out := make([]byte, 0, 4*len(ws))
	for _, w := range ws {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func mnemonics(insts []Instruction) []string {
	out := make([]string, len(insts))
	for i, inst := range insts {
		out[i] = inst.Mnemonic
	}
	return out
}

func TestFunctionsARM(t *testing.T) {
	code := words(
		0xe92d4010, // push {r4, lr}
		0xe3a00000, // mov r0, #0
		0xe12fff1e, // bx lr
		0xe92d4030, // push {r4, r5, lr}
		0xe3a00002, // mov r0, #2
		0xe8bd4030, // pop {r4, r5, lr}
		0xe3a01001, // mov r1, #1 (outside any function)
	)

	fns, err := Functions(code, 0x8000, ARM, 0)
	require.NoError(t, err)
	require.Len(t, fns, 2)

	first := fns[0x8000]
	require.Len(t, first, 2)
	assert.Equal(t, Instruction{Address: 0x8000, Mnemonic: "push", OpStr: "{r4, lr}"}, first[0])
	assert.Equal(t, uint64(0x8004), first[1].Address)
	assert.Equal(t, "mov", first[1].Mnemonic)

	assert.Equal(t, []string{"push", "mov"}, mnemonics(fns[0x800c]))
}

func TestFunctionsARMBigEndianWords(t *testing.T) {
	code := binary.BigEndian.AppendUint32(nil, 0xe92d4010) // push {r4, lr}
	code = binary.BigEndian.AppendUint32(code, 0xe1a00000) // mov r0, r0
	code = binary.BigEndian.AppendUint32(code, 0xe8bd8010) // pop {r4, pc}

	fns, err := Functions(code, 0, ARMBE, 0)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	require.GreaterOrEqual(t, len(fns[0]), 2)
	assert.Equal(t, []Instruction{
		{Address: 0, Mnemonic: "push", OpStr: "{r4, lr}"},
		{Address: 4, Mnemonic: "mov", OpStr: "r0, r0"},
	}, fns[0][:2])

	// The same bytes read as little-endian words do not form a function.
	fns, err = Functions(code, 0, ARM, 0)
	require.NoError(t, err)
	assert.Empty(t, fns)
}

func TestFunctionsARM64(t *testing.T) {
	code := words(
		0xa9bf7bfd, // stp x29, x30, [sp, #-16]!
		0x910003fd, // mov x29, sp
		0xd65f03c0, // ret
	)

	fns, err := Functions(code, 0, ARM64, 0)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	require.Len(t, fns[0], 2)
	assert.Equal(t, "stp", fns[0][0].Mnemonic)
	assert.Equal(t, uint64(4), fns[0][1].Address)
	assert.Contains(t, fns[0][0].OpStr, "x30")
}

func TestFunctionsX86(t *testing.T) {
	t.Run("64-bit", func(t *testing.T) {
		code := []byte{
			0x90,             // nop
			0x55,             // push rbp
			0x48, 0x89, 0xe5, // mov rbp, rsp
			0xc3, // ret
		}
		fns, err := Functions(code, 0x401000, AMD64, 0)
		require.NoError(t, err)
		require.Len(t, fns, 1)

		fn := fns[0x401001]
		require.Len(t, fn, 2)
		assert.Equal(t, Instruction{Address: 0x401001, Mnemonic: "push", OpStr: "rbp"}, fn[0])
		assert.Equal(t, uint64(0x401002), fn[1].Address)
	})

	t.Run("32-bit", func(t *testing.T) {
		code := []byte{0x55, 0x89, 0xe5, 0x5d, 0xc3}
		fns, err := Functions(code, 0, X86, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"push", "mov", "pop"}, mnemonics(fns[0]))
	})
}

func TestFunctionsLimitAndGarbage(t *testing.T) {
	code := words(0xe92d4010, 0xe3a00000, 0xe3a00000, 0xe3a00000)

	fns, err := Functions(code, 0, ARM, 2)
	require.NoError(t, err)
	assert.Len(t, fns[0], 2)

	fns, err = Functions([]byte{0x01, 0x02, 0x03}, 0, ARM64, 0)
	require.NoError(t, err)
	assert.Empty(t, fns)
}

func TestFunctionsUnsupported(t *testing.T) {
	_, err := Functions([]byte{0}, 0, Arch("mips"), 0)
	require.Error(t, err)
	assert.Equal(t, ferrors.KindUnsupported, ferrors.KindOf(err))
}

func TestParseArch(t *testing.T) {
	tests := []struct {
		in   string
		want Arch
	}{
		{"arm", ARM},
		{"armeb", ARMBE},
		{"AArch64", ARM64},
		{"i386", X86},
		{"amd64", AMD64},
		{" x86-64 ", AMD64},
	}
	for _, tt := range tests {
		got, err := ParseArch(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseArch("sparc")
	assert.Error(t, err)
}

func TestArchFor(t *testing.T) {
	tests := []struct {
		label string
		want  Arch
		ok    bool
	}{
		{"ARMv7", ARM, true},
		{"ARM", ARM, true},
		{"AArch64", ARM64, true},
		{"x86", X86, true},
		{"x86-64", AMD64, true},
		{"unknown(0x8)", "", false},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		got, ok := ArchFor(tt.label)
		assert.Equal(t, tt.ok, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}
}
