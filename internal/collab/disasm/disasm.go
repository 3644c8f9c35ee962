// Package disasm groups decoded instructions into candidate functions using
// simple prologue/epilogue heuristics. It makes no claim of disassembly
// correctness: bytes that do not decode are skipped.
package disasm

import (
	"strings"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	ferrors "github.com/coral-mesh/firmscope/internal/errors"
)

// Arch is an architecture tag understood by the decoder.
type Arch string

const (
	ARM   Arch = "arm"
	ARMBE Arch = "armbe" // BE32 words; BE8 images decode as ARM
	ARM64 Arch = "arm64"
	X86   Arch = "x86"
	AMD64 Arch = "x86-64"
)

// DefaultMaxInstructions bounds the number of decoded instructions.
const DefaultMaxInstructions = 1 << 20

// Instruction is one decoded instruction.
type Instruction struct {
	Address  uint64 `json:"address"`
	Mnemonic string `json:"mnemonic"`
	OpStr    string `json:"op_str"`
}

// Arches lists the supported tags.
func Arches() []Arch {
	return []Arch{ARM, ARMBE, ARM64, X86, AMD64}
}

// ParseArch validates a user supplied tag. Common aliases are accepted.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "arm", "arm32":
		return ARM, nil
	case "armbe", "armeb":
		return ARMBE, nil
	case "arm64", "aarch64":
		return ARM64, nil
	case "x86", "i386", "386":
		return X86, nil
	case "x86-64", "x86_64", "amd64", "x64":
		return AMD64, nil
	}
	return "", ferrors.Unsupported("disasm", "unsupported architecture %q", s)
}

// ArchFor maps a detector architecture label to a tag.
func ArchFor(architecture string) (Arch, bool) {
	switch {
	case strings.HasPrefix(architecture, "ARM"):
		return ARM, true
	case architecture == "AArch64":
		return ARM64, true
	case architecture == "x86":
		return X86, true
	case architecture == "x86-64":
		return AMD64, true
	}
	return "", false
}

// decoder abstracts one instruction set. step is the number of bytes
// skipped after a decode failure.
type decoder struct {
	step   int
	decode func(code []byte, pc uint64) (Instruction, int, error)
	opens  func(Instruction) bool
	closes func(Instruction) bool
}

func decoderFor(arch Arch) (decoder, error) {
	switch arch {
	case ARM, ARMBE:
		decode := decodeARM
		if arch == ARMBE {
			decode = decodeARMBE
		}
		return decoder{
			step:   4,
			decode: decode,
			opens: func(i Instruction) bool {
				return (i.Mnemonic == "push" || i.Mnemonic == "mov") && usesLR(i)
			},
			closes: func(i Instruction) bool {
				return (i.Mnemonic == "pop" || i.Mnemonic == "bx") && usesLR(i)
			},
		}, nil
	case ARM64:
		return decoder{
			step:   4,
			decode: decodeARM64,
			opens: func(i Instruction) bool {
				return i.Mnemonic == "stp" && strings.Contains(i.OpStr, "x30")
			},
			closes: func(i Instruction) bool { return i.Mnemonic == "ret" },
		}, nil
	case X86, AMD64:
		mode := 32
		frame := "ebp"
		if arch == AMD64 {
			mode, frame = 64, "rbp"
		}
		return decoder{
			step:   1,
			decode: func(code []byte, pc uint64) (Instruction, int, error) { return decodeX86(code, pc, mode) },
			opens: func(i Instruction) bool {
				return i.Mnemonic == "push" && i.OpStr == frame
			},
			closes: func(i Instruction) bool { return strings.HasPrefix(i.Mnemonic, "ret") },
		}, nil
	}
	return decoder{}, ferrors.Unsupported("disasm", "unsupported architecture %q", string(arch))
}

func usesLR(i Instruction) bool {
	return strings.Contains(i.OpStr, "lr")
}

// Functions decodes code loaded at base and returns instructions grouped by
// the address of the prologue that opened their function. The epilogue that
// closes a function is not included. At most maxInstructions are decoded;
// a non-positive limit selects DefaultMaxInstructions.
func Functions(code []byte, base uint64, arch Arch, maxInstructions int) (map[uint64][]Instruction, error) {
	dec, err := decoderFor(arch)
	if err != nil {
		return nil, err
	}
	if maxInstructions <= 0 {
		maxInstructions = DefaultMaxInstructions
	}

	functions := make(map[uint64][]Instruction)
	var (
		current uint64
		open    bool
		decoded int
	)

	for off := 0; off < len(code) && decoded < maxInstructions; {
		pc := base + uint64(off)
		inst, size, err := dec.decode(code[off:], pc)
		if err != nil || size <= 0 {
			off += dec.step
			continue
		}
		off += size
		decoded++

		switch {
		case dec.opens(inst):
			current, open = inst.Address, true
		case dec.closes(inst):
			open = false
		}
		if open {
			functions[current] = append(functions[current], inst)
		}
	}

	return functions, nil
}

// split turns "op args" into a lowercase mnemonic and operand string.
func split(pc uint64, text string) Instruction {
	mnemonic, ops, _ := strings.Cut(strings.TrimSpace(text), " ")
	return Instruction{
		Address:  pc,
		Mnemonic: strings.ToLower(mnemonic),
		OpStr:    strings.TrimSpace(ops),
	}
}

func decodeARM(code []byte, pc uint64) (Instruction, int, error) {
	inst, err := armasm.Decode(code, armasm.ModeARM)
	if err != nil {
		return Instruction{}, 0, err
	}
	return split(pc, armasm.GNUSyntax(inst)), inst.Len, nil
}

// decodeARMBE byte-swaps one instruction word before decoding it.
func decodeARMBE(code []byte, pc uint64) (Instruction, int, error) {
	if len(code) < 4 {
		return decodeARM(code, pc)
	}
	word := [4]byte{code[3], code[2], code[1], code[0]}
	return decodeARM(word[:], pc)
}

func decodeARM64(code []byte, pc uint64) (Instruction, int, error) {
	inst, err := arm64asm.Decode(code)
	if err != nil {
		return Instruction{}, 0, err
	}
	return split(pc, arm64asm.GNUSyntax(inst)), 4, nil
}

func decodeX86(code []byte, pc uint64, mode int) (Instruction, int, error) {
	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		return Instruction{}, 0, err
	}
	return split(pc, x86asm.IntelSyntax(inst, pc, nil)), inst.Len, nil
}
