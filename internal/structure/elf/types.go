package elf

import "fmt"

const (
	classELF32 = 1
	classELF64 = 2

	// Minimum table entry sizes per class.
	phentsize32  = 32
	phentsize64  = 56
	shentsize32  = 40
	shentsize64  = 64
	symentsize32 = 16
	symentsize64 = 24

	header32Size = 52
	header64Size = 64

	// SHT_* section types used by the parser.
	shtSymtab = 2
	shtDynsym = 11

	// FlagExecInstr is SHF_EXECINSTR.
	FlagExecInstr = 0x4

	shnUndef  = 0
	shnXindex = 0xffff
)

var segmentTypes = map[uint32]string{
	0:          "NULL",
	1:          "LOAD",
	2:          "DYNAMIC",
	3:          "INTERP",
	4:          "NOTE",
	5:          "SHLIB",
	6:          "PHDR",
	7:          "TLS",
	0x6474e550: "GNU_EH_FRAME",
	0x6474e551: "GNU_STACK",
	0x6474e552: "GNU_RELRO",
	0x6474e553: "GNU_PROPERTY",
	0x70000001: "ARM_EXIDX",
}

// SegmentType returns the p_type name, or its hex value when not known.
func SegmentType(t uint32) string {
	if name, ok := segmentTypes[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", t)
}

// layout holds the field offsets that change between ELF classes.
type layout struct {
	wide bool

	entry, phoff, shoff, flags            uint64
	phentsize, phnum, shentsize, shnum    uint64
	shstrndx                              uint64
	minPhent, minShent, symEnt, headerLen uint64
}

func newLayout(wide bool) layout {
	if wide {
		return layout{
			wide:      true,
			entry:     24,
			phoff:     32,
			shoff:     40,
			flags:     48,
			phentsize: 54,
			phnum:     56,
			shentsize: 58,
			shnum:     60,
			shstrndx:  62,
			minPhent:  phentsize64,
			minShent:  shentsize64,
			symEnt:    symentsize64,
			headerLen: header64Size,
		}
	}
	return layout{
		entry:     24,
		phoff:     28,
		shoff:     32,
		flags:     36,
		phentsize: 42,
		phnum:     44,
		shentsize: 46,
		shnum:     48,
		shstrndx:  50,
		minPhent:  phentsize32,
		minShent:  shentsize32,
		symEnt:    symentsize32,
		headerLen: header32Size,
	}
}
