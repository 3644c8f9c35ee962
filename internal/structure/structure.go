// Package structure defines the container-independent result of structural
// parsing shared by the ELF and PE parsers.
package structure

import (
	"github.com/coral-mesh/firmscope/internal/detect"
)

// Segment is one program header entry, in on-disk order.
type Segment struct {
	Type     string
	Offset   uint64
	VAddr    uint64
	FileSize uint64
	MemSize  uint64
	Flags    uint32
}

// Symbol is one named symbol table entry.
type Symbol struct {
	Name    string
	Address uint64
	Size    uint64
	// Type is the low nibble of the symbol info byte (STT_*).
	Type uint8
}

// Section is one section header entry. Symbols is only set for symbol tables.
type Section struct {
	Name    string
	Type    uint32
	Address uint64
	Offset  uint64
	Size    uint64
	Flags   uint64
	Link    uint32
	Symbols []Symbol
}

// Info is the structural view of an image.
type Info struct {
	Architecture string
	Endianness   detect.Endianness
	BitWidth     detect.BitWidth
	EntryPoint   uint64
	Segments     []Segment
	// Sections keeps every entry in table order, duplicates included.
	Sections []Section
	// Warnings lists degraded sub-structures that did not fail the parse.
	Warnings []string
}

// Executable returns the first section whose flags mark it as holding
// instructions, using the given flag bit. It returns false when none does.
func (i *Info) Executable(flag uint64) (Section, bool) {
	for _, s := range i.Sections {
		if s.Flags&flag != 0 && s.Size > 0 {
			return s, true
		}
	}
	return Section{}, false
}
