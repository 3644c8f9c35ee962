// Package report defines the unified analysis report and assembles it from
// independently produced category results.
package report

import (
	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/collab/compiler"
	"github.com/coral-mesh/firmscope/internal/collab/disasm"
	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/entropy"
	"github.com/coral-mesh/firmscope/internal/structure"
)

// Report is the serialized result of one analysis. Values are never
// modified after Builder.Build returns them.
type Report struct {
	FileName   string `json:"file_name"`
	FileSize   int64  `json:"file_size"`
	MagicBytes string `json:"magic_bytes"`

	Architecture string `json:"architecture,omitempty"`
	Endianness   string `json:"endianness,omitempty"`
	EntryPoint   *Hex   `json:"entry_point"`

	Container      *detect.Descriptor `json:"container,omitempty"`
	StructureError *CategoryError     `json:"structure_error,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`

	Segments     *Category[[]Segment]                    `json:"segments,omitempty"`
	Sections     *Category[map[string]Section]           `json:"sections,omitempty"`
	Strings      *Category[[]string]                     `json:"strings,omitempty"`
	Entropy      *Category[[]EntropyWindow]              `json:"entropy,omitempty"`
	Compression  *Category[[]CompressionMatch]           `json:"compression,omitempty"`
	CompilerInfo *Category[compiler.Result]              `json:"compiler_info,omitempty"`
	Binwalk      *Category[[]binwalk.Record]             `json:"binwalk,omitempty"`
	Functions    *Category[map[Hex][]disasm.Instruction] `json:"functions,omitempty"`
	FileType     *Category[string]                       `json:"file_type,omitempty"`
}

// Segment is the report view of a program header.
type Segment struct {
	Type     string `json:"type"`
	Offset   Hex    `json:"offset"`
	VAddr    Hex    `json:"vaddr"`
	FileSize uint64 `json:"filesz"`
	MemSize  uint64 `json:"memsz"`
	Flags    uint32 `json:"flags"`
}

// Symbol is the report view of a symbol table entry.
type Symbol struct {
	Name    string `json:"name"`
	Address Hex    `json:"address"`
	Size    uint64 `json:"size"`
	Type    uint8  `json:"type"`
}

// Section is the report view of a section header.
type Section struct {
	Name    string   `json:"name"`
	Type    uint32   `json:"type"`
	Address Hex      `json:"addr"`
	Offset  Hex      `json:"offset"`
	Size    uint64   `json:"size"`
	Flags   uint64   `json:"flags"`
	Symbols []Symbol `json:"symbols,omitempty"`
}

// EntropyWindow is the report view of one entropy window.
type EntropyWindow struct {
	Offset     Hex     `json:"offset"`
	Entropy    float64 `json:"entropy"`
	Compressed bool    `json:"compressed"`
}

// CompressionMatch is the report view of a signature hit.
type CompressionMatch struct {
	Type   entropy.Compression `json:"type"`
	Offset Hex                 `json:"offset"`
}

// FromSegments converts parsed segments, keeping on-disk order.
func FromSegments(in []structure.Segment) []Segment {
	out := make([]Segment, len(in))
	for i, s := range in {
		out[i] = Segment{
			Type:     s.Type,
			Offset:   Hex(s.Offset),
			VAddr:    Hex(s.VAddr),
			FileSize: s.FileSize,
			MemSize:  s.MemSize,
			Flags:    s.Flags,
		}
	}
	return out
}

// FromSections keys sections by name. Names are not unique in ELF; a later
// section silently replaces an earlier one with the same name.
func FromSections(in []structure.Section) map[string]Section {
	out := make(map[string]Section, len(in))
	for _, s := range in {
		sec := Section{
			Name:    s.Name,
			Type:    s.Type,
			Address: Hex(s.Address),
			Offset:  Hex(s.Offset),
			Size:    s.Size,
			Flags:   s.Flags,
		}
		if len(s.Symbols) > 0 {
			sec.Symbols = make([]Symbol, len(s.Symbols))
			for i, sym := range s.Symbols {
				sec.Symbols[i] = Symbol{
					Name:    sym.Name,
					Address: Hex(sym.Address),
					Size:    sym.Size,
					Type:    sym.Type,
				}
			}
		}
		out[s.Name] = sec
	}
	return out
}

// FromWindows converts entropy windows.
func FromWindows(in []entropy.Window) []EntropyWindow {
	out := make([]EntropyWindow, len(in))
	for i, w := range in {
		out[i] = EntropyWindow{Offset: Hex(w.Offset), Entropy: w.Entropy, Compressed: w.Compressed}
	}
	return out
}

// FromMatches converts signature matches.
func FromMatches(in []entropy.Match) []CompressionMatch {
	out := make([]CompressionMatch, len(in))
	for i, m := range in {
		out[i] = CompressionMatch{Type: m.Kind, Offset: Hex(m.Offset)}
	}
	return out
}

// FromFunctions keys disassembled functions by hex start address.
func FromFunctions(in map[uint64][]disasm.Instruction) map[Hex][]disasm.Instruction {
	out := make(map[Hex][]disasm.Instruction, len(in))
	for addr, insts := range in {
		out[Hex(addr)] = insts
	}
	return out
}
