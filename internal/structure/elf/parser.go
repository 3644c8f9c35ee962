// Package elf decodes ELF file headers, program headers, section headers and
// symbol tables from an untrusted buffer. Every read is bounds-checked and
// every structure honors the image's class and byte order.
package elf

import (
	"bytes"
	"encoding/binary"

	"github.com/coral-mesh/firmscope/internal/buffer"
	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/diag"
	ferrors "github.com/coral-mesh/firmscope/internal/errors"
	"github.com/coral-mesh/firmscope/internal/safe"
	"github.com/coral-mesh/firmscope/internal/structure"
)

var magic = []byte{0x7f, 'E', 'L', 'F'}

// Parser parses ELF images. It holds no per-image state.
type Parser struct {
	sink diag.Sink
}

// NewParser creates a parser reporting to sink (nil for none).
func NewParser(sink diag.Sink) *Parser {
	return &Parser{sink: diag.OrNop(sink)}
}

// Parse is a convenience for NewParser(nil).Parse(buf).
func Parse(buf *buffer.Buffer) (*structure.Info, error) {
	return NewParser(nil).Parse(buf)
}

// image is the decoding state for one buffer.
type image struct {
	buf   *buffer.Buffer
	order binary.ByteOrder
	l     layout
}

func (im *image) word(off uint64) (uint64, error) {
	return im.buf.Word(off, im.l.wide, im.order)
}

func (im *image) u16(off uint64) (uint64, error) {
	v, err := im.buf.U16(off, im.order)
	return uint64(v), err
}

func (im *image) u32(off uint64) (uint32, error) {
	return im.buf.U32(off, im.order)
}

// header is the subset of the file header the parser needs.
type header struct {
	entry, phoff, shoff                uint64
	phentsize, phnum, shentsize, shnum uint64
	shstrndx                           uint64
}

// Parse decodes buf. Failures are *errors.Error values of kind truncated,
// malformed or unsupported; the caller substitutes an unknown result.
func (p *Parser) Parse(buf *buffer.Buffer) (*structure.Info, error) {
	ident, err := buf.Bytes(0, 16)
	if err != nil {
		return nil, wrap("elf: ident", err)
	}
	if !bytes.Equal(ident[:4], magic) {
		return nil, ferrors.Malformed("elf: ident", "invalid ELF magic %x", ident[:4])
	}

	var l layout
	var width detect.BitWidth
	switch ident[4] {
	case classELF32:
		l, width = newLayout(false), detect.Width32
	case classELF64:
		l, width = newLayout(true), detect.Width64
	default:
		return nil, ferrors.Unsupported("elf: ident", "unsupported ELF class %d", ident[4])
	}

	if ident[5] != 1 && ident[5] != 2 {
		return nil, ferrors.Malformed("elf: ident", "invalid data encoding %d", ident[5])
	}
	order, endian := detect.ByteOrder(ident[5])

	im := &image{buf: buf, order: order, l: l}

	hdr, err := im.header()
	if err != nil {
		return nil, err
	}

	machine, err := im.u16(18)
	if err != nil {
		return nil, wrap("elf: header", err)
	}
	flags, err := im.u32(l.flags)
	if err != nil {
		return nil, wrap("elf: header", err)
	}

	segments, err := im.segments(hdr)
	if err != nil {
		return nil, err
	}

	sections, err := im.sections(hdr)
	if err != nil {
		return nil, err
	}

	info := &structure.Info{
		Architecture: detect.ELFMachine(uint16(machine), flags),
		Endianness:   endian,
		BitWidth:     width,
		EntryPoint:   hdr.entry,
		Segments:     segments,
		Sections:     sections,
	}

	p.sink.Record(diag.Event{
		Level:     diag.LevelDebug,
		Component: "elf",
		Message:   "Parsed ELF structure",
		Fields: map[string]any{
			"architecture": info.Architecture,
			"segments":     len(segments),
			"sections":     len(sections),
		},
	})

	return info, nil
}

func (im *image) header() (header, error) {
	l := im.l
	if _, err := im.buf.Bytes(0, l.headerLen); err != nil {
		return header{}, wrap("elf: header", err)
	}

	// The whole header is in range, so the reads below cannot fail.
	var h header
	h.entry, _ = im.word(l.entry)
	h.phoff, _ = im.word(l.phoff)
	h.shoff, _ = im.word(l.shoff)
	h.phentsize, _ = im.u16(l.phentsize)
	h.phnum, _ = im.u16(l.phnum)
	h.shentsize, _ = im.u16(l.shentsize)
	h.shnum, _ = im.u16(l.shnum)
	h.shstrndx, _ = im.u16(l.shstrndx)
	return h, nil
}

// table validates that count entries of entsize bytes at off lie inside the
// buffer and returns the offset of each entry.
func (im *image) table(op string, off, count, entsize, minEnt uint64) ([]uint64, error) {
	if count == 0 {
		return nil, nil
	}
	if entsize < minEnt {
		return nil, ferrors.Malformed(op, "entry size %d smaller than %d", entsize, minEnt)
	}
	size, ok := safe.MulUint64(count, entsize)
	if !ok {
		return nil, ferrors.Malformed(op, "%d entries of %d bytes overflow", count, entsize)
	}
	if _, err := im.buf.Bytes(off, size); err != nil {
		return nil, wrap(op, err)
	}
	offs := make([]uint64, count)
	for i := range offs {
		offs[i] = off + uint64(i)*entsize
	}
	return offs, nil
}

func (im *image) segments(h header) ([]structure.Segment, error) {
	const op = "elf: program headers"

	offs, err := im.table(op, h.phoff, h.phnum, h.phentsize, im.l.minPhent)
	if err != nil {
		return nil, err
	}

	segments := make([]structure.Segment, 0, len(offs))
	for _, base := range offs {
		typ, _ := im.u32(base)
		var seg structure.Segment
		if im.l.wide {
			seg.Flags, _ = im.u32(base + 4)
			seg.Offset, _ = im.word(base + 8)
			seg.VAddr, _ = im.word(base + 16)
			seg.FileSize, _ = im.word(base + 32)
			seg.MemSize, _ = im.word(base + 40)
		} else {
			seg.Offset, _ = im.word(base + 4)
			seg.VAddr, _ = im.word(base + 8)
			seg.FileSize, _ = im.word(base + 16)
			seg.MemSize, _ = im.word(base + 20)
			seg.Flags, _ = im.u32(base + 24)
		}
		seg.Type = SegmentType(typ)
		segments = append(segments, seg)
	}
	return segments, nil
}

// rawSection is a section header before name resolution.
type rawSection struct {
	name uint32
	structure.Section
}

func (im *image) readSection(base uint64) rawSection {
	var s rawSection
	s.name, _ = im.u32(base)
	s.Type, _ = im.u32(base + 4)
	if im.l.wide {
		s.Flags, _ = im.word(base + 8)
		s.Address, _ = im.word(base + 16)
		s.Offset, _ = im.word(base + 24)
		s.Size, _ = im.word(base + 32)
		s.Link, _ = im.u32(base + 40)
	} else {
		s.Flags, _ = im.word(base + 8)
		s.Address, _ = im.word(base + 12)
		s.Offset, _ = im.word(base + 16)
		s.Size, _ = im.word(base + 20)
		s.Link, _ = im.u32(base + 24)
	}
	return s
}

func (im *image) sections(h header) ([]structure.Section, error) {
	const op = "elf: section headers"

	if h.shoff == 0 {
		return nil, nil
	}

	count, strndx := h.shnum, h.shstrndx
	// Extended numbering keeps the real values in section 0.
	if count == 0 || strndx == shnXindex {
		if _, err := im.table(op, h.shoff, 1, h.shentsize, im.l.minShent); err != nil {
			return nil, err
		}
		first := im.readSection(h.shoff)
		if count == 0 {
			count = first.Size
		}
		if strndx == shnXindex {
			strndx = uint64(first.Link)
		}
	}

	offs, err := im.table(op, h.shoff, count, h.shentsize, im.l.minShent)
	if err != nil {
		return nil, err
	}

	raw := make([]rawSection, len(offs))
	for i, base := range offs {
		raw[i] = im.readSection(base)
	}

	var names []byte
	if strndx != shnUndef {
		if strndx >= uint64(len(raw)) {
			return nil, ferrors.Malformed(op, "string table index %d out of range (%d sections)", strndx, len(raw))
		}
		names, err = im.buf.Bytes(raw[strndx].Offset, raw[strndx].Size)
		if err != nil {
			return nil, wrap("elf: section names", err)
		}
	}

	sections := make([]structure.Section, len(raw))
	for i, r := range raw {
		s := r.Section
		if names != nil {
			s.Name, err = lookup(names, r.name)
			if err != nil {
				return nil, wrap("elf: section names", err)
			}
		}
		sections[i] = s
	}

	for i := range sections {
		if sections[i].Type != shtSymtab && sections[i].Type != shtDynsym {
			continue
		}
		syms, err := im.symbols(sections, sections[i])
		if err != nil {
			return nil, err
		}
		sections[i].Symbols = syms
	}

	return sections, nil
}

func (im *image) symbols(sections []structure.Section, table structure.Section) ([]structure.Symbol, error) {
	op := "elf: symbols in " + table.Name

	if uint64(table.Link) >= uint64(len(sections)) {
		return nil, ferrors.Malformed(op, "linked string table %d out of range", table.Link)
	}
	strtab := sections[table.Link]
	strs, err := im.buf.Bytes(strtab.Offset, strtab.Size)
	if err != nil {
		return nil, wrap(op, err)
	}

	ent := im.l.symEnt
	offs, err := im.table(op, table.Offset, table.Size/ent, ent, ent)
	if err != nil {
		return nil, err
	}

	var syms []structure.Symbol
	for _, base := range offs {
		nameOff, _ := im.u32(base)
		if nameOff == 0 {
			continue
		}
		name, err := lookup(strs, nameOff)
		if err != nil {
			return nil, wrap(op, err)
		}
		if name == "" {
			continue
		}

		sym := structure.Symbol{Name: name}
		var info uint8
		if im.l.wide {
			info, _ = im.buf.U8(base + 4)
			sym.Address, _ = im.word(base + 8)
			sym.Size, _ = im.word(base + 16)
		} else {
			sym.Address, _ = im.word(base + 4)
			sym.Size, _ = im.word(base + 8)
			info, _ = im.buf.U8(base + 12)
		}
		sym.Type = info & 0xF
		syms = append(syms, sym)
	}
	return syms, nil
}

// lookup returns the NUL-terminated string at off inside a string table.
func lookup(table []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(table)) {
		return "", ferrors.Malformed("strtab", "name offset %d outside %d-byte table", off, len(table))
	}
	rest := table[off:]
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		rest = rest[:i]
	}
	return string(rest), nil
}

// wrap attaches op to err while keeping the kind the buffer assigned.
func wrap(op string, err error) error {
	return ferrors.Wrap(ferrors.KindOf(err), op, err)
}
