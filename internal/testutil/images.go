// Package testutil builds small synthetic ELF and PE images for tests.
package testutil

import (
	"encoding/binary"
)

// Symbol is a symbol table entry written by ELF.
type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
	Type  uint8
}

// ELFOptions describes the image produced by ELF.
type ELFOptions struct {
	Class64   bool
	BigEndian bool
	Machine   uint16
	Flags     uint32
	Entry     uint64
	Text      []byte
	TextAddr  uint64
	Symbols   []Symbol
}

// Section indexes in images produced by ELF.
const (
	SectionText     = 1
	SectionStrtab   = 2
	SectionSymtab   = 3
	SectionShstrtab = 4
)

type writer struct {
	buf   []byte
	order binary.ByteOrder
	wide  bool
}

func (w *writer) grow(n int) {
	if len(w.buf) < n {
		w.buf = append(w.buf, make([]byte, n-len(w.buf))...)
	}
}

func (w *writer) u8(off int, v uint8) {
	w.grow(off + 1)
	w.buf[off] = v
}

func (w *writer) u16(off int, v uint16) {
	w.grow(off + 2)
	w.order.PutUint16(w.buf[off:], v)
}

func (w *writer) u32(off int, v uint32) {
	w.grow(off + 4)
	w.order.PutUint32(w.buf[off:], v)
}

func (w *writer) u64(off int, v uint64) {
	w.grow(off + 8)
	w.order.PutUint64(w.buf[off:], v)
}

// word writes 4 or 8 bytes depending on class.
func (w *writer) word(off int, v uint64) {
	if w.wide {
		w.u64(off, v)
		return
	}
	w.u32(off, uint32(v))
}

func (w *writer) bytes(off int, p []byte) {
	w.grow(off + len(p))
	copy(w.buf[off:], p)
}

func align(n, a int) int {
	return (n + a - 1) / a * a
}

// ELF builds an executable with one PT_LOAD segment and the sections
// .text, .strtab, .symtab and .shstrtab.
func ELF(o ELFOptions) []byte {
	w := &writer{order: binary.LittleEndian, wide: o.Class64}
	if o.BigEndian {
		w.order = binary.BigEndian
	}

	ehsize, phentsize, shentsize, symentsize := 52, 32, 40, 16
	if o.Class64 {
		ehsize, phentsize, shentsize, symentsize = 64, 56, 64, 24
	}

	// Section payloads.
	strtab := []byte{0}
	nameOff := make([]uint32, len(o.Symbols))
	for i, s := range o.Symbols {
		nameOff[i] = uint32(len(strtab))
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
	}
	shstrtab := []byte("\x00.text\x00.strtab\x00.symtab\x00.shstrtab\x00")
	shName := []uint32{0, 1, 7, 15, 23}

	phoff := ehsize
	textOff := align(phoff+phentsize, 16)
	strtabOff := textOff + len(o.Text)
	symtabOff := align(strtabOff+len(strtab), 8)
	symtabSize := symentsize * (len(o.Symbols) + 1)
	shstrtabOff := symtabOff + symtabSize
	shoff := align(shstrtabOff+len(shstrtab), 8)

	// Identification.
	w.bytes(0, []byte{0x7f, 'E', 'L', 'F'})
	if o.Class64 {
		w.u8(4, 2)
	} else {
		w.u8(4, 1)
	}
	if o.BigEndian {
		w.u8(5, 2)
	} else {
		w.u8(5, 1)
	}
	w.u8(6, 1)

	w.u16(16, 2) // ET_EXEC
	w.u16(18, o.Machine)
	w.u32(20, 1)
	w.word(24, o.Entry)
	if o.Class64 {
		w.u64(32, uint64(phoff))
		w.u64(40, uint64(shoff))
		w.u32(48, o.Flags)
		w.u16(52, uint16(ehsize))
		w.u16(54, uint16(phentsize))
		w.u16(56, 1)
		w.u16(58, uint16(shentsize))
		w.u16(60, 5)
		w.u16(62, SectionShstrtab)
	} else {
		w.u32(28, uint32(phoff))
		w.u32(32, uint32(shoff))
		w.u32(36, o.Flags)
		w.u16(40, uint16(ehsize))
		w.u16(42, uint16(phentsize))
		w.u16(44, 1)
		w.u16(46, uint16(shentsize))
		w.u16(48, 5)
		w.u16(50, SectionShstrtab)
	}

	// PT_LOAD covering .text.
	if o.Class64 {
		w.u32(phoff, 1)
		w.u32(phoff+4, 5)
		w.u64(phoff+8, uint64(textOff))
		w.u64(phoff+16, o.TextAddr)
		w.u64(phoff+24, o.TextAddr)
		w.u64(phoff+32, uint64(len(o.Text)))
		w.u64(phoff+40, uint64(len(o.Text)))
		w.u64(phoff+48, 0x1000)
	} else {
		w.u32(phoff, 1)
		w.u32(phoff+4, uint32(textOff))
		w.u32(phoff+8, uint32(o.TextAddr))
		w.u32(phoff+12, uint32(o.TextAddr))
		w.u32(phoff+16, uint32(len(o.Text)))
		w.u32(phoff+20, uint32(len(o.Text)))
		w.u32(phoff+24, 5)
		w.u32(phoff+28, 0x1000)
	}

	w.bytes(textOff, o.Text)
	w.bytes(strtabOff, strtab)

	for i, s := range o.Symbols {
		off := symtabOff + symentsize*(i+1)
		info := 0x10 | (s.Type & 0xF) // STB_GLOBAL
		if o.Class64 {
			w.u32(off, nameOff[i])
			w.u8(off+4, info)
			w.u16(off+6, SectionText)
			w.u64(off+8, s.Value)
			w.u64(off+16, s.Size)
		} else {
			w.u32(off, nameOff[i])
			w.u32(off+4, uint32(s.Value))
			w.u32(off+8, uint32(s.Size))
			w.u8(off+12, info)
			w.u16(off+14, SectionText)
		}
	}
	w.grow(symtabOff + symtabSize)
	w.bytes(shstrtabOff, shstrtab)

	type shdr struct {
		typ, link      uint32
		flags, addr    uint64
		off, size, ent uint64
	}
	sections := []shdr{
		{},
		{typ: 1, flags: 0x6, addr: o.TextAddr, off: uint64(textOff), size: uint64(len(o.Text))},
		{typ: 3, off: uint64(strtabOff), size: uint64(len(strtab))},
		{typ: 2, link: SectionStrtab, off: uint64(symtabOff), size: uint64(symtabSize), ent: uint64(symentsize)},
		{typ: 3, off: uint64(shstrtabOff), size: uint64(len(shstrtab))},
	}
	for i, s := range sections {
		off := shoff + shentsize*i
		w.u32(off, shName[i])
		w.u32(off+4, s.typ)
		if o.Class64 {
			w.u64(off+8, s.flags)
			w.u64(off+16, s.addr)
			w.u64(off+24, s.off)
			w.u64(off+32, s.size)
			w.u32(off+40, s.link)
			w.u64(off+56, s.ent)
		} else {
			w.u32(off+8, uint32(s.flags))
			w.u32(off+12, uint32(s.addr))
			w.u32(off+16, uint32(s.off))
			w.u32(off+20, uint32(s.size))
			w.u32(off+24, s.link)
			w.u32(off+36, uint32(s.ent))
		}
	}
	w.grow(shoff + shentsize*len(sections))
	return w.buf
}

// PEOptions describes the image produced by PE.
type PEOptions struct {
	Machine  uint16
	PE32Plus bool
	Entry    uint32
	Sections []PESection
}

// PESection is a COFF section table entry.
type PESection struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	RawOffset       uint32
	RawSize         uint32
	Characteristics uint32
}

// PEHeaderOffset is where PE places the "PE\0\0" signature.
const PEHeaderOffset = 0x80

// PE builds a DOS stub, PE signature, COFF header, optional header and
// section table.
func PE(o PEOptions) []byte {
	w := &writer{order: binary.LittleEndian}
	sig := PEHeaderOffset

	w.bytes(0, []byte("MZ"))
	w.u32(0x3C, uint32(sig))
	w.bytes(sig, []byte{'P', 'E', 0, 0})

	optSize := 224
	magic := uint16(0x10B)
	if o.PE32Plus {
		optSize = 240
		magic = 0x20B
	}

	w.u16(sig+4, o.Machine)
	w.u16(sig+6, uint16(len(o.Sections)))
	w.u16(sig+20, uint16(optSize))
	w.u16(sig+22, 0x0102)

	opt := sig + 24
	w.u16(opt, magic)
	w.u32(opt+16, o.Entry)
	w.grow(opt + optSize)

	table := opt + optSize
	for i, s := range o.Sections {
		off := table + 40*i
		name := make([]byte, 8)
		copy(name, s.Name)
		w.bytes(off, name)
		w.u32(off+8, s.VirtualSize)
		w.u32(off+12, s.VirtualAddress)
		w.u32(off+16, s.RawSize)
		w.u32(off+20, s.RawOffset)
		w.u32(off+36, s.Characteristics)
	}
	w.grow(table + 40*len(o.Sections))
	return w.buf
}
