// Package detect classifies an image's container format from its leading bytes.
package detect

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/coral-mesh/firmscope/internal/buffer"
	"github.com/coral-mesh/firmscope/internal/diag"
)

// ProbeSize is the number of leading bytes detection may look at.
const ProbeSize = 64

const (
	elf32HeaderSize = 52
	elf64HeaderSize = 64
	dosHeaderSize   = 64

	machineX86     = 0x03
	machineARM     = 0x28
	machineX86_64  = 0x3E
	machineAArch64 = 0xB7
)

var (
	elfMagic = []byte{0x7f, 'E', 'L', 'F'}
	mzMagic  = []byte("MZ")
	fotaTag  = []byte("FOTA")
	oppoTag  = []byte("OPPO")
	armMagic = []byte{0x80, 0x96, 0x02, 0x20}
)

// Sniffer returns a MIME-style content label for images no rule recognizes.
type Sniffer interface {
	MIME(data []byte) string
}

// SnifferFunc adapts a function into a Sniffer.
type SnifferFunc func(data []byte) string

// MIME implements Sniffer.
func (f SnifferFunc) MIME(data []byte) string { return f(data) }

// rule pairs a matcher with the decoder that builds its descriptor.
// n is the valid (unpadded) length of the probe.
type rule struct {
	name   string
	match  func(probe []byte, n int) bool
	decode func(probe []byte) Descriptor
}

// Detector runs the ordered rule table. It is safe for concurrent use.
type Detector struct {
	rules   []rule
	sniffer Sniffer
	sink    diag.Sink
}

// Option configures a Detector.
type Option func(*Detector)

// WithSniffer sets the fallback content sniffer for unknown images.
func WithSniffer(s Sniffer) Option {
	return func(d *Detector) { d.sniffer = s }
}

// WithSink sets the diagnostics sink.
func WithSink(s diag.Sink) Option {
	return func(d *Detector) { d.sink = diag.OrNop(s) }
}

// New creates a Detector with the built-in rule table.
func New(opts ...Option) *Detector {
	d := &Detector{
		sink: diag.Nop(),
		rules: []rule{
			{name: "elf", match: matchELF, decode: decodeELF},
			{name: "pe", match: prefixAtLeast(mzMagic, dosHeaderSize), decode: decodePE},
			{name: "fota", match: prefixAtLeast(fotaTag, len(fotaTag)), decode: vendor(KindFOTA)},
			{name: "oppo", match: prefixAtLeast(oppoTag, len(oppoTag)), decode: vendor(KindOPPO)},
			{name: "arm-magic", match: prefixAtLeast(armMagic, len(armMagic)), decode: decodeARMMagic},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect classifies buf. It never fails: anything unrecognized, including
// headers cut short by the end of the buffer, is reported as KindUnknown.
func (d *Detector) Detect(buf *buffer.Buffer) Descriptor {
	probe := buf.Probe(ProbeSize)
	n := min(buf.Len(), ProbeSize)

	for _, r := range d.rules {
		if !r.match(probe, n) {
			continue
		}
		desc := r.decode(probe)
		d.sink.Record(diag.Event{
			Level:     diag.LevelDebug,
			Component: "detect",
			Message:   "Format rule matched",
			Fields:    map[string]any{"rule": r.name, "kind": string(desc.Kind), "architecture": desc.Architecture},
		})
		return desc
	}

	desc := Descriptor{
		Kind:         KindUnknown,
		Architecture: UnknownArch,
		Endianness:   UnknownEndianness,
	}
	if d.sniffer != nil {
		desc.Label = d.sniffer.MIME(buf.Data())
	}
	d.sink.Record(diag.Event{
		Level:     diag.LevelInfo,
		Component: "detect",
		Message:   "No format rule matched",
		Fields:    map[string]any{"size": buf.Len(), "label": desc.Label},
	})
	return desc
}

func prefixAtLeast(prefix []byte, need int) func([]byte, int) bool {
	return func(probe []byte, n int) bool {
		return n >= need && bytes.HasPrefix(probe, prefix)
	}
}

func matchELF(probe []byte, n int) bool {
	if n < elf32HeaderSize || !bytes.HasPrefix(probe, elfMagic) {
		return false
	}
	// An ELF64 header needs the full probe window.
	return probe[4] != 2 || n >= elf64HeaderSize
}

// ByteOrder maps an ELF EI_DATA byte to a byte order, defaulting to little.
func ByteOrder(data byte) (binary.ByteOrder, Endianness) {
	switch data {
	case 1:
		return binary.LittleEndian, Little
	case 2:
		return binary.BigEndian, Big
	default:
		return binary.LittleEndian, UnknownEndianness
	}
}

func decodeELF(probe []byte) Descriptor {
	order, endian := ByteOrder(probe[5])

	width := UnknownWidth
	flagsOff := 36
	switch probe[4] {
	case 1:
		width = Width32
	case 2:
		width = Width64
		flagsOff = 48
	}

	ident := &ELFIdent{
		Type:    order.Uint16(probe[16:18]),
		Machine: order.Uint16(probe[18:20]),
		Flags:   order.Uint32(probe[flagsOff : flagsOff+4]),
	}

	return Descriptor{
		Kind:         KindELF,
		Architecture: ELFMachine(ident.Machine, ident.Flags),
		Endianness:   endian,
		BitWidth:     width,
		ELF:          ident,
	}
}

// ELFMachine maps e_machine (and e_flags for ARM) to an architecture label.
func ELFMachine(machine uint16, flags uint32) string {
	switch machine {
	case machineARM:
		switch flags >> 24 {
		case 0x05:
			return "ARMv5"
		case 0x06:
			return "ARMv6"
		case 0x07:
			return "ARMv7"
		case 0x08:
			return "ARMv8"
		default:
			return "ARM"
		}
	case machineX86_64:
		return "x86-64"
	case machineX86:
		return "x86"
	case machineAArch64:
		return "AArch64"
	default:
		return fmt.Sprintf("unknown(0x%x)", machine)
	}
}

// PE bit width and endianness are left to the PE parser.
func decodePE([]byte) Descriptor {
	return Descriptor{
		Kind:         KindPE,
		Architecture: UnknownArch,
		Endianness:   UnknownEndianness,
	}
}

func vendor(kind Kind) func([]byte) Descriptor {
	return func([]byte) Descriptor {
		return Descriptor{
			Kind:         kind,
			Architecture: UnknownArch,
			Endianness:   UnknownEndianness,
			Label:        "vendor firmware package",
		}
	}
}

func decodeARMMagic([]byte) Descriptor {
	return Descriptor{
		Kind:         KindARMMagic,
		Architecture: "ARM",
		Endianness:   UnknownEndianness,
		Label:        "possible ARM firmware",
	}
}
