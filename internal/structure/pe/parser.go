// Package pe decodes the DOS stub, PE signature, COFF header, the standard
// optional-header fields and the section table of a PE image.
package pe

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/coral-mesh/firmscope/internal/buffer"
	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/diag"
	ferrors "github.com/coral-mesh/firmscope/internal/errors"
	"github.com/coral-mesh/firmscope/internal/structure"
)

const (
	lfanewOffset   = 0x3C
	coffHeaderSize = 20
	sectionSize    = 40

	magicPE32     = 0x10B
	magicPE32Plus = 0x20B

	// FlagExecute is IMAGE_SCN_MEM_EXECUTE.
	FlagExecute = 0x20000000
)

var (
	le           = binary.LittleEndian
	dosMagic     = []byte("MZ")
	peSignature  = []byte{'P', 'E', 0, 0}
	machineNames = map[uint16]string{
		0x14C:  "x86",
		0x8664: "x86-64",
		0x1C0:  "ARM",
		0xAA64: "AArch64",
	}
)

// Machine maps a COFF machine value to an architecture label.
func Machine(m uint16) string {
	if name, ok := machineNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%x)", m)
}

// Parser parses PE images.
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

// Parse decodes buf. A signature mismatch names the stage that failed.
func (p *Parser) Parse(buf *buffer.Buffer) (*structure.Info, error) {
	stub, err := buf.Bytes(0, 2)
	if err != nil || !bytes.Equal(stub, dosMagic) {
		return nil, ferrors.Malformed("pe", "invalid DOS stub")
	}

	sig, err := buf.U32(lfanewOffset, le)
	if err != nil {
		return nil, wrap("pe: DOS header", err)
	}
	sigOff := uint64(sig)

	got, err := buf.Bytes(sigOff, uint64(len(peSignature)))
	if err != nil || !bytes.Equal(got, peSignature) {
		return nil, ferrors.Malformed("pe", "invalid PE signature")
	}

	coff := sigOff + 4
	if _, err := buf.Bytes(coff, coffHeaderSize); err != nil {
		return nil, wrap("pe: COFF header", err)
	}
	machine, _ := buf.U16(coff, le)
	nsections, _ := buf.U16(coff+2, le)
	optSize, _ := buf.U16(coff+16, le)

	opt := sigOff + 24
	optMagic, err := buf.U16(opt, le)
	if err != nil {
		return nil, wrap("pe: optional header", err)
	}
	entry, err := buf.U32(opt+16, le)
	if err != nil {
		return nil, wrap("pe: optional header", err)
	}

	info := &structure.Info{
		Architecture: Machine(machine),
		Endianness:   detect.Little,
		EntryPoint:   uint64(entry),
	}

	switch optMagic {
	case magicPE32:
		info.BitWidth = detect.Width32
	case magicPE32Plus:
		info.BitWidth = detect.Width64
	default:
		info.Warnings = append(info.Warnings, fmt.Sprintf("unsupported optional header magic 0x%x", optMagic))
	}

	sections, err := readSections(buf, opt+uint64(optSize), uint64(nsections))
	if err != nil {
		info.Warnings = append(info.Warnings, err.Error())
		p.sink.Record(diag.Event{
			Level:     diag.LevelWarn,
			Component: "pe",
			Message:   "Section table unreadable",
			Fields:    map[string]any{"error": err.Error()},
		})
	}
	info.Sections = sections

	p.sink.Record(diag.Event{
		Level:     diag.LevelDebug,
		Component: "pe",
		Message:   "Parsed PE structure",
		Fields: map[string]any{
			"architecture": info.Architecture,
			"entry_point":  fmt.Sprintf("0x%x", entry),
			"sections":     len(sections),
		},
	})

	return info, nil
}

// readSections returns the entries that fit in the buffer; a short table
// returns those entries along with a truncation error.
func readSections(buf *buffer.Buffer, off, count uint64) ([]structure.Section, error) {
	sections := make([]structure.Section, 0, count)
	for i := uint64(0); i < count; i++ {
		base := off + i*sectionSize
		raw, err := buf.Bytes(base, sectionSize)
		if err != nil {
			return sections, wrap(fmt.Sprintf("pe: section %d of %d", i+1, count), err)
		}
		name := raw[:8]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		sections = append(sections, structure.Section{
			Name:    string(name),
			Size:    uint64(le.Uint32(raw[16:20])),
			Address: uint64(le.Uint32(raw[12:16])),
			Offset:  uint64(le.Uint32(raw[20:24])),
			Flags:   uint64(le.Uint32(raw[36:40])),
		})
	}
	return sections, nil
}

func wrap(op string, err error) error {
	return ferrors.Wrap(ferrors.KindOf(err), op, err)
}
