// Package sniff produces human-readable file type descriptions.
// Recognized containers are described from their decoded headers; anything
// else falls back to magic-number MIME detection.
package sniff

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/structure"
)

// EmptyMIME labels a zero-length input, as file(1) does.
const EmptyMIME = "application/x-empty"

// MIME returns a MIME type for data from its magic numbers. Executable
// prefixes too short to parse still get an executable type. It implements
// detect.Sniffer via detect.SnifferFunc.
func MIME(data []byte) string {
	if len(data) == 0 {
		return EmptyMIME
	}
	return mimetype.Detect(data).String()
}

// Sniffer is the detector fallback backed by MIME.
var Sniffer detect.Sniffer = detect.SnifferFunc(MIME)

var elfTypes = map[uint16]string{
	1: "relocatable",
	2: "executable",
	3: "shared object",
	4: "core file",
}

// Describe renders a description in the style of file(1). info may be nil
// when no structural parse succeeded.
func Describe(d detect.Descriptor, info *structure.Info, data []byte) string {
	switch d.Kind {
	case detect.KindELF:
		return describeELF(d)
	case detect.KindPE:
		return describePE(info)
	case detect.KindFOTA, detect.KindOPPO:
		return fmt.Sprintf("%s (%s)", d.Label, d.Kind)
	case detect.KindARMMagic:
		return d.Label
	}
	if d.Label != "" {
		return d.Label
	}
	return MIME(data)
}

func describeELF(d detect.Descriptor) string {
	parts := []string{"ELF"}
	if d.BitWidth != detect.UnknownWidth {
		parts = append(parts, d.BitWidth.String())
	}
	if d.Endianness != detect.UnknownEndianness {
		parts = append(parts, string(d.Endianness))
	}
	if d.ELF != nil {
		if t, ok := elfTypes[d.ELF.Type]; ok {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ") + ", " + d.Architecture
}

func describePE(info *structure.Info) string {
	if info == nil {
		return "MS-DOS executable"
	}
	kind := "PE"
	switch info.BitWidth {
	case detect.Width32:
		kind = "PE32"
	case detect.Width64:
		kind = "PE32+"
	}
	return fmt.Sprintf("%s executable, %s", kind, info.Architecture)
}
