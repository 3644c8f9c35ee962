package detect

import "fmt"

// Kind is the container type of an image.
type Kind string

const (
	KindELF      Kind = "ELF"
	KindPE       Kind = "PE"
	KindFOTA     Kind = "FOTA"
	KindOPPO     Kind = "OPPO"
	KindARMMagic Kind = "ARM_MAGIC"
	KindUnknown  Kind = "Unknown"
)

// Endianness is the byte order of multi-byte fields.
type Endianness string

const (
	Little            Endianness = "LSB"
	Big               Endianness = "MSB"
	UnknownEndianness Endianness = "unknown"
)

// BitWidth is the word size of the container class; zero is unknown.
type BitWidth int

const (
	UnknownWidth BitWidth = 0
	Width32      BitWidth = 32
	Width64      BitWidth = 64
)

func (w BitWidth) String() string {
	if w == UnknownWidth {
		return "unknown"
	}
	return fmt.Sprintf("%d-bit", int(w))
}

// UnknownArch is the architecture label when nothing could be decoded.
const UnknownArch = "unknown"

// ELFIdent holds the identification fields only ELF images carry.
type ELFIdent struct {
	Type    uint16 `json:"e_type"`
	Machine uint16 `json:"e_machine"`
	Flags   uint32 `json:"e_flags"`
}

// Descriptor is the result of format detection. It is derived from the
// first ProbeSize bytes and never changes afterwards.
type Descriptor struct {
	Kind         Kind       `json:"kind"`
	Architecture string     `json:"architecture"`
	Endianness   Endianness `json:"endianness"`
	BitWidth     BitWidth   `json:"bit_width,omitempty"`
	// Label is free text: a vendor note for firmware wrappers or a sniffed
	// content type for unknown images.
	Label string    `json:"label,omitempty"`
	ELF   *ELFIdent `json:"elf,omitempty"`
}

// HasStructure reports whether a structural parser exists for the kind.
func (d Descriptor) HasStructure() bool {
	return d.Kind == KindELF || d.Kind == KindPE
}
