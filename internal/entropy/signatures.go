package entropy

import "bytes"

// Compression identifies a compression container format.
type Compression string

const (
	GZIP  Compression = "GZIP"
	ZIP   Compression = "ZIP"
	BZIP2 Compression = "BZIP2"
	XZ    Compression = "XZ"
	LZMA  Compression = "LZMA"
)

// Match is the first occurrence of a signature.
type Match struct {
	Kind   Compression
	Offset uint64
}

type signature struct {
	kind  Compression
	magic []byte
}

var signatures = []signature{
	{kind: GZIP, magic: []byte{0x1F, 0x8B, 0x08}},
	{kind: ZIP, magic: []byte{0x50, 0x4B, 0x03, 0x04}},
	{kind: BZIP2, magic: []byte{0x42, 0x5A, 0x68}},
	{kind: XZ, magic: []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}},
	{kind: LZMA, magic: []byte{0x4C, 0x5A, 0x4D, 0x41}},
}

// Signatures reports the first offset of each known signature present in
// data, in table order. Absent signatures are omitted.
func Signatures(data []byte) []Match {
	var matches []Match
	for _, sig := range signatures {
		if i := bytes.Index(data, sig.magic); i >= 0 {
			matches = append(matches, Match{Kind: sig.kind, Offset: uint64(i)})
		}
	}
	return matches
}
