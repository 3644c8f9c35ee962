// Package buffer holds the immutable image bytes every analysis reads from.
package buffer

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"

	ferrors "github.com/coral-mesh/firmscope/internal/errors"
	"github.com/coral-mesh/firmscope/internal/safe"
)

// MagicLen is the number of leading bytes reported as magic_bytes.
const MagicLen = 4

// Buffer is a read-only view of an image. It is loaded once and shared by
// reference between concurrent analyses; nothing may write to it.
type Buffer struct {
	data []byte
}

// New wraps b without copying. The caller must not modify b afterwards.
func New(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Load reads the file at path into a new Buffer. Every failure is a fatal
// KindInput error.
func Load(path string, maxSize int64) (*Buffer, error) {
	data, err := safe.ReadFile(path, &safe.ReadOptions{MaxSize: maxSize})
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindInput, "load "+path, err)
	}
	return New(data), nil
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Data returns the underlying bytes. Callers must treat them as read-only.
func (b *Buffer) Data() []byte {
	return b.data
}

// Magic returns the hex encoding of the leading bytes (fewer for short buffers).
func (b *Buffer) Magic() string {
	n := min(MagicLen, len(b.data))
	return hex.EncodeToString(b.data[:n])
}

// Fingerprint returns the xxh3 hash of the whole buffer as 16 hex digits.
func (b *Buffer) Fingerprint() string {
	return fmt.Sprintf("%016x", xxh3.Hash(b.data))
}

// Probe returns the first n bytes, zero-padded when the buffer is shorter.
// The result is a copy of at most n bytes.
func (b *Buffer) Probe(n int) []byte {
	p := make([]byte, n)
	copy(p, b.data)
	return p
}

// Bytes returns the n bytes at off, or a KindTruncated error if the range
// is not fully inside the buffer.
func (b *Buffer) Bytes(off, n uint64) ([]byte, error) {
	end, ok := safe.AddUint64(off, n)
	if !ok {
		return nil, ferrors.Malformed("read", "range 0x%x+%d overflows", off, n)
	}
	if end > uint64(len(b.data)) {
		return nil, ferrors.Truncated("read", "range 0x%x..0x%x past end of %d-byte buffer", off, end, len(b.data))
	}
	return b.data[off:end], nil
}

// U8 reads one byte at off.
func (b *Buffer) U8(off uint64) (uint8, error) {
	p, err := b.Bytes(off, 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// U16 reads a 16-bit value at off in the given byte order.
func (b *Buffer) U16(off uint64, order binary.ByteOrder) (uint16, error) {
	p, err := b.Bytes(off, 2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(p), nil
}

// U32 reads a 32-bit value at off in the given byte order.
func (b *Buffer) U32(off uint64, order binary.ByteOrder) (uint32, error) {
	p, err := b.Bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(p), nil
}

// U64 reads a 64-bit value at off in the given byte order.
func (b *Buffer) U64(off uint64, order binary.ByteOrder) (uint64, error) {
	p, err := b.Bytes(off, 8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(p), nil
}

// Word reads a 4-byte value when wide is false and an 8-byte value otherwise,
// widening to uint64. ELF structures use it to switch on class.
func (b *Buffer) Word(off uint64, wide bool, order binary.ByteOrder) (uint64, error) {
	if wide {
		return b.U64(off, order)
	}
	v, err := b.U32(off, order)
	return uint64(v), err
}

// CString returns the NUL-terminated string starting at off. A string running
// to the end of the buffer without a terminator is returned as-is.
func (b *Buffer) CString(off uint64) (string, error) {
	if off >= uint64(len(b.data)) {
		return "", ferrors.Truncated("read", "string offset 0x%x past end of %d-byte buffer", off, len(b.data))
	}
	rest := b.data[off:]
	for i, c := range rest {
		if c == 0 {
			return string(rest[:i]), nil
		}
	}
	return string(rest), nil
}
