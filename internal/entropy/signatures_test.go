package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatures_SingleGzip(t *testing.T) {
	data := make([]byte, 512)
	copy(data[100:], []byte{0x1F, 0x8B, 0x08})

	assert.Equal(t, []Match{{Kind: GZIP, Offset: 100}}, Signatures(data))
}

func TestSignatures_FirstOccurrenceOnly(t *testing.T) {
	data := make([]byte, 64)
	copy(data[10:], "PK\x03\x04")
	copy(data[40:], "PK\x03\x04")
	copy(data[20:], "BZh")
	copy(data[30:], "LZMA")
	copy(data[50:], []byte{0xFD, '7', 'z', 'X', 'Z', 0x00})

	assert.Equal(t, []Match{
		{Kind: ZIP, Offset: 10},
		{Kind: BZIP2, Offset: 20},
		{Kind: XZ, Offset: 50},
		{Kind: LZMA, Offset: 30},
	}, Signatures(data))
}

func TestSignatures_None(t *testing.T) {
	assert.Empty(t, Signatures(make([]byte, 1024)))
	assert.Empty(t, Signatures(nil))
}
