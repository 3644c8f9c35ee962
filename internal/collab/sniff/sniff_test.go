package sniff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/structure"
)

func TestMIME(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "text", data: []byte("hello firmware\n"), want: "text/plain; charset=utf-8"},
		{name: "binary blob", data: []byte{0x00, 0x01, 0x02, 0xfe}, want: "application/octet-stream"},
		{name: "gzip", data: []byte{0x1f, 0x8b, 0x08, 0x00}, want: "application/gzip"},
		{name: "empty", data: nil, want: EmptyMIME},
		{name: "truncated dos stub", data: []byte("MZ"), want: "application/vnd.microsoft.portable-executable"},
		{name: "truncated elf ident", data: []byte{0x7f, 'E', 'L', 'F', 2}, want: "application/x-elf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MIME(tt.data)
			assert.Equal(t, tt.want, got)
			if tt.name != "text" {
				assert.NotContains(t, got, "text/plain")
			}
		})
	}

	assert.Equal(t, MIME([]byte("MZ")), Sniffer.MIME([]byte("MZ")))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		desc detect.Descriptor
		info *structure.Info
		data []byte
		want string
	}{
		{
			name: "elf executable",
			desc: detect.Descriptor{
				Kind:         detect.KindELF,
				Architecture: "x86-64",
				Endianness:   detect.Little,
				BitWidth:     detect.Width64,
				ELF:          &detect.ELFIdent{Type: 2, Machine: 0x3e},
			},
			want: "ELF 64-bit LSB executable, x86-64",
		},
		{
			name: "elf with unknown class",
			desc: detect.Descriptor{
				Kind:         detect.KindELF,
				Architecture: "ARMv7",
				Endianness:   detect.Big,
				ELF:          &detect.ELFIdent{Type: 9},
			},
			want: "ELF MSB, ARMv7",
		},
		{
			name: "pe32+",
			desc: detect.Descriptor{Kind: detect.KindPE},
			info: &structure.Info{Architecture: "x86-64", BitWidth: detect.Width64},
			want: "PE32+ executable, x86-64",
		},
		{
			name: "pe without structure",
			desc: detect.Descriptor{Kind: detect.KindPE},
			want: "MS-DOS executable",
		},
		{
			name: "vendor package",
			desc: detect.Descriptor{Kind: detect.KindFOTA, Label: "vendor firmware package"},
			want: "vendor firmware package (FOTA)",
		},
		{
			name: "arm magic",
			desc: detect.Descriptor{Kind: detect.KindARMMagic, Label: "possible ARM firmware"},
			want: "possible ARM firmware",
		},
		{
			name: "unknown with label",
			desc: detect.Descriptor{Kind: detect.KindUnknown, Label: "image/png"},
			want: "image/png",
		},
		{
			name: "unknown sniffed",
			desc: detect.Descriptor{Kind: detect.KindUnknown},
			data: []byte("plain text"),
			want: "text/plain; charset=utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.desc, tt.info, tt.data))
		})
	}
}
