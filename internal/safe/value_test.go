package safe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddUint64(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		ok   bool
	}{
		{name: "small", a: 40, b: 2, want: 42, ok: true},
		{name: "zero", a: 0, b: 0, want: 0, ok: true},
		{name: "max plus zero", a: math.MaxUint64, b: 0, want: math.MaxUint64, ok: true},
		{name: "overflow", a: math.MaxUint64, b: 1, ok: false},
		{name: "offset past end", a: math.MaxUint64 - 3, b: 8, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AddUint64(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulUint64(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		ok   bool
	}{
		{name: "small", a: 7, b: 6, want: 42, ok: true},
		{name: "zero left", a: 0, b: math.MaxUint64, want: 0, ok: true},
		{name: "zero right", a: math.MaxUint64, b: 0, want: 0, ok: true},
		{name: "section table", a: 64, b: 0x40, want: 0x1000, ok: true},
		{name: "overflow", a: math.MaxUint64 / 2, b: 3, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MulUint64(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
