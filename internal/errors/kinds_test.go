package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "truncated", err: Truncated("elf: header", "need %d bytes", 52), want: KindTruncated},
		{name: "wrapped malformed", err: fmt.Errorf("parse: %w", Malformed("pe", "invalid PE signature")), want: KindMalformed},
		{name: "unsupported", err: Unsupported("disasm", "no decoder"), want: KindUnsupported},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
		{name: "wrap input", err: Wrap(KindInput, "load", errors.New("no such file")), want: KindInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Malformed("pe", "invalid DOS stub")
	assert.Equal(t, "pe: invalid DOS stub", err.Error())

	bare := &Error{Kind: KindTruncated, Err: errors.New("short read")}
	assert.Equal(t, "short read", bare.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(KindInput, "load /fw.bin", cause)

	require.ErrorIs(t, err, cause)

	var classified *Error
	require.ErrorAs(t, err, &classified)
	assert.True(t, classified.Fatal())
	assert.False(t, Truncated("x", "y").Fatal())
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(KindMalformed, "op", nil))
	assert.False(t, IsKind(nil, KindInternal))
}
