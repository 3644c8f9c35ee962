package entropy

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShannon_Bounds(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want float64
	}{
		{name: "empty", data: nil, want: 0},
		{name: "single byte", data: []byte{0x41}, want: 0},
		{name: "all zero", data: make([]byte, 256), want: 0},
		{name: "two symbols evenly", data: bytes.Repeat([]byte{0, 1}, 128), want: 1},
		{name: "every byte value once", data: allBytes(), want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shannon(tt.data)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 8.0)
		})
	}
}

func allBytes() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestShannon_UniformRandom(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	const trials = 200
	var sum float64
	window := make([]byte, 256)
	for i := 0; i < trials; i++ {
		for j := range window {
			window[j] = byte(rng.UintN(256))
		}
		h := Shannon(window)
		require.LessOrEqual(t, h, 8.0)
		sum += h
	}

	// A 256-sample window of uniform bytes scores about 7.2 bits on average
	// because most values are seen 0-3 times; the expectation tends to 8 as
	// the window grows.
	mean := sum / trials
	assert.InDelta(t, 7.18, mean, 0.1)

	big := make([]byte, 1<<16)
	for j := range big {
		big[j] = byte(rng.UintN(256))
	}
	assert.InDelta(t, 8.0, Shannon(big), 0.01)
}

func TestScan_Windows(t *testing.T) {
	data := append(make([]byte, 256), allBytes()...)
	data = append(data, 'a', 'b', 'a', 'b')

	windows := Scan(data, 256)
	require.Len(t, windows, 3)

	assert.Equal(t, uint64(0), windows[0].Offset)
	assert.Zero(t, windows[0].Entropy)
	assert.False(t, windows[0].Compressed)

	assert.Equal(t, uint64(256), windows[1].Offset)
	assert.InDelta(t, 8.0, windows[1].Entropy, 1e-9)
	assert.True(t, windows[1].Compressed)

	// The trailing window is scored over its own 4 bytes.
	assert.Equal(t, uint64(512), windows[2].Offset)
	assert.InDelta(t, 1.0, windows[2].Entropy, 1e-9)
}

func TestScan_ThresholdIsExclusive(t *testing.T) {
	// 128 distinct values each seen twice: exactly 7 bits.
	window := make([]byte, 0, 256)
	for i := 0; i < 128; i++ {
		window = append(window, byte(i), byte(i))
	}
	require.InDelta(t, 7.0, Shannon(window), 1e-12)

	w := Scan(window, 256)
	require.Len(t, w, 1)
	assert.Equal(t, 7.0, w[0].Entropy)
	assert.False(t, w[0].Compressed)
}

func TestNewScanner_Defaults(t *testing.T) {
	s := NewScanner(0, -1)
	assert.Equal(t, DefaultWindowSize, s.WindowSize)
	assert.Equal(t, DefaultThreshold, s.Threshold)

	assert.Nil(t, s.Scan(nil))
	assert.Len(t, NewScanner(ScanWindowSize, 0).Scan(make([]byte, 3000)), 3)
}

func TestSummarize(t *testing.T) {
	data := append(make([]byte, 256), allBytes()...)
	s := Summarize(data, Scan(data, 256))

	assert.Equal(t, 2, s.Windows)
	assert.Equal(t, 1, s.Compressed)
	assert.InDelta(t, 4.0, s.Mean, 1e-9)
	assert.InDelta(t, 8.0, s.Max, 1e-9)
	assert.Greater(t, s.Overall, 0.0)
}
