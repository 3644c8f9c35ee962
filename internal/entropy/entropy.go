// Package entropy scores fixed-size windows of an image by Shannon entropy
// and locates well-known compression container signatures.
package entropy

import (
	"math"
)

const (
	// DefaultWindowSize is the window length used for report entropy.
	DefaultWindowSize = 256
	// ScanWindowSize is the coarser window used for whole-image scans.
	ScanWindowSize = 1024
	// DefaultThreshold is the bits-per-byte score above which a window is
	// flagged as likely compressed or encrypted.
	DefaultThreshold = 7.0
)

// Window is the entropy score of one window of the buffer.
type Window struct {
	Offset     uint64
	Entropy    float64
	Compressed bool
}

// Shannon returns the entropy of p in bits per byte, in [0, 8].
// The entropy of an empty slice is 0.
func Shannon(p []byte) float64 {
	if len(p) == 0 {
		return 0
	}

	var counts [256]int
	for _, b := range p {
		counts[b]++
	}

	total := float64(len(p))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		prob := float64(c) / total
		h -= prob * math.Log2(prob)
	}

	// Rounding can push a uniform distribution a hair past the bounds.
	return math.Min(math.Max(h, 0), 8)
}

// Scanner splits a buffer into non-overlapping windows.
type Scanner struct {
	WindowSize int
	Threshold  float64
}

// NewScanner returns a scanner, substituting defaults for non-positive values.
func NewScanner(windowSize int, threshold float64) *Scanner {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scanner{WindowSize: windowSize, Threshold: threshold}
}

// Scan returns one Window per WindowSize bytes of data, in order. The last
// window may be shorter and is scored over its own length.
func (s *Scanner) Scan(data []byte) []Window {
	if len(data) == 0 {
		return nil
	}

	windows := make([]Window, 0, (len(data)+s.WindowSize-1)/s.WindowSize)
	for off := 0; off < len(data); off += s.WindowSize {
		end := min(off+s.WindowSize, len(data))
		h := Shannon(data[off:end])
		windows = append(windows, Window{
			Offset:     uint64(off),
			Entropy:    h,
			Compressed: h > s.Threshold,
		})
	}
	return windows
}

// Scan is NewScanner(windowSize, DefaultThreshold).Scan(data).
func Scan(data []byte, windowSize int) []Window {
	return NewScanner(windowSize, DefaultThreshold).Scan(data)
}

// Summary aggregates a scan.
type Summary struct {
	Overall    float64
	Mean       float64
	Max        float64
	Compressed int
	Windows    int
}

// Summarize computes whole-buffer entropy plus statistics over windows.
func Summarize(data []byte, windows []Window) Summary {
	s := Summary{Overall: Shannon(data), Windows: len(windows)}
	if len(windows) == 0 {
		return s
	}
	var sum float64
	for _, w := range windows {
		sum += w.Entropy
		s.Max = math.Max(s.Max, w.Entropy)
		if w.Compressed {
			s.Compressed++
		}
	}
	s.Mean = sum / float64(len(windows))
	return s
}
