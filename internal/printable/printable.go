// Package printable extracts runs of printable ASCII from binary data.
package printable

import (
	"iter"
)

// DefaultMinLength is the shortest run reported.
const DefaultMinLength = 4

// String is a run of printable bytes and where it starts.
type String struct {
	Offset uint64
	Text   string
}

// IsPrintable reports whether b is in the printable ASCII range, space
// through tilde.
func IsPrintable(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// All yields every run of at least minLength printable bytes in data, in
// order of appearance. The sequence holds no state between iterations and
// can be ranged over any number of times. minLength below 1 is treated as 1.
func All(data []byte, minLength int) iter.Seq[String] {
	minLength = max(minLength, 1)
	return func(yield func(String) bool) {
		start := -1
		for i := 0; i <= len(data); i++ {
			if i < len(data) && IsPrintable(data[i]) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 && i-start >= minLength {
				if !yield(String{Offset: uint64(start), Text: string(data[start:i])}) {
					return
				}
			}
			start = -1
		}
	}
}

// Extract collects All(data, minLength) into a slice.
func Extract(data []byte, minLength int) []String {
	var out []String
	for s := range All(data, minLength) {
		out = append(out, s)
	}
	return out
}

// Texts returns only the text of each string.
func Texts(strs []String) []string {
	out := make([]string, len(strs))
	for i, s := range strs {
		out[i] = s.Text
	}
	return out
}
