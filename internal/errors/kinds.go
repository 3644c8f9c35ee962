// Package errors classifies analysis failures by kind so reports can record
// why a category failed.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure by how the pipeline recovers from it.
type Kind string

const (
	// KindInput means the input file is missing or unreadable. It is the only fatal kind.
	KindInput Kind = "input_error"
	// KindTruncated means the buffer is shorter than a structure requires.
	KindTruncated Kind = "truncated_data"
	// KindMalformed means a signature mismatch or inconsistent header fields.
	KindMalformed Kind = "malformed_structure"
	// KindUnsupported means a variant that is recognized but not modeled.
	KindUnsupported Kind = "unsupported_variant"
	// KindInternal is a failure outside the taxonomy, such as a recovered panic.
	KindInternal Kind = "internal"
)

// Error is a classified failure raised by an analysis stage.
type Error struct {
	Kind Kind
	// Op names the stage that failed, e.g. "elf: section headers".
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error must stop the process before any analysis.
func (e *Error) Fatal() bool {
	return e.Kind == KindInput
}

// New creates a classified error with a formatted cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. It returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Truncated returns a KindTruncated error.
func Truncated(op, format string, args ...any) *Error {
	return New(KindTruncated, op, format, args...)
}

// Malformed returns a KindMalformed error.
func Malformed(op, format string, args ...any) *Error {
	return New(KindMalformed, op, format, args...)
}

// Unsupported returns a KindUnsupported error.
func Unsupported(op, format string, args ...any) *Error {
	return New(KindUnsupported, op, format, args...)
}

// KindOf returns the kind of the first classified error in err's chain,
// or KindInternal when none is found.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
