package report

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"

	ferrors "github.com/coral-mesh/firmscope/internal/errors"
)

// Category names used as report keys and CLI selectors.
const (
	CategorySections    = "sections"
	CategoryStrings     = "strings"
	CategoryEntropy     = "entropy"
	CategoryCompression = "compression"
	CategoryCompiler    = "compiler_info"
	CategoryBinwalk     = "binwalk"
	CategoryFunctions   = "functions"
	CategoryFileType    = "file_type"
)

// CategoryError is the serialized form of a category that was attempted and
// failed.
type CategoryError struct {
	Message string       `json:"error"`
	Kind    ferrors.Kind `json:"kind,omitempty"`
}

// NewCategoryError converts err into its report form.
func NewCategoryError(err error) *CategoryError {
	return &CategoryError{Message: err.Error(), Kind: ferrors.KindOf(err)}
}

func (e *CategoryError) Error() string {
	return e.Message
}

// Category is the outcome of one analysis: a value or an error.
// A nil *Category means the analysis was not requested.
type Category[T any] struct {
	Value T
	Err   *CategoryError
}

// Ok wraps a successful result.
func Ok[T any](v T) *Category[T] {
	return &Category[T]{Value: v}
}

// Failed wraps an error result.
func Failed[T any](err error) *Category[T] {
	return &Category[T]{Err: NewCategoryError(err)}
}

// Result wraps v on success and err otherwise.
func Result[T any](v T, err error) *Category[T] {
	if err != nil {
		return Failed[T](err)
	}
	return Ok(v)
}

// Failed reports whether the category holds an error.
func (c *Category[T]) Failed() bool {
	return c != nil && c.Err != nil
}

// MarshalJSON writes the value itself, or {"error": ..., "kind": ...}.
func (c Category[T]) MarshalJSON() ([]byte, error) {
	if c.Err != nil {
		return json.Marshal(c.Err)
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON reverses MarshalJSON. An object is an error when its
// "error" member is a string; no value shape in the report has that.
func (c *Category[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err == nil {
			if raw, ok := probe["error"]; ok && len(raw) > 0 && raw[0] == '"' {
				var e CategoryError
				if err := json.Unmarshal(trimmed, &e); err != nil {
					return err
				}
				c.Err = &e
				return nil
			}
		}
	}
	return json.Unmarshal(trimmed, &c.Value)
}

// JSONSchema describes a category as its value schema or the error object.
func (Category[T]) JSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	value := r.ReflectFromType(reflect.TypeFor[T]())
	value.Version = ""
	errSchema := r.Reflect(&CategoryError{})
	errSchema.Version = ""
	return &jsonschema.Schema{OneOf: []*jsonschema.Schema{value, errSchema}}
}
