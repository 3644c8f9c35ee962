package report

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Format is a report serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Marshal serializes r. YAML output is derived from the JSON form so both
// formats share key names and value shapes.
func Marshal(r *Report, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	switch format {
	case FormatJSON, "":
		return append(data, '\n'), nil
	case FormatYAML:
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("re-decode report: %w", err)
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("marshal report yaml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Unmarshal decodes a JSON report.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

// Schema returns the JSON schema of the report.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	schema := r.ReflectFromType(reflect.TypeFor[Report]())
	schema.Title = "firmscope analysis report"
	return json.MarshalIndent(schema, "", "  ")
}
