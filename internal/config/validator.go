package config

import (
	"fmt"
	"strings"

	"github.com/coral-mesh/firmscope/internal/collab/disasm"
	"github.com/coral-mesh/firmscope/internal/report"
)

// Validator is the interface for validating configuration.
type Validator interface {
	Validate() error
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&builder, "  %d. %s\n", i+1, err.Error())
	}
	return builder.String()
}

var logLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate validates Config.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	a := c.Analysis
	if a.WindowSize <= 0 {
		add("analysis.window_size", "must be positive, got %d", a.WindowSize)
	}
	if a.EntropyThreshold <= 0 || a.EntropyThreshold > 8 {
		add("analysis.entropy_threshold", "must be in (0, 8], got %g", a.EntropyThreshold)
	}
	if a.MinStringLength < 1 {
		add("analysis.min_string_length", "must be at least 1, got %d", a.MinStringLength)
	}
	if a.MaxFileSize <= 0 {
		add("analysis.max_file_size", "must be positive, got %d", a.MaxFileSize)
	}
	if a.MaxInstructions <= 0 {
		add("analysis.max_instructions", "must be positive, got %d", a.MaxInstructions)
	}
	if a.Arch != "" {
		if _, err := disasm.ParseArch(a.Arch); err != nil {
			add("analysis.arch", "unsupported architecture %q (supported: %s)", a.Arch, arches())
		}
	}

	if c.Binwalk.Timeout < 0 {
		add("binwalk.timeout", "must not be negative, got %s", c.Binwalk.Timeout)
	}

	switch report.Format(c.Output.Format) {
	case report.FormatJSON, report.FormatYAML:
	default:
		add("output.format", "must be json or yaml, got %q", c.Output.Format)
	}

	if !logLevels[c.Log.Level] {
		add("log.level", "must be one of trace, debug, info, warn, error, got %q", c.Log.Level)
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

func arches() string {
	names := make([]string, 0, len(disasm.Arches()))
	for _, a := range disasm.Arches() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}
