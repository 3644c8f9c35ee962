// Package binwalk runs the external binwalk tool and parses its signature
// table into records.
package binwalk

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// DefaultPath is the executable looked up on PATH when none is configured.
const DefaultPath = "binwalk"

// ErrNotFound is returned when the binwalk executable is missing.
var ErrNotFound = errors.New("binwalk not found. Please install it with 'sudo apt install binwalk'")

// Record is one signature hit reported by binwalk.
type Record struct {
	Offset      string `json:"offset"`
	Description string `json:"description"`
}

// Runner invokes binwalk.
type Runner struct {
	Path    string
	Timeout time.Duration
}

// NewRunner returns a Runner for the given executable and timeout. An empty
// path selects DefaultPath; a zero timeout disables the deadline.
func NewRunner(path string, timeout time.Duration) *Runner {
	if path == "" {
		path = DefaultPath
	}
	return &Runner{Path: path, Timeout: timeout}
}

// Run scans the file at path. Exit code 1 is treated as success with warnings.
func (r *Runner) Run(ctx context.Context, path string) ([]Record, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	bin := r.Path
	if bin == "" {
		bin = DefaultPath
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrNotFound
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return Parse(&stdout)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("binwalk interrupted: %w", ctx.Err())
		}
		if exitErr != nil {
			return nil, fmt.Errorf("binwalk failed with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to run binwalk: %w", err)
	}

	return Parse(&stdout)
}

// Parse reads binwalk's plain-text output. Rows before the DECIMAL header
// line are ignored, as are rows that do not start with a digit or do not
// split into offset, hex offset and description.
func Parse(r io.Reader) ([]Record, error) {
	records := []Record{}
	parsing := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "DECIMAL") {
			parsing = true
			continue
		}
		if !parsing || line[0] < '0' || line[0] > '9' {
			continue
		}

		offset, rest, ok := cut(line)
		if !ok {
			continue
		}
		_, description, ok := cut(rest)
		if !ok {
			continue
		}
		records = append(records, Record{Offset: offset, Description: description})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read binwalk output: %w", err)
	}

	return records, nil
}

// cut splits s at the first run of whitespace.
func cut(s string) (string, string, bool) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", false
	}
	rest := strings.TrimLeft(s[i:], " \t")
	if rest == "" {
		return s[:i], "", false
	}
	return s[:i], rest, true
}
