// Package pipeline runs format detection and then fans the selected
// analyses out over one shared read-only buffer, merging their results into
// a single report.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/firmscope/internal/buffer"
	"github.com/coral-mesh/firmscope/internal/collab/sniff"
	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/diag"
	"github.com/coral-mesh/firmscope/internal/entropy"
	ferrors "github.com/coral-mesh/firmscope/internal/errors"
	"github.com/coral-mesh/firmscope/internal/report"
	"github.com/coral-mesh/firmscope/internal/structure"
	"github.com/coral-mesh/firmscope/internal/structure/elf"
	"github.com/coral-mesh/firmscope/internal/structure/pe"
)

// Analyzer runs analyses. It is safe for concurrent use.
type Analyzer struct {
	opts     Options
	detector *detect.Detector
	scanner  *entropy.Scanner
	elf      *elf.Parser
	pe       *pe.Parser
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	opts = opts.withDefaults()
	return &Analyzer{
		opts:     opts,
		detector: detect.New(detect.WithSniffer(sniff.Sniffer), detect.WithSink(opts.Sink)),
		scanner:  entropy.NewScanner(opts.WindowSize, opts.EntropyThreshold),
		elf:      elf.NewParser(opts.Sink),
		pe:       pe.NewParser(opts.Sink),
	}
}

// Run loads the file at path and analyzes it. Only a failure to read the
// input is returned as an error; every analysis failure is recorded in the
// report instead.
func (a *Analyzer) Run(ctx context.Context, path string) (*report.Report, error) {
	buf, err := buffer.Load(path, a.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeFile(ctx, path, buf)
}

// AnalyzeFile analyzes buf, which the caller loaded from path. The external
// tool reads path directly.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, buf *buffer.Buffer) (*report.Report, error) {
	return a.analyze(ctx, filepath.Base(path), path, buf)
}

// MaxFileSize returns the input size limit in effect.
func (a *Analyzer) MaxFileSize() int64 {
	return a.opts.MaxFileSize
}

// Analyze runs on an in-memory buffer. When binwalk is selected the buffer
// is written to a temporary file for the external tool.
func (a *Analyzer) Analyze(ctx context.Context, name string, buf *buffer.Buffer) (*report.Report, error) {
	return a.analyze(ctx, name, "", buf)
}

// task is a unit of work whose failures are confined to its own category.
type task struct {
	name string
	run  func(ctx context.Context) error
	fail func(err error)
}

func (a *Analyzer) analyze(ctx context.Context, name, path string, buf *buffer.Buffer) (*report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	sel := a.opts.Selection
	b := report.NewBuilder(name, int64(buf.Len()), buf.Magic())

	desc := a.detector.Detect(buf)
	b.SetContainer(desc)

	// The structural parse is shared by the structure, functions and
	// file_type tasks; whichever asks first runs it.
	parse := sync.OnceValues(func() (*structure.Info, error) {
		return a.parseStructure(desc, buf)
	})

	tasks := []task{{
		name: "structure",
		run: func(context.Context) error {
			info, err := parse()
			switch {
			case desc.HasStructure():
				b.SetStructure(info, err, sel.Sections)
			case sel.Sections:
				b.SetSections(report.Failed[map[string]report.Section](
					ferrors.Unsupported("sections", "no structural parser for %s images", desc.Kind)))
			}
			return nil
		},
		fail: func(err error) { b.SetStructure(nil, err, sel.Sections) },
	}}

	if sel.Strings {
		tasks = append(tasks, a.stringsTask(b, buf))
	}
	if sel.Entropy {
		tasks = append(tasks, a.entropyTask(b, buf))
	}
	if sel.Compiler {
		tasks = append(tasks, a.compilerTask(b, buf))
	}
	if sel.Binwalk {
		tasks = append(tasks, a.binwalkTask(b, name, path, buf))
	}
	if sel.Functions {
		tasks = append(tasks, a.functionsTask(b, desc, buf, parse))
	}
	if sel.FileType {
		tasks = append(tasks, a.fileTypeTask(b, desc, buf, parse))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error {
			a.runTask(gctx, t)
			return nil
		})
	}
	// Tasks never return errors, so Wait only acts as the barrier.
	_ = g.Wait()

	r := b.Build()
	a.opts.Sink.Record(diag.Event{
		Level:     diag.LevelInfo,
		Component: "pipeline",
		Message:   "Analysis complete",
		Fields: map[string]any{
			"file":         name,
			"kind":         string(desc.Kind),
			"architecture": r.Architecture,
			"tasks":        len(tasks),
			"duration":     time.Since(start).String(),
		},
	})
	return r, nil
}

// runTask executes t, converting both returned errors and panics into the
// task's category error.
func (a *Analyzer) runTask(ctx context.Context, t task) {
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				a.opts.Sink.Record(diag.Event{
					Level:     diag.LevelError,
					Component: "pipeline",
					Message:   "Analysis task panicked",
					Fields:    map[string]any{"task": t.name, "panic": fmt.Sprint(rec), "stack": string(debug.Stack())},
				})
				err = ferrors.New(ferrors.KindInternal, t.name, "panic: %v", rec)
			}
		}()
		return t.run(ctx)
	}()

	if err == nil {
		a.opts.Sink.Record(diag.Event{
			Level:     diag.LevelDebug,
			Component: "pipeline",
			Message:   "Analysis task finished",
			Fields:    map[string]any{"task": t.name},
		})
		return
	}

	a.opts.Sink.Record(diag.Event{
		Level:     diag.LevelWarn,
		Component: "pipeline",
		Message:   "Analysis task failed",
		Fields:    map[string]any{"task": t.name, "kind": string(ferrors.KindOf(err)), "error": err.Error()},
	})
	t.fail(err)
}

func (a *Analyzer) parseStructure(desc detect.Descriptor, buf *buffer.Buffer) (*structure.Info, error) {
	switch desc.Kind {
	case detect.KindELF:
		return a.elf.Parse(buf)
	case detect.KindPE:
		return a.pe.Parse(buf)
	default:
		return nil, nil
	}
}

// tempCopy writes buf to a temporary file and returns its path and a
// cleanup function.
func tempCopy(name string, buf *buffer.Buffer) (string, func(), error) {
	f, err := os.CreateTemp("", "firmscope-*-"+filepath.Base(name))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(buf.Data()); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
