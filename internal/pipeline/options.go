package pipeline

import (
	"context"

	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/diag"
	"github.com/coral-mesh/firmscope/internal/entropy"
	"github.com/coral-mesh/firmscope/internal/printable"
	"github.com/coral-mesh/firmscope/internal/report"
	"github.com/coral-mesh/firmscope/internal/safe"
)

// Selection chooses which optional categories run. The header keys,
// container descriptor and structural summary are always produced.
type Selection struct {
	Sections  bool
	Strings   bool
	Entropy   bool
	Compiler  bool
	Binwalk   bool
	Functions bool
	FileType  bool
}

// All selects every category.
func All() Selection {
	return Selection{
		Sections:  true,
		Strings:   true,
		Entropy:   true,
		Compiler:  true,
		Binwalk:   true,
		Functions: true,
		FileType:  true,
	}
}

// Names lists the selected categories by report key.
func (s Selection) Names() []string {
	var names []string
	add := func(on bool, name string) {
		if on {
			names = append(names, name)
		}
	}
	add(s.Sections, report.CategorySections)
	add(s.Strings, report.CategoryStrings)
	add(s.Entropy, report.CategoryEntropy)
	add(s.Compiler, report.CategoryCompiler)
	add(s.Binwalk, report.CategoryBinwalk)
	add(s.Functions, report.CategoryFunctions)
	add(s.FileType, report.CategoryFileType)
	return names
}

// BinwalkRunner runs the external carving tool on a file.
type BinwalkRunner interface {
	Run(ctx context.Context, path string) ([]binwalk.Record, error)
}

// Options configures an Analyzer. Zero values select defaults.
type Options struct {
	Selection        Selection
	WindowSize       int
	EntropyThreshold float64
	MinStringLength  int
	MaxFileSize      int64
	MaxInstructions  int
	// Arch overrides the disassembly architecture derived from the image.
	Arch    string
	Binwalk BinwalkRunner
	Sink    diag.Sink
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = entropy.DefaultWindowSize
	}
	if o.EntropyThreshold <= 0 {
		o.EntropyThreshold = entropy.DefaultThreshold
	}
	if o.MinStringLength <= 0 {
		o.MinStringLength = printable.DefaultMinLength
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = safe.DefaultMaxFileSize
	}
	if o.Binwalk == nil {
		o.Binwalk = binwalk.NewRunner("", 0)
	}
	o.Sink = diag.OrNop(o.Sink)
	return o
}
