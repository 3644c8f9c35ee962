package report

import (
	"sync"

	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/collab/compiler"
	"github.com/coral-mesh/firmscope/internal/collab/disasm"
	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/structure"
)

// Builder collects category results as analyses finish. It performs no
// analysis. Setters are safe to call from concurrent tasks.
type Builder struct {
	mu sync.Mutex
	r  Report
}

// NewBuilder starts a report with the always-present header keys.
func NewBuilder(fileName string, fileSize int64, magic string) *Builder {
	return &Builder{r: Report{
		FileName:   fileName,
		FileSize:   fileSize,
		MagicBytes: magic,
	}}
}

func (b *Builder) with(f func(r *Report)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f(&b.r)
}

// SetContainer records the format descriptor and seeds architecture and
// endianness from it.
func (b *Builder) SetContainer(d detect.Descriptor) {
	b.with(func(r *Report) {
		r.Container = &d
		r.Architecture = d.Architecture
		r.Endianness = string(d.Endianness)
	})
}

// SetStructure records a structural parse. On failure the architecture falls
// back to "unknown" and the error is kept in structure_error; the segment and
// section categories are only written when includeTables is set.
func (b *Builder) SetStructure(info *structure.Info, err error, includeTables bool) {
	b.with(func(r *Report) {
		if err != nil {
			r.Architecture = detect.UnknownArch
			r.Endianness = string(detect.UnknownEndianness)
			r.EntryPoint = nil
			r.StructureError = NewCategoryError(err)
			if includeTables {
				r.Segments = Failed[[]Segment](err)
				r.Sections = Failed[map[string]Section](err)
			}
			return
		}

		r.Architecture = info.Architecture
		r.Endianness = string(info.Endianness)
		r.EntryPoint = HexPtr(info.EntryPoint)
		r.Warnings = append(r.Warnings, info.Warnings...)
		if includeTables {
			r.Segments = Ok(FromSegments(info.Segments))
			r.Sections = Ok(FromSections(info.Sections))
		}
	})
}

// SetSections records the sections category on its own, for images whose
// container has no structural parser.
func (b *Builder) SetSections(c *Category[map[string]Section]) {
	b.with(func(r *Report) { r.Sections = c })
}

// SetStrings records the strings category.
func (b *Builder) SetStrings(c *Category[[]string]) {
	b.with(func(r *Report) { r.Strings = c })
}

// SetEntropy records the entropy and compression categories.
func (b *Builder) SetEntropy(windows *Category[[]EntropyWindow], matches *Category[[]CompressionMatch]) {
	b.with(func(r *Report) {
		r.Entropy = windows
		r.Compression = matches
	})
}

// SetCompiler records the compiler_info category.
func (b *Builder) SetCompiler(c *Category[compiler.Result]) {
	b.with(func(r *Report) { r.CompilerInfo = c })
}

// SetBinwalk records the binwalk category.
func (b *Builder) SetBinwalk(c *Category[[]binwalk.Record]) {
	b.with(func(r *Report) { r.Binwalk = c })
}

// SetFunctions records the functions category.
func (b *Builder) SetFunctions(c *Category[map[Hex][]disasm.Instruction]) {
	b.with(func(r *Report) { r.Functions = c })
}

// SetFileType records the file_type category.
func (b *Builder) SetFileType(c *Category[string]) {
	b.with(func(r *Report) { r.FileType = c })
}

// AddWarning appends a report-level warning.
func (b *Builder) AddWarning(msg string) {
	b.with(func(r *Report) { r.Warnings = append(r.Warnings, msg) })
}

// Build returns the assembled report. The builder must not be used after.
func (b *Builder) Build() *Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.r
	return &out
}
