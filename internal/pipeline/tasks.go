package pipeline

import (
	"context"

	"github.com/coral-mesh/firmscope/internal/buffer"
	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/collab/compiler"
	"github.com/coral-mesh/firmscope/internal/collab/disasm"
	"github.com/coral-mesh/firmscope/internal/collab/sniff"
	"github.com/coral-mesh/firmscope/internal/detect"
	"github.com/coral-mesh/firmscope/internal/diag"
	"github.com/coral-mesh/firmscope/internal/entropy"
	ferrors "github.com/coral-mesh/firmscope/internal/errors"
	"github.com/coral-mesh/firmscope/internal/printable"
	"github.com/coral-mesh/firmscope/internal/report"
	"github.com/coral-mesh/firmscope/internal/structure"
	"github.com/coral-mesh/firmscope/internal/structure/elf"
	"github.com/coral-mesh/firmscope/internal/structure/pe"
)

type parseFunc func() (*structure.Info, error)

func (a *Analyzer) stringsTask(b *report.Builder, buf *buffer.Buffer) task {
	return task{
		name: report.CategoryStrings,
		run: func(context.Context) error {
			strs := printable.Extract(buf.Data(), a.opts.MinStringLength)
			b.SetStrings(report.Ok(printable.Texts(strs)))
			return nil
		},
		fail: func(err error) { b.SetStrings(report.Failed[[]string](err)) },
	}
}

// entropyTask produces both the entropy and compression categories.
func (a *Analyzer) entropyTask(b *report.Builder, buf *buffer.Buffer) task {
	return task{
		name: report.CategoryEntropy,
		run: func(context.Context) error {
			data := buf.Data()
			windows := a.scanner.Scan(data)
			matches := entropy.Signatures(data)

			summary := entropy.Summarize(data, windows)
			a.opts.Sink.Record(diag.Event{
				Level:     diag.LevelInfo,
				Component: "entropy",
				Message:   "Entropy scan complete",
				Fields: map[string]any{
					"overall":     summary.Overall,
					"mean":        summary.Mean,
					"max":         summary.Max,
					"windows":     summary.Windows,
					"compressed":  summary.Compressed,
					"signatures":  len(matches),
					"window_size": a.scanner.WindowSize,
				},
			})

			b.SetEntropy(report.Ok(report.FromWindows(windows)), report.Ok(report.FromMatches(matches)))
			return nil
		},
		fail: func(err error) {
			b.SetEntropy(report.Failed[[]report.EntropyWindow](err), report.Failed[[]report.CompressionMatch](err))
		},
	}
}

func (a *Analyzer) compilerTask(b *report.Builder, buf *buffer.Buffer) task {
	return task{
		name: report.CategoryCompiler,
		run: func(context.Context) error {
			b.SetCompiler(report.Ok(compiler.Detect(buf.Data())))
			return nil
		},
		fail: func(err error) { b.SetCompiler(report.Failed[compiler.Result](err)) },
	}
}

// binwalkTask runs the carving tool on path, or on a temporary copy of buf
// when the input did not come from a file.
func (a *Analyzer) binwalkTask(b *report.Builder, name, path string, buf *buffer.Buffer) task {
	return task{
		name: report.CategoryBinwalk,
		run: func(ctx context.Context) error {
			target := path
			if target == "" {
				tmp, cleanup, err := tempCopy(name, buf)
				if err != nil {
					return err
				}
				defer cleanup()
				target = tmp
			}

			records, err := a.opts.Binwalk.Run(ctx, target)
			if err != nil {
				return err
			}
			if records == nil {
				records = []binwalk.Record{}
			}
			b.SetBinwalk(report.Ok(records))
			return nil
		},
		fail: func(err error) { b.SetBinwalk(report.Failed[[]binwalk.Record](err)) },
	}
}

func (a *Analyzer) functionsTask(b *report.Builder, desc detect.Descriptor, buf *buffer.Buffer, parse parseFunc) task {
	return task{
		name: report.CategoryFunctions,
		run: func(context.Context) error {
			info, _ := parse()

			arch, err := a.arch(desc, info)
			if err != nil {
				return err
			}
			code, base, err := codeRegion(desc, info, buf)
			if err != nil {
				return err
			}

			fns, err := disasm.Functions(code, base, arch, a.opts.MaxInstructions)
			if err != nil {
				return err
			}
			a.opts.Sink.Record(diag.Event{
				Level:     diag.LevelDebug,
				Component: "disasm",
				Message:   "Function scan complete",
				Fields:    map[string]any{"arch": string(arch), "base": report.Hex(base).String(), "bytes": len(code), "functions": len(fns)},
			})
			b.SetFunctions(report.Ok(report.FromFunctions(fns)))
			return nil
		},
		fail: func(err error) {
			b.SetFunctions(report.Failed[map[report.Hex][]disasm.Instruction](err))
		},
	}
}

// arch picks the disassembly architecture: the configured override, then
// the parsed structure, then the detector's guess.
func (a *Analyzer) arch(desc detect.Descriptor, info *structure.Info) (disasm.Arch, error) {
	if a.opts.Arch != "" {
		return disasm.ParseArch(a.opts.Arch)
	}
	label := desc.Architecture
	if info != nil {
		label = info.Architecture
	}
	arch, ok := disasm.ArchFor(label)
	if !ok {
		return "", ferrors.Unsupported("functions", "no disassembler for architecture %q; set --arch", label)
	}
	if arch == disasm.ARM && be32(desc, info) {
		return disasm.ARMBE, nil
	}
	return arch, nil
}

// elfARMBE8 is the e_flags bit marking BE8 code, which keeps little-endian
// instructions in an MSB image.
const elfARMBE8 = 0x00800000

// be32 reports whether a 32-bit ARM image stores big-endian instruction words.
func be32(desc detect.Descriptor, info *structure.Info) bool {
	order := desc.Endianness
	if info != nil {
		order = info.Endianness
	}
	if order != detect.Big {
		return false
	}
	return desc.ELF == nil || desc.ELF.Flags&elfARMBE8 == 0
}

// codeRegion returns the first executable section when the structure has
// one, and the whole buffer at address zero otherwise.
func codeRegion(desc detect.Descriptor, info *structure.Info, buf *buffer.Buffer) ([]byte, uint64, error) {
	if info != nil {
		flag := uint64(elf.FlagExecInstr)
		if desc.Kind == detect.KindPE {
			flag = pe.FlagExecute
		}
		if sec, ok := info.Executable(flag); ok {
			code, err := buf.Bytes(sec.Offset, sec.Size)
			if err != nil {
				return nil, 0, ferrors.Wrap(ferrors.KindOf(err), "functions: section "+sec.Name, err)
			}
			return code, sec.Address, nil
		}
	}
	return buf.Data(), 0, nil
}

func (a *Analyzer) fileTypeTask(b *report.Builder, desc detect.Descriptor, buf *buffer.Buffer, parse parseFunc) task {
	return task{
		name: report.CategoryFileType,
		run: func(context.Context) error {
			info, err := parse()
			if err != nil {
				info = nil
			}
			b.SetFileType(report.Ok(sniff.Describe(desc, info, buf.Data())))
			return nil
		},
		fail: func(err error) { b.SetFileType(report.Failed[string](err)) },
	}
}
