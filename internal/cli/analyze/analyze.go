// Package analyze implements the 'firmscope analyze' command.
package analyze

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/firmscope/internal/buffer"
	"github.com/coral-mesh/firmscope/internal/cli/helpers"
	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/config"
	"github.com/coral-mesh/firmscope/internal/constants"
	"github.com/coral-mesh/firmscope/internal/diag"
	"github.com/coral-mesh/firmscope/internal/logging"
	"github.com/coral-mesh/firmscope/internal/pipeline"
	"github.com/coral-mesh/firmscope/internal/report"
	"github.com/coral-mesh/firmscope/internal/safe"
	"github.com/coral-mesh/firmscope/internal/store"
)

// stdoutPath as the output path prints the report instead of writing a file.
const stdoutPath = "-"

type flags struct {
	sections  bool
	strings   bool
	entropy   bool
	compiler  bool
	binwalk   bool
	functions bool
	all       bool

	output     string
	format     string
	arch       string
	windowSize int
	minLength  int
	store      bool
	quiet      bool

	defaultOutput bool
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Statically analyze a firmware or binary image",
		Long: `Analyze an image without executing it and write a JSON or YAML report.

The header (file name, size, magic bytes, container format, architecture,
endianness, entry point) and the file type are always reported. Category
flags add further analyses; --all selects every one.

Each analysis fails on its own: an error in one category is recorded in the
report under that category and the others still run.`,
		Example: `  firmscope analyze firmware.bin
  firmscope analyze --all -o report.yaml --format yaml router.img
  firmscope analyze --functions --arch arm kernel.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			applyFlags(cmd.Flags(), f, rt.Config)
			if err := rt.Config.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cmd.OutOrStdout(), rt, f, args[0])
		},
	}

	f.register(cmd.Flags())
	helpers.AddFormatFlag(cmd, &f.format, helpers.FormatJSON, []helpers.OutputFormat{
		helpers.FormatJSON,
		helpers.FormatYAML,
	})

	return cmd
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.sections, "sections", false, "Analyze sections and segments")
	fs.BoolVar(&f.strings, "strings", false, "Extract printable strings")
	fs.BoolVar(&f.entropy, "entropy", false, "Perform entropy and compression analysis")
	fs.BoolVar(&f.compiler, "compiler", false, "Fingerprint the compiler toolchain")
	fs.BoolVar(&f.binwalk, "binwalk", false, "Run binwalk signature scan")
	fs.BoolVar(&f.functions, "functions", false, "Disassemble and group instructions by function")
	fs.BoolVar(&f.all, "all", false, "Perform all analyses")

	fs.StringVarP(&f.output, "output", "o", "", "Report path, or - for stdout (default from config, report.json)")
	fs.StringVar(&f.arch, "arch", "", "Disassembly architecture override (arm, armbe, arm64, x86, x86-64)")
	fs.IntVar(&f.windowSize, "window-size", 0, "Entropy window size in bytes")
	fs.IntVar(&f.minLength, "min-length", 0, "Minimum printable string length")
	fs.BoolVar(&f.store, "store", false, "Keep the report in the local history database")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print the summary table")
}

// applyFlags layers explicitly set flags over the loaded configuration.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.Config) {
	changed := fs.Changed
	if changed("output") {
		cfg.Output.Path = f.output
	}
	f.defaultOutput = !changed("output") && cfg.Output.Path == constants.DefaultReportPath
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("arch") {
		cfg.Analysis.Arch = f.arch
	}
	if changed("window-size") {
		cfg.Analysis.WindowSize = f.windowSize
	}
	if changed("min-length") {
		cfg.Analysis.MinStringLength = f.minLength
	}
	if changed("store") {
		cfg.Store.Enabled = f.store
	}
}

func (f *flags) selection() pipeline.Selection {
	if f.all {
		return pipeline.All()
	}
	return pipeline.Selection{
		Sections:  f.sections,
		Strings:   f.strings,
		Entropy:   f.entropy,
		Compiler:  f.compiler,
		Binwalk:   f.binwalk,
		Functions: f.functions,
		FileType:  true,
	}
}

func run(ctx context.Context, out io.Writer, rt *helpers.Runtime, f *flags, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := rt.Config
	logger := rt.Logger

	sel := f.selection()
	analyzer := pipeline.New(pipeline.Options{
		Selection:        sel,
		WindowSize:       cfg.Analysis.WindowSize,
		EntropyThreshold: cfg.Analysis.EntropyThreshold,
		MinStringLength:  cfg.Analysis.MinStringLength,
		MaxFileSize:      cfg.Analysis.MaxFileSize,
		MaxInstructions:  cfg.Analysis.MaxInstructions,
		Arch:             cfg.Analysis.Arch,
		Binwalk:          binwalk.NewRunner(cfg.Binwalk.Path, cfg.Binwalk.Timeout),
		Sink:             diag.FromLogger(logging.WithComponent(logger, "pipeline")),
	})

	toStdout := cfg.Output.Path == stdoutPath
	if !f.quiet && !toStdout {
		_, _ = fmt.Fprintln(out, helpers.Banner())
		_, _ = fmt.Fprintf(out, "Analyzing: %s\n", path)
	}

	logger.Info().
		Str("file", path).
		Strs("categories", sel.Names()).
		Msg("Started analysis")

	buf, err := buffer.Load(path, analyzer.MaxFileSize())
	if err != nil {
		logger.Error().Err(err).Str("file", path).Msg("Cannot read input")
		return err
	}

	rep, err := analyzer.AnalyzeFile(ctx, path, buf)
	if err != nil {
		return err
	}

	data, err := report.Marshal(rep, report.Format(cfg.Output.Format))
	if err != nil {
		return err
	}

	if toStdout {
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else {
		if err := safe.WriteFile(cfg.Output.Path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info().Str("path", cfg.Output.Path).Msg("Report saved")
	}

	if cfg.Store.Enabled {
		id, err := save(ctx, cfg.Store.Path, logger, rep, buf.Fingerprint())
		if err != nil {
			logger.Warn().Err(err).Msg("Report not stored")
		} else if !f.quiet && !toStdout {
			_, _ = fmt.Fprintf(out, "Stored as %s\n", id)
		}
	}

	if f.quiet || toStdout {
		return nil
	}

	if err := helpers.RenderSummary(out, rep); err != nil {
		return err
	}
	msg := helpers.Success("Report saved to: " + cfg.Output.Path)
	if f.defaultOutput {
		msg = helpers.Warn("No output path provided. Saved default report to " + cfg.Output.Path)
	}
	_, err = fmt.Fprintln(out, msg)
	return err
}

func save(ctx context.Context, dir string, logger zerolog.Logger, rep *report.Report, hash string) (string, error) {
	st, err := store.Open(dir, logger)
	if err != nil {
		return "", err
	}
	defer safe.Close(st, logger, "Failed to close store")

	ctx, cancel := context.WithTimeout(ctx, constants.DefaultStoreTimeout)
	defer cancel()

	return st.Save(ctx, rep, hash)
}
