package helpers

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/collab/compiler"
	"github.com/coral-mesh/firmscope/internal/collab/disasm"
	"github.com/coral-mesh/firmscope/internal/report"
)

// Styles.
var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Padding(0, 1)
)

// Banner returns the boxed program banner.
func Banner() string {
	return bannerStyle.Render(titleStyle.Render("firmscope") + " - static firmware analyzer")
}

// Success renders a confirmation line.
func Success(msg string) string {
	return successStyle.Render("✓ " + msg)
}

// Warn renders a warning line.
func Warn(msg string) string {
	return warnStyle.Render("⚠ " + msg)
}

// SummaryRow is one line of the console summary.
type SummaryRow struct {
	Section string `header:"Section"`
	Details string `header:"Details"`
	Failed  bool
}

// Summarize lists the report keys present in r with a short description of
// each value: collections show their size, failures show their message.
func Summarize(r *report.Report) []SummaryRow {
	rows := []SummaryRow{
		{Section: "file_name", Details: r.FileName},
		{Section: "file_size", Details: fmt.Sprintf("%d", r.FileSize)},
		{Section: "magic_bytes", Details: r.MagicBytes},
	}
	add := func(section, details string) {
		rows = append(rows, SummaryRow{Section: section, Details: details})
	}

	if r.Container != nil {
		add("container", string(r.Container.Kind))
	}
	if r.Architecture != "" {
		add("architecture", r.Architecture)
	}
	if r.Endianness != "" {
		add("endianness", r.Endianness)
	}
	if r.EntryPoint != nil {
		add("entry_point", r.EntryPoint.String())
	}
	if r.StructureError != nil {
		rows = append(rows, SummaryRow{Section: "structure_error", Details: r.StructureError.Message, Failed: true})
	}

	rows = appendCategory(rows, "segments", r.Segments, count[report.Segment])
	rows = appendCategory(rows, report.CategorySections, r.Sections, countMap[string, report.Section])
	rows = appendCategory(rows, report.CategoryStrings, r.Strings, count[string])
	rows = appendCategory(rows, report.CategoryEntropy, r.Entropy, count[report.EntropyWindow])
	rows = appendCategory(rows, report.CategoryCompression, r.Compression, count[report.CompressionMatch])
	rows = appendCategory(rows, report.CategoryCompiler, r.CompilerInfo, compilerDetails)
	rows = appendCategory(rows, report.CategoryBinwalk, r.Binwalk, count[binwalk.Record])
	rows = appendCategory(rows, report.CategoryFunctions, r.Functions, countMap[report.Hex, []disasm.Instruction])
	rows = appendCategory(rows, report.CategoryFileType, r.FileType, func(s string) string { return s })

	if len(r.Warnings) > 0 {
		add("warnings", items(len(r.Warnings)))
	}
	return rows
}

func appendCategory[T any](rows []SummaryRow, name string, c *report.Category[T], details func(T) string) []SummaryRow {
	switch {
	case c == nil:
		return rows
	case c.Failed():
		return append(rows, SummaryRow{Section: name, Details: "error: " + c.Err.Message, Failed: true})
	default:
		return append(rows, SummaryRow{Section: name, Details: details(c.Value)})
	}
}

func count[E any](v []E) string {
	return items(len(v))
}

func countMap[K comparable, V any](v map[K]V) string {
	return items(len(v))
}

func items(n int) string {
	return fmt.Sprintf("(%d items)", n)
}

func compilerDetails(r compiler.Result) string {
	if !r.Detected {
		return compiler.Unknown
	}
	return fmt.Sprintf("%s (%d signatures)", r.Compiler, len(r.Signatures))
}

// RenderSummary writes the summary table of r to w.
func RenderSummary(w io.Writer, r *report.Report) error {
	rows := Summarize(r)

	data := make([][]string, len(rows))
	for i, row := range rows {
		data[i] = []string{row.Section, row.Details}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(true).
		Headers("Section", "Details").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return keyStyle
			case row < len(rows) && rows[row].Failed:
				return errorStyle.Padding(0, 1)
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, titleStyle.Render("Firmware Analysis Report"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, t.String())
	return err
}
