// Package compiler guesses which toolchain produced an image by searching
// for compiler identification strings and predefined-macro names.
package compiler

import (
	"regexp"
	"strings"
)

// Unknown is the label used when nothing matched.
const Unknown = "unknown"

// Result is the best guess for an image.
type Result struct {
	Detected   bool     `json:"detected"`
	Compiler   string   `json:"compiler"`
	Signatures []string `json:"signatures"`
}

type fingerprint struct {
	name     string
	patterns []*regexp.Regexp
}

// The table order breaks ties between equal match counts.
var fingerprints = []fingerprint{
	{name: "gcc", patterns: compile(`GCC: \(GNU\) [\d.]+`, `__GNUC__`, `__gnu_`, `_GLOBAL_OFFSET_TABLE_`)},
	{name: "clang", patterns: compile(`clang version`, `__llvm__`, `__clang__`)},
	{name: "armcc", patterns: compile(`ARM C Compiler`, `__arm__`, `__ARMCC_VERSION`)},
	{name: "icc", patterns: compile(`Intel\(R\) \w+ Compiler`, `__INTEL_COMPILER`)},
	{name: "msvc", patterns: compile(`Microsoft \(R\) Optimizing Compiler`, `_MSC_VER`)},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Names lists the compilers that can be detected, in tie-break order.
func Names() []string {
	out := make([]string, len(fingerprints))
	for i, f := range fingerprints {
		out[i] = f.name
	}
	return out
}

// Detect returns the compiler with the most signature matches in data.
func Detect(data []byte) Result {
	best := -1
	var bestMatches []string

	for i, f := range fingerprints {
		var matches []string
		for _, re := range f.patterns {
			for _, m := range re.FindAll(data, -1) {
				matches = append(matches, strings.ToValidUTF8(string(m), ""))
			}
		}
		if len(matches) > len(bestMatches) {
			best, bestMatches = i, matches
		}
	}

	if best < 0 {
		return Result{Compiler: Unknown, Signatures: []string{}}
	}
	return Result{
		Detected:   true,
		Compiler:   fingerprints[best].name,
		Signatures: bestMatches,
	}
}
