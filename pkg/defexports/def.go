// Package defexports parses a text "def file" export list (spec.md
// §4.3): an alternate symbol source, historically used on Windows-style
// toolchains, accepted here as a plain-text alternative to parsing a
// real ELF/Mach-O binary.
package defexports

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/appsworld/implib-go/types"
)

var (
	commentLine = regexp.MustCompile(`^\s*;`)
	exportIdent = regexp.MustCompile(`^\s+([A-Za-z0-9_]+)\s*$`)
	libNameLine = regexp.MustCompile(`^(?:LIBRARY|NAME)\s+([A-Za-z0-9_.\-]+)$`)
)

// Result is the parsed content of a def file.
type Result struct {
	Symbols []types.Symbol
	// LoadName is the library's logical load name from a LIBRARY/NAME
	// directive, or "" if none was present.
	LoadName string
	// Warnings holds recoverable diagnostics (spec.md §7): an empty
	// EXPORTS block is a warning, not an error.
	Warnings []string
}

// Parse reads a def file's content and returns its exported symbols and
// load name. Multiple EXPORTS blocks accumulate (spec.md §4.3).
func Parse(content string) Result {
	var res Result

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if m := libNameLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil && res.LoadName == "" {
			res.LoadName = m[1]
		}
	}

	sc := bufio.NewScanner(strings.NewReader(content))
	inExports := false
	for sc.Scan() {
		line := sc.Text()

		if !inExports {
			if strings.TrimSpace(line) == "EXPORTS" {
				inExports = true
			}
			continue
		}

		if commentLine.MatchString(line) {
			continue
		}
		m := exportIdent.FindStringSubmatch(line)
		if m == nil {
			// First non-matching, non-comment line terminates this block.
			// Re-evaluate it as a possible new "EXPORTS" header, matching
			// the Python source's push-back-and-break behavior.
			inExports = false
			if strings.TrimSpace(line) == "EXPORTS" {
				inExports = true
			}
			continue
		}
		res.Symbols = append(res.Symbols, types.Symbol{
			Name:           m[1],
			Bind:           types.BindGlobal,
			Type:           types.TypeFunc,
			SectionIndex:   "0",
			DefaultVersion: true,
			Visibility:     types.VisDefault,
			Size:           0,
		})
	}

	if len(res.Symbols) == 0 {
		res.Warnings = append(res.Warnings, "failed to locate symbols in def file")
	}

	return res
}
