// Package relocs implements the relocation collector (spec.md §4.4):
// parse `readelf -rW`'s dynamic relocation listing, recognizing both the
// GNU and FreeBSD header dialects, and normalize each row's symbol+addend
// cell into a (name, addend) pair.
package relocs

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/appsworld/implib-go/internal/tabletoc"
	"github.com/appsworld/implib-go/internal/toolrun"
	"github.com/appsworld/implib-go/types"
)

var (
	mipsTypeLine = regexp.MustCompile(`^\s*Type[0-9]:`)
	plusSpaces   = regexp.MustCompile(` \+ `)
	twoOrMoreSp  = regexp.MustCompile(`\s\s+`)
)

const noRelocsMarker = "There are no relocations in this file."

var freebsdRename = map[string]string{
	"r_offset": "Offset",
	"r_info":   "Info",
	"r_type":   "Type",
	"st_value": "Symbol's Value",
}

// Collect runs `readelf -rW <path>` and returns its dynamic relocations.
func Collect(ctx context.Context, runner toolrun.Runner, path string) (types.Relocations, error) {
	out, err := runner.Run(ctx, "", "readelf", "-rW", path)
	if err != nil {
		return nil, err
	}
	return Parse(out)
}

// Parse parses the text output of `readelf -rW`.
func Parse(output string) (types.Relocations, error) {
	var toc *tabletoc.TOC
	var rels types.Relocations
	headerSeen := false

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			toc = nil
			continue
		}
		if line == noRelocsMarker {
			return nil, nil
		}
		if mipsTypeLine.MatchString(line) {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Offset"):
			if toc != nil {
				return nil, &tabletoc.ParseError{Msg: "multiple headers in output of readelf"}
			}
			toc = tabletoc.New(twoOrMoreSp.Split(line, -1), nil)
			headerSeen = true
		case strings.HasPrefix(line, "r_offset"):
			if toc != nil {
				return nil, &tabletoc.ParseError{Msg: "multiple headers in output of readelf"}
			}
			words := twoOrMoreSp.Split(line, -1)
			toc = tabletoc.New(words, freebsdDialectRenames(words))
			headerSeen = true
		case toc != nil:
			line = plusSpaces.ReplaceAllString(line, "+")
			words := strings.Fields(line)
			row := toc.Row(words)

			offset, err := tabletoc.ParseHex(row["Offset"])
			if err != nil {
				return nil, err
			}
			info, err := tabletoc.ParseHex(row["Info"])
			if err != nil {
				return nil, err
			}

			symAddend := row["Symbol's Name + Addend"]
			if symAddend == "" {
				if sv, ok := row["Symbol's Name"]; ok {
					symAddend = sv + "+0"
				}
			}
			name, addend := splitSymbolAddend(symAddend)

			rels = append(rels, types.Relocation{
				Offset:       offset,
				Info:         info,
				Type:         row["Type"],
				TargetSymbol: name,
				Addend:       addend,
			})
		}
	}

	if !headerSeen {
		return nil, &tabletoc.ParseError{Msg: "failed to analyze relocations"}
	}
	return rels, nil
}

// freebsdDialectRenames maps the FreeBSD readelf header's column names to
// the GNU dialect's vocabulary, including the combined
// "st_name + r_addend" column.
func freebsdDialectRenames(words []string) map[string]string {
	renames := make(map[string]string, len(freebsdRename)+1)
	for k, v := range freebsdRename {
		renames[k] = v
	}
	for _, w := range words {
		if strings.HasPrefix(w, "st_name") {
			renames[w] = "Symbol's Name + Addend"
		}
	}
	return renames
}

// splitSymbolAddend splits a "name+hexaddend" cell (or "" for none) into
// its parts. A cell without a "+" is a bare symbol name with addend 0;
// an addend that is not valid hex also reads as 0.
func splitSymbolAddend(cell string) (name string, addend int64) {
	if cell == "" {
		return "", 0
	}
	parts := strings.SplitN(cell, "+", 2)
	if len(parts) == 1 {
		return parts[0], 0
	}
	a, err := strconv.ParseInt(parts[1], 16, 64)
	if err != nil {
		a = 0
	}
	return parts[0], a
}
