// Package sections implements the section collector (spec.md §4.4):
// parse the wide ELF section-header listing (`readelf -SW`) and keep
// only allocatable sections.
package sections

import (
	"context"
	"regexp"
	"strings"

	"github.com/appsworld/implib-go/internal/tabletoc"
	"github.com/appsworld/implib-go/internal/toolrun"
	"github.com/appsworld/implib-go/types"
)

var bracketSpace = regexp.MustCompile(`\[\s+`)

// Collect runs `readelf -SW <path>` and returns its allocatable sections.
func Collect(ctx context.Context, runner toolrun.Runner, path string) (types.Sections, error) {
	out, err := runner.Run(ctx, "", "readelf", "-SW", path)
	if err != nil {
		return nil, err
	}
	return Parse(out)
}

// Parse parses the text output of `readelf -SW`.
func Parse(output string) (types.Sections, error) {
	var toc *tabletoc.TOC
	var secs types.Sections

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line = bracketSpace.ReplaceAllString(line, "[")
		words := strings.Fields(line)

		switch {
		case strings.HasPrefix(line, "[Nr]"):
			if toc != nil {
				return nil, &tabletoc.ParseError{Msg: "multiple headers in output of readelf"}
			}
			toc = tabletoc.New(words, map[string]string{"Addr": "Address"})
		case strings.HasPrefix(line, "[") && toc != nil:
			row := toc.Row(words)
			if !strings.Contains(row["Flg"], "A") {
				continue
			}
			addr, err := tabletoc.ParseHex(row["Address"])
			if err != nil {
				return nil, err
			}
			off, err := tabletoc.ParseHex(row["Off"])
			if err != nil {
				return nil, err
			}
			size, err := tabletoc.ParseHex(row["Size"])
			if err != nil {
				return nil, err
			}
			secs = append(secs, types.Section{
				Name:       row["Name"],
				Address:    addr,
				FileOffset: off,
				Size:       size,
				Flags:      row["Flg"],
			})
		}
	}

	if toc == nil {
		return nil, &tabletoc.ParseError{Msg: "failed to analyze sections"}
	}
	return secs, nil
}
