// Package symtab implements the symbol collector (spec.md §4.2): ELF
// dynamic symbols via `readelf -sW` plus `nm -g` for visibility, or
// Mach-O symbols via a simpler `nm -D` listing.
package symtab

import (
	"context"
	"regexp"
	"strings"

	"github.com/appsworld/implib-go/internal/tabletoc"
	"github.com/appsworld/implib-go/internal/toolrun"
	"github.com/appsworld/implib-go/types"
)

var localEntryMarker = regexp.MustCompile(`\[<localentry>: [0-9]+\]`)

// CollectELF runs readelf/nm against path and returns its normalized,
// demangled, deduplicated dynamic symbol table.
func CollectELF(ctx context.Context, runner toolrun.Runner, path string) ([]types.Symbol, error) {
	visOut, err := runner.Run(ctx, "", "nm", "-g", path)
	if err != nil {
		return nil, err
	}
	symOut, err := runner.Run(ctx, "", "readelf", "-sW", path)
	if err != nil {
		return nil, err
	}

	syms, err := ParseELF(symOut, ParseVisibility(visOut))
	if err != nil {
		return nil, err
	}
	Demangle(syms)
	return syms, nil
}

// ParseVisibility parses `nm -g`'s three-column listing into a
// name -> Visibility map: an uppercase nm type letter maps to DEFAULT,
// any other case to HIDDEN. Per spec.md §9 and SPEC_FULL.md §13.3 this
// conflates lowercase weak markers with HIDDEN; the behavior is
// preserved deliberately rather than corrected, since readelf's own
// Bind column already carries the correct WEAK/GLOBAL distinction.
func ParseVisibility(nmOut string) map[string]types.Visibility {
	vis := make(map[string]types.Visibility)
	for _, line := range strings.Split(nmOut, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		typeCode := fields[1]
		name := fields[2]
		if isUpper(typeCode) {
			vis[name] = types.VisDefault
		} else {
			vis[name] = types.VisHidden
		}
	}
	return vis
}

func isUpper(s string) bool {
	return s != "" && s == strings.ToUpper(s) && s != strings.ToLower(s)
}

// ParseELF parses `readelf -sW`'s wide symbol table text, given a
// name -> Visibility map already collected from `nm -g`.
func ParseELF(output string, visibility map[string]types.Visibility) ([]types.Symbol, error) {
	var toc *tabletoc.TOC
	var syms []types.Symbol
	seen := make(map[string]struct{})
	headerSeen := false

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		line = localEntryMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)

		if line == "" {
			toc = nil
			continue
		}

		words := strings.Fields(line)

		if strings.HasPrefix(line, "Num") {
			if toc != nil {
				return nil, &tabletoc.ParseError{Msg: "multiple headers in output of readelf"}
			}
			toc = tabletoc.New(stripColons(words), nil)
			headerSeen = true
			continue
		}
		if toc == nil {
			continue
		}

		row := toc.Row(words)
		rawName := row["Name"]
		if rawName == "" {
			continue
		}

		if _, dup := seen[rawName]; dup {
			continue
		}
		seen[rawName] = struct{}{}

		name, version, isDefault := types.StripVersion(rawName)

		value, err := tabletoc.ParseHex(row["Value"])
		if err != nil {
			return nil, err
		}
		size, err := tabletoc.ParseSize(row["Size"])
		if err != nil {
			return nil, err
		}

		// A name absent from the nm listing falls back to the zero value
		// VisDefault, matching the Python source's dict.get(name, "DEFAULT").
		sym := types.Symbol{
			Name:           name,
			Value:          value,
			Size:           size,
			Type:           types.ParseSymType(row["Type"]),
			Bind:           types.ParseBind(row["Bind"]),
			SectionIndex:   row["Ndx"],
			DefaultVersion: isDefault,
			Version:        version,
			Visibility:     visibility[name],
		}

		syms = append(syms, sym)
	}

	if !headerSeen {
		return nil, &tabletoc.ParseError{Msg: "failed to analyze symbols"}
	}
	return syms, nil
}

func stripColons(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ReplaceAll(w, ":", "")
	}
	return out
}
