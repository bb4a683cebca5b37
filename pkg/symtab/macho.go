package symtab

import (
	"context"
	"strings"

	"github.com/appsworld/implib-go/internal/tabletoc"
	"github.com/appsworld/implib-go/internal/toolrun"
	"github.com/appsworld/implib-go/types"
)

// CollectMachO runs a 3-column `nm -D` listing against path and returns
// a normalized, demangled, deduplicated symbol table. The section,
// relocation, and raw-byte collectors have no Mach-O path; they are
// never run on Mach-O input because vtable mode is rejected for Mach-O
// entirely (SPEC_FULL.md §13.2).
func CollectMachO(ctx context.Context, runner toolrun.Runner, path string) ([]types.Symbol, error) {
	out, err := runner.Run(ctx, "", "nm", "-D", path)
	if err != nil {
		return nil, err
	}
	syms, err := ParseMachO(out)
	if err != nil {
		return nil, err
	}
	Demangle(syms)
	return syms, nil
}

// ParseMachO parses a 3-column "address type name" nm listing. Undefined
// entries conventionally print with a blank address column ("  U name"),
// collapsing to a 2-field line once split on whitespace; those are
// accepted here with an implicit empty address, so that an undefined
// symbol's Ndx still ends up "UND" as spec.md §4.2 requires, rather than
// being silently dropped the way a strict 3-field requirement would.
func ParseMachO(output string) ([]types.Symbol, error) {
	var syms []types.Symbol
	seen := make(map[string]struct{})

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		var address, typeCode, name string
		switch len(fields) {
		case 2:
			address, typeCode, name = "", fields[0], fields[1]
		case 3:
			address, typeCode, name = fields[0], fields[1], fields[2]
		default:
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		symType := types.TypeObject
		if strings.ToUpper(typeCode) == "T" {
			symType = types.TypeFunc
		}

		bind := types.BindLocal
		if isUpper(typeCode) {
			bind = types.BindGlobal
		}

		sectionIndex := "1"
		var value uint64
		if strings.ToUpper(typeCode) == "U" {
			sectionIndex = "UND"
		} else {
			v, err := parseMachOAddress(address)
			if err != nil {
				return nil, err
			}
			value = v
		}

		syms = append(syms, types.Symbol{
			Name:           name,
			Value:          value,
			Size:           0, // nm doesn't report size
			Type:           symType,
			Bind:           bind,
			Visibility:     types.VisDefault,
			SectionIndex:   sectionIndex,
			DefaultVersion: true,
		})
	}
	return syms, nil
}

func parseMachOAddress(s string) (uint64, error) {
	if s == "U" || s == "" {
		return 0, nil
	}
	return tabletoc.ParseHex(s)
}
