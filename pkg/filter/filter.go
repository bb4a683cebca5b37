// Package filter implements the export policy (spec.md §4.7): which
// symbols are exported at all, which of those form the interceptable
// function set, and which recoverable conditions (non-default
// versions, a user list missing entries, un-intercepted data symbols)
// get demoted to warnings instead of aborting the run.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/appsworld/implib-go/types"
)

// Options controls the policy knobs spec.md §6 exposes as CLI flags.
type Options struct {
	// NoWeakSymbols excludes WEAK-bound symbols from the exported set.
	NoWeakSymbols bool
	// SymbolList, if non-nil, restricts the function set to this
	// caller-supplied inclusion list, in the list's own order.
	SymbolList []string
	// VtableMode relaxes the "data symbol without interception" warning
	// for OBJECT symbols recognized as vtable-mode class members
	// (demangled name contains " for ").
	VtableMode bool
}

// Result is the outcome of applying Options to a collected symbol
// table.
type Result struct {
	// Exported holds every symbol passing the base export predicate.
	Exported []types.Symbol
	// Functions holds the final, ordered function set: FUNC,
	// default-version, and (if SymbolList is set) present in it.
	Functions []types.Symbol
	// Warnings holds recoverable diagnostics (spec.md §7), one string
	// per condition, never fatal.
	Warnings []string
}

// ParseSymbolList parses the `--symbol-list` file format (spec.md §6):
// one symbol name per line, `#` to end of line is a comment, blank
// lines are skipped. Order is preserved, matching spec.md §8 scenario
// 5's "emitted list is in the list's given order".
func ParseSymbolList(content string) []string {
	var names []string
	for _, line := range strings.Split(content, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// IsExported reports whether s passes the base export predicate of
// spec.md §4.7. It rejects NOTYPE symbols but does not restrict s to
// FUNC.
func IsExported(s types.Symbol, noWeakSymbols bool) bool {
	if s.Bind == types.BindLocal {
		return false
	}
	if s.Visibility == types.VisHidden {
		return false
	}
	if s.Type == types.TypeNone {
		return false
	}
	if s.Undefined() {
		return false
	}
	if s.Name == "" || s.Name == "_init" || s.Name == "_fini" {
		return false
	}
	if noWeakSymbols && s.Bind == types.BindWeak {
		return false
	}
	return true
}

// Apply runs the full export policy over syms and returns the
// exported set, the function set, and accumulated warnings.
func Apply(syms []types.Symbol, opts Options) Result {
	var res Result

	for _, s := range syms {
		if IsExported(s, opts.NoWeakSymbols) {
			res.Exported = append(res.Exported, s)
		}
	}

	var skippedVersioned []string
	var dataWithoutInterception []string
	var funcs []types.Symbol
	for _, s := range res.Exported {
		switch s.Type {
		case types.TypeFunc:
			if !s.DefaultVersion {
				skippedVersioned = append(skippedVersioned, s.Name)
				continue
			}
			funcs = append(funcs, s)
		case types.TypeObject:
			if !(opts.VtableMode && isVtableClassMember(s)) {
				dataWithoutInterception = append(dataWithoutInterception, s.Name)
			}
		}
	}

	if len(skippedVersioned) > 0 {
		sort.Strings(skippedVersioned)
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"skipping %d non-default-version symbol(s): %s", len(skippedVersioned), joinNames(skippedVersioned)))
	}
	if len(dataWithoutInterception) > 0 {
		sort.Strings(dataWithoutInterception)
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%d data symbol(s) will not be intercepted: %s", len(dataWithoutInterception), joinNames(dataWithoutInterception)))
	}

	if opts.SymbolList != nil {
		present := make(map[string]types.Symbol, len(funcs))
		for _, f := range funcs {
			present[f.Name] = f
		}
		var filtered []types.Symbol
		var missing []string
		for _, name := range opts.SymbolList {
			if f, ok := present[name]; ok {
				filtered = append(filtered, f)
			} else {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%d requested symbol(s) not found in library: %s", len(missing), joinNames(missing)))
		}
		funcs = filtered
	} else {
		sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })
	}

	res.Functions = funcs
	if len(res.Functions) == 0 {
		res.Warnings = append(res.Warnings, "empty function set: no symbols will be intercepted")
	}
	return res
}

// isVtableClassMember reports whether s's demangled name marks it as
// one of the three vtable-mode class artifacts (spec.md §4.7: "the
// demangled name lacks ' for '" is the negative test for this).
func isVtableClassMember(s types.Symbol) bool {
	return strings.Contains(s.DemangledName, " for ")
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
