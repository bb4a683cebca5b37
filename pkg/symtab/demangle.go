package symtab

import (
	"github.com/ianlancetaylor/demangle"

	"github.com/appsworld/implib-go/types"
)

// Demangle fills in each symbol's DemangledName field in place, in
// input order. The Python source pipes every symbol name through one
// `c++filt` invocation and re-pairs its output lines positionally
// (spec.md §4.2); this in-process call removes that pairing hazard
// entirely (see SPEC_FULL.md §4.2) while preserving c++filt's contract
// that a name which isn't a mangled C++ symbol passes through unchanged.
func Demangle(syms []types.Symbol) {
	for i := range syms {
		syms[i].DemangledName = demangle.Filter(syms[i].Name)
	}
}
