package types

// ClassDesc groups the up-to-three C++ polymorphic-class artifacts
// recognized in vtable mode by their demangled-name prefix: "vtable for
// C", "typeinfo for C", "typeinfo name for C". Any subset may be present
// — a class can export its vtable without its typeinfo, or vice versa.
type ClassDesc struct {
	ClassName    string
	Vtable       string // symbol name, empty if absent
	Typeinfo     string
	TypeinfoName string
}

// SymbolNames returns the non-empty member symbol names of the
// descriptor, used by pkg/vtable to build the "symbols belonging to this
// class" set that the externs pass excludes from its output.
func (c ClassDesc) SymbolNames() []string {
	var names []string
	for _, n := range []string{c.Vtable, c.Typeinfo, c.TypeinfoName} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}
