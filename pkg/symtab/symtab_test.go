package symtab

import (
	"testing"

	"github.com/appsworld/implib-go/types"
)

const nmGlobalSample = `0000000000001000 T foo
0000000000002000 t hidden_helper
0000000000003000 D data_sym
                  U read
`

const readelfSymSample = `
Symbol table '.dynsym' contains 6 entries:
   Num:    Value          Size Type    Bind   Vis      Ndx Name
     0: 0000000000000000     0 NOTYPE  LOCAL  DEFAULT  UND
     1: 0000000000001000    32 FUNC    GLOBAL DEFAULT    7 foo
     2: 0000000000002000    16 FUNC    LOCAL  DEFAULT    7 hidden_helper
     3: 0000000000003000     8 OBJECT  GLOBAL DEFAULT    9 data_sym
     4: 0000000000000000     0 FUNC    GLOBAL DEFAULT  UND read@@GLIBC_2.2.5
     5: 0000000000000000     0 FUNC    GLOBAL DEFAULT  UND read@GLIBC_2.0
`

func TestParseVisibility(t *testing.T) {
	vis := ParseVisibility(nmGlobalSample)
	if vis["foo"] != types.VisDefault {
		t.Fatalf("foo visibility = %v", vis["foo"])
	}
	if vis["hidden_helper"] != types.VisHidden {
		t.Fatalf("hidden_helper visibility = %v", vis["hidden_helper"])
	}
}

func TestParseELF_Basic(t *testing.T) {
	vis := ParseVisibility(nmGlobalSample)
	syms, err := ParseELF(readelfSymSample, vis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byName := map[string]types.Symbol{}
	for _, s := range syms {
		byName[s.Name] = s
	}

	foo, ok := byName["foo"]
	if !ok || foo.Type != types.TypeFunc || foo.Value != 0x1000 || foo.Size != 32 {
		t.Fatalf("unexpected foo: %+v", foo)
	}
	if foo.Visibility != types.VisDefault {
		t.Fatalf("foo visibility = %v", foo.Visibility)
	}

	helper, ok := byName["hidden_helper"]
	if !ok || helper.Visibility != types.VisHidden {
		t.Fatalf("unexpected hidden_helper: %+v", helper)
	}
}

func TestParseELF_VersionedSymbols(t *testing.T) {
	vis := ParseVisibility(nmGlobalSample)
	syms, err := ParseELF(readelfSymSample, vis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var reads []types.Symbol
	for _, s := range syms {
		if s.Name == "read" {
			reads = append(reads, s)
		}
	}
	if len(reads) != 2 {
		t.Fatalf("got %d 'read' entries, want 2 (default + non-default): %+v", len(reads), reads)
	}
	var sawDefault, sawNonDefault bool
	for _, s := range reads {
		if s.DefaultVersion && s.Version == "GLIBC_2.2.5" {
			sawDefault = true
		}
		if !s.DefaultVersion && s.Version == "GLIBC_2.0" {
			sawNonDefault = true
		}
	}
	if !sawDefault || !sawNonDefault {
		t.Fatalf("version splitting incorrect: %+v", reads)
	}
}

func TestParseELF_NoHeaderIsFatal(t *testing.T) {
	_, err := ParseELF("nothing here\n", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseELF_MultipleHeadersIsFatal(t *testing.T) {
	// Two header lines within the same block (no blank-line reset between
	// them) must be rejected as a parse error.
	doubled := `
   Num:    Value          Size Type    Bind   Vis      Ndx Name
     1: 0000000000001000    32 FUNC    GLOBAL DEFAULT    7 foo
   Num:    Value          Size Type    Bind   Vis      Ndx Name
`
	_, err := ParseELF(doubled, nil)
	if err == nil {
		t.Fatalf("expected multiple-header error")
	}
}

func TestParseELF_LocalEntryMarkerStripped(t *testing.T) {
	sample := `
   Num:    Value          Size Type    Bind   Vis      Ndx Name
     1: 0000000000001000    32 FUNC    GLOBAL DEFAULT    7 foo [<localentry>: 1]
`
	syms, err := ParseELF(sample, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syms) != 1 || syms[0].Name != "foo" {
		t.Fatalf("got %+v", syms)
	}
}

func TestParseMachO_Basic(t *testing.T) {
	sample := `
0000000000001000 T _foo
                 U _bar
0000000000002000 d _local_data
`
	syms, err := ParseMachO(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byName := map[string]types.Symbol{}
	for _, s := range syms {
		byName[s.Name] = s
	}
	if byName["_foo"].Type != types.TypeFunc || byName["_foo"].Bind != types.BindGlobal {
		t.Fatalf("unexpected _foo: %+v", byName["_foo"])
	}
	if byName["_bar"].SectionIndex != "UND" {
		t.Fatalf("unexpected _bar: %+v", byName["_bar"])
	}
	if byName["_local_data"].Bind != types.BindLocal || byName["_local_data"].Type != types.TypeObject {
		t.Fatalf("unexpected _local_data: %+v", byName["_local_data"])
	}
}

func TestDemangle_PassesThroughUnmangledNames(t *testing.T) {
	syms := []types.Symbol{{Name: "plain_c_name"}}
	Demangle(syms)
	if syms[0].DemangledName != "plain_c_name" {
		t.Fatalf("got %q", syms[0].DemangledName)
	}
}

func TestDemangle_ItaniumMangled(t *testing.T) {
	syms := []types.Symbol{{Name: "_ZN1C3fooEv"}}
	Demangle(syms)
	if syms[0].DemangledName == "_ZN1C3fooEv" {
		t.Fatalf("expected demangled name, got raw mangled name back")
	}
}
