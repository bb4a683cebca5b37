package filter

import (
	"strings"
	"testing"

	"github.com/appsworld/implib-go/types"
)

func TestParseSymbolList(t *testing.T) {
	content := "alpha\nbeta  # comment\n\n  # whole-line comment\ngamma\n"
	got := ParseSymbolList(content)
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}

func TestIsExported_BasePredicate(t *testing.T) {
	cases := []struct {
		name string
		sym  types.Symbol
		want bool
	}{
		{"local excluded", types.Symbol{Name: "a", Bind: types.BindLocal, Type: types.TypeFunc, SectionIndex: "7"}, false},
		{"hidden excluded", types.Symbol{Name: "a", Bind: types.BindGlobal, Visibility: types.VisHidden, Type: types.TypeFunc, SectionIndex: "7"}, false},
		{"notype excluded", types.Symbol{Name: "a", Bind: types.BindGlobal, Type: types.TypeNone, SectionIndex: "7"}, false},
		{"undefined excluded", types.Symbol{Name: "a", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "UND"}, false},
		{"init excluded", types.Symbol{Name: "_init", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7"}, false},
		{"fini excluded", types.Symbol{Name: "_fini", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7"}, false},
		{"empty name excluded", types.Symbol{Name: "", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7"}, false},
		{"plain global func included", types.Symbol{Name: "foo", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7"}, true},
		{"weak func included by default", types.Symbol{Name: "foo", Bind: types.BindWeak, Type: types.TypeFunc, SectionIndex: "7"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsExported(c.sym, false); got != c.want {
				t.Fatalf("IsExported() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestIsExported_NoWeakSymbols(t *testing.T) {
	sym := types.Symbol{Name: "foo", Bind: types.BindWeak, Type: types.TypeFunc, SectionIndex: "7"}
	if IsExported(sym, true) {
		t.Fatalf("expected weak symbol excluded when NoWeakSymbols is set")
	}
}

func TestApply_ScenarioThreeExportsOneHidden(t *testing.T) {
	syms := []types.Symbol{
		{Name: "a", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
		{Name: "b", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
		{Name: "c", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
		{Name: "h", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", Visibility: types.VisHidden, DefaultVersion: true},
	}
	res := Apply(syms, Options{})
	if len(res.Functions) != 3 {
		t.Fatalf("got %d functions, want 3: %+v", len(res.Functions), res.Functions)
	}
	for _, name := range []string{"a", "b", "c"} {
		found := false
		for _, f := range res.Functions {
			if f.Name == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %q in function set", name)
		}
	}
}

func TestApply_DefaultOrderIsAlphabetical(t *testing.T) {
	syms := []types.Symbol{
		{Name: "zeta", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
		{Name: "alpha", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
		{Name: "mu", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
	}
	res := Apply(syms, Options{})
	want := []string{"alpha", "mu", "zeta"}
	if len(res.Functions) != len(want) {
		t.Fatalf("got %d functions, want %d: %+v", len(res.Functions), len(want), res.Functions)
	}
	for i, name := range want {
		if res.Functions[i].Name != name {
			t.Fatalf("got order %+v, want %v", res.Functions, want)
		}
	}
}

func TestApply_NonDefaultVersionSkippedWithWarning(t *testing.T) {
	syms := []types.Symbol{
		{Name: "read", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "UND", DefaultVersion: true, Version: "GLIBC_2.2.5"},
	}
	// UND excludes this from Exported already; use a defined-section
	// stand-in to isolate the version-skip behavior.
	syms[0].SectionIndex = "7"
	syms = append(syms, types.Symbol{Name: "read", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: false, Version: "GLIBC_2.0"})

	res := Apply(syms, Options{})
	if len(res.Functions) != 1 || res.Functions[0].Version != "GLIBC_2.2.5" {
		t.Fatalf("got functions %+v", res.Functions)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "non-default-version") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a non-default-version warning, got %+v", res.Warnings)
	}
}

func TestApply_SymbolListIntersectionPreservesOrder(t *testing.T) {
	syms := []types.Symbol{
		{Name: "x", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
		{Name: "y", Bind: types.BindGlobal, Type: types.TypeFunc, SectionIndex: "7", DefaultVersion: true},
	}
	res := Apply(syms, Options{SymbolList: []string{"x", "y", "z"}})
	if len(res.Functions) != 2 || res.Functions[0].Name != "x" || res.Functions[1].Name != "y" {
		t.Fatalf("got %+v", res.Functions)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "z") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning naming missing symbol 'z', got %+v", res.Warnings)
	}
}

func TestApply_DataSymbolWithoutInterceptionWarns(t *testing.T) {
	syms := []types.Symbol{
		{Name: "data_sym", Bind: types.BindGlobal, Type: types.TypeObject, SectionIndex: "9"},
	}
	res := Apply(syms, Options{})
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "data_sym") && strings.Contains(w, "not be intercepted") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected data-symbol-without-interception warning, got %+v", res.Warnings)
	}
}

func TestApply_VtableClassMemberSuppressesDataWarning(t *testing.T) {
	syms := []types.Symbol{
		{Name: "_ZTV1C", DemangledName: "vtable for C", Bind: types.BindGlobal, Type: types.TypeObject, SectionIndex: "9"},
	}
	res := Apply(syms, Options{VtableMode: true})
	for _, w := range res.Warnings {
		if strings.Contains(w, "_ZTV1C") {
			t.Fatalf("did not expect a data-symbol warning for a vtable class member: %+v", res.Warnings)
		}
	}
}

func TestApply_EmptyFunctionSetWarns(t *testing.T) {
	res := Apply(nil, Options{})
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "empty function set") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected empty-function-set warning, got %+v", res.Warnings)
	}
}
