package emit

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Options carries every value the jump-table, trampoline, and init-C
// templates substitute, per spec.md §4.8.
type Options struct {
	LibSuffix      string
	LoadName       string
	Functions      []string
	PointerSize    int
	SymbolPrefix   string
	DlopenCallback string
	DlsymCallback  string
	NoDlopen       bool
	LazyLoad       bool
	ThreadSafe     bool
	// VtableBody, if non-empty, is appended verbatim to the init-C
	// output after template substitution (spec.md §4.8: "if vtable mode
	// is on, the synthesized vtable C is appended").
	VtableBody string
}

var nonIdentRun = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// SanitizeLibSuffix collapses every run of non-alphanumeric-underscore
// characters in suffix to a single underscore, producing the
// `lib_suffix` value every template substitutes (spec.md §4.8).
func SanitizeLibSuffix(suffix string) string {
	return nonIdentRun.ReplaceAllString(suffix, "_")
}

// SymNamesList renders funcs as the comma-separated, quoted,
// trailing-comma list the init-C template's `sym_names` substitutes,
// or "" if funcs is empty (spec.md §4.8, §8 scenario 2).
func SymNamesList(funcs []string) string {
	if len(funcs) == 0 {
		return ""
	}
	quoted := make([]string, len(funcs))
	for i, name := range funcs {
		quoted[i] = `"` + name + `"`
	}
	return strings.Join(quoted, ",\n  ") + ","
}

// boolFlag renders a bool as the "0"/"1" string every feature-flag
// substitution expects.
func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// GenerateJumpTable substitutes tableTpl's `lib_suffix` and
// `table_size = pointer_size * (len(funs) + 1)` placeholders.
func GenerateJumpTable(tableTpl string, opts Options) string {
	tableSize := opts.PointerSize * (len(opts.Functions) + 1)
	return Substitute(tableTpl, map[string]string{
		"lib_suffix": opts.LibSuffix,
		"table_size": strconv.Itoa(tableSize),
	})
}

// GenerateTrampolines substitutes trampTpl once per function, in
// order, and concatenates the results.
func GenerateTrampolines(trampTpl string, opts Options) string {
	var b strings.Builder
	for i, name := range opts.Functions {
		b.WriteString(Substitute(trampTpl, map[string]string{
			"lib_suffix": opts.LibSuffix,
			"sym":        opts.SymbolPrefix + name,
			"offset":     strconv.Itoa(i * opts.PointerSize),
			"number":     strconv.Itoa(i),
		}))
	}
	return b.String()
}

// GenerateTrampolineFile produces the full `<suffix>.tramp.S` content:
// the jump table followed by one trampoline per function.
func GenerateTrampolineFile(tableTpl, trampTpl string, opts Options) string {
	return GenerateJumpTable(tableTpl, opts) + GenerateTrampolines(trampTpl, opts)
}

// GenerateInitC substitutes initTpl's runtime-configuration
// placeholders and appends opts.VtableBody, if set.
func GenerateInitC(initTpl string, opts Options) string {
	text := Substitute(initTpl, map[string]string{
		"lib_suffix":          opts.LibSuffix,
		"load_name":           opts.LoadName,
		"dlopen_callback":     opts.DlopenCallback,
		"dlsym_callback":      opts.DlsymCallback,
		"has_dlopen_callback": boolFlag(opts.DlopenCallback != ""),
		"has_dlsym_callback":  boolFlag(opts.DlsymCallback != ""),
		"no_dlopen":           boolFlag(opts.NoDlopen),
		"lazy_load":           boolFlag(opts.LazyLoad),
		"thread_safe":         boolFlag(opts.ThreadSafe),
		"sym_names":           SymNamesList(opts.Functions),
	})
	return text + opts.VtableBody
}

// WriteTrampolineFile writes the `<suffix>.tramp.S` artifact.
func WriteTrampolineFile(path, tableTpl, trampTpl string, opts Options) error {
	content := GenerateTrampolineFile(tableTpl, trampTpl, opts)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &EmissionError{Path: path, Err: err}
	}
	return nil
}

// WriteInitFile writes the `<suffix>.init.c` artifact.
func WriteInitFile(path, initTpl string, opts Options) error {
	content := GenerateInitC(initTpl, opts)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &EmissionError{Path: path, Err: err}
	}
	return nil
}

// ReadTemplate reads a template file, wrapping any failure as an
// *EmissionError so cmd/implib-gen can report it uniformly.
func ReadTemplate(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", &EmissionError{Path: path, Err: fmt.Errorf("read template: %w", err)}
	}
	return string(b), nil
}
