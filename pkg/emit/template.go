// Package emit implements the code emitter (spec.md §4.8): Python
// string.Template-style `$name` substitution over the jump-table,
// trampoline, and init-C templates, plus the file-layout glue that
// writes the two output artifacts.
package emit

import (
	"fmt"
	"regexp"
)

// EmissionError is the "Emission" error class from spec.md §7: any I/O
// failure while reading a template or writing an output file.
type EmissionError struct {
	Path string
	Err  error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *EmissionError) Unwrap() error { return e.Err }

// placeholder matches a Python string.Template `$identifier` token. The
// on-disk .tpl files use bare `$name` tokens (no `${name}` braces), so
// that form is all this substitution pass needs to support.
var placeholder = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// Substitute interpolates vars into tpl using Python string.Template
// semantics: `$name` is replaced by vars["name"] (stringified by the
// caller), and any identifier absent from vars is left untouched. Go's
// text/template deliberately isn't used here: its
// `{{ }}` delimiters don't match the `$name` token the on-disk
// templates already use, and rewriting every .tpl file to Go delimiters
// would diverge from the arch/ directory layout spec.md §6 describes.
func Substitute(tpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(tok string) string {
		name := tok[1:]
		if v, ok := vars[name]; ok {
			return v
		}
		return tok
	})
}
