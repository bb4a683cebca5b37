// Package probe implements the binary prober (spec.md §4.1): classify an
// input path as an ELF shared object, a Mach-O shared object, or a plain
// text export list ("def file"), probing once so the result can be
// threaded through every later pipeline stage — see SPEC_FULL.md §3 for
// why this replaces the source's four independent Mach-O re-probes.
package probe

import (
	"context"
	"strings"

	"github.com/appsworld/implib-go/internal/toolrun"
	"github.com/appsworld/implib-go/types"
)

// Detect classifies path. Failures running readelf/file are not fatal
// (spec.md §4.1): a readelf failure just means "try the next check",
// and a file-command failure falls through to FormatText.
func Detect(ctx context.Context, runner toolrun.Runner, path string) types.Format {
	if _, err := runner.Run(ctx, "", "readelf", "-d", path); err == nil {
		return types.FormatELF
	}

	out, err := runner.Run(ctx, "", "file", path)
	if err == nil && (strings.Contains(out, "Mach-O") || strings.Contains(out, "shared library")) {
		return types.FormatMachO
	}

	return types.FormatText
}
