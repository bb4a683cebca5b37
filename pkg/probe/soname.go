package probe

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/appsworld/implib-go/internal/toolrun"
	"github.com/appsworld/implib-go/types"
)

var sonameLine = regexp.MustCompile(`\(SONAME\).*\[(.+)\]`)

// LoadName derives the library's default load name per spec.md §6: the
// SONAME from the dynamic section for ELF, the file's basename for
// Mach-O (which has no SONAME concept in this tool's scope), or "" if
// neither applies (the caller falls back to the output stem).
func LoadName(ctx context.Context, runner toolrun.Runner, format types.Format, path string) (string, error) {
	switch format {
	case types.FormatMachO:
		return filepath.Base(path), nil
	case types.FormatELF:
		out, err := runner.Run(ctx, "", "readelf", "-d", path)
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(out, "\n") {
			if m := sonameLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				return m[1], nil
			}
		}
		return "", nil
	default:
		return "", nil
	}
}
