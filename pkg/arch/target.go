package arch

import (
	"regexp"
	"strings"
)

// prefixRule is one row of spec.md §6's target-triple normalization
// table: the first Pattern to match triple's leading component wins.
type prefixRule struct {
	Pattern *regexp.Regexp
	Dir     string
}

var prefixRules = []prefixRule{
	{regexp.MustCompile(`^arm`), "arm"},
	{regexp.MustCompile(`^i[0-9]86$`), "i386"},
	{regexp.MustCompile(`^amd64`), "x86_64"},
	{regexp.MustCompile(`^mips64`), "mips64"},
	{regexp.MustCompile(`^mips`), "mips"},
	{regexp.MustCompile(`^ppc64le`), "powerpc64le"},
	{regexp.MustCompile(`^ppc64`), "powerpc64"},
	{regexp.MustCompile(`^rv64`), "riscv64"},
}

// NormalizeTarget maps a target triple (or bare architecture name) to
// its architecture directory name, per spec.md §6's prefix table. A
// triple that matches no rule maps to its first hyphen-separated
// segment, and the returned error is always nil: an unknown
// architecture is reported by LoadConfig when its directory is missing.
func NormalizeTarget(triple string) (string, error) {
	arch := triple
	if i := strings.IndexByte(triple, '-'); i >= 0 {
		arch = triple[:i]
	}

	for _, rule := range prefixRules {
		if rule.Pattern.MatchString(arch) {
			return rule.Dir, nil
		}
	}

	return arch, nil
}
