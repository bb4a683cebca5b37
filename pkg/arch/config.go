// Package arch implements per-target configuration (spec.md §6/§8):
// loading config.ini for a chosen architecture directory, and
// normalizing a CLI-supplied target triple down to that directory name.
package arch

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/appsworld/implib-go/types"
)

// ConfigError is the "Configuration" error class from spec.md §7:
// an unknown target, a missing config.ini, or a malformed key inside it.
type ConfigError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadConfig reads dir/config.ini's [Arch] section into an
// Architecture value. A directory that does not exist at all is
// reported as an unknown architecture (spec.md §8 scenario 6), rather
// than a generic read failure.
func LoadConfig(name, dir string) (types.Architecture, error) {
	path := dir + "/config.ini"
	if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
		return types.Architecture{}, &ConfigError{Msg: fmt.Sprintf("unknown architecture '%s'", name)}
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return types.Architecture{}, &ConfigError{Path: path, Msg: "failed to read architecture config", Err: err}
	}

	section, err := cfg.GetSection("Arch")
	if err != nil {
		return types.Architecture{}, &ConfigError{Path: path, Msg: "missing [Arch] section", Err: err}
	}

	pointerSize, err := section.Key("PointerSize").Int()
	if err != nil {
		return types.Architecture{}, &ConfigError{Path: path, Msg: "PointerSize must be an integer", Err: err}
	}

	relocTypes := make(map[string]struct{})
	for _, typ := range strings.Split(section.Key("SymbolReloc").String(), ",") {
		typ = strings.TrimSpace(typ)
		if typ != "" {
			relocTypes[typ] = struct{}{}
		}
	}

	return types.Architecture{
		Name:             name,
		PointerSize:      pointerSize,
		SymbolRelocTypes: relocTypes,
	}, nil
}
