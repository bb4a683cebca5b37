// Package rawdata implements the unrelocated data reader (spec.md §4.5):
// for each selected symbol, locate the unique section containing its
// [Value, Value+Size) interval and read its raw bytes directly from the
// input file.
//
// This implementation applies the corrected seek formula from spec.md
// §9's open question: it seeks to section.FileOffset + (sym.Value -
// section.Address), not just section.FileOffset. The original Python
// source seeks only to the section's file offset, which is wrong for
// any section holding more than one symbol (every symbol after the
// first would read from the wrong place). See rawdata_test.go for the
// regression case.
package rawdata

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/appsworld/implib-go/types"
)

// ModelError is the "Model" error class from spec.md §7: a symbol whose
// [Value, Value+Size) interval is contained in zero or more than one
// section.
type ModelError struct {
	Value, Size uint64
	Matches     int
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("failed to locate section for interval [%x, %x): %d candidate sections",
		e.Value, e.Value+e.Size, e.Matches)
}

// Read opens path and returns the raw bytes backing each of syms, keyed
// by symbol name. secs need not be pre-sorted.
func Read(path string, syms map[string]types.Symbol, secs types.Sections) (map[string][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadFrom(f, syms, secs)
}

// ReadFrom reads from an already-open ReaderAt, so callers (and tests)
// can avoid touching the filesystem.
func ReadFrom(r io.ReaderAt, syms map[string]types.Symbol, secs types.Sections) (map[string][]byte, error) {
	names := make([]string, 0, len(syms))
	for name := range syms {
		names = append(names, name)
	}
	// Deterministic iteration order, matching spec.md §9; the Python
	// source sorts by Value, which only matters for diagnostic ordering
	// since each symbol's read is independent.
	sort.Slice(names, func(i, j int) bool { return syms[names[i]].Value < syms[names[j]].Value })

	data := make(map[string][]byte, len(names))
	for _, name := range names {
		sym := syms[name]
		sec, err := uniqueSection(sym, secs)
		if err != nil {
			return nil, err
		}

		buf := make([]byte, sym.Size)
		off := int64(sec.FileOffset + (sym.Value - sec.Address))
		if _, err := r.ReadAt(buf, off); err != nil && err != io.EOF {
			return nil, fmt.Errorf("read %s at offset %#x: %w", name, off, err)
		}
		data[name] = buf
	}
	return data, nil
}

func uniqueSection(sym types.Symbol, secs types.Sections) (types.Section, error) {
	var found types.Section
	count := 0
	for _, sec := range secs {
		if sec.Contains(sym.Value, sym.Size) {
			found = sec
			count++
		}
	}
	if count != 1 {
		return types.Section{}, &ModelError{Value: sym.Value, Size: sym.Size, Matches: count}
	}
	return found, nil
}
