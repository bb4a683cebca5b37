// Command implib-gen generates a static import library (trampoline
// assembly plus init-C runtime) for a POSIX shared library, resolved at
// runtime via dlopen/dlsym, a user callback, or intercepted C++ vtables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/appsworld/implib-go/internal/toolrun"
	"github.com/appsworld/implib-go/pkg/arch"
	"github.com/appsworld/implib-go/pkg/defexports"
	"github.com/appsworld/implib-go/pkg/emit"
	"github.com/appsworld/implib-go/pkg/filter"
	"github.com/appsworld/implib-go/pkg/probe"
	"github.com/appsworld/implib-go/pkg/rawdata"
	"github.com/appsworld/implib-go/pkg/relocs"
	"github.com/appsworld/implib-go/pkg/sections"
	"github.com/appsworld/implib-go/pkg/symtab"
	"github.com/appsworld/implib-go/pkg/vtable"
	"github.com/appsworld/implib-go/types"
)

const prog = "implib-gen"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", prog, err)
		os.Exit(1)
	}
}

// countFlag implements flag.Value as a repeatable counter, matching
// argparse's action="count": each occurrence of the flag (with no
// argument) increments it by one.
type countFlag int

func (c *countFlag) String() string { return strconv.Itoa(int(*c)) }
func (c *countFlag) Set(string) error {
	*c++
	return nil
}
func (c *countFlag) IsBoolFlag() bool { return true }

type config struct {
	verbosity       int
	quiet           bool
	dlopen          bool
	dlopenCallback  string
	dlsymCallback   string
	libraryLoadName string
	lazyLoad        bool
	threadSafe      bool
	vtables         bool
	noWeakSymbols   bool
	target          string
	symbolListPath  string
	symbolPrefix    string
	outdir          string
	suffix          string
	rootDir         string
	library         string
}

func parseFlags(args []string) (config, error) {
	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	c := config{}

	var verbosity countFlag
	fs.Var(&verbosity, "verbose", "Print diagnostic info (repeatable)")
	fs.Var(&verbosity, "v", "Print diagnostic info (shorthand, repeatable)")
	fs.BoolVar(&c.quiet, "quiet", false, "Do not print progress info")
	fs.BoolVar(&c.quiet, "q", false, "Do not print progress info (shorthand)")
	fs.BoolVar(&c.dlopen, "dlopen", true, "Emit the runtime's dlopen call")
	noDlopen := fs.Bool("no-dlopen", false, "Suppress the runtime's dlopen call")
	fs.StringVar(&c.dlopenCallback, "dlopen-callback", "", "Call user-provided callback to load library instead of dlopen")
	fs.StringVar(&c.dlsymCallback, "dlsym-callback", "", "Call user-provided callback to resolve a symbol instead of dlsym")
	fs.StringVar(&c.libraryLoadName, "library-load-name", "", "Use custom name for dlopened library (default is SONAME)")
	fs.BoolVar(&c.lazyLoad, "lazy-load", true, "Load library on first call to any of its functions")
	noLazyLoad := fs.Bool("no-lazy-load", false, "Load library at program start")
	fs.BoolVar(&c.threadSafe, "thread-safe", true, "Ensure thread-safety")
	noThreadSafe := fs.Bool("no-thread-safe", false, "Do not ensure thread-safety")
	fs.BoolVar(&c.vtables, "vtables", false, "Intercept virtual tables (EXPERIMENTAL)")
	fs.BoolVar(&c.noWeakSymbols, "no-weak-symbols", false, "Don't bind weak symbols")
	fs.StringVar(&c.target, "target", runtime.GOARCH, "Target platform triple, e.g. x86_64-unknown-linux-gnu")
	fs.StringVar(&c.symbolListPath, "symbol-list", "", "Path to a file with symbols that should be present in the wrapper")
	fs.StringVar(&c.symbolPrefix, "symbol-prefix", "", "Prefix wrapper symbols with PFX")
	fs.StringVar(&c.outdir, "outdir", "./", "Path to create wrapper at")
	fs.StringVar(&c.outdir, "o", "./", "Path to create wrapper at (shorthand)")
	fs.StringVar(&c.suffix, "suffix", "", "Custom suffix for output files")
	fs.StringVar(&c.rootDir, "root", defaultRootDir(), "Directory containing arch/ and its common/ templates")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if *noDlopen {
		c.dlopen = false
	}
	if *noLazyLoad {
		c.lazyLoad = false
	}
	if *noThreadSafe {
		c.threadSafe = false
	}

	if fs.NArg() != 1 {
		return config{}, fmt.Errorf("expected exactly one positional argument (the library or def file), got %d", fs.NArg())
	}
	c.library = fs.Arg(0)
	c.verbosity = int(verbosity)
	return c, nil
}

func run(args []string) error {
	c, err := parseFlags(args)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", 0)

	ctx := context.Background()
	runner := toolrun.Exec{}

	format := probe.Detect(ctx, runner, c.library)
	if c.vtables && format == types.FormatText {
		return fmt.Errorf("vtables are not supported for def-file input")
	}
	if c.vtables && format == types.FormatMachO {
		return fmt.Errorf("vtables are not supported for Mach-O input")
	}

	archDir, err := arch.NormalizeTarget(c.target)
	if err != nil {
		return err
	}
	archConfig, err := arch.LoadConfig(archDir, filepath.Join(c.rootDir, "arch", archDir))
	if err != nil {
		return err
	}
	if c.verbosity > 0 {
		logger.Printf("using architecture %s (pointer size %d)", archDir, archConfig.PointerSize)
	}

	var allSyms []types.Symbol
	var loadName string
	var warnings []string

	switch format {
	case types.FormatText:
		content, err := os.ReadFile(c.library)
		if err != nil {
			return fmt.Errorf("read %s: %w", c.library, err)
		}
		res := defexports.Parse(string(content))
		allSyms = res.Symbols
		loadName = res.LoadName
		warnings = append(warnings, res.Warnings...)
	case types.FormatELF:
		allSyms, err = symtab.CollectELF(ctx, runner, c.library)
	case types.FormatMachO:
		allSyms, err = symtab.CollectMachO(ctx, runner, c.library)
	}
	if err != nil {
		return err
	}

	if c.libraryLoadName != "" {
		loadName = c.libraryLoadName
	} else if loadName == "" {
		detected, err := probe.LoadName(ctx, runner, format, c.library)
		if err != nil {
			return err
		}
		loadName = detected
	}
	if loadName == "" {
		loadName = stem(c.library, format)
	}

	var symbolList []string
	if c.symbolListPath != "" {
		content, err := os.ReadFile(c.symbolListPath)
		if err != nil {
			return fmt.Errorf("read symbol list %s: %w", c.symbolListPath, err)
		}
		symbolList = filter.ParseSymbolList(string(content))
	}

	filtered := filter.Apply(allSyms, filter.Options{
		NoWeakSymbols: c.noWeakSymbols,
		SymbolList:    symbolList,
		VtableMode:    c.vtables,
	})
	warnings = append(warnings, filtered.Warnings...)

	if c.verbosity > 0 {
		fmt.Println("Exported functions:")
		for i, s := range filtered.Functions {
			fmt.Printf("  %d: %s\n", i, s.Name)
		}
	}

	var vtableBody string
	if c.vtables {
		body, err := synthesizeVtables(ctx, runner, c.library, filtered.Exported, archConfig, c.verbosity)
		if err != nil {
			return err
		}
		vtableBody = body
	}

	if err := os.MkdirAll(c.outdir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", c.outdir, err)
	}

	suffix := c.suffix
	if suffix == "" {
		suffix = filepath.Base(c.library)
		if format == types.FormatText {
			suffix = strings.TrimSuffix(suffix, ".def")
		}
	}

	funcNames := make([]string, len(filtered.Functions))
	for i, s := range filtered.Functions {
		funcNames[i] = s.Name
	}

	opts := emit.Options{
		LibSuffix:      emit.SanitizeLibSuffix(suffix),
		LoadName:       loadName,
		Functions:      funcNames,
		PointerSize:    archConfig.PointerSize,
		SymbolPrefix:   c.symbolPrefix,
		DlopenCallback: c.dlopenCallback,
		DlsymCallback:  c.dlsymCallback,
		NoDlopen:       !c.dlopen,
		LazyLoad:       c.lazyLoad,
		ThreadSafe:     c.threadSafe,
		VtableBody:     vtableBody,
	}

	tableTpl, err := emit.ReadTemplate(filepath.Join(c.rootDir, "arch", archDir, "table.S.tpl"))
	if err != nil {
		return err
	}
	trampTpl, err := emit.ReadTemplate(filepath.Join(c.rootDir, "arch", archDir, "trampoline.S.tpl"))
	if err != nil {
		return err
	}
	initTpl, err := emit.ReadTemplate(filepath.Join(c.rootDir, "arch", "common", "init.c.tpl"))
	if err != nil {
		return err
	}

	trampPath := filepath.Join(c.outdir, suffix+".tramp.S")
	if !c.quiet {
		fmt.Printf("Generating %s...\n", filepath.Base(trampPath))
	}
	if err := emit.WriteTrampolineFile(trampPath, tableTpl, trampTpl, opts); err != nil {
		return err
	}

	initPath := filepath.Join(c.outdir, suffix+".init.c")
	if !c.quiet {
		fmt.Printf("Generating %s...\n", filepath.Base(initPath))
	}
	if err := emit.WriteInitFile(initPath, initTpl, opts); err != nil {
		return err
	}

	if !c.quiet {
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "%s: warning: %s\n", prog, w)
		}
	}
	return nil
}

// synthesizeVtables runs the section/relocation/raw-data collectors
// and the vtable classifier over syms' discovered class members,
// returning the generated C translation unit (spec.md §4.6). At
// verbosity > 0 it reproduces the diagnostic dumps of exported classes,
// the section table, the relocation table, and the per-class slot
// listing (SPEC_FULL.md §11).
func synthesizeVtables(ctx context.Context, runner toolrun.Runner, library string, syms []types.Symbol, archConfig types.Architecture, verbosity int) (string, error) {
	classes := vtable.DiscoverClasses(syms)
	classSymbols := vtable.ClassSymbolSet(classes)

	if verbosity > 0 {
		classNames := make([]string, 0, len(classes))
		for name := range classes {
			classNames = append(classNames, name)
		}
		sort.Strings(classNames)
		fmt.Println("Exported classes:")
		for _, name := range classNames {
			fmt.Printf("  %s\n", name)
		}
	}

	secs, err := sections.Collect(ctx, runner, library)
	if err != nil {
		return "", err
	}
	if verbosity > 0 {
		fmt.Println("Sections:")
		for _, sec := range secs {
			fmt.Printf("  %s: [%x, %x), at %x\n", sec.Name, sec.Address, sec.Address+sec.Size, sec.FileOffset)
		}
	}

	allRelocs, err := relocs.Collect(ctx, runner, library)
	if err != nil {
		return "", err
	}
	if verbosity > 0 {
		fmt.Println("Relocs:")
		for _, r := range allRelocs {
			fmt.Printf("  %x: %s\n", r.Offset, symbolAddendString(r.TargetSymbol, r.Addend))
		}
	}

	classSyms := make(map[string]types.Symbol)
	for _, s := range syms {
		if _, ok := classSymbols[s.Name]; ok {
			classSyms[s.Name] = s
		}
	}

	rawBytes, err := rawdata.Read(library, classSyms, secs)
	if err != nil {
		return "", err
	}

	slots := make(map[string][]types.Slot, len(classSyms))
	for name, sym := range classSyms {
		slots[name] = vtable.ClassifySlots(sym, rawBytes[name], archConfig.PointerSize, allRelocs, archConfig)
	}

	if verbosity > 0 {
		names := make([]string, 0, len(classSyms))
		for name := range classSyms {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("Class data:")
		for _, name := range names {
			fmt.Printf("  %s (%s):\n", name, classSyms[name].DemangledName)
			for _, slot := range slots[name] {
				fmt.Printf("    %s\n", slotString(slot))
			}
		}
	}

	return vtable.Generate(classSyms, slots, classSymbols), nil
}

func symbolAddendString(name string, addend int64) string {
	if name == "" {
		return fmt.Sprintf("%#x", addend)
	}
	return fmt.Sprintf("%s+%#x", name, addend)
}

func slotString(s types.Slot) string {
	switch s.Kind {
	case types.SlotReloc:
		return symbolAddendString(s.TargetSymbol, s.Addend)
	case types.SlotByte:
		return strconv.Itoa(int(s.Byte))
	default:
		return strconv.FormatUint(s.Offset, 10)
	}
}

// defaultRootDir mirrors the Python source's "templates live next to
// the script" convention: the directory containing this executable,
// falling back to "." if it can't be resolved (e.g. under `go test`).
func defaultRootDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func stem(path string, format types.Format) string {
	base := filepath.Base(path)
	if format == types.FormatText {
		base = strings.TrimSuffix(base, ".def")
	}
	return base
}
