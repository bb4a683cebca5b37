// Package vtable implements the vtable synthesizer (spec.md §4.6): for
// each discovered C++ polymorphic class, classify its vtable/typeinfo/
// typeinfo-name bytes into a Slot sequence and emit an equivalent C
// translation unit.
package vtable

import (
	"regexp"
	"sort"

	"github.com/appsworld/implib-go/types"
)

var classNameRe = regexp.MustCompile(`^(vtable|typeinfo|typeinfo name) for (.*)$`)

// DiscoverClasses groups syms by the class name embedded in their
// demangled name, recognizing the three prefixes spec.md §3 names:
// "vtable for ", "typeinfo for ", "typeinfo name for ". Symbols whose
// demangled name doesn't match any prefix are ignored. Any subset of
// the three member symbols may be present for a given class.
func DiscoverClasses(syms []types.Symbol) map[string]types.ClassDesc {
	classes := make(map[string]types.ClassDesc)
	for _, s := range syms {
		m := classNameRe.FindStringSubmatch(s.DemangledName)
		if m == nil {
			continue
		}
		kind, class := m[1], m[2]
		desc := classes[class]
		desc.ClassName = class
		switch kind {
		case "vtable":
			desc.Vtable = s.Name
		case "typeinfo":
			desc.Typeinfo = s.Name
		case "typeinfo name":
			desc.TypeinfoName = s.Name
		}
		classes[class] = desc
	}
	return classes
}

// ClassSymbolSet flattens a class-descriptor map into the set of every
// member symbol name, used by the driver to pick out the class member
// symbols and by the emitter's externs pass (to exclude intra-class
// relocation targets from extern declarations).
func ClassSymbolSet(classes map[string]types.ClassDesc) map[string]struct{} {
	set := make(map[string]struct{})
	for _, desc := range classes {
		for _, name := range desc.SymbolNames() {
			set[name] = struct{}{}
		}
	}
	return set
}

// ClassifySlots builds sym's Slot sequence from its raw unrelocated
// bytes, per spec.md §4.6.
//
// A "typeinfo name" symbol is a NUL-terminated mangled-name string:
// each byte becomes its own SlotByte, independent of pointer size.
//
// Anything else is read as ⌈len(raw)/pointerSize⌉ little-endian words,
// each starting as a SlotOffset. Relocations are then overlaid: for
// every relocation whose Type is one of arch's symbol-pointer types and
// whose Offset falls in [sym.Value, sym.Value+sym.Size), the word at
// index (r.Offset-sym.Value)/pointerSize is replaced by a SlotReloc,
// with the target name's @version suffix stripped (C has no versioned
// references). Overlaying is order-independent: each relocation only
// ever touches the one slot its offset selects.
func ClassifySlots(sym types.Symbol, raw []byte, pointerSize int, relocs types.Relocations, arch types.Architecture) []types.Slot {
	if isTypeinfoName(sym) {
		slots := make([]types.Slot, len(raw))
		for i, b := range raw {
			slots[i] = types.NewByteSlot(b)
		}
		return slots
	}

	n := (len(raw) + pointerSize - 1) / pointerSize
	slots := make([]types.Slot, n)
	for i := 0; i < n; i++ {
		slots[i] = types.NewOffsetSlot(readWordLE(raw, i*pointerSize, pointerSize))
	}

	start := sym.Value
	finish := sym.Value + sym.Size
	for _, r := range relocs {
		if !arch.IsSymbolReloc(r.Type) {
			continue
		}
		if r.Offset < start || r.Offset >= finish {
			continue
		}
		idx := int((r.Offset - start) / uint64(pointerSize))
		if idx < 0 || idx >= len(slots) {
			continue
		}
		target, _, _ := types.StripVersion(r.TargetSymbol)
		slots[idx] = types.NewRelocSlot(target, r.Addend)
	}
	return slots
}

func isTypeinfoName(sym types.Symbol) bool {
	const prefix = "typeinfo name for "
	return len(sym.DemangledName) >= len(prefix) && sym.DemangledName[:len(prefix)] == prefix
}

func readWordLE(b []byte, off, size int) uint64 {
	var v uint64
	for i := 0; i < size; i++ {
		idx := off + i
		if idx >= len(b) {
			break
		}
		v |= uint64(b[idx]) << (8 * uint(i))
	}
	return v
}

// sortedNames returns a sorted copy of names, matching spec.md §4.6's
// "sorted lexicographically by symbol name at every step" determinism
// requirement.
func sortedNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
