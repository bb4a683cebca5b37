package vtable

import (
	"fmt"
	"strings"

	"github.com/appsworld/implib-go/types"
)

// Generate emits one C translation unit synthesizing every class
// symbol's vtable/typeinfo/typeinfo-name definition, per spec.md §4.6
// steps 1-3. syms maps each class symbol name to its Symbol record
// (for its DemangledName, to distinguish "typeinfo name" symbols from
// struct-shaped ones); slots maps the same names to their classified
// Slot sequence, already computed by ClassifySlots. classSymbols is the
// full set of member symbol names across every discovered class
// (vtable.ClassSymbolSet), used to suppress externs for intra-class
// references.
//
// Every pass iterates symbol names in sorted order, so the output is
// byte-identical across runs given the same input (spec.md §8).
func Generate(syms map[string]types.Symbol, slots map[string][]types.Slot, classSymbols map[string]struct{}) string {
	names := make([]string, 0, len(syms))
	for name := range syms {
		names = append(names, name)
	}
	names = sortedNames(names)

	var b strings.Builder
	b.WriteString("#ifdef __cplusplus\n")
	b.WriteString("extern \"C\" {\n")
	b.WriteString("#endif\n\n")

	emitExterns(&b, names, slots, classSymbols)
	emitDeclarations(&b, names, syms, slots)
	emitDefinitions(&b, names, slots)

	b.WriteString("#ifdef __cplusplus\n")
	b.WriteString("}  // extern \"C\"\n")
	b.WriteString("#endif\n")
	return b.String()
}

// emitExterns emits one `extern const char NAME[];` for every Reloc
// slot target that is not itself a member of any discovered class,
// deduplicated by name (spec.md §4.6 step 1).
func emitExterns(b *strings.Builder, names []string, slots map[string][]types.Slot, classSymbols map[string]struct{}) {
	printed := make(map[string]struct{})
	var targets []string
	for _, name := range names {
		for _, slot := range slots[name] {
			if slot.Kind != types.SlotReloc {
				continue
			}
			if _, isClassMember := classSymbols[slot.TargetSymbol]; isClassMember {
				continue
			}
			if _, dup := printed[slot.TargetSymbol]; dup {
				continue
			}
			printed[slot.TargetSymbol] = struct{}{}
			targets = append(targets, slot.TargetSymbol)
		}
	}
	for _, target := range sortedNames(targets) {
		fmt.Fprintf(b, "extern const char %s[];\n\n", target)
	}
}

// emitDeclarations emits, per class symbol, a typedef naming its slot
// layout and a weak extern declaration of that type (spec.md §4.6
// step 2).
func emitDeclarations(b *strings.Builder, names []string, syms map[string]types.Symbol, slots map[string][]types.Slot) {
	for _, name := range names {
		typeName := name + "_type"
		fmt.Fprintf(b, "typedef %s;\n", typedefDeclarator(syms[name], slots[name], typeName))
		fmt.Fprintf(b, "extern __attribute__((weak)) %s %s;\n", typeName, name)
	}
}

// emitDefinitions emits, per class symbol, a compound-literal
// initializer whose numeric slots print as `VALUEUL` and whose reloc
// slots print as `(const char *)&TARGET + ADDEND` (spec.md §4.6 step 3).
func emitDefinitions(b *strings.Builder, names []string, slots map[string][]types.Slot) {
	for _, name := range names {
		typeName := name + "_type"
		fmt.Fprintf(b, "const %s %s = { %s };\n", typeName, name, initializerList(slots[name]))
	}
}

func typedefDeclarator(sym types.Symbol, slots []types.Slot, typeName string) string {
	if isTypeinfoName(sym) {
		return fmt.Sprintf("const unsigned char %s[]", typeName)
	}
	fields := make([]string, len(slots))
	for i, s := range slots {
		fields[i] = fmt.Sprintf("%s field_%d;", s.CType(), i)
	}
	return fmt.Sprintf("const struct { %s } %s", strings.Join(fields, " "), typeName)
}

func initializerList(slots []types.Slot) string {
	vals := make([]string, len(slots))
	for i, s := range slots {
		switch s.Kind {
		case types.SlotReloc:
			vals[i] = fmt.Sprintf("(const char *)&%s + %d", s.TargetSymbol, s.Addend)
		case types.SlotByte:
			vals[i] = fmt.Sprintf("%dUL", s.Byte)
		default:
			vals[i] = fmt.Sprintf("%dUL", s.Offset)
		}
	}
	return strings.Join(vals, ", ")
}
