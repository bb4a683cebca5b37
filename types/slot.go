package types

// Slot is one element of a vtable's (or typeinfo name's) interpretation
// sequence. It replaces the Python source's ad-hoc ("byte"|"offset"|
// "reloc", value) pair encoding with an explicit sum type, per spec.md
// §9's "tagged slot variant" design note: every consumer switches on Kind.
// The compiler does not check these switches for exhaustiveness.
type SlotKind int

const (
	// SlotByte holds a single raw byte, used only for "typeinfo name"
	// symbols (NUL-terminated mangled class name strings).
	SlotByte SlotKind = iota
	// SlotOffset holds a pointer_size-wide little-endian word that has no
	// overlaying relocation — i.e. a raw numeric field (commonly a vtable
	// offset-to-top or a zero typeinfo pointer).
	SlotOffset
	// SlotReloc holds a pointer_size-wide word that a dynamic relocation
	// resolves to "address of TargetSymbol, plus Addend".
	SlotReloc
)

type Slot struct {
	Kind SlotKind

	// Valid when Kind == SlotByte.
	Byte byte

	// Valid when Kind == SlotOffset.
	Offset uint64

	// Valid when Kind == SlotReloc.
	TargetSymbol string
	Addend       int64
}

func NewByteSlot(b byte) Slot    { return Slot{Kind: SlotByte, Byte: b} }
func NewOffsetSlot(w uint64) Slot { return Slot{Kind: SlotOffset, Offset: w} }
func NewRelocSlot(target string, addend int64) Slot {
	return Slot{Kind: SlotReloc, TargetSymbol: target, Addend: addend}
}

// CType returns the C type used to declare this slot's struct field in
// the synthesized vtable definition (spec.md §4.6 step 2).
func (s Slot) CType() string {
	switch s.Kind {
	case SlotReloc:
		return "const void *"
	case SlotByte:
		return "unsigned char"
	default:
		return "size_t"
	}
}
