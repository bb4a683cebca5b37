package types

// Relocation is one row of the dynamic relocation table (readelf -rW,
// GNU or FreeBSD dialect — both are normalized to this shape by
// pkg/relocs before the caller ever sees a Relocation value).
type Relocation struct {
	Offset       uint64
	Info         uint64
	Type         string
	TargetSymbol string // may be empty
	Addend       int64
}

// Relocations is a slice sortable by Offset. pkg/relocs returns it in
// listing order, and the vtable synthesizer's overlay pass (pkg/vtable)
// scans every entry against a symbol's [Value, Value+Size) interval, so
// no ordering is relied on.
type Relocations []Relocation

func (r Relocations) Len() int           { return len(r) }
func (r Relocations) Less(i, j int) bool { return r[i].Offset < r[j].Offset }
func (r Relocations) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
