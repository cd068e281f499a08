// Package vm implements the object memory, dispatch pipeline, and bytecode
// interpreter of an image-based Smalltalk-family virtual machine.
package vm

import "fmt"

// Value is a tagged reference: either a small integer encoded directly in
// the bits (no heap object exists for it) or a reference to a heap object
// living in one of the Heap's arenas.
//
// This is the tagged-variant re-expression of the source's pointer-tagging
// trick (a raw pointer with its low bit stolen for small integers): instead
// of punning a machine pointer, a Value carries an explicit kind tag and an
// arena-relative offset, so the GC never has to reason about which bits of
// a real pointer are safe to steal.
type Value struct {
	kind    valueKind
	smallInt int64
	ref     ObjID
}

type valueKind uint8

const (
	kindSmallInt valueKind = iota
	kindObject
	kindBinary
)

// SmallInt range. The source packs a tagged integer into the spare bits of
// a 32/64-bit pointer; we keep the same effective range (signed, fits in the
// reference word minus one tag bit) so arithmetic overflow behaves the same
// way a real build would observe it.
const (
	MaxSmallInt int64 = 1<<62 - 1
	MinSmallInt int64 = -(1 << 62)
)

// SmallInt returns a Value wrapping a tagged integer. Panics if n is outside
// the representable range — callers doing VM arithmetic must check range
// themselves (see primSmallIntBinary) and fall back to a boxed
// LargeInteger, which is out of scope for this core.
func SmallInt(n int64) Value {
	if n > MaxSmallInt || n < MinSmallInt {
		panic(fmt.Sprintf("vm: SmallInt out of range: %d", n))
	}
	return Value{kind: kindSmallInt, smallInt: n}
}

// ObjectRef wraps a slot-payload object reference.
func ObjectRef(id ObjID) Value { return Value{kind: kindObject, ref: id} }

// BinaryRef wraps a byte-payload object reference.
func BinaryRef(id ObjID) Value { return Value{kind: kindBinary, ref: id} }

// IsSmallInt reports whether v is a tagged integer.
func (v Value) IsSmallInt() bool { return v.kind == kindSmallInt }

// IsObject reports whether v references a slot-payload heap object.
func (v Value) IsObject() bool { return v.kind == kindObject }

// IsBinary reports whether v references a byte-payload heap object.
func (v Value) IsBinary() bool { return v.kind == kindBinary }

// IsHeapRef reports whether v references any heap object (slot or byte).
func (v Value) IsHeapRef() bool { return v.kind == kindObject || v.kind == kindBinary }

// Int returns the integer payload of a SmallInt value. Panics otherwise.
func (v Value) Int() int64 {
	if v.kind != kindSmallInt {
		panic("vm: Value.Int: not a small integer")
	}
	return v.smallInt
}

// ObjID returns the heap reference payload of an object or binary Value.
// Panics otherwise.
func (v Value) ObjID() ObjID {
	if v.kind != kindObject && v.kind != kindBinary {
		panic("vm: Value.ObjID: not a heap reference")
	}
	return v.ref
}

// Eq implements == by identity: SmallInts compare by value (they carry no
// identity beyond their bits), heap references compare by ObjID.
func (v Value) Eq(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case kindSmallInt:
		return v.smallInt == o.smallInt
	default:
		return v.ref == o.ref
	}
}

func (v Value) String() string {
	switch v.kind {
	case kindSmallInt:
		return fmt.Sprintf("%d", v.smallInt)
	case kindObject:
		return fmt.Sprintf("obj@%d", v.ref)
	case kindBinary:
		return fmt.Sprintf("bin@%d", v.ref)
	default:
		return "?"
	}
}
