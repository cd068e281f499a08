package vm

// ObjID addresses a heap object as an arena-relative index rather than a
// raw pointer (Design Notes: "Arenas and indices for the heap"). The two
// high bits disambiguate which arena the low 30 bits index into, so a
// stale ObjID from before a collection either still resolves (static;
// tenured until the next major collection, which re-indexes the tenured
// generation) or is a caller bug (movable, not held through a Handle)
// rather than a dangling machine pointer.
type ObjID uint32

const (
	staticBit  ObjID = 1 << 31
	tenuredBit ObjID = 1 << 30
	objIndexMask ObjID = tenuredBit - 1
)

// IsStatic reports whether id addresses the non-collected static heap.
func (id ObjID) IsStatic() bool { return id&staticBit != 0 }

// IsTenured reports whether id addresses the tenured (left) generation of
// a generational heap. Meaningless outside generational mode.
func (id ObjID) IsTenured() bool { return !id.IsStatic() && id&tenuredBit != 0 }

func (id ObjID) index() int { return int(id & objIndexMask) }

func staticID(i int) ObjID  { return staticBit | ObjID(i) }
func tenuredID(i int) ObjID { return tenuredBit | ObjID(i) }
func youngID(i int) ObjID   { return ObjID(i) }

// objHeader is the common header every heap object carries: a size+flags
// word and a class pointer, per spec §3. During collection the class
// field doubles as the forwarding address once relocated is set, exactly
// as the source overwrites "the original's class slot" rather than
// keeping a separate forwarding field.
type objHeader struct {
	size      uint32 // payload size: slot count (slot objects) or byte count (binary objects)
	binary    bool
	relocated bool
	class     ObjID // class pointer, or forwarding address once relocated
}

// arenaObject is one object living in an arena slot. Exactly one of slots
// or bytes is populated, matching the binary/slot split of the header.
type arenaObject struct {
	header objHeader
	slots  []Value
	bytes  []byte
}

func newSlotObject(class ObjID, slots []Value) arenaObject {
	return arenaObject{
		header: objHeader{size: uint32(len(slots)), binary: false, class: class},
		slots:  slots,
	}
}

func newByteObject(class ObjID, data []byte) arenaObject {
	return arenaObject{
		header: objHeader{size: uint32(len(data)), binary: true, class: class},
		bytes:  data,
	}
}

// ---------------------------------------------------------------------------
// Object model operations (§4.3)
// ---------------------------------------------------------------------------

// ClassOf returns the class of v: the global SmallInteger class if v is
// tagged, otherwise the class slot of the referenced heap object.
func (h *Heap) ClassOf(g *Globals, v Value) ObjID {
	if v.IsSmallInt() {
		return g.SmallIntegerClass
	}
	obj := h.deref(v.ObjID())
	return obj.header.class
}

// SizeInSlots returns the number of reference slots in a slot object.
// The interpreter is responsible for only calling this on non-binary
// objects; bounds are not checked here (§4.3: "bounds unchecked at
// runtime").
func (h *Heap) SizeInSlots(id ObjID) int {
	return int(h.deref(id).header.size)
}

// SizeInBytes returns the number of payload bytes in a binary object.
func (h *Heap) SizeInBytes(id ObjID) int {
	return int(h.deref(id).header.size)
}

// IsBinary reports whether id addresses a byte-payload object.
func (h *Heap) IsBinary(id ObjID) bool {
	return h.deref(id).header.binary
}

// FieldAt returns the slot at index i of a slot object. Bounds unchecked.
func (h *Heap) FieldAt(id ObjID, i int) Value {
	return h.deref(id).slots[i]
}

// FieldAtPut stores value at slot index i of a slot object, applying the
// write barrier (§4.1.4) so cross-region references stay registered as
// roots. Bounds unchecked.
func (h *Heap) FieldAtPut(id ObjID, i int, value Value) {
	h.deref(id).slots[i] = value
	h.checkRoot(id, i, value)
}

// ByteAt returns the byte at index i of a binary object. Bounds unchecked.
func (h *Heap) ByteAt(id ObjID, i int) byte {
	return h.deref(id).bytes[i]
}

// ByteAtPut stores a byte at index i of a binary object. Bounds unchecked.
// Byte objects never hold references, so no write barrier applies.
func (h *Heap) ByteAtPut(id ObjID, i int, value byte) {
	h.deref(id).bytes[i] = value
}

// Equal implements equalityByIdentity, the default for ==: SmallInts
// compare by value, heap references by ObjID.
func Equal(a, b Value) bool { return a.Eq(b) }

// BulkReplace is the bulkReplace runtime callback (§4.7, §6): if dst and
// src are both byte-payload or both slot-payload objects and
// [dstStart, dstStop] / [srcStart, srcStart+len-1] are both in bounds
// (inclusive, 0-based, matching every other unchecked-bounds accessor
// in this file), copy src's range over dst's and return true.
// Otherwise dst is left untouched and BulkReplace returns false.
func (h *Heap) BulkReplace(dst Value, dstStart, dstStop int, src Value, srcStart int) bool {
	if !dst.IsHeapRef() || !src.IsHeapRef() {
		return false
	}
	dstID, srcID := dst.ObjID(), src.ObjID()
	if h.IsBinary(dstID) != h.IsBinary(srcID) {
		return false
	}
	n := dstStop - dstStart + 1
	if n <= 0 {
		return false
	}
	srcStop := srcStart + n - 1

	if h.IsBinary(dstID) {
		dstObj, srcObj := h.deref(dstID), h.deref(srcID)
		if dstStart < 0 || dstStop >= len(dstObj.bytes) || srcStart < 0 || srcStop >= len(srcObj.bytes) {
			return false
		}
		copy(dstObj.bytes[dstStart:dstStop+1], srcObj.bytes[srcStart:srcStop+1])
		return true
	}

	if dstStart < 0 || dstStop >= h.SizeInSlots(dstID) || srcStart < 0 || srcStop >= h.SizeInSlots(srcID) {
		return false
	}
	// Same-object overlapping ranges: copy back-to-front when dst starts
	// after src, so a slot isn't overwritten before it's been read.
	if dstID == srcID && dstStart > srcStart {
		for i := n - 1; i >= 0; i-- {
			h.FieldAtPut(dstID, dstStart+i, h.FieldAt(srcID, srcStart+i))
		}
		return true
	}
	for i := 0; i < n; i++ {
		h.FieldAtPut(dstID, dstStart+i, h.FieldAt(srcID, srcStart+i))
	}
	return true
}
