package image

import (
	"bytes"
	"encoding/binary"

	"github.com/teodorov/llst/vm"
)

// Writer encodes heap objects into the tagged-record stream Reader
// decodes, emitting back-references for any object already written so
// a shared sub-graph is stored once (§4.2: "must emit the minimal-size
// record ... using back-references and nil to deduplicate").
type Writer struct {
	heap *vm.Heap
	nil  vm.Value
	buf  bytes.Buffer

	written map[vm.ObjID]uint32 // heap object -> its index in the emitted load table
	next    uint32
}

// NewWriter returns a Writer that reads object contents from heap,
// emitting a tagNil record for any reference equal to nilValue.
func NewWriter(heap *vm.Heap, nilValue vm.Value) *Writer {
	return &Writer{heap: heap, nil: nilValue, written: make(map[vm.ObjID]uint32)}
}

// WriteRoot encodes root (and everything reachable from it) and returns
// the resulting byte stream. root should be the Globals-shaped record
// Reader.populateGlobals expects, built by the caller with its fields in
// the order populateGlobals reads them.
func (w *Writer) WriteRoot(root vm.Value) []byte {
	w.writeValue(root)
	return w.buf.Bytes()
}

func (w *Writer) writeValue(v vm.Value) {
	switch {
	case v.Eq(w.nil):
		w.writeByte(byte(tagNil))
	case !v.IsHeapRef():
		w.writeByte(byte(tagInt))
		w.writeInt32(int32(v.Int()))
	default:
		w.writeRef(v)
	}
}

func (w *Writer) writeRef(v vm.Value) {
	id := v.ObjID()
	if idx, ok := w.written[id]; ok {
		w.writeByte(byte(tagBackref))
		w.writeUint32(idx)
		return
	}

	// The reader appends an object's class to its load table before the
	// object itself, so the index is assigned after the class is written.
	if v.IsBinary() {
		w.writeByte(byte(tagBytes))
		w.writeClassRef(id)
		w.written[id] = w.next
		w.next++
		n := w.heap.SizeInBytes(id)
		w.writeUint32(uint32(n))
		for i := 0; i < n; i++ {
			w.buf.WriteByte(w.heap.ByteAt(id, i))
		}
		return
	}

	w.writeByte(byte(tagObject))
	w.writeClassRef(id)
	w.written[id] = w.next
	w.next++
	n := w.heap.SizeInSlots(id)
	w.writeUint32(uint32(n))
	for i := 0; i < n; i++ {
		w.writeValue(w.heap.FieldAt(id, i))
	}
}

// writeClassRef writes the class pointer of id as its own recursive
// value, the same way the reader treats it as the first field of an
// object/bytes record.
func (w *Writer) writeClassRef(id vm.ObjID) {
	w.writeValue(vm.ObjectRef(classOfHeld(w.heap, id)))
}

// classOfHeld reads the raw class pointer straight off the header via
// the same accessor ClassOf uses for a heap reference, without needing
// a Globals record (the writer never needs SmallInteger's class).
func classOfHeld(h *vm.Heap, id vm.ObjID) vm.ObjID {
	return h.ClassOf(&vm.Globals{}, vm.ObjectRef(id))
}

// NilRecord writes a standalone nil record — the global nil, which the
// reader resolves from its own Globals.Nil rather than this stream.
func (w *Writer) NilRecord() {
	w.writeByte(byte(tagNil))
}

func (w *Writer) writeByte(b byte)     { w.buf.WriteByte(b) }
func (w *Writer) writeInt32(n int32)   { w.writeUint32(uint32(n)) }
func (w *Writer) writeUint32(n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	w.buf.Write(b[:])
}
