// Package image reads and writes the heap snapshot format the VM boots
// from (§4.2): a stream of tagged records, materialized directly into a
// vm.Heap, with back-references deduplicating shared sub-graphs.
//
// Grounded on the teacher repo's vm/image_reader.go: same shape (a
// reader struct wrapping a byte slice and a cursor, one read method per
// record kind, sentinel errors wrapped with fmt.Errorf("%w", ...) for
// context), retargeted from the teacher's own record tags to this
// format's five-tag scheme.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/teodorov/llst/vm"
)

// Sentinel errors, in the same spirit as image_reader.go's
// ErrInvalidMagic/ErrCorruptData family: wrapped with positional
// context at the call site rather than carrying that context
// themselves.
var (
	ErrInvalidTag     = errors.New("image: invalid record tag")
	ErrUnexpectedEOF  = errors.New("image: unexpected end of image data")
	ErrInvalidBackref = errors.New("image: back-reference index out of range")
	ErrRootShape      = errors.New("image: root record does not match the globals layout")
)

type tag byte

const (
	tagInvalid tag = 0
	tagObject  tag = 1
	tagInt     tag = 2
	tagBytes   tag = 3
	tagBackref tag = 4
	tagNil     tag = 5
)

// Reader decodes an image byte stream into heap objects.
type Reader struct {
	data []byte
	pos  int

	heap    *vm.Heap
	globals *vm.Globals

	loadTable []vm.Value
}

// NewReader returns a Reader that will materialize objects into heap,
// with nilValue as the value every tagNil record decodes to.
func NewReader(data []byte, heap *vm.Heap, nilValue vm.Value) *Reader {
	return &Reader{data: data, heap: heap, globals: &vm.Globals{Nil: nilValue}}
}

// ReadAll decodes every record in the stream and returns the populated
// Globals record, built from the final record — the fixed root object
// — per §4.2: "The loader populates the globals record from a fixed
// root object read last."
func (r *Reader) ReadAll() (*vm.Globals, error) {
	var last vm.Value
	seenAny := false
	for r.pos < len(r.data) {
		v, err := r.readValue()
		if err != nil {
			return nil, err
		}
		last = v
		seenAny = true
	}
	if !seenAny {
		return nil, fmt.Errorf("%w: empty image", ErrUnexpectedEOF)
	}
	return r.populateGlobals(last)
}

// readValue reads one record, recursing into its children as needed,
// and returns the Value it materializes to.
func (r *Reader) readValue() (vm.Value, error) {
	t, err := r.readByte()
	if err != nil {
		return vm.Value{}, err
	}
	switch tag(t) {
	case tagNil:
		return r.globals.Nil, nil
	case tagInt:
		n, err := r.readInt32()
		if err != nil {
			return vm.Value{}, err
		}
		return vm.SmallInt(int64(n)), nil
	case tagBackref:
		idx, err := r.readUint32()
		if err != nil {
			return vm.Value{}, err
		}
		if int(idx) >= len(r.loadTable) {
			return vm.Value{}, fmt.Errorf("%w: index %d (table size %d)", ErrInvalidBackref, idx, len(r.loadTable))
		}
		return r.loadTable[idx], nil
	case tagObject:
		return r.readObject()
	case tagBytes:
		return r.readBytes()
	default:
		return vm.Value{}, fmt.Errorf("%w: tag %d at offset %d", ErrInvalidTag, t, r.pos-1)
	}
}

func (r *Reader) readObject() (vm.Value, error) {
	classVal, err := r.readValue()
	if err != nil {
		return vm.Value{}, fmt.Errorf("image: reading class: %w", err)
	}
	count, err := r.readUint32()
	if err != nil {
		return vm.Value{}, fmt.Errorf("image: reading slot count: %w", err)
	}
	id, err := r.heap.AllocateSlots(classID(classVal), int(count), r.globals.Nil)
	if err != nil {
		return vm.Value{}, fmt.Errorf("image: allocating %d slots: %w", count, err)
	}
	result := vm.ObjectRef(id)
	r.loadTable = append(r.loadTable, result)

	for i := 0; i < int(count); i++ {
		v, err := r.readValue()
		if err != nil {
			return vm.Value{}, fmt.Errorf("image: reading slot %d: %w", i, err)
		}
		r.heap.FieldAtPut(id, i, v)
	}
	return result, nil
}

func (r *Reader) readBytes() (vm.Value, error) {
	classVal, err := r.readValue()
	if err != nil {
		return vm.Value{}, fmt.Errorf("image: reading class: %w", err)
	}
	n, err := r.readUint32()
	if err != nil {
		return vm.Value{}, fmt.Errorf("image: reading byte length: %w", err)
	}
	if r.pos+int(n) > len(r.data) {
		return vm.Value{}, fmt.Errorf("%w: byte object of length %d", ErrUnexpectedEOF, n)
	}
	raw := make([]byte, n)
	copy(raw, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)

	id, err := r.heap.AllocateBytes(classID(classVal), int(n))
	if err != nil {
		return vm.Value{}, fmt.Errorf("image: allocating %d bytes: %w", n, err)
	}
	for i, b := range raw {
		r.heap.ByteAtPut(id, i, b)
	}
	result := vm.BinaryRef(id)
	r.loadTable = append(r.loadTable, result)
	return result, nil
}

func classID(v vm.Value) vm.ObjID {
	if v.IsHeapRef() {
		return v.ObjID()
	}
	return 0
}

func (r *Reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) readInt32() (int32, error) {
	u, err := r.readUint32()
	return int32(u), err
}

func (r *Reader) readUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// populateGlobals interprets root (expected to be an ordinary object
// with the field order NewGlobals builds: True, False, SmallIntegerClass,
// ArrayClass, BlockClass, ContextClass, StringClass, SymbolClass,
// IntegerClass, GlobalsObject, InitialMethod, three binary selectors,
// BadMethodSymbol — the same order original_source's TGlobals lists
// its fields in) as the Globals record.
const rootFieldCount = 15

func (r *Reader) populateGlobals(root vm.Value) (*vm.Globals, error) {
	if !root.IsObject() {
		return nil, ErrRootShape
	}
	id := root.ObjID()
	if r.heap.SizeInSlots(id) != rootFieldCount {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrRootShape, rootFieldCount, r.heap.SizeInSlots(id))
	}
	g := r.globals
	field := func(i int) vm.Value { return r.heap.FieldAt(id, i) }

	g.True = field(0)
	g.False = field(1)
	g.SmallIntegerClass = field(2).ObjID()
	g.ArrayClass = field(3).ObjID()
	g.BlockClass = field(4).ObjID()
	g.ContextClass = field(5).ObjID()
	g.StringClass = field(6).ObjID()
	g.SymbolClass = field(7).ObjID()
	g.IntegerClass = field(8).ObjID()
	g.GlobalsObject = field(9).ObjID()
	g.InitialMethod = field(10).ObjID()
	g.BinarySelectors = [3]vm.ObjID{field(11).ObjID(), field(12).ObjID(), field(13).ObjID()}
	g.BadMethodSymbol = field(14).ObjID()

	return g, nil
}
