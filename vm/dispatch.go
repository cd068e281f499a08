package vm

import "fmt"

// ClassOfReceiver returns the Class of v for dispatch purposes: the
// shared SmallInteger class for tagged integers, otherwise the class
// recorded on the heap object's header resolved through the VM's class
// table.
func (vm *VM) ClassOfReceiver(v Value) *Class {
	id := vm.Heap.ClassOf(vm.Globals, v)
	return vm.classByID(id)
}

func (vm *VM) classByID(id ObjID) *Class {
	if c, ok := vm.classes[id]; ok {
		return c
	}
	return nil
}

// LookupMethod resolves selector against class's superclass chain
// (§4.4.1), consulting and populating the inline cache.
func (vm *VM) LookupMethod(class *Class, selector ObjID) *CompiledMethod {
	if m := vm.cache.Lookup(class, selector); m != nil {
		return m
	}
	m := class.LookupMethod(selector)
	if m != nil {
		vm.cache.Store(class, selector, m)
	}
	return m
}

// SendMessage performs a full message send (§4.4.3): lookup, cache,
// does-not-understand fallback, and activation. Returns the new
// Context to run, or an error if lookup failed with no handler
// installed.
func (vm *VM) SendMessage(selector ObjID, receiver Value, args []Value, sender *Context) (*Context, error) {
	class := vm.ClassOfReceiver(receiver)
	if class == nil {
		return nil, fmt.Errorf("%w: receiver has no registered class", ErrDoesNotUnderstand)
	}
	method := vm.LookupMethod(class, selector)
	if method == nil {
		dnu := vm.LookupMethod(class, vm.Globals.BadMethodSymbol)
		if dnu == nil {
			return nil, fmt.Errorf("%w: %s does not understand selector", ErrDoesNotUnderstand, class.Name)
		}
		dnuArgs := []Value{SelectorMarker(selector), vm.newArgsArray(args)}
		return NewMethodContext(dnu, receiver, dnuArgs, sender, vm.Globals.Nil), nil
	}
	return NewMethodContext(method, receiver, args, sender, vm.Globals.Nil), nil
}

// SelectorMarker wraps a selector ObjID as a Value for passing it to a
// doesNotUnderstand: handler.
func SelectorMarker(selector ObjID) Value { return ObjectRef(selector) }

// newArgsArray boxes args as a heap Array object so a
// doesNotUnderstand: handler can inspect the original argument list.
func (vm *VM) newArgsArray(args []Value) Value {
	id, err := vm.Heap.AllocateSlots(vm.Globals.ArrayClass, len(args), vm.Globals.Nil)
	if err != nil {
		vm.fatalf("newArgsArray: %v", err)
	}
	for i, a := range args {
		vm.Heap.FieldAtPut(id, i, a)
	}
	return ObjectRef(id)
}

// DefineMethod installs m under selector on class and flushes the
// inline cache, since a stale hit could otherwise keep resolving sends
// to whatever CompiledMethod occupied that slot before.
func (vm *VM) DefineMethod(class *Class, selector ObjID, m *CompiledMethod) {
	class.AddMethod(selector, m)
	vm.cache.Flush()
}
