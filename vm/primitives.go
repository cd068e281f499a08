package vm

import "fmt"

// Primitive numbers recognized by doPrimitive. The compiler contract
// (§4.7) treats primitives as an escape hatch the bytecode can invoke
// directly instead of going through a full send; a primitive that
// cannot handle its receiver falls through and lets the method body
// that follows it run instead, the same "primitive failure" convention
// the source uses for arithmetic overflow and type mismatches.
const (
	primSmallIntAdd          = 1
	primSmallIntSubtract     = 2
	primSmallIntLessThan     = 3
	primSmallIntLessOrEqual  = 4
	primSmallIntEqual        = 5
	primBasicNew             = 6
	primBasicNewWithArg      = 7
	primClassOf              = 8
	primIdentityEqual        = 9
)

// doPrimitive executes primitive idx against ctx's operand stack. On
// primitive failure (wrong receiver type, overflow) it pushes no result:
// it puts the popped operands back and returns nil, leaving the stack as
// the following bytecode — the primitive's fallback method body —
// expects it.
func (vm *VM) doPrimitive(ctx *Context, idx int) error {
	switch idx {
	case primSmallIntAdd, primSmallIntSubtract, primSmallIntLessThan, primSmallIntLessOrEqual, primSmallIntEqual:
		return vm.primSmallIntBinary(ctx, idx)
	case primBasicNew:
		return vm.primBasicNew(ctx)
	case primBasicNewWithArg:
		return vm.primBasicNewWithArg(ctx)
	case primClassOf:
		arg, err := ctx.Pop()
		if err != nil {
			return err
		}
		ctx.Push(ObjectRef(vm.Heap.ClassOf(vm.Globals, arg)))
		return nil
	case primIdentityEqual:
		b, err := ctx.Pop()
		if err != nil {
			return err
		}
		a, err := ctx.Pop()
		if err != nil {
			return err
		}
		if a.Eq(b) {
			ctx.Push(vm.Globals.True)
		} else {
			ctx.Push(vm.Globals.False)
		}
		return nil
	default:
		return fmt.Errorf("%w: primitive %d", ErrBadBytecode, idx)
	}
}

func (vm *VM) primSmallIntBinary(ctx *Context, idx int) error {
	arg, err := ctx.Pop()
	if err != nil {
		return err
	}
	recv, err := ctx.Pop()
	if err != nil {
		return err
	}
	if !recv.IsSmallInt() || !arg.IsSmallInt() {
		ctx.Push(recv)
		ctx.Push(arg)
		return nil // primitive failure: fall through to the Smalltalk method body
	}
	a, b := recv.Int(), arg.Int()
	switch idx {
	case primSmallIntAdd, primSmallIntSubtract:
		r := a + b
		if idx == primSmallIntSubtract {
			r = a - b
		}
		if r > MaxSmallInt || r < MinSmallInt {
			ctx.Push(recv)
			ctx.Push(arg)
			return nil // overflow: primitive failure
		}
		ctx.Push(SmallInt(r))
	case primSmallIntLessThan:
		ctx.Push(vm.boolValue(a < b))
	case primSmallIntLessOrEqual:
		ctx.Push(vm.boolValue(a <= b))
	case primSmallIntEqual:
		ctx.Push(vm.boolValue(a == b))
	}
	return nil
}

func (vm *VM) boolValue(b bool) Value {
	if b {
		return vm.Globals.True
	}
	return vm.Globals.False
}

func (vm *VM) primBasicNew(ctx *Context) error {
	class, err := ctx.Pop()
	if err != nil {
		return err
	}
	rec := vm.classByID(class.ObjID())
	n := 0
	if rec != nil {
		n = len(rec.InstanceVarNames)
	}
	id, aerr := vm.Heap.AllocateSlots(class.ObjID(), n, vm.Globals.Nil)
	if aerr != nil {
		return aerr
	}
	ctx.Push(ObjectRef(id))
	return nil
}

func (vm *VM) primBasicNewWithArg(ctx *Context) error {
	size, err := ctx.Pop()
	if err != nil {
		return err
	}
	class, err := ctx.Pop()
	if err != nil {
		return err
	}
	id, aerr := vm.Heap.AllocateSlots(class.ObjID(), int(size.Int()), vm.Globals.Nil)
	if aerr != nil {
		return aerr
	}
	ctx.Push(ObjectRef(id))
	return nil
}
