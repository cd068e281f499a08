package vm

import "fmt"

// Run drives ctx to completion, decoding and executing bytecodes against
// its operand stack (§4.6/C4). It returns the value the context
// produced, by either an ordinary return or the context being the
// target of a non-local return unwound from a nested block activation.
func (vm *VM) Run(ctx *Context) (Value, error) {
	value, _, err := runWithNonLocalReturn(ctx, func() (Value, bool, error) {
		return vm.runFrame(ctx)
	})
	if err == nil {
		ctx.Dead = true
	}
	return value, err
}

// runFrame executes ctx's own bytecode loop. Sends that activate a new
// context recurse into runFrame directly (the Go call stack mirrors the
// Smalltalk sender chain), so a non-local return can unwind it with a
// single panic/recover pair rather than threading a sentinel value back
// through every frame in between.
func (vm *VM) runFrame(ctx *Context) (Value, bool, error) {
	var code []byte
	var literals []Value
	if ctx.IsBlockContext() {
		code = ctx.Block.Home.Bytecode
		literals = ctx.Block.Home.Literals
	} else {
		code = ctx.Method.Bytecode
		literals = ctx.Method.Literals
	}

	pendingArgs := -1 // -1 means "no markArguments seen"; sendUnary/Binary ignore it

	for {
		if ctx.IP >= len(code) {
			return vm.Globals.Nil, true, nil
		}
		op, arg := decodeOp(code[ctx.IP])
		ctx.IP++
		if arg == extendedMarker {
			arg = code[ctx.IP]
			ctx.IP++
		}

		switch op {
		case opPushArgument:
			ctx.Push(argAt(ctx, int(arg)))
		case opPushTemporary:
			ctx.Push(tempAt(ctx, int(arg)))
		case opPushInstance:
			recv := receiverOf(ctx)
			ctx.Push(vm.Heap.FieldAt(recv.ObjID(), int(arg)))
		case opPushLiteral:
			ctx.Push(literals[arg])
		case opPushConstant:
			ctx.Push(vm.pushConstant(int(arg)))
		case opAssignTemporary:
			v, err := ctx.Top()
			if err != nil {
				return Value{}, false, err
			}
			setTempAt(ctx, int(arg), v)
		case opAssignInstance:
			v, err := ctx.Top()
			if err != nil {
				return Value{}, false, err
			}
			recv := receiverOf(ctx)
			vm.Heap.FieldAtPut(recv.ObjID(), int(arg), v)
		case opMarkArguments:
			pendingArgs = int(arg)
		case opPushBlock:
			tmpl := methodOf(ctx).Blocks[arg]
			ctx.Push(vm.CreateBlock(tmpl, homeOf(ctx)))
		case opSendUnary:
			if err := vm.doSend(ctx, literals[arg].ObjID(), 0, false); err != nil {
				return Value{}, false, err
			}
		case opSendBinary:
			if err := vm.doSend(ctx, literals[arg].ObjID(), 1, false); err != nil {
				return Value{}, false, err
			}
		case opSendMessage:
			n := pendingArgs
			if n < 0 {
				n = 0
			}
			pendingArgs = -1
			if err := vm.doSend(ctx, literals[arg].ObjID(), n, false); err != nil {
				return Value{}, false, err
			}
		case opDoPrimitive:
			if err := vm.doPrimitive(ctx, int(arg)); err != nil {
				return Value{}, false, err
			}
		case opDoSpecial:
			v, done, ret, err := vm.doSpecial(ctx, special(arg), code)
			if err != nil {
				return Value{}, false, err
			}
			if done {
				ctx.Dead = true
				return v, ret, nil
			}
		default:
			return Value{}, false, fmt.Errorf("%w: opcode %d at ip %d", ErrBadBytecode, op, ctx.IP-1)
		}
	}
}

// doSend pops n arguments plus a receiver, sends selector, and runs the
// resulting activation to completion, pushing its result.
func (vm *VM) doSend(ctx *Context, selector ObjID, n int, toSuper bool) error {
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := ctx.Pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	receiver, err := ctx.Pop()
	if err != nil {
		return err
	}
	next, err := vm.SendMessage(selector, receiver, args, ctx)
	if err != nil {
		return err
	}
	result, err := vm.Run(next)
	if err != nil {
		return err
	}
	ctx.Push(result)
	return nil
}

// doSpecial handles the doSpecial family: returns, stack shuffles, and
// branches (§4.5.3 for the returns).
func (vm *VM) doSpecial(ctx *Context, s special, code []byte) (value Value, done bool, nonLocal bool, err error) {
	switch s {
	case specialSelfReturn:
		return ctx.Receiver, true, false, nil
	case specialStackReturn:
		v, perr := ctx.Pop()
		if perr != nil {
			return Value{}, false, false, perr
		}
		return v, true, false, nil
	case specialBlockReturn:
		v, perr := ctx.Pop()
		if perr != nil {
			return Value{}, false, false, perr
		}
		home := homeOf(ctx)
		perr = vm.PerformNonLocalReturn(home, v)
		return Value{}, false, false, perr
	case specialDuplicate:
		v, perr := ctx.Top()
		if perr != nil {
			return Value{}, false, false, perr
		}
		ctx.Push(v)
	case specialPopTop:
		if _, perr := ctx.Pop(); perr != nil {
			return Value{}, false, false, perr
		}
	case specialBranch:
		ctx.IP = readUint16LE(code, ctx.IP)
	case specialBranchIfTrue:
		v, perr := ctx.Pop()
		if perr != nil {
			return Value{}, false, false, perr
		}
		target := readUint16LE(code, ctx.IP)
		ctx.IP += 2
		if v.Eq(vm.Globals.True) {
			ctx.IP = target
		}
	case specialBranchIfFalse:
		v, perr := ctx.Pop()
		if perr != nil {
			return Value{}, false, false, perr
		}
		target := readUint16LE(code, ctx.IP)
		ctx.IP += 2
		if v.Eq(vm.Globals.False) {
			ctx.IP = target
		}
	case specialSendToSuper:
		// Argument count and selector were pushed by the preceding
		// markArguments/pushLiteral pair; resolution starts one class
		// above the defining method's class rather than the receiver's
		// own class. Left unimplemented pending a selector operand
		// convention; callers should not emit sendToSuper yet.
		return Value{}, false, false, fmt.Errorf("%w: sendToSuper not supported", ErrBadBytecode)
	default:
		return Value{}, false, false, fmt.Errorf("%w: doSpecial %d", ErrBadBytecode, s)
	}
	return Value{}, false, false, nil
}

func (vm *VM) pushConstant(idx int) Value {
	switch idx {
	case 0:
		return vm.Globals.Nil
	case 1:
		return vm.Globals.True
	case 2:
		return vm.Globals.False
	default:
		return SmallInt(int64(idx - 3))
	}
}

// argAt/tempAt/setTempAt/receiverOf/methodOf/homeOf resolve against
// either a method context or, for a block context, the captured home
// context — blocks share their enclosing method's temps/args by
// reference rather than copying them in at creation time (§4.5.1).
func argAt(ctx *Context, n int) Value {
	if ctx.IsBlockContext() {
		if n < len(ctx.Args) {
			return ctx.Args[n]
		}
		return homeOf(ctx).Args[n-len(ctx.Args)]
	}
	return ctx.Args[n]
}

func tempAt(ctx *Context, n int) Value {
	if ctx.IsBlockContext() {
		if n < len(ctx.Temps) {
			return ctx.Temps[n]
		}
		return homeOf(ctx).Temps[n-len(ctx.Temps)]
	}
	return ctx.Temps[n]
}

func setTempAt(ctx *Context, n int, v Value) {
	if ctx.IsBlockContext() {
		if n < len(ctx.Temps) {
			ctx.Temps[n] = v
			return
		}
		homeOf(ctx).Temps[n-len(ctx.Temps)] = v
		return
	}
	ctx.Temps[n] = v
}

func receiverOf(ctx *Context) Value {
	if ctx.IsBlockContext() {
		return homeOf(ctx).Receiver
	}
	return ctx.Receiver
}

func methodOf(ctx *Context) *CompiledMethod {
	if ctx.IsBlockContext() {
		return ctx.Block.Home
	}
	return ctx.Method
}

func homeOf(ctx *Context) *Context {
	if !ctx.IsBlockContext() {
		return ctx
	}
	return ctx.Home
}
