package vm

import "fmt"

// BlockTemplate is the compile-time description of a block literal: the
// span of its home method's bytecode it occupies and its own argument
// and temp counts. It is shared by every activation created from the
// same literal, mirroring the source's TBlock class split between the
// static block definition and a fresh context per invocation.
type BlockTemplate struct {
	Home      *CompiledMethod
	StartIP   int
	EndIP     int
	ArgCount  int
	TempCount int
	Outer     *BlockTemplate // enclosing block, or nil if nested directly in Home
}

// CreateBlock produces a block closure Value over the given home
// context, per §4.5.1. The home context is retained (not copied): a
// block shares its enclosing method's temps and arguments by reference,
// so assignments a block makes to an outer temp are visible to the
// method after the block returns.
func (vm *VM) CreateBlock(tmpl *BlockTemplate, home *Context) Value {
	id, err := vm.Heap.AllocateSlots(vm.Globals.BlockClass, 0, vm.Globals.Nil)
	if err != nil {
		vm.fatalf("CreateBlock: %v", err)
	}
	blk := &blockClosure{template: tmpl, home: home}
	vm.blockClosures[id] = blk
	return ObjectRef(id)
}

// blockClosure is the Go-side payload behind a block Value; the heap
// object at the same ObjID exists only to give the closure an identity
// and a class for message sends (value:, numArgs, etc.), matching how
// the source's TBlock is itself a heap object with its own slots —
// here the slots are empty and the real state lives in this side table,
// the same split CompiledMethod makes between heap identity and the Go
// struct that does the work.
type blockClosure struct {
	template *BlockTemplate
	home     *Context
}

// InvokeBlock creates and returns a fresh Context to run blk with args,
// per §4.5.2. len(args) is not checked against the template's ArgCount,
// here or in the interpreter.
func (vm *VM) InvokeBlock(blk *blockClosure, args []Value, sender *Context) *Context {
	ctx := &Context{
		Block:  blk.template,
		Home:   blk.home,
		Sender: sender,
		Args:   args,
		Temps:  make([]Value, blk.template.TempCount),
		Stack:  make([]Value, 0, blk.template.Home.StackDepth),
		IP:     blk.template.StartIP,
	}
	for i := range ctx.Temps {
		ctx.Temps[i] = vm.Globals.Nil
	}
	if blk.home != nil {
		ctx.Receiver = blk.home.Receiver
	}
	return ctx
}

// compileBlockCached consults the block cache for tmpl's native entry
// (§4.4.2, keyed by (method, block byte offset)), asking the active
// compiler backend to produce and install one on a miss.
func (vm *VM) compileBlockCached(tmpl *BlockTemplate) (NativeEntry, error) {
	if native := vm.blockCache.Lookup(tmpl.Home, tmpl.StartIP); native != nil {
		return native, nil
	}
	native, err := vm.compiler.CompileBlock(tmpl)
	if err != nil {
		return nil, err
	}
	vm.blockCache.Store(tmpl.Home, tmpl.StartIP, native)
	return native, nil
}

// RunBlock invokes blk with args through the block cache: InvokeBlock
// builds the activation context, then the cached (or freshly compiled)
// native entry runs it to completion.
func (vm *VM) RunBlock(blk *blockClosure, args []Value, sender *Context) (Value, error) {
	ctx := vm.InvokeBlock(blk, args, sender)
	entry, err := vm.compileBlockCached(blk.template)
	if err != nil {
		return Value{}, err
	}
	return entry(ctx)
}

// RunBlockValue is the invokeBlock runtime callback (§6): it resolves a
// block Value back to its Go-side closure and drives it via RunBlock.
func (vm *VM) RunBlockValue(block Value, args []Value, sender *Context) (Value, error) {
	if !block.IsHeapRef() {
		return Value{}, fmt.Errorf("vm: %v is not a block", block)
	}
	blk, ok := vm.blockClosures[block.ObjID()]
	if !ok {
		return Value{}, fmt.Errorf("vm: %v is not a block", block)
	}
	return vm.RunBlock(blk, args, sender)
}
