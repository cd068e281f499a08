package vm

// CompilerBackend is the contract §4.7 describes, not an
// implementation: given a method, produce a native entry point callable
// with an activation Context and returning an object reference. A
// backend is also responsible for emitting one separately-addressable
// entry per block literal the method defines, keyed by (method, block
// byte offset), and for honoring the handle protocol around every
// runtime callback it invokes.
//
// Grounded on the teacher's CompilerBackend/JITCompiler split: native
// compilation is an optional accelerator over the interpreter, never a
// replacement for it — ReferenceBackend below satisfies the contract by
// doing nothing but driving the interpreter, which is always correct
// and is what every test in this module runs against.
type CompilerBackend interface {
	// Name identifies the backend for diagnostics.
	Name() string

	// Compile returns a NativeEntry for method. Compiling the same
	// *CompiledMethod twice may return the same entry; compiling two
	// different methods must never alias.
	Compile(method *CompiledMethod) (NativeEntry, error)

	// CompileBlock returns a separately-addressable NativeEntry for the
	// block literal tmpl, discoverable by the tuple (tmpl.Home,
	// tmpl.StartIP) — the block cache's key (§4.4.2, §4.7).
	CompileBlock(tmpl *BlockTemplate) (NativeEntry, error)
}

// NativeEntry runs a compiled (or interpreted) method or block body
// against ctx.
type NativeEntry func(ctx *Context) (Value, error)

// RuntimeCallbacks is the runtime callback ABI (§4.7, §6) a
// CompilerBackend is handed at construction: the fixed set of symbols
// compiled code invokes to allocate, send, create and invoke blocks,
// raise a non-local return, maintain the write barrier, and bulk-copy
// array/string contents, instead of reaching into VM/Heap internals
// directly. Grounded on the source's JITRuntime::m_runtimeAPI function
// table (newOrdinaryObject/newBinaryObject/sendMessage/createBlock/
// invokeBlock/emitBlockReturn/checkRoot/bulkReplace), re-expressed here
// as Go closures over a *VM instead of LLVM external function
// declarations.
type RuntimeCallbacks struct {
	NewOrdinaryObject func(class ObjID, slotCount int) (ObjID, error)
	NewBinaryObject   func(class ObjID, byteCount int) (ObjID, error)
	SendMessage       func(selector ObjID, receiver Value, args []Value, sender *Context) (*Context, error)
	CreateBlock       func(tmpl *BlockTemplate, home *Context) Value
	InvokeBlock       func(block Value, args []Value, sender *Context) (Value, error)
	EmitBlockReturn   func(home *Context, value Value) error
	CheckRoot         func(holder ObjID, slot int, value Value)
	BulkReplace       func(dst Value, dstStart, dstStop int, src Value, srcStart int) bool
}

// NewRuntimeCallbacks binds the callback ABI to vm.
func NewRuntimeCallbacks(vm *VM) RuntimeCallbacks {
	return RuntimeCallbacks{
		NewOrdinaryObject: func(class ObjID, slotCount int) (ObjID, error) {
			return vm.Heap.AllocateSlots(class, slotCount, vm.Globals.Nil)
		},
		NewBinaryObject: vm.Heap.AllocateBytes,
		SendMessage: func(selector ObjID, receiver Value, args []Value, sender *Context) (*Context, error) {
			return vm.SendMessage(selector, receiver, args, sender)
		},
		CreateBlock:     vm.CreateBlock,
		InvokeBlock:     vm.RunBlockValue,
		EmitBlockReturn: vm.PerformNonLocalReturn,
		CheckRoot:       vm.Heap.CheckRoot,
		BulkReplace:     vm.Heap.BulkReplace,
	}
}

// ReferenceBackend satisfies CompilerBackend by doing no compilation at
// all: its NativeEntry just calls back into the bytecode interpreter.
// Every method runs correctly under it; it exists so the rest of the
// runtime — dispatch, caching, block creation — never has to special-
// case "no compiler installed".
type ReferenceBackend struct {
	vm        *VM
	callbacks RuntimeCallbacks
}

// NewReferenceBackend returns a ReferenceBackend driving vm's own
// interpreter, bound to vm's runtime callback ABI per the
// CompilerBackend contract (§4.6: "handed [them] at construction").
func NewReferenceBackend(vm *VM) *ReferenceBackend {
	return &ReferenceBackend{vm: vm, callbacks: NewRuntimeCallbacks(vm)}
}

func (r *ReferenceBackend) Name() string { return "reference-interpreter" }

func (r *ReferenceBackend) Compile(method *CompiledMethod) (NativeEntry, error) {
	return func(ctx *Context) (Value, error) {
		return r.vm.Run(ctx)
	}, nil
}

// CompileBlock returns a NativeEntry that drives the interpreter over
// the block's own activation context — under ReferenceBackend, a
// block's "native" entry is the same interpreter loop a method's is.
func (r *ReferenceBackend) CompileBlock(tmpl *BlockTemplate) (NativeEntry, error) {
	return func(ctx *Context) (Value, error) {
		return r.vm.Run(ctx)
	}, nil
}
