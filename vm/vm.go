package vm

import (
	"fmt"
	"log"
	"os"
)

// VM is the top-level runtime: object memory, globals, class table,
// inline cache, and whichever compiler backend is installed. Every
// operation needing heap or global access takes it as an explicit
// receiver or argument rather than reaching for package-level state
// (Design Notes: "the globals record ... re-expressed as an explicit
// runtime handle threaded through all APIs").
type VM struct {
	Heap    *Heap
	Globals *Globals

	classes       map[ObjID]*Class
	cache         MethodCache
	blockCache    BlockCache
	blockClosures map[ObjID]*blockClosure

	compiler      CompilerBackend
	logger        *log.Logger
	initialMethod *CompiledMethod
}

// Config configures a new VM.
type Config struct {
	Heap   HeapConfig
	Logger *log.Logger
}

// New constructs a VM with a fresh heap and bootstraps the metaclass
// shell and Globals record. It installs ReferenceBackend as the
// default compiler; callers wanting native compilation call
// SetCompilerBackend afterward.
func New(cfg Config) *VM {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "llst: ", log.LstdFlags)
	}
	heap := NewHeap(heapConfigWithLogger(cfg.Heap, cfg.Logger))

	vm := &VM{
		Heap:          heap,
		classes:       make(map[ObjID]*Class),
		blockClosures: make(map[ObjID]*blockClosure),
		logger:        cfg.Logger,
	}

	metaclassID := heap.StaticAllocate(0, classSlotCount, Value{})
	vm.Globals = NewGlobals(heap, metaclassID)
	vm.registerBootstrapClasses(metaclassID)
	vm.compiler = NewReferenceBackend(vm)
	return vm
}

func heapConfigWithLogger(cfg HeapConfig, logger *log.Logger) HeapConfig {
	cfg.Logger = logger
	return cfg
}

// registerBootstrapClasses creates Class records for the handful of
// classes the Globals record names, so dispatch has something to look
// methods up on before an image is loaded.
func (vm *VM) registerBootstrapClasses(metaclassID ObjID) {
	meta := NewClass(metaclassID, "Metaclass", nil)
	vm.classes[metaclassID] = meta

	register := func(id ObjID, name string) *Class {
		c := NewClass(id, name, nil)
		vm.classes[id] = c
		return c
	}
	register(vm.Globals.SmallIntegerClass, "SmallInteger")
	register(vm.Globals.ArrayClass, "Array")
	register(vm.Globals.BlockClass, "Block")
	register(vm.Globals.ContextClass, "Context")
	register(vm.Globals.StringClass, "String")
	register(vm.Globals.SymbolClass, "Symbol")
	register(vm.Globals.IntegerClass, "Integer")
}

// SetCompilerBackend swaps the active compiler backend. Method cache
// entries remain valid: that cache stores *CompiledMethod, not native
// entries, so a backend swap only changes how the next send's lookup
// result gets executed. The block cache does store native entries, so it
// is flushed here and blocks are recompiled by the new backend.
func (vm *VM) SetCompilerBackend(backend CompilerBackend) {
	vm.compiler = backend
	vm.blockCache.Flush()
}

// CompilerName reports the active backend's name, for diagnostics.
func (vm *VM) CompilerName() string { return vm.compiler.Name() }

// Execute compiles (or, under ReferenceBackend, trivially wraps) method
// and runs it as a fresh top-level activation over receiver and args.
func (vm *VM) Execute(method *CompiledMethod, receiver Value, args []Value) (result Value, err error) {
	entry, cerr := vm.compiler.Compile(method)
	if cerr != nil {
		return Value{}, fmt.Errorf("compile %s: %w", method.Name, cerr)
	}
	defer func() {
		if r := recover(); r != nil {
			nlr, ok := r.(nonLocalReturn)
			if !ok {
				panic(r)
			}
			result, err = Value{}, fmt.Errorf("%w: home=%p", ErrNonLocalReturnEscaped, nlr.home)
		}
	}()
	ctx := NewMethodContext(method, receiver, args, nil, vm.Globals.Nil)
	return entry(ctx)
}

// fatalf reports an unrecoverable runtime error and terminates the
// process (§7: "the runtime never recovers from fatal errors; it emits
// a diagnostic on the error channel and terminates").
func (vm *VM) fatalf(format string, args ...interface{}) {
	vm.logger.Printf("fatal: "+format, args...)
	os.Exit(1)
}

// Info returns a snapshot of heap and cache statistics (§6), folding in
// the dispatch and block cache hit/miss counters the Heap itself
// doesn't own.
func (vm *VM) Info() MemoryManagerInfo {
	info := vm.Heap.Info()
	info.DispatchCacheHits = vm.cache.Hits
	info.DispatchCacheMisses = vm.cache.Misses
	info.BlockCacheHits = vm.blockCache.Hits
	info.BlockCacheMisses = vm.blockCache.Misses
	return info
}
