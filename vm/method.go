package vm

// CompiledMethod is the unit of compilation (§4.7: "compile once per
// method"): once built, its bytecode and literal table never change in
// place — a redefinition installs a brand new *CompiledMethod under the
// selector rather than mutating this one, so any inline cache entry
// keyed by method identity is automatically invalidated just by going
// stale (§4.4.2).
type CompiledMethod struct {
	Class      *Class
	Selector   ObjID
	Name       string // "Class>>selector", for diagnostics only
	Bytecode   []byte
	Literals   []Value
	ArgCount   int
	TempCount  int
	StackDepth int // upper bound on operand stack depth; sized by the compiler contract (§4.7)

	Blocks []*BlockTemplate // block literals defined within this method, indexed by literal slot

	id uint32 // stable identity for cache hashing (§4.4.2); never reused
}

// nextMethodID hands out the stable identity CompiledMethod.id carries.
// The mutator is single-threaded (§5), so a plain counter is enough.
var nextMethodID uint32

// NewCompiledMethod builds a method shell; Bytecode/Literals/Blocks are
// filled in by the compiler backend (compiler.go) or the image reader.
func NewCompiledMethod(class *Class, selector ObjID, name string, argCount, tempCount, stackDepth int) *CompiledMethod {
	nextMethodID++
	return &CompiledMethod{
		Class:      class,
		Selector:   selector,
		Name:       name,
		ArgCount:   argCount,
		TempCount:  tempCount,
		StackDepth: stackDepth,
		id:         nextMethodID,
	}
}
