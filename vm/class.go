package vm

// Class is the runtime representation of a Smalltalk class: a name, a
// superclass link for lookup chaining, and a method dictionary.
//
// The source keeps the method dictionary as an in-image hashed object
// walked by lookupMethod. Here it is a plain Go map keyed by selector
// ObjID, the same simplification the teacher repo's SymbolDispatch
// registry makes for its own class/selector lookups: a Go map gives the
// identical "selector identity -> entry" semantics without hand-rolling
// an open-addressed dictionary object on the heap.
type Class struct {
	ID         ObjID
	Name       string
	Superclass *Class // nil for the class whose instances are the root (Object's superclass)
	Methods    map[ObjID]*CompiledMethod

	InstanceVarNames []string
	IsMetaclass      bool
}

// NewClass creates a class with an empty method dictionary.
func NewClass(id ObjID, name string, superclass *Class) *Class {
	return &Class{
		ID:         id,
		Name:       name,
		Superclass: superclass,
		Methods:    make(map[ObjID]*CompiledMethod),
	}
}

// LookupMethod walks the superclass chain for selector, per §4.4.1.
// Returns nil if no class in the chain defines it.
func (c *Class) LookupMethod(selector ObjID) *CompiledMethod {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m, ok := cls.Methods[selector]; ok {
			return m
		}
	}
	return nil
}

// AddMethod installs m under selector, replacing any prior definition.
// AddMethod does not touch any VM's method cache: an entry cached for
// (class, selector) keeps resolving to the old method. Callers that hold
// a VM should go through VM.DefineMethod instead, which also flushes the
// whole method cache.
func (c *Class) AddMethod(selector ObjID, m *CompiledMethod) {
	c.Methods[selector] = m
}
