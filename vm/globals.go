package vm

// Globals is the record of well-known objects every interpreter
// operation needs to reach without a name lookup: the three booleans,
// the core classes primitive dispatch switches on, the root globals
// dictionary, and the handful of pre-interned selectors the fast paths
// check by identity instead of by string compare (§3).
//
// The source threads an equivalent TGlobals struct through the VM by a
// raw pointer baked into the image; here it is an explicit value handed
// to every operation that needs it; nothing reaches it through package
// state.
type Globals struct {
	Nil   Value
	True  Value
	False Value

	SmallIntegerClass ObjID
	ArrayClass        ObjID
	BlockClass        ObjID
	ContextClass      ObjID
	StringClass       ObjID
	SymbolClass       ObjID
	IntegerClass      ObjID

	GlobalsObject ObjID // the object holding the Smalltalk-level globals dictionary
	InitialMethod ObjID // method driving the image's top-level doit

	// BinarySelectors holds the three selectors primitive dispatch
	// special-cases in the fast path (<, <=, +), mirroring the source's
	// binaryMessages[3] array.
	BinarySelectors [3]ObjID

	BadMethodSymbol ObjID // #doesNotUnderstand:
}

// NewGlobals allocates the nil/true/false singletons and the class
// shell objects on the static heap and returns the assembled record.
// Class bodies (method dictionaries, superclass links) are filled in
// separately by the image loader or by a bootstrap that builds them
// by hand for tests.
func NewGlobals(h *Heap, metaclass ObjID) *Globals {
	g := &Globals{}

	// The three singletons have no slots of their own; class is filled
	// in once the classes themselves exist.
	nilID := h.StaticAllocate(0, 0, Value{})
	trueID := h.StaticAllocate(0, 0, Value{})
	falseID := h.StaticAllocate(0, 0, Value{})

	g.Nil = ObjectRef(nilID)
	g.True = ObjectRef(trueID)
	g.False = ObjectRef(falseID)

	g.SmallIntegerClass = h.StaticAllocate(metaclass, classSlotCount, g.Nil)
	g.ArrayClass = h.StaticAllocate(metaclass, classSlotCount, g.Nil)
	g.BlockClass = h.StaticAllocate(metaclass, classSlotCount, g.Nil)
	g.ContextClass = h.StaticAllocate(metaclass, classSlotCount, g.Nil)
	g.StringClass = h.StaticAllocate(metaclass, classSlotCount, g.Nil)
	g.SymbolClass = h.StaticAllocate(metaclass, classSlotCount, g.Nil)
	g.IntegerClass = h.StaticAllocate(metaclass, classSlotCount, g.Nil)

	// Fix up the singletons' class pointers now that the classes exist.
	h.deref(nilID).header.class = g.undefinedObjectClassPlaceholder()
	h.deref(trueID).header.class = g.BlockClass // replaced by bootstrap/image with True/False classes
	h.deref(falseID).header.class = g.BlockClass

	g.GlobalsObject = h.StaticAllocate(0, 0, g.Nil)
	g.InitialMethod = 0

	return g
}

// undefinedObjectClassPlaceholder exists because UndefinedObject is not
// one of the classes this minimal Globals preallocates; the bootstrap
// image (or a full image load) overwrites it with the real class once
// loaded. Kept as a named method rather than a bare zero so the "this
// is temporary" intent is visible at the call site.
func (g *Globals) undefinedObjectClassPlaceholder() ObjID { return 0 }

// classSlotCount is the number of reference slots a class shell carries
// before method dictionary/superclass wiring: name, superclass, method
// dictionary, instance variable names, instance spec. See class.go.
const classSlotCount = 5
