package vm

// handleNode is one node of the intrusive doubly-linked list of
// external pointers (§4.1.5): every value a Go caller holds across a
// potential allocation must be registered here so a collection can find
// and rewrite it, exactly as the source's hptr<> threads itself onto
// m_externalPointersHead/Prev/Next at construction and unlinks itself at
// destruction.
type handleNode struct {
	value      *Value
	prev, next *handleNode
}

// Handle is an external root: a Value the Go side holds onto across
// calls that may allocate or trigger a collection. Get/Set always see
// the current, possibly-relocated reference; never copy the Value out
// of a Handle and keep using the copy across an allocation.
type Handle struct {
	node *handleNode
}

// NewHandle registers v as a root and returns a Handle for it. The
// handle must be released with Release once it is no longer needed, or
// it leaks a GC root for the lifetime of the Heap.
func (h *Heap) NewHandle(v Value) *Handle {
	n := &handleNode{value: &v}
	n.next = h.externals
	if h.externals != nil {
		h.externals.prev = n
	}
	h.externals = n
	return &Handle{node: n}
}

// Get returns the handle's current value.
func (hd *Handle) Get() Value { return *hd.node.value }

// Set updates the handle's current value.
func (hd *Handle) Set(v Value) { *hd.node.value = v }

// Release unregisters the handle. After Release, Get/Set must not be
// called.
func (h *Heap) Release(hd *Handle) {
	n := hd.node
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		h.externals = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
}
