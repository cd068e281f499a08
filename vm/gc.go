package vm

// rewrapValue re-tags a forwarded ObjID with the same Value kind (object
// or binary) the original reference carried.
func rewrapValue(v Value, id ObjID) Value {
	if v.IsBinary() {
		return BinaryRef(id)
	}
	return ObjectRef(id)
}

// collect runs one collection, choosing the strategy that matches the
// heap's ManagerKind. forceMajor is honored only in Generational mode.
// Every collection appends one GCEvent to the event log and folds its
// allocs-since-prior count into TotalCollectionDelay (§6, §4.7).
func (h *Heap) collect(forceMajor bool) {
	delay := h.stats.AllocationsCount
	var name string
	var before, after uint32

	switch h.kind {
	case NonCollecting:
		return
	case Generational:
		if forceMajor || len(h.tenured) > h.tenuredThreshold || h.minorsSinceMajor >= h.rightCollectionDelay {
			before = uint32(len(h.active) + len(h.tenured))
			h.majorCollect()
			after = uint32(len(h.tenured))
			name = "major"
			h.stats.MajorCollections++
			h.minorsSinceMajor = 0
		} else {
			before = uint32(len(h.active))
			h.minorCollect()
			after = uint32(len(h.tenured))
			name = "minor"
			h.stats.MinorCollections++
			h.minorsSinceMajor++
		}
	default:
		before = uint32(len(h.active))
		h.bakerCollect()
		after = uint32(len(h.active))
		name = "baker"
	}

	h.stats.CollectionsCount++
	h.stats.TotalCollectionDelay += uint64(delay)
	h.stats.AllocationsCount = 0
	h.events = append(h.events, GCEvent{Name: name, Before: before, After: after, Total: uint32(h.maxObjects)})
	if h.logger != nil {
		h.logger.Printf("vm: gc complete (kind=%d collections=%d)", h.kind, h.stats.CollectionsCount)
	}
}

// bakerCollect is the plain two-space copying collection (§4.1.2): every
// object reachable from a root is copied into a fresh to-space in
// breadth-first (Cheney) order, with a forwarding address left behind in
// the from-space copy's header so repeat references to an
// already-moved object resolve without re-copying it.
func (h *Heap) bakerCollect() {
	toSpace := make([]arenaObject, 0, cap(h.inactive))

	forward := func(id ObjID) ObjID {
		if id.IsStatic() {
			return id
		}
		obj := &h.active[id.index()]
		if obj.header.relocated {
			return youngID(int(obj.header.class))
		}
		newIdx := len(toSpace)
		toSpace = append(toSpace, *obj)
		obj.header.relocated = true
		obj.header.class = ObjID(newIdx)
		return youngID(newIdx)
	}
	forwardValue := func(v Value) Value {
		if !v.IsHeapRef() || v.ObjID().IsStatic() {
			return v
		}
		return rewrapValue(v, forward(v.ObjID()))
	}

	for key := range h.staticRoots {
		obj := &h.static[key.obj]
		obj.slots[key.slot] = forwardValue(obj.slots[key.slot])
	}
	for node := h.externals; node != nil; node = node.next {
		*node.value = forwardValue(*node.value)
	}

	for scan := 0; scan < len(toSpace); scan++ {
		obj := toSpace[scan]
		if !obj.header.class.IsStatic() {
			obj.header.class = forward(obj.header.class)
		}
		if !obj.header.binary {
			for i, s := range obj.slots {
				obj.slots[i] = forwardValue(s)
			}
		}
		toSpace[scan] = obj
	}

	h.inactive = h.active[:0]
	h.active = toSpace
}
