package vm

// Generational mode (§4.1.3) splits the movable heap into a young
// generation (the allocation space) and a tenured generation, and
// collects the young generation far more often than the whole heap.
//
// Simplification versus the source's age-counted promotion: every
// object that survives a minor collection here is promoted straight to
// tenured rather than bounced between young semispaces for a few
// cycles first. This keeps the young generation genuinely short-lived
// (matching the generational hypothesis the design is built on) without
// needing an extra per-object age field, at the cost of promoting a
// few objects earlier than a production collector would.

// minorCollect copies every young object reachable from the
// tenured->young remembered set, the static roots, and external handles
// into the tenured generation, then discards the now-empty young space.
func (h *Heap) minorCollect() {
	firstNew := len(h.tenured)
	forward := func(id ObjID) ObjID {
		if id.IsStatic() || id.IsTenured() {
			return id
		}
		obj := &h.active[id.index()]
		if obj.header.relocated {
			return tenuredID(int(obj.header.class))
		}
		newIdx := len(h.tenured)
		h.tenured = append(h.tenured, *obj)
		obj.header.relocated = true
		obj.header.class = ObjID(newIdx)
		return tenuredID(newIdx)
	}
	forwardValue := func(v Value) Value {
		if !v.IsHeapRef() || v.ObjID().IsStatic() || v.ObjID().IsTenured() {
			return v
		}
		return rewrapValue(v, forward(v.ObjID()))
	}

	for key := range h.staticRoots {
		obj := &h.static[key.obj]
		obj.slots[key.slot] = forwardValue(obj.slots[key.slot])
	}
	for key := range h.crossGen {
		obj := &h.tenured[key.obj]
		obj.slots[key.slot] = forwardValue(obj.slots[key.slot])
	}
	for node := h.externals; node != nil; node = node.next {
		*node.value = forwardValue(*node.value)
	}

	// Scan newly-tenured objects for further young references. Indexed
	// rather than pointer-walked because h.tenured keeps growing under
	// us as promotion discovers more reachable objects.
	for scan := firstNew; scan < len(h.tenured); scan++ {
		obj := h.tenured[scan]
		if !obj.header.class.IsStatic() {
			obj.header.class = forward(obj.header.class)
		}
		if !obj.header.binary {
			for i, s := range obj.slots {
				obj.slots[i] = forwardValue(s)
			}
		}
		h.tenured[scan] = obj
	}

	h.crossGen = make(map[crossGenKey]struct{})
	h.active = h.active[:0]
}

// majorCollect reclaims the whole movable heap: every object reachable
// from static roots and external handles, young or tenured, is copied
// into a fresh tenured generation; everything else — in either
// generation — is garbage.
func (h *Heap) majorCollect() {
	newTenured := make([]arenaObject, 0, len(h.tenured)+len(h.active))

	forward := func(id ObjID) ObjID {
		if id.IsStatic() {
			return id
		}
		var obj *arenaObject
		if id.IsTenured() {
			obj = &h.tenured[id.index()]
		} else {
			obj = &h.active[id.index()]
		}
		if obj.header.relocated {
			return tenuredID(int(obj.header.class))
		}
		newIdx := len(newTenured)
		newTenured = append(newTenured, *obj)
		obj.header.relocated = true
		obj.header.class = ObjID(newIdx)
		return tenuredID(newIdx)
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

	for scan := 0; scan < len(newTenured); scan++ {
		obj := newTenured[scan]
		if !obj.header.class.IsStatic() {
			obj.header.class = forward(obj.header.class)
		}
		if !obj.header.binary {
			for i, s := range obj.slots {
				obj.slots[i] = forwardValue(s)
			}
		}
		newTenured[scan] = obj
	}

	h.tenured = newTenured
	h.active = h.active[:0]
	h.crossGen = make(map[crossGenKey]struct{})
}
