package vm

import "testing"

// TestHandleSurvivesCollection is scenario S1: a Go-side handle must
// keep resolving to the same logical object across a copying
// collection, even though the object's ObjID changes underneath it.
func TestHandleSurvivesCollection(t *testing.T) {
	h := NewHeap(HeapConfig{Kind: BakerTwoSpace, InitialObjects: 2})

	id, err := h.AllocateSlots(0, 1, Value{})
	if err != nil {
		t.Fatalf("AllocateSlots: %v", err)
	}
	h.FieldAtPut(id, 0, SmallInt(42))

	handle := h.NewHandle(ObjectRef(id))
	defer h.Release(handle)

	// Force several collections by allocating past the tiny initial
	// capacity; nothing else keeps the filler objects alive, so each
	// round of copying should reclaim them, but handle must keep
	// tracking the original object.
	for i := 0; i < 20; i++ {
		if _, err := h.AllocateSlots(0, 1, Value{}); err != nil {
			t.Fatalf("filler allocation %d: %v", i, err)
		}
	}

	cur := handle.Get()
	if !cur.IsObject() {
		t.Fatalf("handle no longer references an object: %v", cur)
	}
	if got := h.FieldAt(cur.ObjID(), 0); got.Int() != 42 {
		t.Errorf("field after collection = %v, want SmallInt(42)", got)
	}
}

// TestWriteBarrierKeepsStaticRootsAlive is scenario S2: a static object
// pointing at a movable one must keep that reference correct across a
// collection, since the static heap itself is never walked as a root
// set member — only the remembered staticRoots entries are.
func TestWriteBarrierKeepsStaticRootsAlive(t *testing.T) {
	h := NewHeap(HeapConfig{Kind: BakerTwoSpace, InitialObjects: 2})

	target, err := h.AllocateSlots(0, 1, Value{})
	if err != nil {
		t.Fatalf("AllocateSlots: %v", err)
	}
	h.FieldAtPut(target, 0, SmallInt(7))

	holder := h.StaticAllocate(0, 1, Value{})
	h.FieldAtPut(holder, 0, ObjectRef(target))

	for i := 0; i < 20; i++ {
		if _, err := h.AllocateSlots(0, 1, Value{}); err != nil {
			t.Fatalf("filler allocation %d: %v", i, err)
		}
	}

	ref := h.FieldAt(holder, 0)
	if !ref.IsObject() {
		t.Fatalf("static slot lost its reference: %v", ref)
	}
	if got := h.FieldAt(ref.ObjID(), 0); got.Int() != 7 {
		t.Errorf("field through static root after collection = %v, want SmallInt(7)", got)
	}
}

// TestWriteBarrierForgetsOverwrittenRoot checks that overwriting a
// static->movable slot with a non-reference value removes the stale
// remembered-set entry rather than leaking it forever.
func TestWriteBarrierForgetsOverwrittenRoot(t *testing.T) {
	h := NewHeap(HeapConfig{Kind: BakerTwoSpace, InitialObjects: 4})

	target, _ := h.AllocateSlots(0, 1, Value{})
	holder := h.StaticAllocate(0, 1, Value{})
	h.FieldAtPut(holder, 0, ObjectRef(target))
	if _, ok := h.staticRoots[staticRootKey{obj: holder.index(), slot: 0}]; !ok {
		t.Fatal("expected a remembered static root after storing a movable reference")
	}

	h.FieldAtPut(holder, 0, SmallInt(1))
	if _, ok := h.staticRoots[staticRootKey{obj: holder.index(), slot: 0}]; ok {
		t.Error("remembered static root should be cleared once overwritten with a non-reference")
	}
}

func TestNonCollectingNeverMoves(t *testing.T) {
	h := NewHeap(HeapConfig{Kind: NonCollecting, InitialObjects: 1, MaxObjects: 64})
	id, err := h.AllocateSlots(0, 1, Value{})
	if err != nil {
		t.Fatalf("AllocateSlots: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := h.AllocateSlots(0, 1, Value{}); err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
	}
	if got := h.SizeInSlots(id); got != 1 {
		t.Errorf("SizeInSlots after growth = %d, want 1", got)
	}
}
