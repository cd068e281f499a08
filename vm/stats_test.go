package vm

import "testing"

// TestBakerCollectAppendsEvent covers the GC event log for the plain
// copying collector (§6, §4.7): forcing a collection by exhausting the
// active space must append one GCEvent per collection, named "baker"
// and carrying the space capacity as Total.
func TestBakerCollectAppendsEvent(t *testing.T) {
	h := NewHeap(HeapConfig{Kind: BakerTwoSpace, InitialObjects: 2})

	for i := 0; i < 3; i++ {
		if _, err := h.AllocateSlots(0, 1, Value{}); err != nil {
			t.Fatalf("AllocateSlots %d: %v", i, err)
		}
	}

	info := h.Info()
	if info.CollectionsCount == 0 {
		t.Fatal("expected at least one collection")
	}
	if len(info.Events) != int(info.CollectionsCount) {
		t.Fatalf("len(Events) = %d, want %d (one per collection)", len(info.Events), info.CollectionsCount)
	}
	ev := info.Events[0]
	if ev.Name != "baker" {
		t.Errorf("Events[0].Name = %q, want \"baker\"", ev.Name)
	}
	if ev.Total != uint32(h.maxObjects) {
		t.Errorf("Events[0].Total = %d, want %d", ev.Total, h.maxObjects)
	}
}

// TestGenerationalCollectRecordsMinorAndMajor drives the generational
// heap through both a minor and a forced major collection and checks
// that each is counted and logged under the right event name.
func TestGenerationalCollectRecordsMinorAndMajor(t *testing.T) {
	h := NewHeap(HeapConfig{
		Kind:                 Generational,
		InitialObjects:       2,
		RightCollectionDelay: 1,
		TenuredThreshold:     1000,
	})

	for i := 0; i < 3; i++ {
		if _, err := h.AllocateSlots(0, 1, Value{}); err != nil {
			t.Fatalf("AllocateSlots %d: %v", i, err)
		}
	}
	info := h.Info()
	if info.MinorCollections == 0 {
		t.Fatalf("expected at least one minor collection, got info=%+v", info)
	}
	sawMinor := false
	for _, ev := range info.Events {
		if ev.Name == "minor" {
			sawMinor = true
		}
	}
	if !sawMinor {
		t.Errorf("Events = %+v, want at least one \"minor\" entry", info.Events)
	}

	h.collect(true)
	info = h.Info()
	if info.MajorCollections != 1 {
		t.Errorf("MajorCollections = %d, want 1", info.MajorCollections)
	}
	if info.Events[len(info.Events)-1].Name != "major" {
		t.Errorf("last event = %+v, want Name \"major\"", info.Events[len(info.Events)-1])
	}
}

// TestTotalCollectionDelayAccumulates checks that each collection folds
// the allocations observed since the prior one into
// TotalCollectionDelay, rather than overwriting it.
func TestTotalCollectionDelayAccumulates(t *testing.T) {
	h := NewHeap(HeapConfig{Kind: BakerTwoSpace, InitialObjects: 2})

	h.AllocateSlots(0, 1, Value{})
	h.AllocateSlots(0, 1, Value{})
	h.collect(false)
	firstDelay := h.Info().TotalCollectionDelay

	h.AllocateSlots(0, 1, Value{})
	h.collect(false)
	secondInfo := h.Info()

	if secondInfo.TotalCollectionDelay <= firstDelay {
		t.Errorf("TotalCollectionDelay = %d after second collection, want > %d", secondInfo.TotalCollectionDelay, firstDelay)
	}
	if secondInfo.CollectionsCount != 2 {
		t.Errorf("CollectionsCount = %d, want 2", secondInfo.CollectionsCount)
	}
}
