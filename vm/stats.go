package vm

// MemoryManagerInfo is a point-in-time snapshot of heap and cache
// health, the analogue of the source's TMemoryManagerInfo used to
// answer Smalltalk-level "how much memory is left" queries and to
// satisfy §6's statistics-exposure contract.
type MemoryManagerInfo struct {
	CollectionsCount     uint32
	AllocationsCount     uint32
	TotalCollectionDelay uint64 // sum of AllocationsCount observed at each collection
	MinorCollections     uint32 // generational mode only: young-space-only collections
	MajorCollections     uint32 // generational mode only: whole-heap collections
	HeapSize             int
	UsedInActive         int
	StaticHeapSize       int
	Events               []GCEvent

	DispatchCacheHits   uint64
	DispatchCacheMisses uint64
	BlockCacheHits      uint64
	BlockCacheMisses    uint64
}

// Info returns a fresh MemoryManagerInfo snapshot of heap statistics.
// VM.Info folds in the cache counters, which the heap does not own.
func (h *Heap) Info() MemoryManagerInfo {
	info := h.stats
	info.HeapSize = h.maxObjects
	info.UsedInActive = len(h.active)
	info.StaticHeapSize = len(h.static)
	info.Events = h.events
	return info
}

// GCEvent records one collection for the event log (§6, §4.7,
// grounded on the source's TMemoryManagerHeapInfo
// before/after/total-size triple rather than its timestamped
// TMemoryManagerEvent, since wall-clock timing is out of scope here —
// Name instead records which collection strategy ran).
type GCEvent struct {
	Name   string // "baker", "minor", or "major"
	Before uint32 // objects live in the collected space before this collection
	After  uint32 // objects live after
	Total  uint32 // space capacity at the time of this collection
}
