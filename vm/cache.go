package vm

// methodCacheSize and blockCacheSize must be powers of two; lookups mask
// instead of mod (§4.4.2).
const (
	methodCacheSize = 256
	blockCacheSize  = 256
)

// methodCacheEntry is one slot of the inline method cache: a
// (class, selector) probe key and the method that lookup resolved to
// last time that key was seen. A hit requires both class and selector to
// match the slot; the entry is not keyed by method identity, so after a
// redefinition the slot keeps resolving to the old *CompiledMethod until
// Flush clears it (VM.DefineMethod does).
type methodCacheEntry struct {
	class    *Class
	selector ObjID
	method   *CompiledMethod
}

// MethodCache is a fixed-size direct-mapped inline cache shared by every
// send site, the general form of the source's per-call-site inline
// cache collapsed into one structure. It maps (class, selector) to the
// *CompiledMethod lookup resolved; it caches lookup results only, not
// native entries.
type MethodCache struct {
	entries [methodCacheSize]methodCacheEntry
	Hits    uint64
	Misses  uint64
}

func cacheHash(class *Class, selector ObjID) uint32 {
	h := uint32(selector) * 2654435761
	h ^= uint32(uintptr(classPtrBits(class)))
	return h & (methodCacheSize - 1)
}

// classPtrBits extracts a hashable integer from a *Class without
// exposing pointer arithmetic elsewhere in the package.
func classPtrBits(c *Class) uintptr { return uintptr(c.ID) }

// Lookup returns the cached method for (class, selector), or nil on a
// miss (including a miss caused by a collision with a different key).
func (mc *MethodCache) Lookup(class *Class, selector ObjID) *CompiledMethod {
	e := &mc.entries[cacheHash(class, selector)]
	if e.class == class && e.selector == selector {
		mc.Hits++
		return e.method
	}
	mc.Misses++
	return nil
}

// Store installs (class, selector) -> method, overwriting whatever
// previously occupied that slot.
func (mc *MethodCache) Store(class *Class, selector ObjID, method *CompiledMethod) {
	e := &mc.entries[cacheHash(class, selector)]
	e.class, e.selector, e.method = class, selector, method
}

// Flush invalidates every entry. Called after a method redefinition
// since a stale entry could otherwise keep resolving to the replaced
// CompiledMethod. Hit/miss counters survive a flush: they describe
// cache traffic over the VM's lifetime, not the current entry set.
func (mc *MethodCache) Flush() {
	mc.entries = [methodCacheSize]methodCacheEntry{}
}

// blockCacheEntry is one slot of the block cache: a (method, block byte
// offset) probe key and the native entry point compiled for it last
// time that key was seen (§4.4.2, §4.7's "separate native entry
// discoverable by (method, block byte offset)").
type blockCacheEntry struct {
	method *CompiledMethod
	offset int
	native NativeEntry
}

// BlockCache is the block-literal counterpart of MethodCache: a
// fixed-size direct-mapped array probed by hash(method) xor offset,
// grounded on the same teacher map-keyed-registry shape MethodCache
// generalizes from.
type BlockCache struct {
	entries [blockCacheSize]blockCacheEntry
	Hits    uint64
	Misses  uint64
}

func blockCacheHash(method *CompiledMethod, offset int) uint32 {
	h := method.id ^ uint32(offset)
	return h & (blockCacheSize - 1)
}

// Lookup returns the cached native entry for (method, byteOffset), or
// nil on a miss.
func (bc *BlockCache) Lookup(method *CompiledMethod, byteOffset int) NativeEntry {
	e := &bc.entries[blockCacheHash(method, byteOffset)]
	if e.method == method && e.offset == byteOffset {
		bc.Hits++
		return e.native
	}
	bc.Misses++
	return nil
}

// Store installs (method, byteOffset) -> native, overwriting whatever
// previously occupied that slot.
func (bc *BlockCache) Store(method *CompiledMethod, byteOffset int, native NativeEntry) {
	e := &bc.entries[blockCacheHash(method, byteOffset)]
	e.method, e.offset, e.native = method, byteOffset, native
}

// Flush invalidates every entry.
func (bc *BlockCache) Flush() {
	bc.entries = [blockCacheSize]blockCacheEntry{}
}
