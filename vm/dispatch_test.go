package vm

import (
	"errors"
	"testing"
)

func TestMethodCachePopulatesOnLookup(t *testing.T) {
	theVM := New(Config{})
	class := theVM.classes[theVM.Globals.SmallIntegerClass]
	selector := ObjID(500)
	m := NewCompiledMethod(class, selector, "SmallInteger>>foo", 0, 0, 4)
	class.AddMethod(selector, m)

	if got := theVM.LookupMethod(class, selector); got != m {
		t.Fatalf("LookupMethod = %v, want %v", got, m)
	}
	if cached := theVM.cache.Lookup(class, selector); cached != m {
		t.Errorf("expected the cache to be populated after a miss-then-resolve, got %v", cached)
	}
}

// TestDefineMethodFlushesCache covers §4.4.2's flush-on-redefine
// contract: a redefinition must not leave a stale cache entry resolving
// sends to the replaced method. Scenario S3's hit/miss-count assertion
// lives in cache_test.go.
func TestDefineMethodFlushesCache(t *testing.T) {
	theVM := New(Config{})
	class := theVM.classes[theVM.Globals.SmallIntegerClass]
	selector := ObjID(501)

	original := NewCompiledMethod(class, selector, "old", 0, 0, 4)
	class.AddMethod(selector, original)
	if got := theVM.LookupMethod(class, selector); got != original {
		t.Fatalf("LookupMethod before redefinition = %v, want %v", got, original)
	}

	replacement := NewCompiledMethod(class, selector, "new", 0, 0, 4)
	theVM.DefineMethod(class, selector, replacement)

	if got := theVM.LookupMethod(class, selector); got != replacement {
		t.Errorf("LookupMethod after redefinition = %v, want %v (cache not flushed)", got, replacement)
	}
}

func TestLookupMethodWalksSuperclassChain(t *testing.T) {
	theVM := New(Config{})
	base := theVM.classes[theVM.Globals.IntegerClass]
	derived := NewClass(theVM.Globals.SmallIntegerClass, "SmallInteger", base)
	theVM.classes[theVM.Globals.SmallIntegerClass] = derived

	selector := ObjID(502)
	onBase := NewCompiledMethod(base, selector, "Integer>>bar", 0, 0, 4)
	base.AddMethod(selector, onBase)

	if got := theVM.LookupMethod(derived, selector); got != onBase {
		t.Errorf("LookupMethod on derived class = %v, want inherited %v", got, onBase)
	}
}

// TestSendMessageDoesNotUnderstand is scenario S4: no method and no
// installed doesNotUnderstand: handler should fail the send outright.
func TestSendMessageDoesNotUnderstand(t *testing.T) {
	theVM := New(Config{})
	_, err := theVM.SendMessage(ObjID(999), SmallInt(1), nil, nil)
	if !errors.Is(err, ErrDoesNotUnderstand) {
		t.Fatalf("SendMessage error = %v, want ErrDoesNotUnderstand", err)
	}
}

// TestSendMessageFallsBackToDoesNotUnderstand is scenario S4's other
// half: when a doesNotUnderstand: handler is installed, an unresolved
// send activates it with the original selector and boxed arguments
// rather than failing.
func TestSendMessageFallsBackToDoesNotUnderstand(t *testing.T) {
	theVM := New(Config{})
	class := theVM.classes[theVM.Globals.SmallIntegerClass]
	dnu := NewCompiledMethod(class, theVM.Globals.BadMethodSymbol, "SmallInteger>>doesNotUnderstand:", 2, 0, 4)
	class.AddMethod(theVM.Globals.BadMethodSymbol, dnu)

	selector := ObjID(888)
	ctx, err := theVM.SendMessage(selector, SmallInt(1), []Value{SmallInt(9)}, nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if ctx.Method != dnu {
		t.Fatalf("expected the doesNotUnderstand: handler activation, got %v", ctx.Method)
	}
	if len(ctx.Args) != 2 {
		t.Fatalf("len(Args) = %d, want 2 (selector marker, boxed args array)", len(ctx.Args))
	}
	if !ctx.Args[0].IsObject() || ctx.Args[0].ObjID() != selector {
		t.Errorf("Args[0] = %v, want a selector marker for %v", ctx.Args[0], selector)
	}
	if !ctx.Args[1].IsObject() {
		t.Errorf("Args[1] = %v, want a boxed args array", ctx.Args[1])
	}
	if n := theVM.Heap.SizeInSlots(ctx.Args[1].ObjID()); n != 1 {
		t.Errorf("boxed args array has %d slots, want 1", n)
	}
}
