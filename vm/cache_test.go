package vm

import "testing"

// TestDispatchCacheHitMissCounts is scenario S3: sending a selector to
// the same receiver class 1,000 times must record exactly one cache
// miss (the first lookup) and 999 hits, and the primitive the method
// dispatches to must compute the real numeric result.
//
// The "+" method's bytecode pushes its two SmallInt operands as
// literals rather than reading the true receiver/argument: this module
// has no pushReceiver opcode wiring a primitive's operands from
// ctx.Receiver/ctx.Args onto the operand stack yet, so this exercises
// doPrimitive's real addition without depending on that gap.
func TestDispatchCacheHitMissCounts(t *testing.T) {
	theVM := New(Config{})
	class := theVM.classes[theVM.Globals.SmallIntegerClass]
	selector := ObjID(600)

	// pushConstant(SmallInt(1)), pushConstant(SmallInt(1)),
	// doPrimitive(primSmallIntAdd), stackReturn.
	plus := NewCompiledMethod(class, selector, "SmallInteger>>+", 1, 0, 4)
	plus.Bytecode = []byte{0x54, 0x54, 0xD1, 0xF2}
	class.AddMethod(selector, plus)

	var result Value
	for i := 0; i < 1000; i++ {
		ctx, err := theVM.SendMessage(selector, SmallInt(1), []Value{SmallInt(1)}, nil)
		if err != nil {
			t.Fatalf("SendMessage iteration %d: %v", i, err)
		}
		result, err = theVM.Run(ctx)
		if err != nil {
			t.Fatalf("Run iteration %d: %v", i, err)
		}
	}

	if !result.IsSmallInt() || result.Int() != 2 {
		t.Errorf("result = %v, want SmallInt(2)", result)
	}
	if theVM.cache.Misses != 1 {
		t.Errorf("cache.Misses = %d, want 1", theVM.cache.Misses)
	}
	if theVM.cache.Hits != 999 {
		t.Errorf("cache.Hits = %d, want 999", theVM.cache.Hits)
	}
}

// TestBlockCacheCompilesOnceAndHitsAfter exercises the block cache's
// (method, block byte offset) keying (§4.4.2, §4.7): the first
// invocation of a block literal is a compile-and-store miss, every
// subsequent invocation of the same literal is a hit.
func TestBlockCacheCompilesOnceAndHitsAfter(t *testing.T) {
	theVM := New(Config{})
	home := NewMethodContext(NewCompiledMethod(nil, 0, "Home>>run", 0, 0, 4), theVM.Globals.Nil, nil, nil, theVM.Globals.Nil)

	tmpl := &BlockTemplate{Home: home.Method, StartIP: 0, EndIP: 2, ArgCount: 0, TempCount: 0}
	home.Method.Bytecode = []byte{0x54, 0xF2} // pushConstant(SmallInt(1)), stackReturn

	blockVal := theVM.CreateBlock(tmpl, home)
	blk := theVM.blockClosures[blockVal.ObjID()]

	for i := 0; i < 3; i++ {
		v, err := theVM.RunBlock(blk, nil, home)
		if err != nil {
			t.Fatalf("RunBlock iteration %d: %v", i, err)
		}
		if !v.IsSmallInt() || v.Int() != 1 {
			t.Errorf("RunBlock iteration %d = %v, want SmallInt(1)", i, v)
		}
	}

	if theVM.blockCache.Misses != 1 {
		t.Errorf("blockCache.Misses = %d, want 1", theVM.blockCache.Misses)
	}
	if theVM.blockCache.Hits != 2 {
		t.Errorf("blockCache.Hits = %d, want 2", theVM.blockCache.Hits)
	}
}

// TestRunBlockValueResolvesBlockObject covers the invokeBlock runtime
// callback's Value-addressed form (§6).
func TestRunBlockValueResolvesBlockObject(t *testing.T) {
	theVM := New(Config{})
	home := NewMethodContext(NewCompiledMethod(nil, 0, "Home>>run", 0, 0, 4), theVM.Globals.Nil, nil, nil, theVM.Globals.Nil)
	home.Method.Bytecode = []byte{0x54, 0xF2}

	tmpl := &BlockTemplate{Home: home.Method, StartIP: 0, EndIP: 2}
	blockVal := theVM.CreateBlock(tmpl, home)

	v, err := theVM.RunBlockValue(blockVal, nil, home)
	if err != nil {
		t.Fatalf("RunBlockValue: %v", err)
	}
	if !v.IsSmallInt() || v.Int() != 1 {
		t.Errorf("RunBlockValue = %v, want SmallInt(1)", v)
	}

	if _, err := theVM.RunBlockValue(theVM.Globals.Nil, nil, home); err == nil {
		t.Error("RunBlockValue on a non-block Value: expected an error, got nil")
	}
	if _, err := theVM.RunBlockValue(SmallInt(1), nil, home); err == nil {
		t.Error("RunBlockValue on a SmallInt: expected an error, got nil")
	}
}
