package vm

import (
	"errors"
	"testing"
)

// buildBlock wires a minimal CompiledMethod/BlockTemplate pair so a
// block body of raw bytecode can be invoked without a full compiler.
func buildBlock(bytecode []byte, stackDepth int) *BlockTemplate {
	home := NewCompiledMethod(nil, 0, "Home>>test", 0, 0, stackDepth)
	home.Bytecode = bytecode
	return &BlockTemplate{Home: home, StartIP: 0, EndIP: len(bytecode)}
}

// TestBlockOrdinaryReturn checks a block whose body runs to a plain
// stackReturn behaves like any other activation: CreateBlock/InvokeBlock
// produce a context Run can execute straight through, no non-local
// unwind involved.
func TestBlockOrdinaryReturn(t *testing.T) {
	theVM := New(Config{})

	// pushConstant(idx=4 -> SmallInt(1)); stackReturn
	tmpl := buildBlock([]byte{0x54, 0xF2}, 2)

	home := NewMethodContext(NewCompiledMethod(nil, 0, "Home>>outer", 0, 0, 2), theVM.Globals.Nil, nil, nil, theVM.Globals.Nil)
	blockVal := theVM.CreateBlock(tmpl, home)
	blk := theVM.blockClosures[blockVal.ObjID()]

	blockCtx := theVM.InvokeBlock(blk, nil, home)
	result, err := theVM.Run(blockCtx)
	if err != nil {
		t.Fatalf("Run(block): %v", err)
	}
	if result.Int() != 1 {
		t.Errorf("block result = %v, want SmallInt(1)", result)
	}
}

// TestNonLocalReturnUnwindsToHomeSender is scenario S5: a block's ^
// return must skip straight past whoever is running the block (here,
// the manual wrapper standing in for a #value send) and resolve as the
// home method context's own result.
func TestNonLocalReturnUnwindsToHomeSender(t *testing.T) {
	theVM := New(Config{})

	// pushConstant(idx=10 -> SmallInt(7)); blockReturn
	tmpl := buildBlock([]byte{0x5A, 0xF3}, 2)

	home := NewMethodContext(NewCompiledMethod(nil, 0, "Home>>outer", 0, 0, 2), theVM.Globals.Nil, nil, nil, theVM.Globals.Nil)
	blockVal := theVM.CreateBlock(tmpl, home)
	blk := theVM.blockClosures[blockVal.ObjID()]
	blockCtx := theVM.InvokeBlock(blk, nil, home)

	value, returned, err := runWithNonLocalReturn(home, func() (Value, bool, error) {
		v, rerr := theVM.Run(blockCtx)
		return v, true, rerr
	})
	if err != nil {
		t.Fatalf("runWithNonLocalReturn: %v", err)
	}
	if !returned {
		t.Fatal("expected the non-local return to be caught at the home sender")
	}
	if value.Int() != 7 {
		t.Errorf("unwound value = %v, want SmallInt(7)", value)
	}
}

// TestNonLocalReturnEscapedWhenHomeDead checks §4.5.3's guard: a ^ from
// a block whose home method already returned must fail cleanly instead
// of unwinding to a context that no longer exists on any call stack.
func TestNonLocalReturnEscapedWhenHomeDead(t *testing.T) {
	theVM := New(Config{})
	home := NewMethodContext(NewCompiledMethod(nil, 0, "Home>>outer", 0, 0, 2), theVM.Globals.Nil, nil, nil, theVM.Globals.Nil)
	home.Dead = true

	err := theVM.PerformNonLocalReturn(home, SmallInt(1))
	if !errors.Is(err, ErrNonLocalReturnEscaped) {
		t.Fatalf("PerformNonLocalReturn error = %v, want ErrNonLocalReturnEscaped", err)
	}
}
