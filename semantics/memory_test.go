package semantics_test

import (
	"testing"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/semantics/concrete"
	"github.com/borzacchiello/gosem/semantics/symbolic"
	"github.com/borzacchiello/gosem/symexpr"
)

var noSegment semantics.RegisterDescriptor

func TestMemoryByteOrder(t *testing.T) {
	rd := testRegisters()

	t.Run("little-endian", func(t *testing.T) {
		ops := concrete.NewOperators(rd)
		ops.WriteMemory(noSegment, ops.Number(32, 0x1000), ops.Number(32, 0x11223344), ops.Boolean(true))

		mem := ops.CurrentState().Memory().(*semantics.MemoryCellMap)
		if mem.NCells() != 4 {
			t.Errorf("%d cells, expected 4", mem.NCells())
		}
		expectNumber(t, "word", ops.ReadMemory(noSegment, ops.Number(32, 0x1000), ops.Number(32, 0), ops.Boolean(true)), 0x11223344)
		expectNumber(t, "byte 0", ops.PeekMemory(noSegment, ops.Number(32, 0x1000), ops.Number(8, 0)), 0x44)
		expectNumber(t, "byte 1", ops.PeekMemory(noSegment, ops.Number(32, 0x1001), ops.Number(8, 0)), 0x33)
	})

	t.Run("big-endian", func(t *testing.T) {
		ops := concrete.NewOperators(rd)
		ops.CurrentState().Memory().SetByteOrder(semantics.BigEndian)
		ops.WriteMemory(noSegment, ops.Number(32, 0x2000), ops.Number(32, 0x11223344), ops.Boolean(true))

		expectNumber(t, "word", ops.ReadMemory(noSegment, ops.Number(32, 0x2000), ops.Number(32, 0), ops.Boolean(true)), 0x11223344)
		expectNumber(t, "byte 0", ops.PeekMemory(noSegment, ops.Number(32, 0x2000), ops.Number(8, 0)), 0x11)
		expectNumber(t, "byte 3", ops.PeekMemory(noSegment, ops.Number(32, 0x2003), ops.Number(8, 0)), 0x44)
	})
}

func TestMemoryPartialRead(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	ops.WriteMemory(noSegment, ops.Number(32, 0x3001), ops.Number(8, 0xaa), ops.Boolean(true))

	v := ops.ReadMemory(noSegment, ops.Number(32, 0x3000), ops.Number(16, 0x5566), ops.Boolean(true))
	expectNumber(t, "half word", v, 0xaa66)

	mem := ops.CurrentState().Memory()
	if !mem.IsStored(ops.Number(32, 0x3000), ops) {
		t.Error("reading should store the missing byte")
	}
}

func TestMemoryCondition(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	mem := ops.CurrentState().Memory().(*semantics.MemoryCellMap)

	ops.WriteMemory(noSegment, ops.Number(32, 0x10), ops.Number(8, 1), ops.Boolean(false))
	if mem.NCells() != 0 {
		t.Error("a false condition should not write")
	}
	v := ops.ReadMemory(noSegment, ops.Number(32, 0x10), ops.Number(8, 7), ops.Boolean(false))
	expectNumber(t, "read", v, 7)
	if mem.NCells() != 0 {
		t.Error("a false condition should not read")
	}
	expectPanic(t, "a wide condition", func() {
		ops.ReadMemory(noSegment, ops.Number(32, 0x10), ops.Number(8, 7), ops.Number(8, 1))
	})
}

func TestMemoryByteRestricted(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	state := ops.CurrentState()

	expectPanic(t, "storing a word in a byte restricted memory", func() {
		state.WriteMemory(ops.Number(32, 0), ops.Number(32, 0), ops, ops)
	})

	state.Memory().SetByteRestricted(false)
	ops.WriteMemory(noSegment, ops.Number(32, 0), ops.Number(32, 0xcafe), ops.Boolean(true))
	if n := state.Memory().(*semantics.MemoryCellMap).NCells(); n != 1 {
		t.Errorf("%d cells, expected 1", n)
	}
}

func TestMemoryInitialState(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	initial := concrete.NewState(rd)
	ops.SetInitialState(initial)

	initial.WriteMemory(ops.Number(32, 0x4000), ops.Number(8, 0x7f), ops, ops)
	expectNumber(t, "byte", ops.ReadMemory(noSegment, ops.Number(32, 0x4000), ops.Number(8, 0), ops.Boolean(true)), 0x7f)
	if !ops.CurrentState().Memory().IsStored(ops.Number(32, 0x4000), ops) {
		t.Error("the value read should be stored in the current state")
	}

	v := ops.ReadMemory(noSegment, ops.Number(32, 0x5000), ops.Number(8, 3), ops.Boolean(true))
	expectNumber(t, "new byte", v, 3)
	if !initial.Memory().IsStored(ops.Number(32, 0x5000), ops) {
		t.Error("the first value read should be stored in the initial state")
	}
}

func TestMemoryCellMapSymbolicAddress(t *testing.T) {
	rd := testRegisters()
	eb := symexpr.NewExprBuilder()
	sops := symbolic.NewOperators(eb, rd, nil)
	mem := semantics.NewMemoryCellMap(sops.Protoval(), sops.Protoval())

	addr := sops.Undefined(32)
	mem.WriteMemory(addr, sops.Number(8, 1), sops, sops)
	if mem.NCells() != 0 {
		t.Error("writes to non-concrete addresses are dropped")
	}
	dflt := sops.Number(8, 9)
	if v := mem.ReadMemory(addr, dflt, sops, sops); v != dflt {
		t.Errorf("read %s, expected the default", v)
	}
}

func TestMemoryCellList(t *testing.T) {
	rd := testRegisters()
	eb := symexpr.NewExprBuilder()
	ops := symbolic.NewOperators(eb, rd, nil)
	mem := ops.CurrentState().Memory().(*semantics.MemoryCellList)

	x := ops.Undefined(32)
	ops.WriteMemory(noSegment, x, ops.Number(8, 0x12), ops.Boolean(true))
	expectNumber(t, "[x]", ops.ReadMemory(noSegment, x, ops.Undefined(8), ops.Boolean(true)), 0x12)

	x1 := ops.Add(x, ops.Number(32, 1))
	if v := ops.ReadMemory(noSegment, x1, ops.Undefined(8), ops.Boolean(true)); v.IsNumber() || v.IsBottom() {
		t.Errorf("[x+1] cannot alias [x], got %s", v)
	}

	y := ops.Undefined(32)
	if v := ops.ReadMemory(noSegment, y, ops.Undefined(8), ops.Boolean(true)); !v.IsBottom() {
		t.Errorf("[y] may alias [x] and should merge to bottom, got %s", v)
	}

	ops.WriteMemory(noSegment, x, ops.Number(8, 0x34), ops.Boolean(true))
	expectNumber(t, "[x] after overwrite", ops.PeekMemory(noSegment, x, ops.Undefined(8)), 0x34)
	if mem.NCells() != 3 {
		t.Errorf("%d cells, expected 3", mem.NCells())
	}
}

func TestMemoryCellListSets(t *testing.T) {
	rd := testRegisters()
	eb := symexpr.NewExprBuilder()
	ops := symbolic.NewOperators(eb, rd, nil)
	mem := ops.CurrentState().Memory()
	merger := semantics.NewMerger()
	merger.SetSizeLimit = 2
	mem.SetMerger(merger)

	x := ops.Undefined(32)
	ops.WriteMemory(noSegment, x, ops.Number(8, 0x12), ops.Boolean(true))
	y := ops.Undefined(32)
	v := ops.PeekMemory(noSegment, y, ops.Number(8, 0x34))
	e := v.(*symbolic.SValue).Expr()
	if !e.IsOperator(symexpr.OP_SET) || e.NChildren() != 2 {
		t.Errorf("expected a set of two values, got %s", v)
	}
}

func TestMemoryMerge(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	a := ops.CurrentState()
	a.WriteMemory(ops.Number(32, 0x10), ops.Number(8, 1), ops, ops)

	b := a.Clone()
	if a.Merge(b, ops) {
		t.Error("merging a clone should not change anything")
	}
	b.WriteMemory(ops.Number(32, 0x11), ops.Number(8, 2), ops, ops)
	if !a.Merge(b, ops) {
		t.Error("a cell only in the other state is a change")
	}
	b.WriteMemory(ops.Number(32, 0x10), ops.Number(8, 3), ops, ops)
	if !a.Merge(b, ops) {
		t.Error("different values are a change")
	}
	if v := a.PeekMemory(ops.Number(32, 0x10), ops.Number(8, 0), ops, ops); !v.IsBottom() {
		t.Errorf("expected bottom, got %s", v)
	}
	if a.Merge(b, ops) {
		t.Error("merging is idempotent")
	}
}

func TestMemoryCellListMerge(t *testing.T) {
	rd := testRegisters()
	eb := symexpr.NewExprBuilder()
	ops := symbolic.NewOperators(eb, rd, nil)
	a := ops.CurrentState()
	x := ops.Undefined(32)
	a.WriteMemory(x, ops.Number(8, 1), ops, ops)

	if a.Merge(a, ops) {
		t.Error("merging a state with itself should not change it")
	}
	b := a.Clone()
	b.WriteMemory(x, ops.Number(8, 2), ops, ops)
	if !a.Merge(b, ops) {
		t.Error("different values are a change")
	}
	if v := a.PeekMemory(x, ops.Number(8, 0), ops, ops); !v.IsBottom() {
		t.Errorf("expected bottom, got %s", v)
	}
}
