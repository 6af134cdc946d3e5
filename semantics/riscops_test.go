package semantics_test

import (
	"testing"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/semantics/concrete"
	"github.com/borzacchiello/gosem/semantics/nullsem"
)

func TestAddWithCarries(t *testing.T) {
	ops := concrete.NewOperators(testRegisters())

	tests := []struct {
		a, b, c      uint64
		sum, carries uint64
	}{
		{0x36, 0xe4, 0, 0x1a, 0xe4},
		{0xff, 0x00, 1, 0x00, 0xff},
		{0x01, 0x01, 0, 0x02, 0x01},
		{0x00, 0x00, 0, 0x00, 0x00},
	}
	for _, tt := range tests {
		sum, carries := ops.AddWithCarries(ops.Number(8, tt.a), ops.Number(8, tt.b), ops.Number(1, tt.c))
		expectNumber(t, "sum", sum, tt.sum)
		expectNumber(t, "carries", carries, tt.carries)
		if sum.Width() != 8 || carries.Width() != 8 {
			t.Errorf("widths %d and %d, expected 8", sum.Width(), carries.Width())
		}
	}
}

func TestDerivedComparisons(t *testing.T) {
	ops := concrete.NewOperators(testRegisters())
	a, b := ops.Number(8, 0x80), ops.Number(8, 0x01)

	expectNumber(t, "a <=u b", ops.IsUnsignedLessThanOrEqual(a, b), 0)
	expectNumber(t, "a >u b", ops.IsUnsignedGreaterThan(a, b), 1)
	expectNumber(t, "a >=u a", ops.IsUnsignedGreaterThanOrEqual(a, a), 1)
	expectNumber(t, "a <=s b", ops.IsSignedLessThanOrEqual(a, b), 1)
	expectNumber(t, "a >s b", ops.IsSignedGreaterThan(a, b), 0)
	expectNumber(t, "b >=s a", ops.IsSignedGreaterThanOrEqual(b, a), 1)
	expectNumber(t, "a != b", ops.IsNotEqual(a, b), 1)
	expectNumber(t, "a == a", ops.IsEqual(a, a), 1)
}

func TestInitialStateRegisters(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	initial := concrete.NewState(rd)
	ops.SetInitialState(initial)
	eax, ebx := reg(rd, "eax"), reg(rd, "ebx")

	initial.WriteRegister(eax, ops.Number(32, 5), ops)
	expectNumber(t, "eax", ops.ReadRegister(eax), 5)
	if !ops.CurrentState().Registers().IsStored(eax) {
		t.Error("the value read should be stored in the current state")
	}

	v := ops.ReadRegister(ebx)
	if v.Comment() != "ebx_0" {
		t.Errorf("comment %q, expected ebx_0", v.Comment())
	}
	if !initial.Registers().IsStored(ebx) {
		t.Error("the first value read should be stored in the initial state")
	}

	ops.WriteRegister(eax, ops.Number(32, 7))
	expectNumber(t, "eax", ops.ReadRegister(eax), 7)
	expectNumber(t, "initial eax", initial.PeekRegister(eax, ops.Number(32, 0), ops), 5)

	ops.SetInitialState(nil)
	expectNumber(t, "esp", ops.PeekRegister(reg(rd, "esp"), ops.Number(32, 9)), 9)
}

func TestInstructionBracket(t *testing.T) {
	ops := concrete.NewOperators(testRegisters())
	i1 := &testInsn{kind: 1, addr: 0x10}
	i2 := &testInsn{kind: 2, addr: 0x20}

	expectPanic(t, "current instruction outside an instruction", func() { ops.CurrentInstruction() })

	ops.StartInstruction(i1)
	if ops.CurrentInstruction() != i1 {
		t.Error("wrong current instruction")
	}
	expectPanic(t, "starting while processing", func() { ops.StartInstruction(i2) })
	expectPanic(t, "finishing another instruction", func() { ops.FinishInstruction(i2) })
	ops.FinishInstruction(i1)
	expectPanic(t, "finishing twice", func() { ops.FinishInstruction(i1) })

	ops.StartInstruction(i2)
	ops.FinishInstruction(i2)
	if ops.NInsns() != 2 {
		t.Errorf("%d instructions, expected 2", ops.NInsns())
	}
}

func TestFloatClassification(t *testing.T) {
	ops := concrete.NewOperators(testRegisters())
	f32 := semantics.IEEE32()

	tests := []struct {
		name                              string
		bits                              uint64
		nan, inf, zero, denormal, negative uint64
	}{
		{"one", 0x3f800000, 0, 0, 0, 0, 0},
		{"nan", 0x7fc00000, 1, 0, 0, 0, 0},
		{"-inf", 0xff800000, 0, 1, 0, 0, 1},
		{"-zero", 0x80000000, 0, 0, 1, 0, 1},
		{"denormal", 0x00000001, 0, 0, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ops.Number(32, tt.bits)
			expectNumber(t, "nan", ops.FpIsNan(v, f32), tt.nan)
			expectNumber(t, "infinity", ops.FpIsInfinity(v, f32), tt.inf)
			expectNumber(t, "zero", ops.FpIsZero(v, f32), tt.zero)
			expectNumber(t, "denormalized", ops.FpIsDenormalized(v, f32), tt.denormal)
			expectNumber(t, "sign", ops.FpSign(v, f32), tt.negative)
		})
	}

	expectNumber(t, "exponent of 1", ops.FpEffectiveExponent(ops.Number(32, 0x3f800000), f32), 0)
	expectNumber(t, "exponent of 8", ops.FpEffectiveExponent(ops.Number(32, 0x41000000), f32), 3)
	// 1 - 127 on 8 bits
	expectNumber(t, "exponent of a denormal", ops.FpEffectiveExponent(ops.Number(32, 1), f32), 0x82)
	expectNumber(t, "significand of 1.5", ops.FpSignificand(ops.Number(32, 0x3fc00000), f32), 0x400000)
}

func TestFloatNotImplemented(t *testing.T) {
	ops := nullsem.NewOperators(testRegisters())
	f32 := semantics.IEEE32()

	_, err := ops.FpAdd(ops.Number(32, 0), ops.Number(32, 0), f32)
	if !semantics.IsNotImplemented(err) {
		t.Errorf("expected not implemented, got %v", err)
	}
	v := ops.Number(32, 0)
	if r, err := ops.FpConvert(v, f32, f32); err != nil || r != v {
		t.Errorf("converting to the same type should return the value, got %v, %v", r, err)
	}
}

func TestNullOperators(t *testing.T) {
	rd := testRegisters()
	ops := nullsem.NewOperators(rd)

	ops.WriteRegister(reg(rd, "eax"), ops.Number(32, 1))
	if v := ops.ReadRegister(reg(rd, "eax")); v.Width() != 32 || v.IsNumber() {
		t.Errorf("null reads should be undefined, got %s", v)
	}
	if v := ops.UnsignedMultiply(ops.Number(32, 1), ops.Number(16, 1)); v.Width() != 48 {
		t.Errorf("product has %d bits, expected 48", v.Width())
	}
	if v := ops.UnsignedExtend(ops.Number(8, 1), 32); v.Width() != 32 {
		t.Errorf("extension has %d bits, expected 32", v.Width())
	}
	v := ops.ReadMemory(noSegment, ops.Number(32, 0), ops.Undefined(64), ops.Boolean(true))
	if v.Width() != 64 {
		t.Errorf("memory read has %d bits, expected 64", v.Width())
	}
	if ops.CurrentState().Merge(ops.CurrentState().Clone(), ops) {
		t.Error("null states never change")
	}
}
