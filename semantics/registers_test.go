package semantics_test

import (
	"strings"
	"testing"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/semantics/concrete"
	"github.com/google/go-cmp/cmp"
)

func TestRegisterPartialWrite(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)

	ops.WriteRegister(reg(rd, "eax"), ops.Number(32, 0x11223344))
	ops.WriteRegister(reg(rd, "al"), ops.Number(8, 0xaa))

	expectNumber(t, "eax", ops.ReadRegister(reg(rd, "eax")), 0x112233aa)
	expectNumber(t, "ax", ops.ReadRegister(reg(rd, "ax")), 0x33aa)
	expectNumber(t, "ah", ops.ReadRegister(reg(rd, "ah")), 0x33)
}

func TestRegisterGapsFromDefault(t *testing.T) {
	rd := testRegisters()
	state := concrete.NewState(rd)
	ops := concrete.NewOperatorsFromState(state, nil)

	state.WriteRegister(reg(rd, "ah"), ops.Number(8, 0x12), ops)
	v := state.ReadRegister(reg(rd, "ax"), ops.Number(16, 0xbbcc), ops)
	expectNumber(t, "ax", v, 0x12cc)

	if !state.Registers().IsStored(reg(rd, "ax")) {
		t.Error("reading ax should store its missing bits")
	}
	if state.Registers().IsStored(reg(rd, "eax")) {
		t.Error("the high half of eax was never stored")
	}
}

func TestPeekRegister(t *testing.T) {
	rd := testRegisters()
	state := concrete.NewState(rd)
	ops := concrete.NewOperatorsFromState(state, nil)

	expectNumber(t, "eax", state.PeekRegister(reg(rd, "eax"), ops.Number(32, 5), ops), 5)
	if state.Registers().IsStored(reg(rd, "eax")) {
		t.Error("peek should not store anything")
	}
}

func TestZeroRegisters(t *testing.T) {
	rd := testRegisters()
	state := concrete.NewState(rd)
	ops := concrete.NewOperatorsFromState(state, nil)
	state.ZeroRegisters()

	regs := state.Registers().(*semantics.RegisterStateGeneric)
	want := []semantics.RegisterDescriptor{
		reg(rd, "eax"), reg(rd, "ebx"), reg(rd, "esp"), reg(rd, "eip"),
	}
	if diff := cmp.Diff(want, regs.StoredRegisters()); diff != "" {
		t.Errorf("stored registers mismatch (-want +got):\n%s", diff)
	}
	expectNumber(t, "ah", state.PeekRegister(reg(rd, "ah"), ops.Number(8, 1), ops), 0)
}

func TestRegisterWidthMismatch(t *testing.T) {
	rd := testRegisters()
	state := concrete.NewState(rd)
	ops := concrete.NewOperatorsFromState(state, nil)

	expectPanic(t, "writing 16 bits to eax", func() {
		state.WriteRegister(reg(rd, "eax"), ops.Number(16, 0), ops)
	})
	expectPanic(t, "reading the empty register", func() {
		state.ReadRegister(semantics.RegisterDescriptor{}, ops.Number(8, 0), ops)
	})
}

func TestRegisterProperties(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	regs := ops.CurrentState().Registers().(*semantics.RegisterStateGeneric)

	ops.WriteRegister(reg(rd, "ebx"), ops.Number(32, 1))
	ops.ReadRegister(reg(rd, "ebx"))
	ops.ReadRegister(reg(rd, "eax"))

	insn := &testInsn{addr: 0x1000, size: 4}
	ops.StartInstruction(insn)
	ops.WriteRegister(reg(rd, "al"), ops.Number(8, 1))
	ops.ReadRegister(reg(rd, "al"))
	ops.FinishInstruction(insn)

	tests := []struct {
		name string
		want semantics.IOPropertySet
	}{
		{"ebx", semantics.NewIOPropertySet(semantics.IO_READ, semantics.IO_INIT, semantics.IO_READ_BEFORE_WRITE)},
		{"ah", semantics.NewIOPropertySet(semantics.IO_READ, semantics.IO_READ_BEFORE_WRITE, semantics.IO_READ_UNINITIALIZED)},
		{"al", semantics.NewIOPropertySet(semantics.IO_READ, semantics.IO_WRITE, semantics.IO_READ_BEFORE_WRITE,
			semantics.IO_READ_AFTER_WRITE, semantics.IO_READ_UNINITIALIZED)},
		{"esp", semantics.NewIOPropertySet()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := regs.Properties(reg(rd, tt.name)); got != tt.want {
				t.Errorf("properties %s, expected %s", got, tt.want)
			}
		})
	}

	eax := reg(rd, "eax")
	if !regs.HasPropertyAny(eax, semantics.IO_WRITE) {
		t.Error("some bit of eax was written")
	}
	if regs.HasPropertyAll(eax, semantics.IO_WRITE) {
		t.Error("not every bit of eax was written")
	}
	if !regs.HasPropertyAll(eax, semantics.IO_READ) {
		t.Error("every bit of eax was read")
	}

	regs.EraseProperties(eax, semantics.NewIOPropertySet(semantics.IO_READ))
	if regs.HasPropertyAny(eax, semantics.IO_READ) {
		t.Error("read property should be erased")
	}
}

func TestRegisterMerge(t *testing.T) {
	rd := testRegisters()
	a := concrete.NewState(rd)
	ops := concrete.NewOperatorsFromState(a, nil)
	eax, ebx := reg(rd, "eax"), reg(rd, "ebx")

	a.WriteRegister(eax, ops.Number(32, 1), ops)
	if a.Merge(a, ops) {
		t.Error("merging a state with itself should not change it")
	}

	b := a.Clone()
	if a.Merge(b, ops) {
		t.Error("merging a clone should not change anything")
	}

	b.WriteRegister(ebx, ops.Number(32, 2), ops)
	if !a.Merge(b, ops) {
		t.Error("a register only stored in the other state is a change")
	}
	expectNumber(t, "ebx", a.PeekRegister(ebx, ops.Number(32, 0), ops), 2)

	b.WriteRegister(eax, ops.Number(32, 3), ops)
	if !a.Merge(b, ops) {
		t.Error("different values are a change")
	}
	if v := a.PeekRegister(eax, ops.Number(32, 0), ops); !v.IsBottom() {
		t.Errorf("merging different concrete values should give bottom, got %s", v)
	}
	if a.Merge(b, ops) {
		t.Error("merging is idempotent")
	}
}

func TestRegisterPrint(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	ops.WriteRegister(reg(rd, "ebx"), ops.Number(32, 0x2a))
	ops.ReadRegister(reg(rd, "eax"))

	f := semantics.NewFormatter()
	f.ShowProperties = false
	f.SuppressInitialValues = true
	want := "registers:\n  ebx = 0x0000002a[32]\nmemory:\n"

	var sb strings.Builder
	ops.CurrentState().Print(&sb, f)
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("print mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterPersistence(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)
	ops.WriteRegister(reg(rd, "eax"), ops.Number(32, 0xdeadbeef))
	ops.ReadRegister(reg(rd, "ebx"))
	regs := ops.CurrentState().Registers().(*semantics.RegisterStateGeneric)

	data, err := regs.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored := semantics.NewRegisterStateGeneric(concrete.NewProtoval(), nil)
	if err := restored.Unmarshal(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.Dictionary() == nil || restored.Dictionary().Name() != "test" {
		t.Fatal("the register dictionary should be restored")
	}
	if diff := cmp.Diff(regs.StoredRegisters(), restored.StoredRegisters()); diff != "" {
		t.Errorf("stored registers mismatch (-want +got):\n%s", diff)
	}
	expectNumber(t, "eax", restored.PeekRegister(reg(rd, "eax"), ops.Number(32, 0), ops), 0xdeadbeef)
	if c := restored.PeekRegister(reg(rd, "ebx"), ops.Number(32, 0), ops).Comment(); c != "ebx_0" {
		t.Errorf("comment %q, expected ebx_0", c)
	}
	if got, want := restored.Properties(reg(rd, "ebx")), regs.Properties(reg(rd, "ebx")); got != want {
		t.Errorf("properties %s, expected %s", got, want)
	}
}

func TestRegisterPersistenceVersions(t *testing.T) {
	rd := testRegisters()
	ops := concrete.NewOperators(rd)

	v1 := `{"version":1,"registers":[{"major":0,"minor":1,"offset":0,"nbits":32,"value":{"nbits":32,"value":"0x2a"}}]}`
	regs := semantics.NewRegisterStateGeneric(concrete.NewProtoval(), rd)
	if err := regs.Unmarshal([]byte(v1)); err != nil {
		t.Fatalf("version 1: %v", err)
	}
	if regs.Dictionary() != rd {
		t.Error("version 1 data keeps the current dictionary")
	}
	expectNumber(t, "ebx", regs.PeekRegister(reg(rd, "ebx"), ops.Number(32, 0), ops), 0x2a)

	bad := map[string]string{
		"version":   `{"version":3,"registers":[]}`,
		"width":     `{"version":1,"registers":[{"major":0,"minor":1,"offset":0,"nbits":16,"value":{"nbits":32,"value":"0x2a"}}]}`,
		"duplicate": `{"version":1,"registers":[{"major":0,"minor":1,"offset":0,"nbits":32,"value":{"nbits":32,"value":"0x1"}},{"major":0,"minor":1,"offset":0,"nbits":32,"value":{"nbits":32,"value":"0x2"}}]}`,
		"syntax":    `{"version":`,
	}
	for name, data := range bad {
		t.Run(name, func(t *testing.T) {
			s := semantics.NewRegisterStateGeneric(concrete.NewProtoval(), rd)
			if err := s.Unmarshal([]byte(data)); err == nil {
				t.Error("should fail")
			}
		})
	}
}
