package toyisa

import (
	"context"
	"strings"
	"testing"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/semantics/concrete"
	"github.com/borzacchiello/gosem/semantics/nullsem"
	"github.com/borzacchiello/gosem/semantics/symbolic"
	"github.com/borzacchiello/gosem/symexpr"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

func mustAssemble(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return p
}

func runConcrete(t *testing.T, src string) (*concrete.Operators, *Machine) {
	t.Helper()
	ops := concrete.NewOperators(Registers())
	m, err := NewMachine(ops, mustAssemble(t, src))
	if err != nil {
		t.Fatalf("machine: %v", err)
	}
	m.MaxSteps = 1000
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return ops, m
}

func expectReg(t *testing.T, ops semantics.RiscOperators, name string, want uint64) {
	t.Helper()
	desc, ok := Registers().Lookup(name)
	if !ok {
		t.Fatalf("no register %s", name)
	}
	v := ops.ReadRegister(desc)
	if !v.IsNumber() || v.Number() != want {
		t.Errorf("%s = %s, expected %#x", name, spew.Sdump(v), want)
	}
}

func TestSumLoop(t *testing.T) {
	ops, m := runConcrete(t, `
		mov r0, 0
		mov r1, 10
	loop:
		add r0, r1
		sub r1, 1
		jnz loop
		hlt
	`)
	expectReg(t, ops, "r0", 55)
	expectReg(t, ops, "r1", 0)
	expectReg(t, ops, "zf", 1)
	if !m.Halted() || m.Steps() != 33 {
		t.Errorf("halted %v after %d steps", m.Halted(), m.Steps())
	}
	expectReg(t, ops, "ip", DefaultBase+5*InsnSize)
}

func TestFlags(t *testing.T) {
	ops, _ := runConcrete(t, `
		mov r0, 3
		cmp r0, 5
		hlt
	`)
	expectReg(t, ops, "r0", 3)
	expectReg(t, ops, "cf", 1)
	expectReg(t, ops, "zf", 0)
	expectReg(t, ops, "sf", 1)
	expectReg(t, ops, "of", 0)

	ops, _ = runConcrete(t, `
		mov r0, 0x7fffffff
		add r0, 1
		hlt
	`)
	expectReg(t, ops, "r0", 0x80000000)
	expectReg(t, ops, "cf", 0)
	expectReg(t, ops, "sf", 1)
	expectReg(t, ops, "of", 1)

	ops, _ = runConcrete(t, `
		mov r0, 0xf0
		and r0, 0x0f
		hlt
	`)
	expectReg(t, ops, "zf", 1)
	expectReg(t, ops, "cf", 0)
}

func TestArithmetic(t *testing.T) {
	ops, _ := runConcrete(t, `
		mov r0, 6
		mul r0, 7
		mov r1, r0
		divu r1, 5
		mov r2, 1
		shl r2, 4
		mov r3, 0x1234
		xor r3w, 0xff
		or r3b, 1
		mov r4, -4
		shr r4, 28
		hlt
	`)
	expectReg(t, ops, "r0", 42)
	expectReg(t, ops, "r1", 8)
	expectReg(t, ops, "r2", 16)
	expectReg(t, ops, "r3", 0x12cb)
	expectReg(t, ops, "r4", 0xf)
}

func TestStack(t *testing.T) {
	ops, _ := runConcrete(t, `
		mov sp, 0x8000
		mov r1, 0x11223344
		push 7
		push r1
		pop r2
		pop r3b
		hlt
	`)
	expectReg(t, ops, "r2", 0x11223344)
	expectReg(t, ops, "r3b", 7)
	expectReg(t, ops, "sp", 0x8000)
	v := ops.PeekMemory(semantics.RegisterDescriptor{}, ops.Number(32, 0x7ff8), ops.Number(32, 0))
	if !v.IsNumber() || v.Number() != 0x11223344 {
		t.Errorf("[0x7ff8] = %s", v)
	}
}

func TestLoadStore(t *testing.T) {
	ops, _ := runConcrete(t, `
		mov r1, 0x100
		store [r1+4], 0xdeadbeef
		load r2, [r1+4]
		load r3b, [r1+5]
		mov r4w, [r1+6]
		store [r1-0x100], r3b
		load r5, [0]
		hlt
	`)
	expectReg(t, ops, "r2", 0xdeadbeef)
	expectReg(t, ops, "r3b", 0xbe)
	expectReg(t, ops, "r4w", 0xdead)
	expectReg(t, ops, "r5b", 0xbe)
}

func TestSymbolicRun(t *testing.T) {
	rd := Registers()
	eb := symexpr.NewExprBuilder()
	ops := symbolic.NewOperators(eb, rd, nil)
	initial := symbolic.NewState(eb, rd)
	ops.SetInitialState(initial)

	m, err := NewMachine(ops, mustAssemble(t, "add r0, r1\nhlt"))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	r0, _ := rd.Lookup("r0")
	v := ops.ReadRegister(r0).(*symbolic.SValue)
	if !v.Expr().IsOperator(symexpr.OP_ADD) {
		t.Errorf("r0 = %s", v)
	}
	r1, _ := rd.Lookup("r1")
	if !initial.Registers().IsStored(r0) || !initial.Registers().IsStored(r1) {
		t.Error("the inputs should be recorded in the initial state")
	}
}

func TestSymbolicBranch(t *testing.T) {
	rd := Registers()
	eb := symexpr.NewExprBuilder()
	ops := symbolic.NewOperators(eb, rd, nil)
	ops.SetInitialState(symbolic.NewState(eb, rd))

	m, err := NewMachine(ops, mustAssemble(t, `
		cmp r0, 0
		jz done
		hlt
	done:
		hlt
	`))
	if err != nil {
		t.Fatal(err)
	}
	err = m.Run(context.Background())
	if !errors.Is(err, ErrSymbolicIP) {
		t.Errorf("expected ErrSymbolicIP, got %v", err)
	}
	if m.Steps() != 2 {
		t.Errorf("%d steps, expected 2", m.Steps())
	}
}

func TestNullRun(t *testing.T) {
	ops := nullsem.NewOperators(Registers())
	m, err := NewMachine(ops, mustAssemble(t, "mov r0, 1\nhlt"))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(context.Background()); !errors.Is(err, ErrSymbolicIP) {
		t.Errorf("expected ErrSymbolicIP, got %v", err)
	}
}

func TestRunLimits(t *testing.T) {
	ops := concrete.NewOperators(Registers())
	m, err := NewMachine(ops, mustAssemble(t, "loop: jmp loop"))
	if err != nil {
		t.Fatal(err)
	}
	m.MaxSteps = 5
	if err := m.Run(context.Background()); !errors.Is(err, ErrStepLimit) {
		t.Errorf("expected ErrStepLimit, got %v", err)
	}
	if m.Steps() != 5 {
		t.Errorf("%d steps", m.Steps())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	ops := concrete.NewOperators(Registers())
	m, err := NewMachine(ops, mustAssemble(t, "add r0, 1\njmp 0x10"))
	if err != nil {
		t.Fatal(err)
	}
	m.Dispatcher().IprocSet(int(OP_ADD), nil)
	if err := m.Step(); !errors.Is(err, semantics.ErrNoProcessor) {
		t.Errorf("expected ErrNoProcessor, got %v", err)
	}

	m, _ = NewMachine(concrete.NewOperators(Registers()), mustAssemble(t, "jmp 0x10"))
	if err := m.Step(); err != nil {
		t.Fatal(err)
	}
	if err := m.Step(); err == nil || !strings.Contains(err.Error(), "no instruction at 0x10") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestAssemble(t *testing.T) {
	p := mustAssemble(t, `
	start:	mov r0, -4   ; comment
		load r3b, [r1+5]
		store [r1], r2w
	# another comment
		jmp start
	`)
	if len(p.Insns) != 4 || p.Labels["start"] != DefaultBase {
		t.Fatalf("unexpected program:\n%s", p)
	}
	want := []string{
		"mov r0, 0xfffffffc",
		"load r3b, u8 [r1 + 0x5]",
		"store u16 [r1], r2w",
		"jmp 0x1000",
	}
	for i, insn := range p.Insns {
		if s := insn.String(); s != want[i] {
			t.Errorf("insn %d is %q, expected %q", i, s, want[i])
		}
		if insn.Addr != DefaultBase+uint64(i)*InsnSize {
			t.Errorf("insn %d at %#x", i, insn.Addr)
		}
	}
	if insn, ok := p.At(DefaultBase + 8); !ok || insn.Op != OP_STORE {
		t.Error("lookup by address")
	}
	if _, ok := p.At(DefaultBase + 2); ok {
		t.Error("misaligned addresses have no instruction")
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		src, msg string
	}{
		{"frob r0", "unknown mnemonic"},
		{"mov r0", "takes 2 operands"},
		{"mov 1, r0", "cannot write"},
		{"jmp nowhere", "undefined label"},
		{"load r0, r1", "reads from memory"},
		{"store r0, r1", "writes to memory"},
		{"mov r0, [r9]", "invalid base register"},
		{"mov r0, [r1w]", "invalid base register"},
		{"mov r0, [r1+zz]", "invalid displacement"},
		{"mov r0, [r1", "unterminated"},
		{"mov r0, %", "invalid operand"},
		{"x: nop\nx: nop", "duplicate label"},
		{"1x: nop", "invalid label"},
	}
	for _, tt := range tests {
		_, err := Assemble(tt.src)
		if err == nil || !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%q: expected %q, got %v", tt.src, tt.msg, err)
		}
	}
}
