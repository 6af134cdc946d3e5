package semantics_test

import (
	"fmt"
	"testing"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/davecgh/go-spew/spew"
)

func testRegisters() *semantics.RegisterDictionary {
	rd := semantics.NewRegisterDictionary("test")
	rd.Insert("eax", semantics.RegisterDescriptor{Major: 0, Minor: 0, Offset: 0, NBits: 32})
	rd.Insert("ax", semantics.RegisterDescriptor{Major: 0, Minor: 0, Offset: 0, NBits: 16})
	rd.Insert("al", semantics.RegisterDescriptor{Major: 0, Minor: 0, Offset: 0, NBits: 8})
	rd.Insert("ah", semantics.RegisterDescriptor{Major: 0, Minor: 0, Offset: 8, NBits: 8})
	rd.Insert("ebx", semantics.RegisterDescriptor{Major: 0, Minor: 1, Offset: 0, NBits: 32})
	rd.Insert("esp", semantics.RegisterDescriptor{Major: 0, Minor: 4, Offset: 0, NBits: 32})
	rd.Insert("eip", semantics.RegisterDescriptor{Major: 1, Minor: 0, Offset: 0, NBits: 32})
	return rd
}

func reg(rd *semantics.RegisterDictionary, name string) semantics.RegisterDescriptor {
	desc, ok := rd.Lookup(name)
	if !ok {
		panic("unknown register " + name)
	}
	return desc
}

type testInsn struct {
	kind     int
	addr     uint64
	size     uint
	operands []semantics.Expression
}

func (i *testInsn) Kind() int                          { return i.kind }
func (i *testInsn) Address() uint64                    { return i.addr }
func (i *testInsn) Size() uint                         { return i.size }
func (i *testInsn) Operands() []semantics.Expression { return i.operands }

func (i *testInsn) String() string {
	return fmt.Sprintf("insn%d@%#x", i.kind, i.addr)
}

func expectNumber(t *testing.T, what string, v semantics.SValue, want uint64) {
	t.Helper()
	if v == nil || !v.IsNumber() {
		t.Errorf("%s is not a number: %s", what, spew.Sdump(v))
		return
	}
	if v.Number() != want {
		t.Errorf("%s = %#x, expected %#x", what, v.Number(), want)
	}
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s should panic", what)
		}
	}()
	fn()
}
